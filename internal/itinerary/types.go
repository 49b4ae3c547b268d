// Package itinerary holds the domain model shared by the discovery pipeline:
// candidate links, validated events, rejections, coverage summaries, and the
// single-activity edit result.
package itinerary

import (
	"sort"
	"time"
)

// Link is a candidate event-page reference discovered by the scout phase.
type Link struct {
	URL        string    `json:"url"`
	Title      string    `json:"title"`
	Snippet    string    `json:"snippet"`
	Platform   string    `json:"platform"`
	Confidence string    `json:"confidence"` // high|medium|low
	Interest   string    `json:"interest"`
	Date       string    `json:"date"` // ISO calendar day the search targeted
	SearchedAt time.Time `json:"searchedAt"`
}

// Location is the venue portion of an event.
type Location struct {
	Venue   string `json:"venue"`
	Address string `json:"address"`
	City    string `json:"city"`
}

// Coordinates are estimated when unknown, never omitted.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Source records where an event came from. URL is either copied verbatim from
// the originating link or explicitly null; it is never synthesized.
type Source struct {
	Platform string  `json:"platform"`
	URL      *string `json:"url"`
}

type Pricing struct {
	IsFree   bool   `json:"is_free"`
	Price    string `json:"price"`
	Currency string `json:"currency"`
}

// Event is a validated, scheduled occurrence. Start and end times are ISO 8601
// local to the target city, not UTC-normalized. InterestMatched and TargetDate
// are transient provenance and are stripped before the final response.
type Event struct {
	Name            string      `json:"name"`
	Type            string      `json:"type"`
	Category        string      `json:"category"`
	Location        Location    `json:"location"`
	Coordinates     Coordinates `json:"coordinates"`
	StartTime       string      `json:"start_time"`
	EndTime         string      `json:"end_time"`
	DurationMinutes int         `json:"duration_minutes"`
	Description     string      `json:"description"`
	Source          Source      `json:"source"`
	Pricing         Pricing     `json:"pricing"`
	Tags            []string    `json:"tags"`
	InterestMatched string      `json:"interest_matched,omitempty"`
	TargetDate      string      `json:"target_date,omitempty"`
}

// RejectedLink records a link that failed the event-validity policy.
type RejectedLink struct {
	URL    string `json:"url"`
	Reason string `json:"reason"`
}

// CoverageEntry summarizes one calendar day of an itinerary.
type CoverageEntry struct {
	Count        int     `json:"count"`
	Events       []Event `json:"events"`
	HasMorning   bool    `json:"hasMorning"`
	HasAfternoon bool    `json:"hasAfternoon"`
	HasEvening   bool    `json:"hasEvening"`
}

// EditResult is the tagged outcome of a single-activity edit request.
type EditResult struct {
	Intent           string   `json:"intent"` // edit|issue|question|unclear
	Operation        string   `json:"operation"`
	UpdatedActivity  *Event   `json:"updated_activity,omitempty"`
	NewActivity      *Event   `json:"new_activity,omitempty"`
	ChangeSummary    string   `json:"change_summary"`
	Message          string   `json:"message,omitempty"`
	SuggestedActions []string `json:"suggested_actions,omitempty"`
}

// EditOperations is the closed set of operations an edit may resolve to.
var EditOperations = []string{
	"replace",
	"delete",
	"update_time",
	"update_description",
	"add",
	"report_issue",
	"clarify",
	"answer",
}

func ValidEditOperation(op string) bool {
	for _, known := range EditOperations {
		if op == known {
			return true
		}
	}
	return false
}

// timeLayouts accepted for event start/end times. Models emit local wall-clock
// timestamps without zone offsets; RFC 3339 is tolerated when one slips in.
var timeLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	time.RFC3339,
}

// ParseEventTime parses an event timestamp as city-local wall-clock time.
func ParseEventTime(value string) (time.Time, error) {
	var lastErr error
	for _, layout := range timeLayouts {
		parsed, err := time.Parse(layout, value)
		if err == nil {
			return parsed, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// Start parses the event's start time.
func (e Event) Start() (time.Time, error) {
	return ParseEventTime(e.StartTime)
}

// End parses the event's end time.
func (e Event) End() (time.Time, error) {
	return ParseEventTime(e.EndTime)
}

// NormalizeDuration recomputes duration_minutes from the start/end pair so the
// derived field always agrees with the timestamps. Unparseable times leave the
// reported value untouched.
func (e *Event) NormalizeDuration() {
	start, err := e.Start()
	if err != nil {
		return
	}
	end, err := e.End()
	if err != nil {
		return
	}
	e.DurationMinutes = int(end.Sub(start).Minutes())
}

// DedupLinks drops later duplicates by URL; first-seen metadata wins.
func DedupLinks(links []Link) []Link {
	seen := make(map[string]struct{}, len(links))
	out := make([]Link, 0, len(links))
	for _, link := range links {
		if _, dup := seen[link.URL]; dup {
			continue
		}
		seen[link.URL] = struct{}{}
		out = append(out, link)
	}
	return out
}

// DedupEvents drops later duplicates by the (name, start_time) pair.
func DedupEvents(events []Event) []Event {
	type key struct{ name, start string }
	seen := make(map[key]struct{}, len(events))
	out := make([]Event, 0, len(events))
	for _, event := range events {
		k := key{event.Name, event.StartTime}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, event)
	}
	return out
}

// SortEventsByStart orders events ascending by start_time. The lexical order
// of ISO 8601 local timestamps matches chronological order.
func SortEventsByStart(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].StartTime < events[j].StartTime
	})
}

// StripProvenance clears the transient scout/explorer bookkeeping fields
// before an event leaves the pipeline.
func StripProvenance(events []Event) {
	for i := range events {
		events[i].InterestMatched = ""
		events[i].TargetDate = ""
	}
}
