// Package coverage buckets extracted events by calendar day and time-of-day
// band. It is pure computation over the event set; it never performs I/O.
package coverage

import (
	"fmt"
	"time"

	"github.com/wander-labs/wander/internal/itinerary"
)

const dayLayout = "2006-01-02"

// Analyze initializes one entry per calendar day in [startDate, endDate]
// (inclusive, zero-event days included) and buckets each event by the day
// portion of its start time. Flags use the coverage band convention:
// morning 8-12, afternoon 12-17, evening >= 17. An event with a malformed
// start time is dropped from bucketing only; it stays in the flat event list
// the caller holds.
func Analyze(events []itinerary.Event, startDate, endDate string) (map[string]itinerary.CoverageEntry, error) {
	start, err := time.Parse(dayLayout, startDate)
	if err != nil {
		return nil, fmt.Errorf("invalid start date %q: %w", startDate, err)
	}
	end, err := time.Parse(dayLayout, endDate)
	if err != nil {
		return nil, fmt.Errorf("invalid end date %q: %w", endDate, err)
	}
	if end.Before(start) {
		return nil, fmt.Errorf("end date %s precedes start date %s", endDate, startDate)
	}

	byDay := make(map[string]itinerary.CoverageEntry)
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		byDay[day.Format(dayLayout)] = itinerary.CoverageEntry{Events: []itinerary.Event{}}
	}

	for _, event := range events {
		when, err := event.Start()
		if err != nil {
			continue
		}
		key := when.Format(dayLayout)
		entry, ok := byDay[key]
		if !ok {
			continue
		}
		entry.Count++
		entry.Events = append(entry.Events, event)
		hour := when.Hour()
		switch {
		case hour >= 8 && hour < 12:
			entry.HasMorning = true
		case hour >= 12 && hour < 17:
			entry.HasAfternoon = true
		case hour >= 17:
			entry.HasEvening = true
		}
		byDay[key] = entry
	}

	return byDay, nil
}

// Gap names the time bands a day has no events in.
type Gap struct {
	Date         string   `json:"date"`
	MissingBands []string `json:"missing_bands"`
}

// band uses the gap finder's own convention (6/12/17/21 plus night). It is a
// separate view over the same events, deliberately not unified with the
// Analyze flags above.
func band(hour int) string {
	switch {
	case hour >= 6 && hour < 12:
		return "morning"
	case hour >= 12 && hour < 17:
		return "afternoon"
	case hour >= 17 && hour < 21:
		return "evening"
	default:
		return "night"
	}
}

// FindGaps reports, for each day in range, the daytime bands (morning,
// afternoon, evening) with no scheduled event. Night is never reported as a
// gap.
func FindGaps(events []itinerary.Event, startDate, endDate string) ([]Gap, error) {
	start, err := time.Parse(dayLayout, startDate)
	if err != nil {
		return nil, fmt.Errorf("invalid start date %q: %w", startDate, err)
	}
	end, err := time.Parse(dayLayout, endDate)
	if err != nil {
		return nil, fmt.Errorf("invalid end date %q: %w", endDate, err)
	}

	filled := make(map[string]map[string]bool)
	for _, event := range events {
		when, err := event.Start()
		if err != nil {
			continue
		}
		key := when.Format(dayLayout)
		if filled[key] == nil {
			filled[key] = map[string]bool{}
		}
		filled[key][band(when.Hour())] = true
	}

	var gaps []Gap
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		key := day.Format(dayLayout)
		var missing []string
		for _, name := range []string{"morning", "afternoon", "evening"} {
			if !filled[key][name] {
				missing = append(missing, name)
			}
		}
		if len(missing) > 0 {
			gaps = append(gaps, Gap{Date: key, MissingBands: missing})
		}
	}
	return gaps, nil
}
