// Package scout is the discovery phase: for every interest and calendar day
// in range it drives one search-augmented generation call that returns
// candidate event-page links, then aggregates and deduplicates the result.
package scout

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/wander-labs/wander/internal/artifacts"
	"github.com/wander-labs/wander/internal/extract"
	"github.com/wander-labs/wander/internal/itinerary"
	"github.com/wander-labs/wander/internal/llm"
	"github.com/wander-labs/wander/internal/metrics"
)

const dayLayout = "2006-01-02"

type Scout struct {
	provider  llm.Provider
	artifacts *artifacts.Logger
	delay     time.Duration
	linkCap   int
	now       func() time.Time
}

type Option func(*Scout)

// WithDelay sets the fixed pause between search calls (upstream rate limits).
func WithDelay(d time.Duration) Option {
	return func(s *Scout) { s.delay = d }
}

// WithLinkCap sets the per-call link cap requested from the model.
func WithLinkCap(n int) Option {
	return func(s *Scout) { s.linkCap = n }
}

func WithArtifacts(l *artifacts.Logger) Option {
	return func(s *Scout) { s.artifacts = l }
}

func withNow(now func() time.Time) Option {
	return func(s *Scout) { s.now = now }
}

func New(provider llm.Provider, opts ...Option) *Scout {
	s := &Scout{
		provider: provider,
		delay:    1500 * time.Millisecond,
		linkCap:  10,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Progress is one structured milestone of the sweep.
type Progress struct {
	CallsDone  int
	CallsTotal int
	Interest   string
	Date       string
	LinksFound int
}

// CallResult is the per-call diagnostic record.
type CallResult struct {
	Interest    string   `json:"interest"`
	Date        string   `json:"date"`
	LinksFound  int      `json:"links_found"`
	QueriesUsed []string `json:"queries_used,omitempty"`
	Error       string   `json:"error,omitempty"`
}

type Result struct {
	AllLinks        []itinerary.Link `json:"allLinks"`
	TotalLinksFound int              `json:"totalLinksFound"`
	SearchResults   []CallResult     `json:"searchResults"`
}

type scoutResponse struct {
	Links       []itinerary.Link `json:"links"`
	TotalFound  int              `json:"total_found"`
	QueriesUsed []string         `json:"queries_used"`
}

// Run sweeps every interest x calendar day pair in [startDate, endDate]
// (inclusive), strictly sequentially with a fixed delay between calls. A
// failed call degrades to zero links for that pair; it never aborts the
// sweep. Links are annotated with their originating interest and day, then
// deduplicated by URL keeping the first occurrence.
func (s *Scout) Run(ctx context.Context, city string, interests []string, startDate, endDate string, onProgress func(Progress)) (*Result, error) {
	days, err := daysInRange(startDate, endDate)
	if err != nil {
		return nil, err
	}
	if len(interests) == 0 {
		return nil, fmt.Errorf("no interests to scout")
	}

	total := len(interests) * len(days)
	result := &Result{AllLinks: []itinerary.Link{}, SearchResults: []CallResult{}}
	done := 0

	for _, interest := range interests {
		for _, day := range days {
			links, queries, callErr := s.searchOnce(ctx, city, interest, day)
			done++

			call := CallResult{Interest: interest, Date: day, LinksFound: len(links), QueriesUsed: queries}
			if callErr != nil {
				call.Error = callErr.Error()
				log.Printf("scout: search for %q on %s degraded to empty: %v", interest, day, callErr)
			}
			result.SearchResults = append(result.SearchResults, call)

			searchedAt := s.now()
			for _, link := range links {
				link.Interest = interest
				link.Date = day
				link.SearchedAt = searchedAt
				result.AllLinks = append(result.AllLinks, link)
			}
			metrics.LinksDiscovered.Add(float64(len(links)))

			if onProgress != nil {
				onProgress(Progress{
					CallsDone:  done,
					CallsTotal: total,
					Interest:   interest,
					Date:       day,
					LinksFound: len(links),
				})
			}

			if done < total {
				if err := sleepCtx(ctx, s.delay); err != nil {
					return nil, err
				}
			}
		}
	}

	result.AllLinks = itinerary.DedupLinks(result.AllLinks)
	result.TotalLinksFound = len(result.AllLinks)
	_ = s.artifacts.WriteJSON("scout_links", result)
	return result, nil
}

func (s *Scout) searchOnce(ctx context.Context, city, interest, day string) ([]itinerary.Link, []string, error) {
	prompt := s.buildPrompt(city, interest, day)
	_ = s.artifacts.AppendText("scout_prompts", prompt)

	start := time.Now()
	response, err := s.provider.GenerateWithSearch(ctx, []llm.Message{{Role: "user", Content: prompt}})
	metrics.ObserveLLMCall("scout", start, err)
	if err != nil {
		return nil, nil, err
	}
	_ = s.artifacts.AppendText("scout_responses", response)

	value, err := extract.JSON(response)
	if err != nil {
		return nil, nil, err
	}
	var parsed scoutResponse
	if err := extract.Decode(value, &parsed); err != nil {
		return nil, nil, fmt.Errorf("decode scout response: %w", err)
	}
	if len(parsed.Links) > s.linkCap {
		parsed.Links = parsed.Links[:s.linkCap]
	}
	return parsed.Links, parsed.QueriesUsed, nil
}

func (s *Scout) buildPrompt(city, interest, day string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Find event pages for %q activities in %s on %s.\n\n", interest, city, day)
	b.WriteString("Run several web searches, covering at least these variants:\n")
	fmt.Fprintf(&b, "1. \"%s %s events %s\"\n", city, interest, day)
	fmt.Fprintf(&b, "2. site-scoped searches on event platforms (eventbrite.com, meetup.com, ticketmaster.com) for %q in %s\n", interest, city)
	fmt.Fprintf(&b, "3. \"%s %s workshop OR class %s\"\n", city, interest, day)
	b.WriteString("\nCollect links to pages that describe a specific scheduled event on that date. ")
	fmt.Fprintf(&b, "Return at most %d links.\n\n", s.linkCap)
	b.WriteString("Respond with a single JSON object, no prose:\n")
	b.WriteString(`{
  "links": [
    {
      "url": "exact page URL",
      "title": "page title",
      "snippet": "one-line summary of what the page says",
      "platform": "site or platform name",
      "confidence": "high|medium|low"
    }
  ],
  "total_found": 0,
  "queries_used": ["each query you ran"]
}`)
	return b.String()
}

func daysInRange(startDate, endDate string) ([]string, error) {
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

	var days []string
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		days = append(days, day.Format(dayLayout))
	}
	return days, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
