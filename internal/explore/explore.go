// Package explore is the verification phase: it takes the deduplicated link
// set from scout, batches it, and asks the model to classify each link as a
// valid scheduled event (with a structured record) or reject it with a
// reason. No link is silently lost: a batch-level failure converts every link
// in the batch into a rejection.
package explore

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

type Explorer struct {
	provider  llm.Provider
	artifacts *artifacts.Logger
	delay     time.Duration
	batchSize int
}

type Option func(*Explorer)

// WithDelay sets the fixed pause between batch calls.
func WithDelay(d time.Duration) Option {
	return func(e *Explorer) { e.delay = d }
}

// WithBatchSize sets how many links are described to the model per call.
func WithBatchSize(n int) Option {
	return func(e *Explorer) {
		if n > 0 {
			e.batchSize = n
		}
	}
}

func WithArtifacts(l *artifacts.Logger) Option {
	return func(e *Explorer) { e.artifacts = l }
}

func New(provider llm.Provider, opts ...Option) *Explorer {
	e := &Explorer{
		provider:  provider,
		delay:     2 * time.Second,
		batchSize: 5,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Progress is one structured milestone of the batch loop.
type Progress struct {
	BatchesDone  int
	BatchesTotal int
	EventsFound  int
	Rejected     int
}

type Result struct {
	Events        []itinerary.Event        `json:"events"`
	TotalAnalyzed int                      `json:"totalAnalyzed"`
	TotalEvents   int                      `json:"totalEvents"`
	Rejected      []itinerary.RejectedLink `json:"rejected"`
}

type exploreResponse struct {
	AnalyzedLinks int                      `json:"analyzed_links"`
	ValidEvents   []itinerary.Event        `json:"valid_events"`
	RejectedLinks []itinerary.RejectedLink `json:"rejected_links"`
}

// Run processes links in fixed-size batches, strictly sequentially with a
// fixed delay between batches. Valid events are merged, deduplicated by
// (name, start_time) keeping the first occurrence, sorted ascending by start
// time, and stripped of transient provenance before returning.
func (e *Explorer) Run(ctx context.Context, links []itinerary.Link, city string, onProgress func(Progress)) (*Result, error) {
	result := &Result{
		Events:        []itinerary.Event{},
		Rejected:      []itinerary.RejectedLink{},
		TotalAnalyzed: len(links),
	}
	if len(links) == 0 {
		return result, nil
	}

	batches := partition(links, e.batchSize)
	for i, batch := range batches {
		events, rejected, err := e.analyzeBatch(ctx, batch, city)
		if err != nil {
			log.Printf("explore: batch %d/%d failed, rejecting its %d links: %v", i+1, len(batches), len(batch), err)
			reason := fmt.Sprintf("batch analysis failed: %v", err)
			rejected = rejected[:0]
			for _, link := range batch {
				rejected = append(rejected, itinerary.RejectedLink{URL: link.URL, Reason: reason})
			}
		}
		result.Events = append(result.Events, events...)
		result.Rejected = append(result.Rejected, rejected...)
		metrics.EventsExtracted.Add(float64(len(events)))
		metrics.LinksRejected.Add(float64(len(rejected)))

		if onProgress != nil {
			onProgress(Progress{
				BatchesDone:  i + 1,
				BatchesTotal: len(batches),
				EventsFound:  len(result.Events),
				Rejected:     len(result.Rejected),
			})
		}

		if i < len(batches)-1 {
			if err := sleepCtx(ctx, e.delay); err != nil {
				return nil, err
			}
		}
	}

	result.Events = itinerary.DedupEvents(result.Events)
	itinerary.SortEventsByStart(result.Events)
	itinerary.StripProvenance(result.Events)
	result.TotalEvents = len(result.Events)
	_ = e.artifacts.WriteJSON("explorer_events", result)
	return result, nil
}

func (e *Explorer) analyzeBatch(ctx context.Context, batch []itinerary.Link, city string) ([]itinerary.Event, []itinerary.RejectedLink, error) {
	prompt := e.buildPrompt(batch, city)
	_ = e.artifacts.AppendText("explorer_prompts", prompt)

	start := time.Now()
	response, err := e.provider.GenerateWithSearch(ctx, []llm.Message{{Role: "user", Content: prompt}})
	metrics.ObserveLLMCall("explore", start, err)
	if err != nil {
		return nil, nil, err
	}
	_ = e.artifacts.AppendText("explorer_responses", response)

	value, err := extract.JSON(response)
	if err != nil {
		return nil, nil, err
	}
	var parsed exploreResponse
	if err := extract.Decode(value, &parsed); err != nil {
		return nil, nil, fmt.Errorf("decode explorer response: %w", err)
	}

	allowed := make(map[string]struct{}, len(batch))
	for _, link := range batch {
		allowed[link.URL] = struct{}{}
	}
	itinerary.EnforceSourcePolicy(parsed.ValidEvents, allowed)
	for i := range parsed.ValidEvents {
		parsed.ValidEvents[i].NormalizeDuration()
	}
	return parsed.ValidEvents, parsed.RejectedLinks, nil
}

func (e *Explorer) buildPrompt(batch []itinerary.Link, city string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are verifying candidate event pages for %s. Analyze each link below.\n\n", city)
	for i, link := range batch {
		fmt.Fprintf(&b, "%d. url: %s\n   title: %s\n   snippet: %s\n   interest: %s\n   target date: %s\n",
			i+1, link.URL, link.Title, link.Snippet, link.Interest, link.Date)
	}
	b.WriteString(`
A link is a VALID event only if all of these hold:
- a named host or organizer runs it
- it starts at a specific clock time on a specific date
- general admission, timed-entry tickets, and self-guided visits are NOT events

For every link emit either a structured event or a rejection with the reason.
Copy the source url verbatim from the link above, or use null if the event
page is different from the link; never invent a URL.

Respond with a single JSON object, no prose:
{
  "analyzed_links": 0,
  "valid_events": [
    {
      "name": "...",
      "type": "event",
      "category": "...",
      "location": {"venue": "...", "address": "...", "city": "..."},
      "coordinates": {"lat": 0.0, "lng": 0.0},
      "start_time": "YYYY-MM-DDTHH:MM:SS",
      "end_time": "YYYY-MM-DDTHH:MM:SS",
      "duration_minutes": 0,
      "description": "...",
      "source": {"platform": "...", "url": "verbatim URL or null"},
      "pricing": {"is_free": false, "price": "...", "currency": "..."},
      "tags": ["..."],
      "interest_matched": "the interest from the link",
      "target_date": "the target date from the link"
    }
  ],
  "rejected_links": [
    {"url": "...", "reason": "..."}
  ]
}

Times are local to the city; estimate coordinates if the page does not state
them, but never omit them.`)
	return b.String()
}

func partition(links []itinerary.Link, size int) [][]itinerary.Link {
	var batches [][]itinerary.Link
	for start := 0; start < len(links); start += size {
		end := start + size
		if end > len(links) {
			end = len(links)
		}
		batches = append(batches, links[start:end])
	}
	return batches
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
