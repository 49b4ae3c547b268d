// Package pipeline orchestrates one itinerary request end to end: scout the
// link set, explore it into structured events, then bucket the result by day.
// Progress is published to the event broker as typed frames so the SSE layer
// can stream it without interpreting log text.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wander-labs/wander/internal/artifacts"
	"github.com/wander-labs/wander/internal/coverage"
	"github.com/wander-labs/wander/internal/events"
	"github.com/wander-labs/wander/internal/explore"
	"github.com/wander-labs/wander/internal/itinerary"
	"github.com/wander-labs/wander/internal/llm"
	"github.com/wander-labs/wander/internal/scout"
)

const dayLayout = "2006-01-02"

type Pipeline struct {
	provider llm.Provider
	broker   *events.Broker

	artifactsDir     string
	scoutLinkCap     int
	scoutDelay       time.Duration
	exploreBatchSize int
	exploreDelay     time.Duration
	defaultRangeDays int

	now   func() time.Time
	newID func() string
}

type Option func(*Pipeline)

func WithArtifactsDir(dir string) Option {
	return func(p *Pipeline) { p.artifactsDir = dir }
}

func WithScoutTuning(linkCap int, delay time.Duration) Option {
	return func(p *Pipeline) {
		p.scoutLinkCap = linkCap
		p.scoutDelay = delay
	}
}

func WithExploreTuning(batchSize int, delay time.Duration) Option {
	return func(p *Pipeline) {
		p.exploreBatchSize = batchSize
		p.exploreDelay = delay
	}
}

func WithDefaultRangeDays(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.defaultRangeDays = n
		}
	}
}

func withNow(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

func withIDGenerator(f func() string) Option {
	return func(p *Pipeline) { p.newID = f }
}

func New(provider llm.Provider, broker *events.Broker, opts ...Option) *Pipeline {
	p := &Pipeline{
		provider:         provider,
		broker:           broker,
		scoutLinkCap:     10,
		scoutDelay:       1500 * time.Millisecond,
		exploreBatchSize: 5,
		exploreDelay:     2 * time.Second,
		defaultRangeDays: 3,
		now:              time.Now,
		newID:            uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Request is one itinerary generation request. RequestID is optional; the
// SSE handler presets it so the subscriber and the run share an ID.
type Request struct {
	RequestID string   `json:"request_id,omitempty"`
	City      string   `json:"city"`
	Interests []string `json:"interests"`
	StartDate string   `json:"start_date,omitempty"`
	EndDate   string   `json:"end_date,omitempty"`
}

type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Stats summarizes what the run did, for callers and for the final artifact.
type Stats struct {
	LinksFound      int   `json:"links_found"`
	LinksAnalyzed   int   `json:"links_analyzed"`
	EventsExtracted int   `json:"events_extracted"`
	LinksRejected   int   `json:"links_rejected"`
	DurationMS      int64 `json:"duration_ms"`
}

type Response struct {
	Success        bool                               `json:"success"`
	RequestID      string                             `json:"request_id"`
	City           string                             `json:"city"`
	Interests      []string                           `json:"interests"`
	DateRange      DateRange                          `json:"date_range"`
	Itinerary      []itinerary.Event                  `json:"itinerary"`
	ItineraryByDay map[string]itinerary.CoverageEntry `json:"itinerary_by_day"`
	TotalItems     int                                `json:"total_items"`
	Gaps           []coverage.Gap                     `json:"gaps,omitempty"`
	RejectedLinks  []itinerary.RejectedLink           `json:"rejected_links"`
	Message        string                             `json:"message,omitempty"`
	Stats          Stats                              `json:"pipeline_stats"`

	// Events and Activities mirror Itinerary under the field names older
	// clients still read.
	Events     []itinerary.Event `json:"events"`
	Activities []itinerary.Event `json:"activities"`
}

// Run executes the full scout -> explore -> coverage pipeline for one
// request. Zero discovered links short-circuits the explore phase and returns
// a structured no-results response rather than an error.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Response, error) {
	req, err := p.normalize(req)
	if err != nil {
		return nil, err
	}

	started := p.now()
	logger, err := artifacts.NewLogger(p.artifactsDir, req.RequestID)
	if err != nil {
		return nil, fmt.Errorf("prepare artifacts: %w", err)
	}

	progress := &progressPublisher{broker: p.broker, requestID: req.RequestID}

	sc := scout.New(p.provider,
		scout.WithLinkCap(p.scoutLinkCap),
		scout.WithDelay(p.scoutDelay),
		scout.WithArtifacts(logger),
	)
	scoutResult, err := sc.Run(ctx, req.City, req.Interests, req.StartDate, req.EndDate, func(sp scout.Progress) {
		progress.publish(events.PhaseScout,
			scale(sp.CallsDone, sp.CallsTotal, 0, 50),
			fmt.Sprintf("searched %q for %s", sp.Interest, sp.Date),
			map[string]any{
				"calls_done":  sp.CallsDone,
				"calls_total": sp.CallsTotal,
				"interest":    sp.Interest,
				"date":        sp.Date,
				"links_found": sp.LinksFound,
			})
	})
	if err != nil {
		progress.fail(err)
		return nil, err
	}

	response := &Response{
		Success:       true,
		RequestID:     req.RequestID,
		City:          req.City,
		Interests:     req.Interests,
		DateRange:     DateRange{Start: req.StartDate, End: req.EndDate},
		Itinerary:     []itinerary.Event{},
		Events:        []itinerary.Event{},
		Activities:    []itinerary.Event{},
		RejectedLinks: []itinerary.RejectedLink{},
	}
	response.Stats.LinksFound = scoutResult.TotalLinksFound

	if scoutResult.TotalLinksFound == 0 {
		response.Message = "no event pages found; try broader interests or a wider date range"
		response.ItineraryByDay, err = coverage.Analyze(nil, req.StartDate, req.EndDate)
		if err != nil {
			progress.fail(err)
			return nil, err
		}
		p.finish(response, logger, progress, started)
		return response, nil
	}

	ex := explore.New(p.provider,
		explore.WithBatchSize(p.exploreBatchSize),
		explore.WithDelay(p.exploreDelay),
		explore.WithArtifacts(logger),
	)
	exploreResult, err := ex.Run(ctx, scoutResult.AllLinks, req.City, func(ep explore.Progress) {
		progress.publish(events.PhaseExplore,
			scale(ep.BatchesDone, ep.BatchesTotal, 50, 90),
			fmt.Sprintf("analyzed batch %d of %d", ep.BatchesDone, ep.BatchesTotal),
			map[string]any{
				"batches_done":  ep.BatchesDone,
				"batches_total": ep.BatchesTotal,
				"events_found":  ep.EventsFound,
				"rejected":      ep.Rejected,
			})
	})
	if err != nil {
		progress.fail(err)
		return nil, err
	}

	response.Itinerary = exploreResult.Events
	response.Events = exploreResult.Events
	response.Activities = exploreResult.Events
	response.RejectedLinks = exploreResult.Rejected
	response.TotalItems = len(exploreResult.Events)
	response.Stats.LinksAnalyzed = exploreResult.TotalAnalyzed
	response.Stats.EventsExtracted = exploreResult.TotalEvents
	response.Stats.LinksRejected = len(exploreResult.Rejected)

	byDay, err := coverage.Analyze(exploreResult.Events, req.StartDate, req.EndDate)
	if err != nil {
		progress.fail(err)
		return nil, err
	}
	response.ItineraryByDay = byDay
	progress.publish(events.PhaseCoverage, 95, "bucketed events by day", map[string]any{
		"days": len(byDay),
	})

	gaps, err := coverage.FindGaps(exploreResult.Events, req.StartDate, req.EndDate)
	if err != nil {
		progress.fail(err)
		return nil, err
	}
	response.Gaps = gaps
	if response.TotalItems == 0 {
		response.Message = "no links survived verification; every candidate was rejected"
	}

	p.finish(response, logger, progress, started)
	return response, nil
}

func (p *Pipeline) finish(response *Response, logger *artifacts.Logger, progress *progressPublisher, started time.Time) {
	response.Stats.DurationMS = p.now().Sub(started).Milliseconds()
	_ = logger.WriteJSON("itinerary", response)
	progress.complete(map[string]any{
		"total_items": response.TotalItems,
		"duration_ms": response.Stats.DurationMS,
	})
}

func (p *Pipeline) normalize(req Request) (Request, error) {
	req.City = strings.TrimSpace(req.City)
	if req.City == "" {
		return req, fmt.Errorf("city is required")
	}

	cleaned := make([]string, 0, len(req.Interests))
	for _, interest := range req.Interests {
		if trimmed := strings.TrimSpace(interest); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	if len(cleaned) == 0 {
		return req, fmt.Errorf("at least one interest is required")
	}
	req.Interests = cleaned

	if req.StartDate == "" {
		req.StartDate = p.now().Format(dayLayout)
	}
	if req.EndDate == "" {
		start, err := time.Parse(dayLayout, req.StartDate)
		if err != nil {
			return req, fmt.Errorf("invalid start date %q: %w", req.StartDate, err)
		}
		req.EndDate = start.AddDate(0, 0, p.defaultRangeDays-1).Format(dayLayout)
	}
	if req.RequestID == "" {
		req.RequestID = p.newID()
	}
	return req, nil
}

// progressPublisher stamps frames with a per-run sequence number. The
// pipeline publishes from a single goroutine, so a plain counter suffices.
type progressPublisher struct {
	broker    *events.Broker
	requestID string
	seq       int64
}

func (pp *progressPublisher) publish(phase string, percent int, message string, payload map[string]any) {
	if pp.broker == nil {
		return
	}
	pp.seq++
	pp.broker.Publish(events.ProgressEvent{
		RequestID: pp.requestID,
		Seq:       pp.seq,
		Type:      events.TypeProgress,
		Phase:     phase,
		Percent:   percent,
		Message:   message,
		Payload:   payload,
	})
}

func (pp *progressPublisher) complete(payload map[string]any) {
	if pp.broker == nil {
		return
	}
	pp.seq++
	pp.broker.Publish(events.ProgressEvent{
		RequestID: pp.requestID,
		Seq:       pp.seq,
		Type:      events.TypeComplete,
		Percent:   100,
		Message:   "itinerary ready",
		Payload:   payload,
	})
}

func (pp *progressPublisher) fail(err error) {
	if pp.broker == nil {
		return
	}
	pp.seq++
	pp.broker.Publish(events.ProgressEvent{
		RequestID: pp.requestID,
		Seq:       pp.seq,
		Type:      events.TypeError,
		Message:   err.Error(),
	})
}

func scale(done, total, from, to int) int {
	if total <= 0 {
		return from
	}
	return from + (to-from)*done/total
}
