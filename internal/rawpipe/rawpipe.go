// Package rawpipe is the alternate itinerary path: instead of the native
// search-augmented model it drives raw `search` and `scrape` tools through
// the resilient invoker and asks the model to extract an itinerary from the
// scraped page text.
package rawpipe

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
	"github.com/wander-labs/wander/internal/tools"
)

// Invoker is the resilient tool caller (tools.Invoker in production).
type Invoker interface {
	Invoke(ctx context.Context, tool string, args map[string]any) (string, error)
}

type Pipeline struct {
	invoker   Invoker
	provider  llm.Provider
	artifacts *artifacts.Logger

	pagesPerInterest int
	pageCharCap      int
	callTimeout      time.Duration
}

type Option func(*Pipeline)

func WithArtifacts(l *artifacts.Logger) Option {
	return func(p *Pipeline) { p.artifacts = l }
}

func WithPagesPerInterest(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.pagesPerInterest = n
		}
	}
}

func WithCallTimeout(d time.Duration) Option {
	return func(p *Pipeline) { p.callTimeout = d }
}

func New(invoker Invoker, provider llm.Provider, opts ...Option) *Pipeline {
	p := &Pipeline{
		invoker:          invoker,
		provider:         provider,
		pagesPerInterest: 3,
		pageCharCap:      6000,
		callTimeout:      3 * time.Minute,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// searchResponse is the search tool's contract: an organic result list.
type searchResponse struct {
	Organic []struct {
		Link    string `json:"link"`
		Title   string `json:"title"`
		Snippet string `json:"snippet"`
	} `json:"organic"`
}

type scrapedPage struct {
	URL     string
	Title   string
	Content string
}

// Generate runs one search per interest, scrapes the top results, and asks
// the model for a single itinerary extraction over the collected page text.
// Per-interest failures degrade to fewer pages; only a failure of the final
// extraction call is terminal.
func (p *Pipeline) Generate(ctx context.Context, city string, interests []string, startDate, endDate string) ([]itinerary.Event, error) {
	if len(interests) == 0 {
		return nil, fmt.Errorf("no interests to search")
	}

	var pages []scrapedPage
	for _, interest := range interests {
		found, err := p.collectPages(ctx, city, interest, startDate, endDate)
		if err != nil {
			log.Printf("rawpipe: search for %q degraded: %v", interest, err)
			continue
		}
		pages = append(pages, found...)
	}
	if len(pages) == 0 {
		return []itinerary.Event{}, nil
	}

	prompt := p.buildPrompt(city, startDate, endDate, pages)
	_ = p.artifacts.AppendText("rawpipe_prompts", prompt)

	response, err := p.provider.Generate(ctx, []llm.Message{{Role: "user", Content: prompt}})
	if err != nil {
		return nil, fmt.Errorf("itinerary extraction failed: %w", err)
	}
	_ = p.artifacts.AppendText("rawpipe_responses", response)

	value, err := extract.Itinerary(response)
	if err != nil {
		return nil, fmt.Errorf("itinerary extraction unparseable: %w", err)
	}
	var parsed struct {
		Itinerary []itinerary.Event `json:"itinerary"`
	}
	if err := extract.Decode(value, &parsed); err != nil {
		return nil, fmt.Errorf("decode itinerary: %w", err)
	}

	allowed := make(map[string]struct{}, len(pages))
	for _, page := range pages {
		allowed[page.URL] = struct{}{}
	}
	itinerary.EnforceSourcePolicy(parsed.Itinerary, allowed)
	for i := range parsed.Itinerary {
		parsed.Itinerary[i].NormalizeDuration()
	}
	events := itinerary.DedupEvents(parsed.Itinerary)
	itinerary.SortEventsByStart(events)
	itinerary.StripProvenance(events)
	return events, nil
}

func (p *Pipeline) collectPages(ctx context.Context, city, interest, startDate, endDate string) ([]scrapedPage, error) {
	query := fmt.Sprintf("%s %s events %s to %s", city, interest, startDate, endDate)
	raw, err := p.invoke(ctx, tools.ToolSearch, map[string]any{"q": query})
	if err != nil {
		return nil, err
	}
	value, err := extract.JSON(raw)
	if err != nil {
		return nil, fmt.Errorf("search result unparseable: %w", err)
	}
	var parsed searchResponse
	if err := extract.Decode(value, &parsed); err != nil {
		return nil, fmt.Errorf("decode search result: %w", err)
	}

	var pages []scrapedPage
	for _, hit := range parsed.Organic {
		if len(pages) >= p.pagesPerInterest {
			break
		}
		if hit.Link == "" {
			continue
		}
		content, err := p.invoke(ctx, tools.ToolScrape, map[string]any{"url": hit.Link})
		if err != nil {
			log.Printf("rawpipe: scrape of %s degraded: %v", hit.Link, err)
			continue
		}
		if len(content) > p.pageCharCap {
			content = content[:p.pageCharCap]
		}
		pages = append(pages, scrapedPage{URL: hit.Link, Title: hit.Title, Content: content})
	}
	return pages, nil
}

func (p *Pipeline) invoke(ctx context.Context, tool string, args map[string]any) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, p.callTimeout)
	defer cancel()
	return p.invoker.Invoke(callCtx, tool, args)
}

func (p *Pipeline) buildPrompt(city, startDate, endDate string, pages []scrapedPage) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Extract scheduled events in %s between %s and %s from these pages.\n\n", city, startDate, endDate)
	for i, page := range pages {
		fmt.Fprintf(&b, "--- page %d: %s (%s) ---\n%s\n\n", i+1, page.Title, page.URL, page.Content)
	}
	b.WriteString(`Only include events with a named host and a specific start time.
Copy source URLs verbatim from the page list above or use null.
Respond with a single JSON object, no prose:
{"itinerary": [ ...event objects with name, type, category, location, coordinates,
start_time, end_time, duration_minutes, description, source, pricing, tags... ]}`)
	return b.String()
}
