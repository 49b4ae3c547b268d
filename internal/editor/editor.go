// Package editor handles single-activity edits: one model call that
// classifies the user's intent and returns a structured mutation. Editing is
// single-shot and user-interactive, so a parse failure is terminal for the
// request; there is no retry layer here.
package editor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/wander-labs/wander/internal/artifacts"
	"github.com/wander-labs/wander/internal/extract"
	"github.com/wander-labs/wander/internal/itinerary"
	"github.com/wander-labs/wander/internal/llm"
	"github.com/wander-labs/wander/internal/metrics"
)

type Editor struct {
	provider  llm.Provider
	artifacts *artifacts.Logger
}

func New(provider llm.Provider) *Editor {
	return &Editor{provider: provider}
}

func (e *Editor) WithArtifacts(l *artifacts.Logger) *Editor {
	e.artifacts = l
	return e
}

// Request carries the activity being edited plus optional trip context the
// model can use when suggesting replacements.
type Request struct {
	EditRequest     string          `json:"edit_request"`
	CurrentActivity itinerary.Event `json:"current_activity"`
	City            string          `json:"city,omitempty"`
	DayDate         string          `json:"day_date,omitempty"`
	Interests       []string        `json:"interests,omitempty"`
}

// Process runs the single edit call and decodes the structured result.
func (e *Editor) Process(ctx context.Context, req Request) (*itinerary.EditResult, error) {
	if strings.TrimSpace(req.EditRequest) == "" {
		return nil, fmt.Errorf("edit_request is required")
	}

	prompt, err := buildPrompt(req)
	if err != nil {
		return nil, err
	}
	_ = e.artifacts.AppendText("editor_prompts", prompt)

	start := time.Now()
	response, err := e.provider.Generate(ctx, []llm.Message{{Role: "user", Content: prompt}})
	metrics.ObserveLLMCall("edit", start, err)
	if err != nil {
		return nil, fmt.Errorf("edit generation failed: %w", err)
	}
	_ = e.artifacts.AppendText("editor_responses", response)

	value, err := extract.JSON(response)
	if err != nil {
		return nil, fmt.Errorf("edit response unparseable: %w", err)
	}
	var result itinerary.EditResult
	if err := extract.Decode(value, &result); err != nil {
		return nil, fmt.Errorf("decode edit result: %w", err)
	}
	if result.Intent == "" {
		return nil, fmt.Errorf("edit result missing intent")
	}
	if !itinerary.ValidEditOperation(result.Operation) {
		return nil, fmt.Errorf("edit result has unknown operation %q", result.Operation)
	}
	return &result, nil
}

func buildPrompt(req Request) (string, error) {
	activity, err := json.MarshalIndent(req.CurrentActivity, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal current activity: %w", err)
	}

	var b strings.Builder
	b.WriteString("A traveler wants to change one activity on their itinerary.\n\n")
	if req.City != "" {
		fmt.Fprintf(&b, "City: %s\n", req.City)
	}
	if req.DayDate != "" {
		fmt.Fprintf(&b, "Day: %s\n", req.DayDate)
	}
	if len(req.Interests) > 0 {
		fmt.Fprintf(&b, "Trip interests: %s\n", strings.Join(req.Interests, ", "))
	}
	fmt.Fprintf(&b, "\nCurrent activity:\n%s\n\nUser request: %q\n\n", activity, req.EditRequest)
	b.WriteString(`First classify the user's intent as one of: edit, issue, question, unclear.
Then select exactly one operation:
- replace: swap in a different activity (fill new_activity)
- delete: remove the activity
- update_time: change start/end times (fill updated_activity)
- update_description: reword or correct details (fill updated_activity)
- add: add a new activity alongside this one (fill new_activity)
- report_issue: the user reports something wrong (fill message)
- clarify: the request is ambiguous (fill message and suggested_actions)
- answer: the user asked a question (fill message)

Respond with a single JSON object, no prose:
{
  "intent": "edit|issue|question|unclear",
  "operation": "one of the operations above",
  "updated_activity": { ...full activity object... },
  "new_activity": { ...full activity object... },
  "change_summary": "one sentence describing the change",
  "message": "reply to the user when no mutation applies",
  "suggested_actions": ["optional follow-ups"]
}
Include updated_activity or new_activity only when the operation calls for it.`)
	return b.String(), nil
}
