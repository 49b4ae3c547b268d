package editor

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/wander-labs/wander/internal/itinerary"
	"github.com/wander-labs/wander/internal/llm"
)

type fakeProvider struct {
	response string
	err      error
	prompt   string
}

func (f *fakeProvider) Generate(ctx context.Context, messages []llm.Message) (string, error) {
	f.prompt = messages[len(messages)-1].Content
	return f.response, f.err
}

func (f *fakeProvider) GenerateWithSearch(ctx context.Context, messages []llm.Message) (string, error) {
	return f.Generate(ctx, messages)
}

func activity() itinerary.Event {
	return itinerary.Event{
		Name:      "Jazz Night",
		Type:      "event",
		StartTime: "2026-09-01T19:00:00",
		EndTime:   "2026-09-01T21:00:00",
	}
}

func TestProcess_UpdateTime(t *testing.T) {
	provider := &fakeProvider{response: "```json\n" + `{
		"intent": "edit",
		"operation": "update_time",
		"updated_activity": {"name": "Jazz Night", "start_time": "2026-09-01T20:00:00", "end_time": "2026-09-01T22:00:00"},
		"change_summary": "Moved the show one hour later."
	}` + "\n```"}
	e := New(provider)

	result, err := e.Process(context.Background(), Request{
		EditRequest:     "push it an hour later",
		CurrentActivity: activity(),
		City:            "Lisbon",
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.Operation != "update_time" {
		t.Fatalf("unexpected operation %q", result.Operation)
	}
	if result.UpdatedActivity == nil || result.UpdatedActivity.StartTime != "2026-09-01T20:00:00" {
		t.Fatalf("unexpected updated activity: %+v", result.UpdatedActivity)
	}
	if !strings.Contains(provider.prompt, "Jazz Night") || !strings.Contains(provider.prompt, "push it an hour later") {
		t.Fatal("prompt should carry the activity and the request")
	}
}

func TestProcess_Clarify(t *testing.T) {
	provider := &fakeProvider{response: `{
		"intent": "unclear",
		"operation": "clarify",
		"change_summary": "",
		"message": "Do you want a different venue or a different time?",
		"suggested_actions": ["change venue", "change time"]
	}`}
	e := New(provider)

	result, err := e.Process(context.Background(), Request{EditRequest: "different", CurrentActivity: activity()})
	if err != nil {
		t.Fatal(err)
	}
	if result.Intent != "unclear" || len(result.SuggestedActions) != 2 {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestProcess_MissingEditRequest(t *testing.T) {
	e := New(&fakeProvider{})
	if _, err := e.Process(context.Background(), Request{CurrentActivity: activity()}); err == nil {
		t.Fatal("expected error for missing edit_request")
	}
}

func TestProcess_GenerationFailureIsTerminal(t *testing.T) {
	e := New(&fakeProvider{err: errors.New("boom")})
	if _, err := e.Process(context.Background(), Request{EditRequest: "delete it", CurrentActivity: activity()}); err == nil {
		t.Fatal("expected terminal error")
	}
}

func TestProcess_UnparseableResponseIsTerminal(t *testing.T) {
	e := New(&fakeProvider{response: "sure, I deleted it for you!"})
	if _, err := e.Process(context.Background(), Request{EditRequest: "delete it", CurrentActivity: activity()}); err == nil {
		t.Fatal("expected terminal error for unparseable response")
	}
}

func TestProcess_UnknownOperationRejected(t *testing.T) {
	e := New(&fakeProvider{response: `{"intent": "edit", "operation": "obliterate", "change_summary": "x"}`})
	if _, err := e.Process(context.Background(), Request{EditRequest: "remove", CurrentActivity: activity()}); err == nil {
		t.Fatal("expected error for unknown operation")
	}
}
