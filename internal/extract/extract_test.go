package extract

import (
	"errors"
	"testing"
)

func TestJSON_Direct(t *testing.T) {
	value, err := JSON(`{"a": 1}`)
	if err != nil {
		t.Fatal(err)
	}
	obj, ok := value.(map[string]any)
	if !ok || obj["a"] != float64(1) {
		t.Fatalf("unexpected value: %#v", value)
	}
}

func TestJSON_JSONFence(t *testing.T) {
	text := "prefix text ```json\n{\"a\":1}\n``` suffix"
	value, err := JSON(text)
	if err != nil {
		t.Fatal(err)
	}
	obj := value.(map[string]any)
	if obj["a"] != float64(1) {
		t.Fatalf("unexpected value: %#v", value)
	}
}

func TestJSON_AnonymousFence(t *testing.T) {
	text := "here you go:\n```\n{\"links\": []}\n```\nanything else?"
	value, err := JSON(text)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := value.(map[string]any)["links"]; !ok {
		t.Fatalf("unexpected value: %#v", value)
	}
}

func TestJSON_FenceWithoutJSONInterior(t *testing.T) {
	// A code fence whose interior is not JSON must not satisfy the fence
	// strategies; the brace match still recovers the trailing object.
	text := "```\nnot json at all\n```\nresult: {\"a\": 2}"
	value, err := JSON(text)
	if err != nil {
		t.Fatal(err)
	}
	if value.(map[string]any)["a"] != float64(2) {
		t.Fatalf("unexpected value: %#v", value)
	}
}

func TestJSON_LaterFenceWins(t *testing.T) {
	// The first fence is prose with a stray brace; the greedy brace match
	// would capture a malformed span across both fences. The JSON-bearing
	// second fence must be found instead.
	text := "Reasoning:\n```text\nif x { we cannot\n```\nResult:\n```\n{\"a\": 3}\n```"
	value, err := JSON(text)
	if err != nil {
		t.Fatal(err)
	}
	if value.(map[string]any)["a"] != float64(3) {
		t.Fatalf("unexpected value: %#v", value)
	}
}

func TestJSON_BraceMatch(t *testing.T) {
	value, err := JSON(`noise {"a":1} noise`)
	if err != nil {
		t.Fatal(err)
	}
	if value.(map[string]any)["a"] != float64(1) {
		t.Fatalf("unexpected value: %#v", value)
	}
}

func TestJSON_Garbage(t *testing.T) {
	_, err := JSON("complete { nonsense ] here")
	if err == nil {
		t.Fatal("expected error")
	}
	var extractErr *Error
	if !errors.As(err, &extractErr) {
		t.Fatalf("expected *extract.Error, got %T", err)
	}
}

func TestItinerary_BareArrayWrapped(t *testing.T) {
	value, err := Itinerary("[1,2,3]")
	if err != nil {
		t.Fatal(err)
	}
	arr, ok := value["itinerary"].([]any)
	if !ok || len(arr) != 3 {
		t.Fatalf("expected wrapped array, got %#v", value)
	}
}

func TestItinerary_BracketMatchFallback(t *testing.T) {
	text := "day numbers follow: [1, 2, 3] enjoy!"
	value, err := Itinerary(text)
	if err != nil {
		t.Fatal(err)
	}
	arr, ok := value["itinerary"].([]any)
	if !ok || len(arr) != 3 {
		t.Fatalf("expected wrapped array, got %#v", value)
	}
}

func TestItinerary_ObjectPassesThrough(t *testing.T) {
	value, err := Itinerary(`{"itinerary": [], "total": 0}`)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := value["total"]; !ok {
		t.Fatalf("unexpected value: %#v", value)
	}
}

func TestItinerary_Garbage(t *testing.T) {
	if _, err := Itinerary("nothing to see"); err == nil {
		t.Fatal("expected error")
	}
}
