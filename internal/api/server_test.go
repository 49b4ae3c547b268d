package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wander-labs/wander/internal/config"
	"github.com/wander-labs/wander/internal/editor"
	"github.com/wander-labs/wander/internal/events"
	"github.com/wander-labs/wander/internal/itinerary"
	"github.com/wander-labs/wander/internal/pipeline"
)

type stubPipeline struct {
	fn func(ctx context.Context, req pipeline.Request) (*pipeline.Response, error)
}

func (s *stubPipeline) Run(ctx context.Context, req pipeline.Request) (*pipeline.Response, error) {
	return s.fn(ctx, req)
}

type stubEditor struct {
	fn func(ctx context.Context, req editor.Request) (*itinerary.EditResult, error)
}

func (s *stubEditor) Process(ctx context.Context, req editor.Request) (*itinerary.EditResult, error) {
	return s.fn(ctx, req)
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		OpenRouterAPIKey: "test-key",
		ArtifactsDir:     t.TempDir(),
	}
}

func newTestServer(t *testing.T, p PipelineService, e EditorService) *Server {
	t.Helper()
	return NewServer(p, e, events.NewBroker(), testConfig(t))
}

func postJSON(t *testing.T, handler http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestGenerateItinerary_Success(t *testing.T) {
	p := &stubPipeline{fn: func(ctx context.Context, req pipeline.Request) (*pipeline.Response, error) {
		require.Equal(t, "Lisbon", req.City)
		require.Equal(t, []string{"live music"}, req.Interests)
		return &pipeline.Response{
			Success:    true,
			RequestID:  "req-1",
			City:       req.City,
			TotalItems: 1,
			Itinerary:  []itinerary.Event{{Name: "Jazz Night", StartTime: "2026-09-04T20:00:00"}},
		}, nil
	}}
	server := newTestServer(t, p, nil)

	rec := postJSON(t, server.Router(), "/api/generate-itinerary", map[string]any{
		"city":       "Lisbon",
		"interests":  []string{"live music"},
		"start_date": "2026-09-04",
		"end_date":   "2026-09-04",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp pipeline.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.Equal(t, "req-1", resp.RequestID)
	require.Len(t, resp.Itinerary, 1)
}

func TestGenerateItinerary_MissingFieldsReturnsExample(t *testing.T) {
	server := newTestServer(t, &stubPipeline{fn: func(ctx context.Context, req pipeline.Request) (*pipeline.Response, error) {
		t.Fatal("pipeline must not run on an invalid request")
		return nil, nil
	}}, nil)

	rec := postJSON(t, server.Router(), "/api/generate-itinerary", map[string]any{"interests": []string{"food"}})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, false, body["success"])
	require.Contains(t, body, "example")
}

func TestGenerateItinerary_CommaSeparatedInterests(t *testing.T) {
	var got []string
	p := &stubPipeline{fn: func(ctx context.Context, req pipeline.Request) (*pipeline.Response, error) {
		got = req.Interests
		return &pipeline.Response{Success: true}, nil
	}}
	server := newTestServer(t, p, nil)

	rec := postJSON(t, server.Router(), "/api/generate-itinerary", map[string]any{
		"city":      "Lisbon",
		"interests": "Live Music, food , live music",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, []string{"live music", "food"}, got)
}

func TestGenerateItinerary_PipelineError(t *testing.T) {
	var minted string
	p := &stubPipeline{fn: func(ctx context.Context, req pipeline.Request) (*pipeline.Response, error) {
		minted = req.RequestID
		return nil, context.DeadlineExceeded
	}}
	server := newTestServer(t, p, nil)

	rec := postJSON(t, server.Router(), "/api/generate-itinerary", map[string]any{
		"city":      "Lisbon",
		"interests": []string{"food"},
	})
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var body struct {
		Error     string `json:"error"`
		RequestID string `json:"request_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotEmpty(t, body.Error)
	require.NotEmpty(t, minted)
	require.Equal(t, minted, body.RequestID)
}

func TestGenerateItineraryStream(t *testing.T) {
	broker := events.NewBroker()
	p := &stubPipeline{fn: func(ctx context.Context, req pipeline.Request) (*pipeline.Response, error) {
		require.NotEmpty(t, req.RequestID)
		broker.Publish(events.ProgressEvent{
			RequestID: req.RequestID,
			Seq:       1,
			Type:      events.TypeProgress,
			Phase:     events.PhaseScout,
			Percent:   25,
			Message:   "searching",
		})
		return &pipeline.Response{Success: true, RequestID: req.RequestID, TotalItems: 3}, nil
	}}
	server := NewServer(p, nil, broker, testConfig(t))
	ts := httptest.NewServer(server.Router())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/api/generate-itinerary-stream", "application/json",
		strings.NewReader(`{"city": "Lisbon", "interests": ["jazz"]}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	stream := string(body)

	connectedAt := strings.Index(stream, "event: connected")
	progressAt := strings.Index(stream, "event: progress")
	completeAt := strings.Index(stream, "event: complete")
	require.GreaterOrEqual(t, connectedAt, 0, "stream must open with a connected frame")
	require.Greater(t, progressAt, connectedAt, "progress frames follow connected")
	require.Greater(t, completeAt, progressAt, "complete frame closes the stream")
	require.Contains(t, stream, `"total_items":3`)
}

func TestGenerateItineraryStream_ErrorFrame(t *testing.T) {
	broker := events.NewBroker()
	p := &stubPipeline{fn: func(ctx context.Context, req pipeline.Request) (*pipeline.Response, error) {
		return nil, context.DeadlineExceeded
	}}
	server := NewServer(p, nil, broker, testConfig(t))
	ts := httptest.NewServer(server.Router())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/api/generate-itinerary-stream", "application/json",
		strings.NewReader(`{"city": "Lisbon", "interests": ["jazz"]}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "event: error")
}

func TestEditItinerary_Success(t *testing.T) {
	e := &stubEditor{fn: func(ctx context.Context, req editor.Request) (*itinerary.EditResult, error) {
		require.Equal(t, "move it to 7pm", req.EditRequest)
		return &itinerary.EditResult{Intent: "edit", Operation: "update_time", ChangeSummary: "moved to 19:00"}, nil
	}}
	server := newTestServer(t, nil, e)

	rec := postJSON(t, server.Router(), "/api/edit-itinerary", map[string]any{
		"edit_request":     "move it to 7pm",
		"current_activity": map[string]any{"name": "Jazz Night", "start_time": "2026-09-04T20:00:00"},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Success bool                 `json:"success"`
		Result  itinerary.EditResult `json:"result"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.True(t, body.Success)
	require.Equal(t, "update_time", body.Result.Operation)
}

func TestEditItinerary_MissingEditRequest(t *testing.T) {
	server := newTestServer(t, nil, &stubEditor{fn: func(ctx context.Context, req editor.Request) (*itinerary.EditResult, error) {
		t.Fatal("editor must not run without an edit request")
		return nil, nil
	}})

	rec := postJSON(t, server.Router(), "/api/edit-itinerary", map[string]any{
		"current_activity": map[string]any{"name": "Jazz Night"},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEditItinerary_EditorFailure(t *testing.T) {
	e := &stubEditor{fn: func(ctx context.Context, req editor.Request) (*itinerary.EditResult, error) {
		return nil, context.DeadlineExceeded
	}}
	server := newTestServer(t, nil, e)

	rec := postJSON(t, server.Router(), "/api/edit-itinerary", map[string]any{
		"edit_request": "move it",
	})
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestListInterests(t *testing.T) {
	server := newTestServer(t, nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/interests", nil)
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Interests []struct {
			ID    string `json:"id"`
			Label string `json:"label"`
		} `json:"interests"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotEmpty(t, body.Interests)
	require.NotEmpty(t, body.Interests[0].ID)
}

func TestHealth(t *testing.T) {
	server := newTestServer(t, nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestReady(t *testing.T) {
	server := newTestServer(t, nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body readinessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "ok", body.Status)
	require.Equal(t, "skipped", body.Subsystems["mcp"].Status)
}

func TestReady_DegradedWithoutAPIKey(t *testing.T) {
	server := NewServer(nil, nil, events.NewBroker(), config.Config{ArtifactsDir: t.TempDir()})
	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body readinessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "degraded", body.Status)
	require.Equal(t, "error", body.Subsystems["llm"].Status)
}

func TestCORSPreflight(t *testing.T) {
	server := newTestServer(t, nil, nil)
	req := httptest.NewRequest(http.MethodOptions, "/api/generate-itinerary", nil)
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
