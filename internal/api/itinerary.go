package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wander-labs/wander/internal/events"
	"github.com/wander-labs/wander/internal/interests"
	"github.com/wander-labs/wander/internal/metrics"
	"github.com/wander-labs/wander/internal/pipeline"
)

// interestList accepts both a JSON array and the legacy comma-separated
// string form of the interests field.
type interestList []string

func (l *interestList) UnmarshalJSON(data []byte) error {
	var asList []string
	if err := json.Unmarshal(data, &asList); err == nil {
		*l = asList
		return nil
	}
	var asString string
	if err := json.Unmarshal(data, &asString); err != nil {
		return fmt.Errorf("interests must be a list or a comma-separated string")
	}
	*l = interests.Split(asString)
	return nil
}

type generateRequest struct {
	City      string       `json:"city"`
	Interests interestList `json:"interests"`
	StartDate string       `json:"start_date"`
	EndDate   string       `json:"end_date"`
}

var exampleGenerateRequest = map[string]any{
	"city":       "Lisbon",
	"interests":  []string{"live music", "food"},
	"start_date": "2026-09-04",
	"end_date":   "2026-09-06",
}

func (s *Server) decodeGenerateRequest(w http.ResponseWriter, r *http.Request) (pipeline.Request, bool) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONStatus(w, map[string]any{
			"success": false,
			"error":   "invalid request body",
			"example": exampleGenerateRequest,
		}, http.StatusBadRequest)
		return pipeline.Request{}, false
	}
	if strings.TrimSpace(req.City) == "" || len(req.Interests) == 0 {
		writeJSONStatus(w, map[string]any{
			"success": false,
			"error":   "city and interests are required",
			"example": exampleGenerateRequest,
		}, http.StatusBadRequest)
		return pipeline.Request{}, false
	}
	return pipeline.Request{
		City:      req.City,
		Interests: req.Interests,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
	}, true
}

func (s *Server) generateItinerary(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeGenerateRequest(w, r)
	if !ok {
		return
	}
	req.RequestID = uuid.NewString()

	resp, err := s.pipeline.Run(r.Context(), req)
	if err != nil {
		writeJSONStatus(w, map[string]any{
			"error":      err.Error(),
			"request_id": req.RequestID,
		}, http.StatusInternalServerError)
		return
	}
	writeJSONStatus(w, resp, http.StatusOK)
}

type runOutcome struct {
	resp *pipeline.Response
	err  error
}

// generateItineraryStream runs the pipeline while streaming progress frames
// over SSE on the same connection. The stream always opens with a connected
// frame carrying the request ID and closes with a complete frame carrying the
// full response (or an error frame).
func (s *Server) generateItineraryStream(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeGenerateRequest(w, r)
	if !ok {
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	req.RequestID = uuid.NewString()
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	metrics.StreamConnections.Inc()
	defer metrics.StreamConnections.Dec()

	ctx := r.Context()
	frames := s.broker.Subscribe(ctx, req.RequestID)

	lastSeq := int64(0)
	send := func(frame events.ProgressEvent) {
		if frame.Seq > lastSeq {
			lastSeq = frame.Seq
		}
		sendSSE(w, frame)
		flusher.Flush()
	}

	send(events.ProgressEvent{
		RequestID: req.RequestID,
		Type:      events.TypeConnected,
		Message:   "pipeline started",
	})

	resultCh := make(chan runOutcome, 1)
	go func() {
		resp, err := s.pipeline.Run(ctx, req)
		resultCh <- runOutcome{resp: resp, err: err}
	}()

	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case frame, open := <-frames:
			if !open {
				return
			}
			// The final frame is sent below with the full response attached.
			if frame.Type != events.TypeComplete && frame.Type != events.TypeError {
				send(frame)
			}
		case outcome := <-resultCh:
			s.drainFrames(frames, send)
			if outcome.err != nil {
				send(events.ProgressEvent{
					RequestID: req.RequestID,
					Seq:       lastSeq + 1,
					Type:      events.TypeError,
					Message:   outcome.err.Error(),
				})
				return
			}
			send(events.ProgressEvent{
				RequestID: req.RequestID,
				Seq:       lastSeq + 1,
				Type:      events.TypeComplete,
				Percent:   100,
				Message:   "itinerary ready",
				Payload:   map[string]any{"response": outcome.resp},
			})
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": keep-alive\n\n")
			flusher.Flush()
		case <-ctx.Done():
			return
		}
	}
}

func (s *Server) drainFrames(frames <-chan events.ProgressEvent, send func(events.ProgressEvent)) {
	for {
		select {
		case frame, open := <-frames:
			if !open {
				return
			}
			if frame.Type != events.TypeComplete && frame.Type != events.TypeError {
				send(frame)
			}
		default:
			return
		}
	}
}

func sendSSE(w http.ResponseWriter, frame events.ProgressEvent) {
	payload, _ := json.Marshal(frame)
	fmt.Fprintf(w, "id: %s:%d\n", frame.RequestID, frame.Seq)
	fmt.Fprintf(w, "event: %s\n", frame.Type)
	fmt.Fprintf(w, "data: %s\n\n", payload)
}

func (s *Server) listInterests(w http.ResponseWriter, r *http.Request) {
	writeJSONStatus(w, map[string]any{"interests": interests.Taxonomy}, http.StatusOK)
}
