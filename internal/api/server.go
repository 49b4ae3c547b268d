package api

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wander-labs/wander/internal/config"
	"github.com/wander-labs/wander/internal/editor"
	"github.com/wander-labs/wander/internal/events"
	"github.com/wander-labs/wander/internal/itinerary"
	"github.com/wander-labs/wander/internal/metrics"
	"github.com/wander-labs/wander/internal/pipeline"
)

type Server struct {
	pipeline PipelineService
	editor   EditorService
	broker   Broker
	cfg      config.Config
}

// PipelineService runs one full itinerary generation.
type PipelineService interface {
	Run(ctx context.Context, req pipeline.Request) (*pipeline.Response, error)
}

// EditorService applies one single-activity edit.
type EditorService interface {
	Process(ctx context.Context, req editor.Request) (*itinerary.EditResult, error)
}

type Broker interface {
	Publish(event events.ProgressEvent)
	Subscribe(ctx context.Context, requestID string) <-chan events.ProgressEvent
}

func NewServer(pipeline PipelineService, editor EditorService, broker Broker, cfg config.Config) *Server {
	return &Server{
		pipeline: pipeline,
		editor:   editor,
		broker:   broker,
		cfg:      cfg,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(quietRequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware)
	r.Use(metrics.Middleware)

	r.Post("/api/generate-itinerary", s.generateItinerary)
	r.Post("/api/generate-itinerary-stream", s.generateItineraryStream)
	r.Post("/api/edit-itinerary", s.editItinerary)
	r.Get("/api/interests", s.listInterests)
	r.Get("/health", s.health)
	r.Get("/ready", s.ready)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}

func quietRequestLogger(next http.Handler) http.Handler {
	logged := middleware.Logger(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if shouldSuppressRequestLog(r.Method, r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}
		logged.ServeHTTP(w, r)
	})
}

func shouldSuppressRequestLog(method string, path string) bool {
	cleanPath := strings.TrimSpace(path)
	if method == http.MethodGet && (cleanPath == "/health" || cleanPath == "/ready" || cleanPath == "/metrics") {
		return true
	}
	if method == http.MethodOptions {
		return true
	}
	return false
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

type subsystemStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type readinessResponse struct {
	Status     string                     `json:"status"`
	Subsystems map[string]subsystemStatus `json:"subsystems"`
}

func (s *Server) ready(w http.ResponseWriter, r *http.Request) {
	subsystems := map[string]subsystemStatus{}
	overall := http.StatusOK

	switch {
	case s.cfg.LLMMode == "local":
		subsystems["llm"] = subsystemStatus{Status: "ok"}
	case s.cfg.OpenRouterAPIKey != "" || s.cfg.OpenAIAPIKey != "":
		subsystems["llm"] = subsystemStatus{Status: "ok"}
	default:
		subsystems["llm"] = subsystemStatus{Status: "error", Error: "no API key configured"}
		overall = http.StatusServiceUnavailable
	}

	if err := probeArtifactsDir(s.cfg.ArtifactsDir); err != nil {
		subsystems["artifacts"] = subsystemStatus{Status: "error", Error: err.Error()}
		overall = http.StatusServiceUnavailable
	} else {
		subsystems["artifacts"] = subsystemStatus{Status: "ok"}
	}

	if s.cfg.MCPEndpoint == "" && s.cfg.MCPCommand == "" {
		subsystems["mcp"] = subsystemStatus{Status: "skipped"}
	} else {
		subsystems["mcp"] = subsystemStatus{Status: "ok"}
	}

	status := "ok"
	if overall != http.StatusOK {
		status = "degraded"
	}
	writeJSONStatus(w, readinessResponse{Status: status, Subsystems: subsystems}, overall)
}

func probeArtifactsDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	probe := filepath.Join(dir, ".ready-probe")
	if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
		return err
	}
	return os.Remove(probe)
}

func writeJSONStatus(w http.ResponseWriter, value any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(value)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Last-Event-ID")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) Start(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		_ = server.Shutdown(context.Background())
	}()
	return server.ListenAndServe()
}
