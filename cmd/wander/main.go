package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/wander-labs/wander/internal/api"
	"github.com/wander-labs/wander/internal/config"
	"github.com/wander-labs/wander/internal/editor"
	"github.com/wander-labs/wander/internal/events"
	"github.com/wander-labs/wander/internal/llm"
	"github.com/wander-labs/wander/internal/pipeline"
)

type server interface {
	Start(ctx context.Context, addr string) error
}

var (
	loadEnv    = godotenv.Load
	loadConfig = func() (config.Config, error) {
		return config.Load(), nil
	}
	newBroker   = events.NewBroker
	newProvider = llm.NewProvider
	newServer   = func(p *pipeline.Pipeline, e *editor.Editor, broker *events.Broker, cfg config.Config) server {
		return api.NewServer(p, e, broker, cfg)
	}
	notifyContext = signal.NotifyContext
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	if err := loadEnv(); err != nil && !os.IsNotExist(err) {
		log.Printf("warning: could not load .env: %v", err)
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx, cancel := notifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	provider, err := newProvider(llm.Config{
		Mode:             cfg.LLMMode,
		Provider:         cfg.LLMProvider,
		Model:            cfg.LLMModel,
		BaseURL:          cfg.LLMBaseURL,
		OpenAIAPIKey:     cfg.OpenAIAPIKey,
		OpenRouterAPIKey: cfg.OpenRouterAPIKey,
	})
	if err != nil {
		return err
	}

	broker := newBroker()
	p := pipeline.New(provider, broker,
		pipeline.WithArtifactsDir(cfg.ArtifactsDir),
		pipeline.WithScoutTuning(cfg.ScoutLinkCap, cfg.ScoutDelay),
		pipeline.WithExploreTuning(cfg.ExploreBatchSize, cfg.ExploreDelay),
		pipeline.WithDefaultRangeDays(cfg.DefaultRangeDays),
	)
	e := editor.New(provider)

	server := newServer(p, e, broker, cfg)

	addr := fmt.Sprintf(":%s", cfg.Port)
	log.Printf("Wander API listening on %s", addr)
	return server.Start(ctx, addr)
}
