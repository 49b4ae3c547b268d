// rawgen is a one-shot CLI for the raw search+scrape pipeline. It is the
// operational fallback when the search-augmented provider is unavailable:
// it talks to the MCP tool server directly and prints the itinerary as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/wander-labs/wander/internal/config"
	"github.com/wander-labs/wander/internal/interests"
	"github.com/wander-labs/wander/internal/llm"
	"github.com/wander-labs/wander/internal/rawpipe"
	"github.com/wander-labs/wander/internal/tools"
)

type session interface {
	tools.Transport
	Close() error
}

var (
	loadEnv    = godotenv.Load
	loadConfig = func() (config.Config, error) {
		return config.Load(), nil
	}
	newProvider = llm.NewProvider
	newSession  = func(ctx context.Context, cfg tools.Config) (session, error) {
		return tools.NewSession(ctx, cfg)
	}
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		log.Fatal(err)
	}
}

func run(args []string, stdout io.Writer) error {
	flags := flag.NewFlagSet("rawgen", flag.ContinueOnError)
	city := flags.String("city", "", "destination city (required)")
	interestsCSV := flags.String("interests", "", "comma-separated interests (required)")
	startDate := flags.String("start", "", "start date, YYYY-MM-DD")
	endDate := flags.String("end", "", "end date, YYYY-MM-DD")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *city == "" || *interestsCSV == "" {
		return fmt.Errorf("both -city and -interests are required")
	}

	if err := loadEnv(); err != nil && !os.IsNotExist(err) {
		log.Printf("warning: could not load .env: %v", err)
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

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

	ctx := context.Background()
	sess, err := newSession(ctx, tools.Config{
		Endpoint:  cfg.MCPEndpoint,
		Command:   cfg.MCPCommand,
		AuthToken: cfg.MCPAuthToken,
	})
	if err != nil {
		return err
	}
	defer sess.Close()

	p := rawpipe.New(tools.NewInvoker(sess), provider)
	events, err := p.Generate(ctx, *city, interests.Split(*interestsCSV), *startDate, *endDate)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(map[string]any{
		"city":      *city,
		"itinerary": events,
		"total":     len(events),
	})
}
