package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port             string
	LLMMode          string
	LLMProvider      string
	LLMModel         string
	LLMBaseURL       string
	OpenAIAPIKey     string
	OpenRouterAPIKey string

	// Scout tuning: per-call link cap and the fixed delay between the
	// interest x day search calls (upstream rate limits).
	ScoutLinkCap int
	ScoutDelay   time.Duration

	// Explorer tuning: batch size and the fixed delay between batches.
	ExploreBatchSize int
	ExploreDelay     time.Duration

	// DefaultRangeDays is the date span used when the request omits dates:
	// start = today, end = start + (DefaultRangeDays - 1).
	DefaultRangeDays int

	ArtifactsDir string

	// MCP server for the raw search/scrape pipeline. Endpoint takes
	// precedence; Command falls back to a stdio transport.
	MCPEndpoint  string
	MCPCommand   string
	MCPAuthToken string
}

func Load() Config {
	return Config{
		Port:             getEnv("WANDER_PORT", "8080"),
		LLMMode:          getEnv("LLM_MODE", "remote"),
		LLMProvider:      getEnv("LLM_PROVIDER", "openrouter"),
		LLMModel:         getEnv("LLM_MODEL", "google/gemini-2.5-flash"),
		LLMBaseURL:       getEnv("LLM_BASE_URL", ""),
		OpenAIAPIKey:     getEnv("OPENAI_API_KEY", ""),
		OpenRouterAPIKey: getEnv("OPENROUTER_API_KEY", ""),
		ScoutLinkCap:     getEnvInt("SCOUT_LINK_CAP", 10),
		ScoutDelay:       getEnvMillis("SCOUT_DELAY_MS", 1500),
		ExploreBatchSize: getEnvInt("EXPLORE_BATCH_SIZE", 5),
		ExploreDelay:     getEnvMillis("EXPLORE_DELAY_MS", 2000),
		DefaultRangeDays: getEnvInt("DEFAULT_RANGE_DAYS", 3),
		ArtifactsDir:     getEnv("ARTIFACTS_DIR", "logs"),
		MCPEndpoint:      getEnv("MCP_ENDPOINT", ""),
		MCPCommand:       getEnv("MCP_COMMAND", ""),
		MCPAuthToken:     getEnv("MCP_AUTH_TOKEN", ""),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvMillis(key string, fallback int) time.Duration {
	return time.Duration(getEnvInt(key, fallback)) * time.Millisecond
}
