package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	StatusProviderCallback   = "callback"
	StatusProviderExecutions = "executions"

	ResultsStoreMemory   = "memory"
	ResultsStorePostgres = "postgres"

	// DefaultWorkflowID is the n8n "Product Media Generation" workflow.
	DefaultWorkflowID = "LYyh2ovT6sJoxGiG"
)

// Config represents application configuration loaded from environment variables.
// Webhook and engine settings may be empty; operations that need them report a
// configuration error per request instead of failing startup.
type Config struct {
	AppEnv             string
	Port               string
	PublicBaseURL      string
	CatalogWebhookURL  string
	MediaGenWebhookURL string
	N8NAPIKey          string
	N8NBaseURL         string
	N8NWorkflowID      string
	N8NExecutionLimit  int
	StatusProvider     string
	ResultsStore       string
	DatabaseURL        string
	ResultsTable       string
	CORSAllowedOrigins []string
	WebhookTimeout     time.Duration
	HTTPReadTimeout    time.Duration
	HTTPWriteTimeout   time.Duration
	HTTPIdleTimeout    time.Duration
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	port := getEnv("PORT", "8080")
	cfg := &Config{
		AppEnv:             getEnv("APP_ENV", "development"),
		Port:               port,
		PublicBaseURL:      strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:"+port), "/"),
		CatalogWebhookURL:  strings.TrimSpace(os.Getenv("CATALOG_WEBHOOK_URL")),
		MediaGenWebhookURL: strings.TrimSpace(os.Getenv("MEDIA_GEN_WEBHOOK_URL")),
		N8NAPIKey:          strings.TrimSpace(os.Getenv("N8N_API_KEY")),
		N8NBaseURL:         strings.TrimRight(strings.TrimSpace(os.Getenv("N8N_BASE_URL")), "/"),
		N8NWorkflowID:      getEnv("N8N_WORKFLOW_ID", DefaultWorkflowID),
		N8NExecutionLimit:  getEnvInt("N8N_EXECUTION_LIMIT", 50),
		StatusProvider:     strings.ToLower(getEnv("STATUS_PROVIDER", StatusProviderCallback)),
		ResultsStore:       strings.ToLower(getEnv("RESULTS_STORE", ResultsStoreMemory)),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		ResultsTable:       getEnv("RESULTS_TABLE", "media_job_results"),
		CORSAllowedOrigins: splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),
		WebhookTimeout:     time.Second * time.Duration(getEnvInt("WEBHOOK_TIMEOUT_SECONDS", 60)),
		HTTPReadTimeout:    time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout:   time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 120)),
		HTTPIdleTimeout:    time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
	}

	switch cfg.StatusProvider {
	case StatusProviderCallback, StatusProviderExecutions:
	default:
		return nil, fmt.Errorf("STATUS_PROVIDER must be %q or %q", StatusProviderCallback, StatusProviderExecutions)
	}

	switch cfg.ResultsStore {
	case ResultsStoreMemory:
	case ResultsStorePostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required when RESULTS_STORE=postgres")
		}
	default:
		return nil, fmt.Errorf("RESULTS_STORE must be %q or %q", ResultsStoreMemory, ResultsStorePostgres)
	}

	if cfg.N8NExecutionLimit <= 0 {
		cfg.N8NExecutionLimit = 50
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
