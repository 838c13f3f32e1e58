package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"mediarelay/internal/domain"
	"mediarelay/internal/http/handlers"
	httpapi "mediarelay/internal/http/httpapi"
	"mediarelay/internal/infra"
	"mediarelay/internal/jobs"
	"mediarelay/internal/providers/n8n"
	"mediarelay/internal/storage"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)
	metrics := infra.NewMetrics()

	ctx := context.Background()
	store, closeStore := openStore(ctx, cfg, logger)
	defer closeStore()

	httpClient := &http.Client{Timeout: cfg.WebhookTimeout}
	webhooks := n8n.NewWebhookClient(n8n.WebhookOptions{
		CatalogURL:  cfg.CatalogWebhookURL,
		MediaGenURL: cfg.MediaGenWebhookURL,
		HTTPClient:  httpClient,
		Logger:      &logger,
		Metrics:     metrics,
	})
	n8nAPI := n8n.NewAPIClient(n8n.APIOptions{
		BaseURL:    cfg.N8NBaseURL,
		APIKey:     cfg.N8NAPIKey,
		HTTPClient: httpClient,
		Logger:     &logger,
		Metrics:    metrics,
	})

	results := jobs.NewResults(store, jobs.ResultsOptions{Metrics: metrics, Logger: &logger})
	poller := jobs.NewExecutionProvider(n8nAPI, jobs.ExecutionOptions{
		WorkflowID: cfg.N8NWorkflowID,
		Limit:      cfg.N8NExecutionLimit,
		Logger:     &logger,
	})
	selected, err := jobs.SelectProvider(cfg.StatusProvider, jobs.NewCallbackProvider(results), poller)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid status provider")
	}

	if cfg.CatalogWebhookURL == "" || cfg.MediaGenWebhookURL == "" {
		logger.Warn().Msg("webhook URLs incomplete; affected routes will answer with a configuration error")
	}
	if !n8nAPI.Configured() {
		logger.Warn().Msg("N8N_BASE_URL or N8N_API_KEY unset; /status will answer with a configuration error")
	}

	app := &handlers.App{
		Catalog:       webhooks,
		Generator:     webhooks,
		Results:       results,
		Poller:        poller,
		Jobs:          selected,
		Metrics:       metrics,
		Logger:        &logger,
		PublicBaseURL: cfg.PublicBaseURL,
	}
	router := httpapi.NewRouter(app, httpapi.Options{Logger: logger, AllowedOrigins: cfg.CORSAllowedOrigins})
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().
			Str("addr", server.Addr()).
			Str("status_provider", cfg.StatusProvider).
			Str("results_store", cfg.ResultsStore).
			Msg("API listening")
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}

func openStore(ctx context.Context, cfg *infra.Config, logger infra.Logger) (domain.JobStore, func()) {
	if cfg.ResultsStore != infra.ResultsStorePostgres {
		return storage.NewMemoryJobStore(), func() {}
	}

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	store, err := storage.NewPostgresJobStore(infra.NewSQLRunner(pool, logger), cfg.ResultsTable)
	if err != nil {
		pool.Close()
		logger.Fatal().Err(err).Msg("invalid RESULTS_TABLE")
	}
	schemaCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := store.EnsureSchema(schemaCtx); err != nil {
		pool.Close()
		logger.Fatal().Err(err).Msg("failed to prepare results table")
	}
	return store, pool.Close
}
