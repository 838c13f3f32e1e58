package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"mediarelay/internal/domain"
	"mediarelay/internal/infra"
	"mediarelay/internal/jobs"
)

// CatalogRelay fetches one random product from the catalog workflow.
type CatalogRelay interface {
	TriggerCatalogFetch(ctx context.Context) (*domain.Product, error)
}

// GenerationDispatcher starts a media generation run for a product.
type GenerationDispatcher interface {
	StartGeneration(ctx context.Context, product domain.Product) (*domain.JobHandle, error)
}

type App struct {
	Catalog   CatalogRelay
	Generator GenerationDispatcher
	Results   *jobs.Results
	// Poller backs /status; Jobs is the provider chosen by STATUS_PROVIDER.
	Poller        domain.JobStatusProvider
	Jobs          domain.JobStatusProvider
	Metrics       *infra.Metrics
	Logger        *infra.Logger
	PublicBaseURL string
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

type errorResponse struct {
	Success bool            `json:"success"`
	Status  domain.JobState `json:"status,omitempty"`
	Error   string          `json:"error"`
}

func (a *App) error(w http.ResponseWriter, code int, msg string) {
	a.json(w, code, errorResponse{Success: false, Error: msg})
}

// failed answers with the job-shaped error body used by /generate, /status and /jobs.
func (a *App) failed(w http.ResponseWriter, code int, msg string) {
	a.json(w, code, errorResponse{Success: false, Status: domain.JobStateFailed, Error: msg})
}

func (a *App) log() *infra.Logger {
	if a.Logger == nil {
		return infra.DiscardLogger()
	}
	return a.Logger
}
