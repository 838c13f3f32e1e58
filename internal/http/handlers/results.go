package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"mediarelay/internal/domain"
	"mediarelay/internal/storage"
)

const maxCallbackBody = 4 << 20

type resultResponse struct {
	Success bool            `json:"success"`
	Status  domain.JobState `json:"status"`
	Message string          `json:"message,omitempty"`
	Data    map[string]any  `json:"data,omitempty"`
}

// StoreResult receives the completion callback posted by the workflow. The
// body must be a JSON object; anything else is rejected with 500 and nothing
// is stored.
func (a *App) StoreResult(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobId")
	var payload map[string]any
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxCallbackBody)).Decode(&payload); err != nil || payload == nil {
		a.log().Warn().Err(err).Str("job_id", jobID).Msg("results: rejected callback body")
		a.error(w, http.StatusInternalServerError, "Failed to store results")
		return
	}
	if _, err := a.Results.Record(r.Context(), jobID, payload); err != nil {
		if errors.Is(err, storage.ErrInvalidJobID) {
			a.error(w, http.StatusBadRequest, "jobId is required")
			return
		}
		a.log().Error().Err(err).Str("job_id", jobID).Msg("results: store failed")
		a.error(w, http.StatusInternalServerError, "Failed to store results")
		return
	}
	a.json(w, http.StatusOK, map[string]any{"success": true, "message": "Results stored successfully"})
}

func (a *App) GetResult(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobId")
	entry, ok, err := a.Results.Lookup(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, storage.ErrInvalidJobID) {
			a.error(w, http.StatusBadRequest, "jobId is required")
			return
		}
		a.log().Error().Err(err).Str("job_id", jobID).Msg("results: lookup failed")
		a.error(w, http.StatusInternalServerError, "Failed to retrieve results")
		return
	}
	if !ok {
		a.json(w, http.StatusOK, resultResponse{
			Success: false,
			Status:  domain.JobStateProcessing,
			Message: "Results not yet available",
		})
		return
	}
	a.json(w, http.StatusOK, resultResponse{Success: true, Status: domain.JobStateCompleted, Data: entry.Data()})
}

func (a *App) DeleteResult(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobId")
	if err := a.Results.Forget(r.Context(), jobID); err != nil {
		if errors.Is(err, storage.ErrInvalidJobID) {
			a.error(w, http.StatusBadRequest, "jobId is required")
			return
		}
		a.log().Error().Err(err).Str("job_id", jobID).Msg("results: delete failed")
		a.error(w, http.StatusInternalServerError, "Failed to delete results")
		return
	}
	a.json(w, http.StatusOK, map[string]any{"success": true, "message": "Results deleted"})
}
