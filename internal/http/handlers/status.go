package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"mediarelay/internal/domain"
)

// PollStatus asks the n8n executions API directly.
func (a *App) PollStatus(w http.ResponseWriter, r *http.Request) {
	a.serveStatus(w, r, a.Poller)
}

// JobStatus answers from whichever provider STATUS_PROVIDER selected.
func (a *App) JobStatus(w http.ResponseWriter, r *http.Request) {
	a.serveStatus(w, r, a.Jobs)
}

func (a *App) serveStatus(w http.ResponseWriter, r *http.Request, provider domain.JobStatusProvider) {
	jobID := chi.URLParam(r, "jobId")
	if provider == nil {
		a.failed(w, http.StatusInternalServerError, "status provider not configured")
		return
	}
	status, err := provider.Status(r.Context(), jobID)
	if err != nil {
		a.log().Error().Err(err).Str("job_id", jobID).Msg("status check failed")
		a.failed(w, http.StatusInternalServerError, err.Error())
		return
	}
	a.json(w, http.StatusOK, status)
}
