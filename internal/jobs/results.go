package jobs

import (
	"context"
	"strings"
	"time"

	"mediarelay/internal/domain"
	"mediarelay/internal/infra"
)

// Results records callback bodies pushed by the workflow engine and serves
// them back to polling clients. A later callback for the same job replaces the
// earlier one; nothing is merged.
type Results struct {
	store   domain.JobStore
	now     func() time.Time
	metrics *infra.Metrics
	logger  *infra.Logger
}

// ResultsOptions carries the optional collaborators of Results.
type ResultsOptions struct {
	Now     func() time.Time
	Metrics *infra.Metrics
	Logger  *infra.Logger
}

func NewResults(store domain.JobStore, opts ResultsOptions) *Results {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = infra.DiscardLogger()
	}
	return &Results{store: store, now: now, metrics: opts.Metrics, logger: logger}
}

// Record stores payload for jobID stamped with the receipt time.
func (r *Results) Record(ctx context.Context, jobID string, payload map[string]any) (domain.ResultEntry, error) {
	entry := domain.ResultEntry{
		JobID:      strings.TrimSpace(jobID),
		Payload:    payload,
		ReceivedAt: r.now().UTC(),
	}
	if err := r.store.Put(ctx, entry); err != nil {
		return domain.ResultEntry{}, err
	}
	r.metrics.CallbackStored()
	r.refreshSize(ctx)
	r.logger.Info().
		Str("job_id", entry.JobID).
		Bool("image_url", hasString(payload, "imageUrl")).
		Bool("video_url", hasString(payload, "videoUrl")).
		Bool("error", hasString(payload, "error")).
		Msg("results: stored callback")
	return entry, nil
}

// Lookup returns the stored entry, or ok=false while the job is still running.
func (r *Results) Lookup(ctx context.Context, jobID string) (domain.ResultEntry, bool, error) {
	return r.store.Get(ctx, strings.TrimSpace(jobID))
}

// Forget drops the entry for jobID.
func (r *Results) Forget(ctx context.Context, jobID string) error {
	if err := r.store.Delete(ctx, strings.TrimSpace(jobID)); err != nil {
		return err
	}
	r.refreshSize(ctx)
	return nil
}

func (r *Results) refreshSize(ctx context.Context) {
	n, err := r.store.Len(ctx)
	if err != nil {
		r.logger.Warn().Err(err).Msg("results: count entries failed")
		return
	}
	r.metrics.SetStoreEntries(n)
}

func hasString(m map[string]any, key string) bool {
	s, ok := m[key].(string)
	return ok && s != ""
}
