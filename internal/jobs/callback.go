package jobs

import (
	"context"

	"mediarelay/internal/domain"
)

// CallbackProvider answers status from callbacks stored in Results.
type CallbackProvider struct {
	results *Results
}

func NewCallbackProvider(results *Results) *CallbackProvider {
	return &CallbackProvider{results: results}
}

func (p *CallbackProvider) Status(ctx context.Context, jobID string) (domain.JobStatus, error) {
	entry, ok, err := p.results.Lookup(ctx, jobID)
	if err != nil {
		return domain.JobStatus{}, err
	}
	if !ok {
		return domain.JobStatus{
			Success: false,
			Status:  domain.JobStateProcessing,
			Message: "Results not yet available",
		}, nil
	}
	return domain.JobStatus{
		Success: true,
		Status:  domain.JobStateCompleted,
		Data:    entry.Data(),
	}, nil
}

var _ domain.JobStatusProvider = (*CallbackProvider)(nil)
