package domain

import "context"

// JobStore holds the last result pushed for each job identifier. Put always
// overwrites; concurrent puts for one id resolve to whichever finishes last.
type JobStore interface {
	Put(ctx context.Context, entry ResultEntry) error
	Get(ctx context.Context, jobID string) (ResultEntry, bool, error)
	Delete(ctx context.Context, jobID string) error
	Len(ctx context.Context) (int, error)
}

// JobStatusProvider answers "where is this job" regardless of whether the
// answer comes from a pushed callback or from the engine's execution history.
type JobStatusProvider interface {
	Status(ctx context.Context, jobID string) (JobStatus, error)
}
