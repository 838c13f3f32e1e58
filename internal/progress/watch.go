package progress

import (
	"context"
	"time"

	"mediarelay/internal/infra"
)

const (
	DefaultTick         = time.Second
	DefaultPollInterval = 3 * time.Second
)

type WatchOptions struct {
	Estimate     time.Duration
	Tick         time.Duration
	PollInterval time.Duration
	Now          func() time.Time
	Logger       *infra.Logger
	// OnUpdate receives every snapshot, on ticks and after each poll.
	OnUpdate func(Snapshot)
}

// Watch polls src until the job reaches a terminal state or ctx ends. Poll
// errors are logged and the next interval tries again.
func Watch(ctx context.Context, src Source, jobID string, opts WatchOptions) (Snapshot, error) {
	tick := opts.Tick
	if tick <= 0 {
		tick = DefaultTick
	}
	interval := opts.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = infra.DiscardLogger()
	}
	emit := opts.OnUpdate
	if emit == nil {
		emit = func(Snapshot) {}
	}

	tracker := NewTracker(opts.Estimate)
	start := now()
	emit(tracker.Snapshot())

	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	poll := time.NewTicker(interval)
	defer poll.Stop()

	for {
		select {
		case <-ctx.Done():
			return tracker.Snapshot(), ctx.Err()
		case <-ticker.C:
			emit(tracker.Tick(now().Sub(start)))
		case <-poll.C:
			status, err := src.Fetch(ctx, jobID)
			if err != nil {
				if ctx.Err() != nil {
					return tracker.Snapshot(), ctx.Err()
				}
				logger.Warn().Err(err).Str("job_id", jobID).Msg("progress: poll failed")
				continue
			}
			tracker.Tick(now().Sub(start))
			snap := tracker.Observe(status)
			emit(snap)
			if snap.State.Terminal() {
				return snap, nil
			}
		}
	}
}
