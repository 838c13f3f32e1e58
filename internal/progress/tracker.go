package progress

import (
	"math"
	"time"

	"mediarelay/internal/domain"
)

const (
	// DefaultEstimate is how long a generation run usually takes end to end.
	DefaultEstimate = 300 * time.Second
	simulatedCap    = 95
)

// Snapshot is what a progress display renders at one instant.
type Snapshot struct {
	State    domain.JobState
	Progress int
	Label    string
	Elapsed  time.Duration
	Result   map[string]any
	Error    string
}

// Tracker folds elapsed time and server reports into one display state.
// Once completed or failed it ignores further input.
type Tracker struct {
	estimate       time.Duration
	elapsed        time.Duration
	state          domain.JobState
	serverProgress int
	serverLabel    string
	result         map[string]any
	err            string
}

func NewTracker(estimate time.Duration) *Tracker {
	if estimate <= 0 {
		estimate = DefaultEstimate
	}
	return &Tracker{estimate: estimate, state: domain.JobStateProcessing}
}

// Tick advances the simulated clock.
func (t *Tracker) Tick(elapsed time.Duration) Snapshot {
	if !t.state.Terminal() && elapsed > t.elapsed {
		t.elapsed = elapsed
	}
	return t.Snapshot()
}

// Observe applies one status answer from the server.
func (t *Tracker) Observe(status domain.JobStatus) Snapshot {
	if t.state.Terminal() {
		return t.Snapshot()
	}
	switch status.Status {
	case domain.JobStateCompleted:
		data, _ := status.Data.(map[string]any)
		if msg, _ := data["error"].(string); msg != "" {
			t.state, t.err = domain.JobStateFailed, msg
			break
		}
		t.state, t.result = domain.JobStateCompleted, data
	case domain.JobStateFailed:
		t.state, t.err = domain.JobStateFailed, status.Error
		if t.err == "" {
			t.err = "Media generation failed"
		}
	default:
		// Only stage-bearing answers carry a label worth showing; a bare
		// "not yet available" keeps the time based label.
		if status.Progress != nil {
			t.serverProgress = *status.Progress
			if status.Message != "" {
				t.serverLabel = status.Message
			}
		}
	}
	return t.Snapshot()
}

func (t *Tracker) Snapshot() Snapshot {
	s := Snapshot{State: t.state, Elapsed: t.elapsed, Result: t.result, Error: t.err}
	switch t.state {
	case domain.JobStateCompleted:
		s.Progress, s.Label = 100, "Generation complete!"
	case domain.JobStateFailed:
		s.Progress, s.Label = t.current(), "Generation failed"
	default:
		s.Progress, s.Label = t.current(), t.serverLabel
		if s.Label == "" {
			s.Label = TimeLabel(t.elapsed)
		}
	}
	return s
}

func (t *Tracker) current() int {
	p := SimulatedProgress(t.elapsed, t.estimate)
	if t.serverProgress > p {
		p = min(t.serverProgress, 100)
	}
	return p
}

// SimulatedProgress grows linearly with elapsed time and stops at 95.
func SimulatedProgress(elapsed, estimate time.Duration) int {
	if elapsed <= 0 || estimate <= 0 {
		return 0
	}
	pct := math.Min(float64(elapsed)/float64(estimate)*100, simulatedCap)
	return int(math.Round(pct))
}

// TimeLabel names the step a run has most likely reached after elapsed.
func TimeLabel(elapsed time.Duration) string {
	switch {
	case elapsed < 15*time.Second:
		return "Initializing AI systems..."
	case elapsed < 45*time.Second:
		return "Analyzing product details..."
	case elapsed < 120*time.Second:
		return "Generating AI image..."
	case elapsed < 240*time.Second:
		return "Creating AI video..."
	default:
		return "Processing final results..."
	}
}
