package progress

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"mediarelay/internal/domain"
)

type scriptedSource struct {
	mu      sync.Mutex
	answers []domain.JobStatus
	errs    []error
	calls   int
}

func (s *scriptedSource) Fetch(context.Context, string) (domain.JobStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return domain.JobStatus{}, s.errs[i]
	}
	if i >= len(s.answers) {
		return s.answers[len(s.answers)-1], nil
	}
	return s.answers[i], nil
}

func fastOptions() WatchOptions {
	return WatchOptions{Tick: time.Millisecond, PollInterval: 3 * time.Millisecond}
}

func TestWatchStopsOnCompletion(t *testing.T) {
	src := &scriptedSource{
		errs: []error{errors.New("connection refused")},
		answers: []domain.JobStatus{
			{},
			{Status: domain.JobStateProcessing, Message: "Results not yet available"},
			{Success: true, Status: domain.JobStateCompleted, Data: map[string]any{"imageUrl": "i"}},
		},
	}
	var mu sync.Mutex
	var updates int
	opts := fastOptions()
	opts.OnUpdate = func(Snapshot) {
		mu.Lock()
		updates++
		mu.Unlock()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	snap, err := Watch(ctx, src, "job-1", opts)
	require.NoError(t, err)
	require.Equal(t, domain.JobStateCompleted, snap.State)
	require.Equal(t, 100, snap.Progress)
	require.Equal(t, 3, src.calls)

	mu.Lock()
	defer mu.Unlock()
	require.GreaterOrEqual(t, updates, 3)
}

func TestWatchReturnsOnCancel(t *testing.T) {
	src := &scriptedSource{answers: []domain.JobStatus{{Status: domain.JobStateProcessing}}}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	snap, err := Watch(ctx, src, "job-1", fastOptions())
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Equal(t, domain.JobStateProcessing, snap.State)
}

func TestHTTPSource(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/status/broken" {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"success":false,"status":"failed","error":"N8N API not configured"}`))
			return
		}
		_, _ = w.Write([]byte(`{"success":false,"status":"processing","message":"Checking image status...","progress":50}`))
	}))
	defer srv.Close()

	src, err := NewHTTPSource(HTTPSourceOptions{BaseURL: srv.URL + "/", Kind: SourceStatus})
	require.NoError(t, err)

	status, err := src.Fetch(context.Background(), "job 1")
	require.NoError(t, err)
	require.Equal(t, "/status/job%201", gotPath)
	require.Equal(t, domain.JobStateProcessing, status.Status)
	require.NotNil(t, status.Progress)
	require.Equal(t, 50, *status.Progress)

	_, err = src.Fetch(context.Background(), "broken")
	var upstream *domain.UpstreamHTTPError
	require.ErrorAs(t, err, &upstream)
	require.Equal(t, "N8N API not configured", upstream.Message)
}

func TestNewHTTPSourceValidates(t *testing.T) {
	_, err := NewHTTPSource(HTTPSourceOptions{Kind: SourceJobs})
	require.Error(t, err)
	_, err = NewHTTPSource(HTTPSourceOptions{BaseURL: "http://localhost:8080", Kind: "carrier"})
	require.Error(t, err)
}
