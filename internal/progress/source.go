package progress

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"mediarelay/internal/domain"
)

// Endpoints a watcher can poll.
const (
	SourceResults = "results"
	SourceStatus  = "status"
	SourceJobs    = "jobs"
)

// Source fetches the current status of a job.
type Source interface {
	Fetch(ctx context.Context, jobID string) (domain.JobStatus, error)
}

type HTTPSourceOptions struct {
	BaseURL    string
	Kind       string
	HTTPClient *http.Client
}

// HTTPSource polls one of the relay's status routes.
type HTTPSource struct {
	baseURL    string
	kind       string
	httpClient *http.Client
}

func NewHTTPSource(opts HTTPSourceOptions) (*HTTPSource, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("progress: base URL is required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("progress: invalid base URL: %w", err)
	}
	kind := opts.Kind
	if kind == "" {
		kind = SourceJobs
	}
	switch kind {
	case SourceResults, SourceStatus, SourceJobs:
	default:
		return nil, fmt.Errorf("progress: unknown source %q", kind)
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPSource{baseURL: base, kind: kind, httpClient: httpClient}, nil
}

func (s *HTTPSource) Fetch(ctx context.Context, jobID string) (domain.JobStatus, error) {
	endpoint := fmt.Sprintf("%s/%s/%s", s.baseURL, s.kind, url.PathEscape(jobID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.JobStatus{}, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-store")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return domain.JobStatus{}, &domain.TransportError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return domain.JobStatus{}, &domain.TransportError{Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var body struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(raw, &body)
		msg := body.Error
		if msg == "" {
			msg = fmt.Sprintf("HTTP %d", resp.StatusCode)
		}
		return domain.JobStatus{}, &domain.UpstreamHTTPError{Status: resp.StatusCode, Message: msg}
	}
	var status domain.JobStatus
	if err := json.Unmarshal(raw, &status); err != nil {
		return domain.JobStatus{}, &domain.MalformedResponseError{Message: "invalid status body", Err: err}
	}
	return status, nil
}
