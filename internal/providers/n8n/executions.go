package n8n

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"mediarelay/internal/domain"
	"mediarelay/internal/infra"
)

const apiKeyHeader = "X-N8N-API-KEY"

// APIOptions configures access to the n8n public REST API.
type APIOptions struct {
	BaseURL        string
	APIKey         string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	Metrics        *infra.Metrics
	RequestTimeout time.Duration
}

// APIClient reads execution history from n8n.
type APIClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *infra.Logger
	metrics    *infra.Metrics
}

// ExecutionID accepts both the numeric and string ids n8n versions emit.
type ExecutionID string

func (id *ExecutionID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ExecutionID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = ExecutionID(n.String())
	return nil
}

// Execution is one entry of the executions listing.
type Execution struct {
	ID         ExecutionID `json:"id"`
	Status     string      `json:"status"`
	Finished   bool        `json:"finished"`
	WorkflowID string      `json:"workflowId"`
	StartedAt  string      `json:"startedAt"`
}

type executionList struct {
	Data []Execution `json:"data"`
}

// ExecutionDetail is an execution fetched with includeData=true.
type ExecutionDetail struct {
	ID     ExecutionID `json:"id"`
	Status string      `json:"status"`
	Data   struct {
		ResultData struct {
			RunData RunData `json:"runData"`
			Error   *struct {
				Message string `json:"message"`
			} `json:"error"`
		} `json:"resultData"`
	} `json:"data"`
}

// RunData maps node names to the runs that node produced.
type RunData map[string][]NodeRun

// NodeRun is one run of a workflow node.
type NodeRun struct {
	Data struct {
		Main [][]struct {
			JSON map[string]any `json:"json"`
		} `json:"main"`
	} `json:"data"`
}

// Has reports whether the node produced any run record.
func (r RunData) Has(node string) bool {
	runs, ok := r[node]
	return ok && runs != nil
}

// FirstItem returns the json of the first output item of the node's first run.
func (r RunData) FirstItem(node string) (map[string]any, bool) {
	runs := r[node]
	if len(runs) == 0 {
		return nil, false
	}
	outputs := runs[0].Data.Main
	if len(outputs) == 0 || len(outputs[0]) == 0 || outputs[0][0].JSON == nil {
		return nil, false
	}
	return outputs[0][0].JSON, true
}

// ErrorMessage returns the engine's failure message, if any.
func (d *ExecutionDetail) ErrorMessage() string {
	if d == nil || d.Data.ResultData.Error == nil {
		return ""
	}
	return d.Data.ResultData.Error.Message
}

func NewAPIClient(opts APIOptions) *APIClient {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = infra.DiscardLogger()
	}
	return &APIClient{
		baseURL:    strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/"),
		apiKey:     strings.TrimSpace(opts.APIKey),
		httpClient: httpClient,
		logger:     logger,
		metrics:    opts.Metrics,
	}
}

// Configured reports whether both the base URL and API key are set.
func (c *APIClient) Configured() bool {
	return c.baseURL != "" && c.apiKey != ""
}

// ListExecutions returns the most recent executions of a workflow.
func (c *APIClient) ListExecutions(ctx context.Context, workflowID string, limit int) ([]Execution, error) {
	if !c.Configured() {
		return nil, &domain.ConfigurationError{Message: "N8N API not configured"}
	}
	q := url.Values{}
	q.Set("workflowId", workflowID)
	q.Set("limit", strconv.Itoa(limit))
	endpoint := c.baseURL + "/api/v1/executions?" + q.Encode()

	start := time.Now()
	raw, status, err := c.get(ctx, endpoint)
	if err == nil && !success(status) {
		c.logger.Warn().Int("status", status).Str("body", excerpt(string(raw), 200)).Msg("n8n: list executions failed")
		err = &domain.UpstreamHTTPError{
			Status:  status,
			Body:    excerpt(string(raw), 200),
			Message: fmt.Sprintf("Failed to query n8n: %d", status),
		}
	}
	c.metrics.ObserveOutbound(TargetExecutions, start, err)
	if err != nil {
		return nil, err
	}
	var list executionList
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, &domain.MalformedResponseError{Message: "n8n returned an invalid executions listing", Err: err}
	}
	return list.Data, nil
}

// GetExecution fetches one execution including its run data.
func (c *APIClient) GetExecution(ctx context.Context, id ExecutionID) (*ExecutionDetail, error) {
	if !c.Configured() {
		return nil, &domain.ConfigurationError{Message: "N8N API not configured"}
	}
	endpoint := fmt.Sprintf("%s/api/v1/executions/%s?includeData=true", c.baseURL, url.PathEscape(string(id)))

	start := time.Now()
	raw, status, err := c.get(ctx, endpoint)
	if err == nil && !success(status) {
		err = &domain.UpstreamHTTPError{
			Status:  status,
			Body:    excerpt(string(raw), 200),
			Message: fmt.Sprintf("n8n: execution %s: status %d", id, status),
		}
	}
	c.metrics.ObserveOutbound(TargetExecutions, start, err)
	if err != nil {
		return nil, err
	}
	var detail ExecutionDetail
	if err := json.Unmarshal(raw, &detail); err != nil {
		return nil, &domain.MalformedResponseError{Message: fmt.Sprintf("n8n returned invalid execution %s", id), Err: err}
	}
	return &detail, nil
}

func (c *APIClient) get(ctx context.Context, endpoint string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, 0, &domain.ConfigurationError{Message: fmt.Sprintf("invalid n8n URL: %v", err)}
	}
	req.Header.Set(apiKeyHeader, c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, &domain.TransportError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, &domain.TransportError{Err: fmt.Errorf("read response: %w", err)}
	}
	return raw, resp.StatusCode, nil
}
