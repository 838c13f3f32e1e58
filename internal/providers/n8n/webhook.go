package n8n

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"mediarelay/internal/domain"
	"mediarelay/internal/infra"
)

// Metric target labels for outbound calls.
const (
	TargetCatalog    = "catalog_webhook"
	TargetGeneration = "generation_webhook"
	TargetExecutions = "n8n_executions"
)

const (
	msgCatalogNotConfigured    = "Webhook URL not configured"
	msgGenerationNotConfigured = "Media generation webhook URL not configured"
)

// WebhookOptions configures the catalog and media generation webhook client.
type WebhookOptions struct {
	CatalogURL     string
	MediaGenURL    string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	Metrics        *infra.Metrics
	RequestTimeout time.Duration
}

// WebhookClient posts to the n8n webhooks that start catalog fetches and
// media generation runs. It never retries.
type WebhookClient struct {
	catalogURL  string
	mediaGenURL string
	httpClient  *http.Client
	logger      *infra.Logger
	metrics     *infra.Metrics
}

type catalogTrigger struct {
	Trigger string `json:"trigger"`
}

// generationBody wraps the product bytes in {"product": ...} without
// re-encoding them.
func generationBody(product domain.Product) []byte {
	raw := product.Raw()
	body := make([]byte, 0, len(raw)+12)
	body = append(body, `{"product":`...)
	body = append(body, raw...)
	return append(body, '}')
}

// NewWebhookClient constructs a client. Empty URLs are allowed; the matching
// call then fails with a configuration error.
func NewWebhookClient(opts WebhookOptions) *WebhookClient {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = infra.DiscardLogger()
	}
	return &WebhookClient{
		catalogURL:  strings.TrimSpace(opts.CatalogURL),
		mediaGenURL: strings.TrimSpace(opts.MediaGenURL),
		httpClient:  httpClient,
		logger:      logger,
		metrics:     opts.Metrics,
	}
}

// TriggerCatalogFetch asks the catalog workflow for a random product.
func (c *WebhookClient) TriggerCatalogFetch(ctx context.Context) (*domain.Product, error) {
	if c.catalogURL == "" {
		return nil, &domain.ConfigurationError{Message: msgCatalogNotConfigured}
	}
	start := time.Now()
	product, err := c.triggerCatalogFetch(ctx)
	c.metrics.ObserveOutbound(TargetCatalog, start, err)
	return product, err
}

func (c *WebhookClient) triggerCatalogFetch(ctx context.Context) (*domain.Product, error) {
	payload, err := json.Marshal(catalogTrigger{Trigger: "start"})
	if err != nil {
		return nil, fmt.Errorf("n8n: encode request: %w", err)
	}
	status, raw, err := c.post(ctx, c.catalogURL, payload)
	if err != nil {
		return nil, err
	}
	if !success(status) {
		c.logger.Warn().Int("status", status).Str("body", excerpt(string(raw), 200)).Msg("n8n: catalog webhook failed")
		return nil, &domain.UpstreamHTTPError{
			Status:  status,
			Body:    excerpt(string(raw), 200),
			Message: fmt.Sprintf("HTTP error! status: %d", status),
		}
	}
	product, err := domain.ProductFromJSON(raw)
	if err != nil {
		return nil, &domain.MalformedResponseError{Message: "catalog webhook returned invalid JSON", Err: err}
	}
	c.logger.Debug().Str("product_id", product.ID()).Str("product", product.Name()).Msg("n8n: catalog product fetched")
	return &product, nil
}

// StartGeneration hands the product to the media generation workflow and
// returns its acknowledgement. It does not wait for the media.
func (c *WebhookClient) StartGeneration(ctx context.Context, product domain.Product) (*domain.JobHandle, error) {
	if c.mediaGenURL == "" {
		return nil, &domain.ConfigurationError{Message: msgGenerationNotConfigured}
	}
	start := time.Now()
	handle, err := c.startGeneration(ctx, product)
	c.metrics.ObserveOutbound(TargetGeneration, start, err)
	return handle, err
}

func (c *WebhookClient) startGeneration(ctx context.Context, product domain.Product) (*domain.JobHandle, error) {
	c.logger.Debug().Str("product", product.Name()).Msg("n8n: dispatching media generation")
	status, raw, err := c.post(ctx, c.mediaGenURL, generationBody(product))
	if err != nil {
		return nil, err
	}
	if !success(status) {
		body := string(raw)
		c.logger.Warn().Int("status", status).Str("body", excerpt(body, 200)).Msg("n8n: generation webhook failed")
		if looksLikeHTML(body) {
			return nil, &domain.UnreachableWorkflowError{Status: status}
		}
		return nil, &domain.UpstreamHTTPError{
			Status:  status,
			Body:    excerpt(body, 200),
			Message: fmt.Sprintf("HTTP %d: %s", status, truncateRunes(body, 100)),
		}
	}
	var handle domain.JobHandle
	if err := json.Unmarshal(raw, &handle); err != nil {
		return nil, &domain.MalformedResponseError{Message: "generation webhook returned invalid JSON", Err: err}
	}
	c.logger.Info().Str("job_id", handle.JobID).Str("status", string(handle.Status)).Msg("n8n: generation accepted")
	return &handle, nil
}

func (c *WebhookClient) post(ctx context.Context, endpoint string, body []byte) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, nil, &domain.ConfigurationError{Message: fmt.Sprintf("invalid webhook URL: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-store")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, &domain.TransportError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, &domain.TransportError{Err: fmt.Errorf("read response: %w", err)}
	}
	return resp.StatusCode, raw, nil
}

func success(status int) bool {
	return status >= 200 && status < 300
}

func looksLikeHTML(body string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(body)), "<!doctype")
}

// excerpt trims s and cuts it to at most n runes. Used for logs.
func excerpt(s string, n int) string {
	return truncateRunes(strings.TrimSpace(s), n)
}

// truncateRunes cuts s to at most n runes, leaving whitespace alone.
func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
