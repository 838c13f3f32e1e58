package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mediarelay/internal/domain"
	"mediarelay/internal/infra"
	"mediarelay/internal/providers/n8n"
)

// Workflow nodes read directly by the scanner.
const (
	nodeJobMetadata    = "Add Job Metadata"
	nodeGenerateJobID  = "Generate Job ID"
	nodeFormatResponse = "Format Response"
)

// ExecutionSource is the slice of the n8n API the scanner needs.
type ExecutionSource interface {
	Configured() bool
	ListExecutions(ctx context.Context, workflowID string, limit int) ([]n8n.Execution, error)
	GetExecution(ctx context.Context, id n8n.ExecutionID) (*n8n.ExecutionDetail, error)
}

// ExecutionProvider infers job status by scanning the engine's recent
// executions for the one that generated jobID.
type ExecutionProvider struct {
	source     ExecutionSource
	workflowID string
	limit      int
	now        func() time.Time
	logger     *infra.Logger
}

// ExecutionOptions configures ExecutionProvider.
type ExecutionOptions struct {
	WorkflowID string
	Limit      int
	Now        func() time.Time
	Logger     *infra.Logger
}

func NewExecutionProvider(source ExecutionSource, opts ExecutionOptions) *ExecutionProvider {
	workflowID := opts.WorkflowID
	if workflowID == "" {
		workflowID = infra.DefaultWorkflowID
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = infra.DiscardLogger()
	}
	return &ExecutionProvider{source: source, workflowID: workflowID, limit: limit, now: now, logger: logger}
}

// Status scans executions newest first. A detail call that fails skips that
// execution instead of aborting the scan.
func (p *ExecutionProvider) Status(ctx context.Context, jobID string) (domain.JobStatus, error) {
	if p.source == nil || !p.source.Configured() {
		return domain.JobStatus{}, &domain.ConfigurationError{Message: "N8N API not configured"}
	}
	executions, err := p.source.ListExecutions(ctx, p.workflowID, p.limit)
	if err != nil {
		return domain.JobStatus{}, err
	}

	for _, exec := range executions {
		detail, err := p.source.GetExecution(ctx, exec.ID)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return domain.JobStatus{}, err
			}
			p.logger.Debug().Err(err).Str("execution_id", string(exec.ID)).Msg("jobs: skipping execution")
			continue
		}
		run := detail.Data.ResultData.RunData
		if run == nil || executionJobID(run) != jobID {
			continue
		}

		execStatus := exec.Status
		if execStatus == "" {
			execStatus = detail.Status
		}
		status, matched := p.statusFor(execStatus, detail)
		if !matched {
			continue
		}
		p.logger.Debug().
			Str("job_id", jobID).
			Str("execution_id", string(exec.ID)).
			Str("execution_status", execStatus).
			Str("status", string(status.Status)).
			Msg("jobs: matched execution")
		return status, nil
	}

	return domain.JobStatus{
		Success: false,
		Status:  domain.JobStateProcessing,
		Message: "Job queued or initializing...",
	}.WithProgress(5), nil
}

func (p *ExecutionProvider) statusFor(executionStatus string, detail *n8n.ExecutionDetail) (domain.JobStatus, bool) {
	run := detail.Data.ResultData.RunData
	switch executionStatus {
	case "success":
		if meta, ok := run.FirstItem(nodeJobMetadata); ok {
			succeeded, isBool := meta["success"].(bool)
			if msg := errorText(meta["error"]); msg != "" || (isBool && !succeeded) {
				return failedStatus(msg, "Media generation failed"), true
			}
		}
		media, ok := run.FirstItem(nodeFormatResponse)
		if !ok {
			return domain.JobStatus{
				Success: false,
				Status:  domain.JobStateProcessing,
				Message: "Finalizing...",
			}.WithProgress(95), true
		}
		result := domain.MediaResult{
			ImageURL:    stringField(media, "imageUrl"),
			VideoURL:    stringField(media, "videoUrl"),
			ImagePrompt: stringField(media, "imagePrompt"),
			VideoPrompt: stringField(media, "videoPrompt"),
			ProductName: stringField(media, "productName"),
			GeneratedAt: stringField(media, "generatedAt"),
		}
		if result.GeneratedAt == "" {
			result.GeneratedAt = p.now().UTC().Format(domain.ReceivedAtLayout)
		}
		return domain.JobStatus{Success: true, Status: domain.JobStateCompleted, Data: result}, true
	case "running", "waiting", "new":
		progress, label := InferStage(run)
		return domain.JobStatus{
			Success: false,
			Status:  domain.JobStateProcessing,
			Message: label,
		}.WithProgress(progress), true
	case "error", "crashed":
		return failedStatus(detail.ErrorMessage(), "Unknown error"), true
	case "canceled":
		return failedStatus("", "Execution canceled"), true
	default:
		return domain.JobStatus{}, false
	}
}

func executionJobID(run n8n.RunData) string {
	item, ok := run.FirstItem(nodeJobMetadata)
	if !ok {
		item, ok = run.FirstItem(nodeGenerateJobID)
	}
	if !ok {
		return ""
	}
	return stringField(item, "jobId")
}

func failedStatus(msg, fallback string) domain.JobStatus {
	if msg == "" {
		msg = fallback
	}
	return domain.JobStatus{Success: false, Status: domain.JobStateFailed, Error: msg}
}

// errorText flattens the shapes n8n uses for an error field.
func errorText(v any) string {
	switch e := v.(type) {
	case nil:
		return ""
	case string:
		return e
	case map[string]any:
		if msg := stringField(e, "message"); msg != "" {
			return msg
		}
		return "Media generation failed"
	case bool:
		if e {
			return "Media generation failed"
		}
		return ""
	default:
		return fmt.Sprint(e)
	}
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

var _ domain.JobStatusProvider = (*ExecutionProvider)(nil)
