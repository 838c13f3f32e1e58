package jobs

import (
	"fmt"

	"mediarelay/internal/domain"
	"mediarelay/internal/infra"
)

// SelectProvider picks the status backend named by STATUS_PROVIDER.
func SelectProvider(kind string, callback, executions domain.JobStatusProvider) (domain.JobStatusProvider, error) {
	switch kind {
	case "", infra.StatusProviderCallback:
		return callback, nil
	case infra.StatusProviderExecutions:
		return executions, nil
	default:
		return nil, fmt.Errorf("jobs: unknown status provider %q", kind)
	}
}
