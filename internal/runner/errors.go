package runner

import (
	"fmt"

	"github.com/rohmanhakim/opendata-harvester/internal/metadata"
	"github.com/rohmanhakim/opendata-harvester/pkg/failure"
)

type RunnerErrorCause string

const (
	ErrCauseInterrupted RunnerErrorCause = "interrupted"
)

type RunnerError struct {
	Message   string
	Retryable bool
	Cause     RunnerErrorCause
}

func (e *RunnerError) Error() string {
	return fmt.Sprintf("runner error: %s: %s", e.Cause, e.Message)
}

func (e *RunnerError) Severity() failure.Severity {
	return failure.SeverityFatal
}

func mapRunnerErrorToMetadataCause(err *RunnerError) metadata.ErrorCause {
	switch err.Cause {
	case ErrCauseInterrupted:
		return metadata.CauseInvariantViolation
	default:
		return metadata.CauseUnknown
	}
}
