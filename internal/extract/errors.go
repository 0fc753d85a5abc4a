package extract

import (
	"fmt"

	"github.com/rohmanhakim/opendata-harvester/internal/metadata"
	"github.com/rohmanhakim/opendata-harvester/pkg/failure"
)

type ExtractionErrorCause string

const (
	ErrCauseParseFailed   ExtractionErrorCause = "html parse failed"
	ErrCauseNoMatch       ExtractionErrorCause = "expected markup not found"
	ErrCauseInvalidNumber ExtractionErrorCause = "invalid number"
	ErrCauseInvalidDate   ExtractionErrorCause = "invalid date"
)

type ExtractionError struct {
	Message   string
	Retryable bool
	Cause     ExtractionErrorCause
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction error: %s: %s", e.Cause, e.Message)
}

func (e *ExtractionError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

// mapExtractionErrorToMetadataCause maps extractor-local error semantics
// to the canonical metadata.ErrorCause table.
//
// This mapping is observational only and MUST NOT be used
// to derive control-flow decisions.
func mapExtractionErrorToMetadataCause(err *ExtractionError) metadata.ErrorCause {
	switch err.Cause {
	case ErrCauseNoMatch, ErrCauseInvalidNumber, ErrCauseInvalidDate:
		return metadata.CauseSchemaDrift
	case ErrCauseParseFailed:
		return metadata.CauseEncodingFailure
	default:
		return metadata.CauseUnknown
	}
}
