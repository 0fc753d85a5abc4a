package reshape

import (
	"fmt"

	"github.com/rohmanhakim/opendata-harvester/internal/metadata"
	"github.com/rohmanhakim/opendata-harvester/pkg/failure"
)

type ReshapeErrorCause string

const (
	ErrCauseHeaderMismatch   ReshapeErrorCause = "header mismatch"
	ErrCauseMissingHeader    ReshapeErrorCause = "missing header"
	ErrCauseUnrepairableRow  ReshapeErrorCause = "unrepairable row"
	ErrCauseUnmatchedRows    ReshapeErrorCause = "unmatched rows"
	ErrCauseDecodeFailed     ReshapeErrorCause = "decode failure"
	ErrCauseReadFailed       ReshapeErrorCause = "read failure"
	ErrCauseInvalidRule      ReshapeErrorCause = "invalid rule"
	ErrCauseUnknownField     ReshapeErrorCause = "unknown field"
	ErrCauseRenderFailed     ReshapeErrorCause = "render failure"
	ErrCauseReaderNotStarted ReshapeErrorCause = "header not read"
)

// ReshapeError reports structural problems with delimited input.
// Everything except a decode failure is fatal: the publisher changed the
// format and a human has to look at it.
type ReshapeError struct {
	Message   string
	Retryable bool
	Cause     ReshapeErrorCause
	Line      int
}

func (e *ReshapeError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("reshape error: %s at line %d: %s", e.Cause, e.Line, e.Message)
	}
	return fmt.Sprintf("reshape error: %s: %s", e.Cause, e.Message)
}

func (e *ReshapeError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

func newDecodeError(msg string) *ReshapeError {
	return &ReshapeError{
		Message:   msg,
		Retryable: true,
		Cause:     ErrCauseDecodeFailed,
	}
}

// mapReshapeErrorToMetadataCause maps reshape-local error semantics
// to the canonical metadata.ErrorCause table.
//
// This mapping is observational only and MUST NOT be used
// to derive control-flow decisions.
func mapReshapeErrorToMetadataCause(err *ReshapeError) metadata.ErrorCause {
	switch err.Cause {
	case ErrCauseHeaderMismatch, ErrCauseMissingHeader, ErrCauseUnrepairableRow, ErrCauseUnmatchedRows:
		return metadata.CauseSchemaDrift
	case ErrCauseDecodeFailed:
		return metadata.CauseEncodingFailure
	case ErrCauseInvalidRule, ErrCauseUnknownField, ErrCauseReaderNotStarted:
		return metadata.CauseInvariantViolation
	default:
		return metadata.CauseUnknown
	}
}
