package fetcher

import (
	"fmt"

	"github.com/rohmanhakim/opendata-harvester/internal/metadata"
	"github.com/rohmanhakim/opendata-harvester/pkg/failure"
)

type FetchErrorCause string

const (
	ErrCauseTimeout        FetchErrorCause = "timeout"
	ErrCauseNetworkFailure FetchErrorCause = "network issues"
	ErrCauseInvalidURL     FetchErrorCause = "invalid url"
	ErrCauseErrorStatus    FetchErrorCause = "error status"
	ErrCauseCacheFailure   FetchErrorCause = "cache failure"
	ErrCauseDecodeFailed   FetchErrorCause = "response is not valid json"
)

// FetchError never carries Retryable=true: there is no retry in this system,
// a transport failure aborts the run.
type FetchError struct {
	Message   string
	Retryable bool
	Cause     FetchErrorCause
	URL       string
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetcher error: %s: %s", e.Cause, e.Message)
}

func (e *FetchError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

// mapFetchErrorToMetadataCause maps fetcher-local error semantics
// to the canonical metadata.ErrorCause table.
//
// This mapping is observational only and MUST NOT be used
// to derive control-flow decisions.
func mapFetchErrorToMetadataCause(err *FetchError) metadata.ErrorCause {
	switch err.Cause {
	case ErrCauseTimeout, ErrCauseNetworkFailure, ErrCauseErrorStatus:
		return metadata.CauseNetworkFailure
	case ErrCauseCacheFailure:
		return metadata.CauseStorageFailure
	case ErrCauseDecodeFailed:
		return metadata.CauseSchemaDrift
	case ErrCauseInvalidURL:
		return metadata.CauseInvariantViolation
	default:
		return metadata.CauseUnknown
	}
}
