package cache

import (
	"fmt"

	"github.com/rohmanhakim/opendata-harvester/internal/metadata"
	"github.com/rohmanhakim/opendata-harvester/pkg/failure"
)

type CacheErrorCause string

const (
	ErrCauseReadFailed  CacheErrorCause = "cache read failed"
	ErrCauseWriteFailed CacheErrorCause = "cache write failed"
	ErrCauseNotFound    CacheErrorCause = "cache entry missing"
)

type CacheError struct {
	Message   string
	Retryable bool
	Cause     CacheErrorCause
	Key       string
}

func (e *CacheError) Error() string {
	return fmt.Sprintf("cache error: %s (%s): %s", e.Cause, e.Key, e.Message)
}

func (e *CacheError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

// MapCacheErrorToMetadataCause is observational only.
func MapCacheErrorToMetadataCause(err *CacheError) metadata.ErrorCause {
	switch err.Cause {
	case ErrCauseReadFailed, ErrCauseWriteFailed:
		return metadata.CauseStorageFailure
	default:
		return metadata.CauseUnknown
	}
}
