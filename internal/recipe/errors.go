package recipe

import (
	"fmt"

	"github.com/rohmanhakim/opendata-harvester/internal/metadata"
	"github.com/rohmanhakim/opendata-harvester/pkg/failure"
)

type RecipeErrorCause string

const (
	ErrCauseUnknownRecipe  RecipeErrorCause = "unknown recipe"
	ErrCauseMissingInput   RecipeErrorCause = "missing input"
	ErrCauseUnexpectedData RecipeErrorCause = "unexpected data"
	ErrCauseInvalidNumber  RecipeErrorCause = "invalid number"
	ErrCauseRenderFailed   RecipeErrorCause = "render failed"
	ErrCauseMissingSecret  RecipeErrorCause = "missing credential"
)

type RecipeError struct {
	Message   string
	Retryable bool
	Cause     RecipeErrorCause
	Recipe    string
}

func (e *RecipeError) Error() string {
	if e.Recipe != "" {
		return fmt.Sprintf("recipe error: %s: %s: %s", e.Recipe, e.Cause, e.Message)
	}
	return fmt.Sprintf("recipe error: %s: %s", e.Cause, e.Message)
}

func (e *RecipeError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

func mapRecipeErrorToMetadataCause(err *RecipeError) metadata.ErrorCause {
	switch err.Cause {
	case ErrCauseUnexpectedData, ErrCauseInvalidNumber:
		return metadata.CauseSchemaDrift
	case ErrCauseMissingInput:
		return metadata.CauseStorageFailure
	case ErrCauseUnknownRecipe, ErrCauseRenderFailed, ErrCauseMissingSecret:
		return metadata.CauseInvariantViolation
	default:
		return metadata.CauseUnknown
	}
}
