package runner_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rohmanhakim/opendata-harvester/internal/metadata"
	"github.com/rohmanhakim/opendata-harvester/internal/recipe"
	"github.com/rohmanhakim/opendata-harvester/internal/runner"
	"github.com/rohmanhakim/opendata-harvester/internal/storage"
	"github.com/rohmanhakim/opendata-harvester/pkg/failure"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRunnerForTest(sink metadata.MetadataSink, finalizer metadata.RunFinalizer, recipes ...recipe.Recipe) runner.Runner {
	return runner.NewRunner(recipe.NewRegistry(recipes...), recipe.Env{MetadataSink: sink}, finalizer)
}

func TestRunner_RunsAllRecipesByName(t *testing.T) {
	// GIVEN three recipes that succeed
	b := newRecipeMock(t, "b")
	a := newRecipeMock(t, "a")
	c := newRecipeMock(t, "c")
	artifacts := []storage.WriteResult{storage.NewWriteResult("out/a.csv", "h1", true)}
	a.OnRun(recipe.NewOutcomeForTest(10, 2, 1, artifacts), nil).Once()
	b.OnRun(recipe.NewOutcomeForTest(3, 1, 0, nil), nil).Once()
	c.OnRun(recipe.NewOutcomeForTest(0, 0, 0, nil), nil).Once()
	finalizer := &mockFinalizer{}

	// WHEN no names are given
	r := newRunnerForTest(&metadata.NoopSink{}, finalizer, b, a, c)
	reports, err := r.Run(context.Background(), nil)

	// THEN every recipe runs in name order
	require.NoError(t, err)
	require.Len(t, reports, 3)
	assert.Equal(t, "a", reports[0].Recipe)
	assert.Equal(t, "1.0", reports[0].Version)
	assert.Equal(t, 10, reports[0].Outcome.Rows())
	assert.False(t, reports[0].Failed())
	assert.Equal(t, "b", reports[1].Recipe)
	assert.Equal(t, "c", reports[2].Recipe)

	assert.Equal(t, []finalStats{
		{"a", 10, 2, 1, 1},
		{"b", 3, 1, 0, 0},
		{"c", 0, 0, 0, 0},
	}, finalizer.stats)
}

func TestRunner_FatalErrorStopsRun(t *testing.T) {
	a := newRecipeMock(t, "a")
	b := newRecipeMock(t, "b")
	c := newRecipeMock(t, "c")
	fatal := &stubError{message: "header mismatch", severity: failure.SeverityFatal}
	a.OnRun(recipe.NewOutcomeForTest(1, 1, 0, nil), nil).Once()
	b.OnRun(recipe.Outcome{}, fatal).Once()
	finalizer := &mockFinalizer{}

	r := newRunnerForTest(&metadata.NoopSink{}, finalizer, a, b, c)
	reports, err := r.Run(context.Background(), []string{"a", "b", "c"})

	require.Error(t, err)
	assert.Same(t, fatal, err)
	require.Len(t, reports, 2)
	assert.True(t, reports[1].Failed())
	c.AssertNotCalled(t, "Run")
	assert.Len(t, finalizer.stats, 2, "the failed recipe still records stats")
}

func TestRunner_RecoverableErrorContinues(t *testing.T) {
	a := newRecipeMock(t, "a")
	b := newRecipeMock(t, "b")
	recoverable := &stubError{message: "decode failure", severity: failure.SeverityRecoverable}
	a.OnRun(recipe.Outcome{}, recoverable).Once()
	b.OnRun(recipe.NewOutcomeForTest(4, 1, 0, nil), nil).Once()
	finalizer := &mockFinalizer{}

	r := newRunnerForTest(&metadata.NoopSink{}, finalizer, a, b)
	reports, err := r.Run(context.Background(), []string{"a", "b"})

	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, recoverable, reports[0].Err)
	assert.False(t, reports[1].Failed())
	assert.Len(t, finalizer.stats, 2)
}

func TestRunner_UnknownRecipeRunsNothing(t *testing.T) {
	a := newRecipeMock(t, "a")
	sink := &errorRecordingSink{}
	finalizer := &mockFinalizer{}

	r := newRunnerForTest(sink, finalizer, a)
	reports, err := r.Run(context.Background(), []string{"a", "nope"})

	require.Error(t, err)
	var recipeErr *recipe.RecipeError
	require.True(t, errors.As(err, &recipeErr))
	assert.Equal(t, recipe.ErrCauseUnknownRecipe, recipeErr.Cause)
	assert.Empty(t, reports)
	a.AssertNotCalled(t, "Run")
	assert.Empty(t, finalizer.stats)
	assert.Equal(t, []metadata.ErrorCause{metadata.CauseInvariantViolation}, sink.causes)
}

func TestRunner_RepeatedNamesRunOnce(t *testing.T) {
	a := newRecipeMock(t, "a")
	b := newRecipeMock(t, "b")
	b.OnRun(recipe.Outcome{}, nil).Once()
	a.OnRun(recipe.Outcome{}, nil).Once()

	r := newRunnerForTest(&metadata.NoopSink{}, &mockFinalizer{}, a, b)
	reports, err := r.Run(context.Background(), []string{"b", "a", "b"})

	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, "b", reports[0].Recipe)
	assert.Equal(t, "a", reports[1].Recipe)
}

func TestRunner_CancelledContext(t *testing.T) {
	a := newRecipeMock(t, "a")
	sink := &errorRecordingSink{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := newRunnerForTest(sink, &mockFinalizer{}, a)
	reports, err := r.Run(ctx, nil)

	require.Error(t, err)
	var runnerErr *runner.RunnerError
	require.True(t, errors.As(err, &runnerErr))
	assert.Equal(t, runner.ErrCauseInterrupted, runnerErr.Cause)
	assert.True(t, failure.IsFatal(err))
	assert.Empty(t, reports)
	a.AssertNotCalled(t, "Run")
	assert.Equal(t, 1, sink.errorCount)
}
