package runner_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rohmanhakim/opendata-harvester/internal/metadata"
	"github.com/rohmanhakim/opendata-harvester/internal/recipe"
	"github.com/rohmanhakim/opendata-harvester/pkg/failure"
	"github.com/stretchr/testify/mock"
)

// recipeMock is a testify mock for recipe.Recipe
type recipeMock struct {
	mock.Mock
	name string
}

func newRecipeMock(t *testing.T, name string) *recipeMock {
	t.Helper()
	m := &recipeMock{name: name}
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *recipeMock) Name() string        { return m.name }
func (m *recipeMock) Version() string     { return "1.0" }
func (m *recipeMock) Description() string { return "mock " + m.name }

func (m *recipeMock) Run(ctx context.Context, env recipe.Env) (recipe.Outcome, failure.ClassifiedError) {
	args := m.Called(ctx, env)
	outcome := args.Get(0).(recipe.Outcome)
	if err := args.Get(1); err != nil {
		return outcome, err.(failure.ClassifiedError)
	}
	return outcome, nil
}

// OnRun registers one Run call returning outcome and err.
func (m *recipeMock) OnRun(outcome recipe.Outcome, err failure.ClassifiedError) *mock.Call {
	if err == nil {
		return m.On("Run", mock.Anything, mock.Anything).Return(outcome, nil)
	}
	return m.On("Run", mock.Anything, mock.Anything).Return(outcome, err)
}

type finalStats struct {
	recipe    string
	rows      int
	buckets   int
	unknowns  int
	artifacts int
}

// mockFinalizer captures final run statistics
type mockFinalizer struct {
	mu    sync.Mutex
	stats []finalStats
}

func (m *mockFinalizer) RecordFinalRunStats(
	recipe string,
	totalRows int,
	buckets int,
	unknowns int,
	artifacts int,
	duration time.Duration,
) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats = append(m.stats, finalStats{recipe, totalRows, buckets, unknowns, artifacts})
}

// errorRecordingSink is a test double that counts errors
type errorRecordingSink struct {
	metadata.NoopSink
	errorCount int
	causes     []metadata.ErrorCause
}

func (e *errorRecordingSink) RecordError(
	observedAt time.Time,
	packageName string,
	action string,
	cause metadata.ErrorCause,
	details string,
	attrs []metadata.Attribute,
) {
	e.errorCount++
	e.causes = append(e.causes, cause)
}

// stubError is a classified error with a chosen severity.
type stubError struct {
	message  string
	severity failure.Severity
}

func (s *stubError) Error() string              { return s.message }
func (s *stubError) Severity() failure.Severity { return s.severity }
