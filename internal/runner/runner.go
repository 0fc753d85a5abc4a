package runner

import (
	"context"
	"errors"
	"time"

	"github.com/rohmanhakim/opendata-harvester/internal/metadata"
	"github.com/rohmanhakim/opendata-harvester/internal/recipe"
	"github.com/rohmanhakim/opendata-harvester/pkg/failure"
)

/*
Runner is the sole control-plane authority of a harvest.

Guarantees:
  - Recipes run strictly one after another, in the order they were named.
  - Every requested name is resolved before the first recipe starts; an
    unknown name runs nothing.
  - A fatal error stops the run. Recipes after it are not started.
  - A recoverable error is reported and the next recipe runs.
  - Every started recipe gets exactly one RecordFinalRunStats call, failed
    or not.

Recipes detect and classify failures but never decide whether the run
continues. Metadata emission is observational only.
*/

type Runner struct {
	metadataSink metadata.MetadataSink
	runFinalizer metadata.RunFinalizer
	registry     *recipe.Registry
	env          recipe.Env
}

func NewRunner(
	registry *recipe.Registry,
	env recipe.Env,
	runFinalizer metadata.RunFinalizer,
) Runner {
	return Runner{
		metadataSink: env.MetadataSink,
		runFinalizer: runFinalizer,
		registry:     registry,
		env:          env,
	}
}

// Run executes the named recipes, or every registered recipe when names is
// empty. Reports cover every recipe that was started, including the one
// that failed fatally.
func (r *Runner) Run(ctx context.Context, names []string) ([]RunReport, error) {
	recipes, err := r.resolve(names)
	if err != nil {
		return nil, err
	}

	reports := make([]RunReport, 0, len(recipes))
	for _, rec := range recipes {
		if ctxErr := ctx.Err(); ctxErr != nil {
			interrupted := &RunnerError{
				Message: ctxErr.Error(),
				Cause:   ErrCauseInterrupted,
			}
			r.recordError("Runner.Run", interrupted)
			return reports, interrupted
		}

		report := r.runOne(ctx, rec)
		reports = append(reports, report)
		if report.Err != nil && failure.IsFatal(report.Err) {
			return reports, report.Err
		}
	}
	return reports, nil
}

func (r *Runner) runOne(ctx context.Context, rec recipe.Recipe) RunReport {
	startTime := time.Now()
	outcome, err := rec.Run(ctx, r.env)
	duration := time.Since(startTime)

	r.runFinalizer.RecordFinalRunStats(
		rec.Name(),
		outcome.Rows(),
		outcome.Buckets(),
		outcome.Unknowns(),
		len(outcome.Artifacts()),
		duration,
	)

	return RunReport{
		Recipe:   rec.Name(),
		Version:  rec.Version(),
		Outcome:  outcome,
		Duration: duration,
		Err:      err,
	}
}

// resolve looks up every name up front. Repeated names run once.
func (r *Runner) resolve(names []string) ([]recipe.Recipe, failure.ClassifiedError) {
	if len(names) == 0 {
		return r.registry.All(), nil
	}
	seen := make(map[string]bool, len(names))
	recipes := make([]recipe.Recipe, 0, len(names))
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true
		rec, err := r.registry.Get(name)
		if err != nil {
			r.recordError("Runner.resolve", err)
			return nil, err
		}
		recipes = append(recipes, rec)
	}
	return recipes, nil
}

func (r *Runner) recordError(action string, err failure.ClassifiedError) {
	cause := metadata.CauseUnknown
	var runnerErr *RunnerError
	if errors.As(err, &runnerErr) {
		cause = mapRunnerErrorToMetadataCause(runnerErr)
	}
	var recipeErr *recipe.RecipeError
	if errors.As(err, &recipeErr) && recipeErr.Cause == recipe.ErrCauseUnknownRecipe {
		cause = metadata.CauseInvariantViolation
	}
	r.metadataSink.RecordError(
		time.Now(),
		"runner",
		action,
		cause,
		err.Error(),
		[]metadata.Attribute{},
	)
}
