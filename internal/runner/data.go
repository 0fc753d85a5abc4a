package runner

import (
	"time"

	"github.com/rohmanhakim/opendata-harvester/internal/recipe"
	"github.com/rohmanhakim/opendata-harvester/pkg/failure"
)

// RunReport describes one finished recipe run. Err is set when the recipe
// failed; a recoverable Err did not stop the remaining recipes.
type RunReport struct {
	Recipe   string
	Version  string
	Outcome  recipe.Outcome
	Duration time.Duration
	Err      failure.ClassifiedError
}

func (r RunReport) Failed() bool {
	return r.Err != nil
}
