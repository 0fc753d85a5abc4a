package reshape_test

import (
	"time"

	"github.com/rohmanhakim/opendata-harvester/internal/metadata"
)

type repairEvent struct {
	line   int
	before []string
	after  []string
}

// recordingSink captures the reshape events that matter to these tests.
type recordingSink struct {
	metadata.NoopSink
	repairs   []repairEvent
	unmatched []int
	errors    []metadata.ErrorCause
}

func (s *recordingSink) RecordRowRepair(line int, before []string, after []string) {
	s.repairs = append(s.repairs, repairEvent{line: line, before: before, after: after})
}

func (s *recordingSink) RecordUnmatchedRow(line int, fields []string) {
	s.unmatched = append(s.unmatched, line)
}

func (s *recordingSink) RecordError(
	observedAt time.Time,
	packageName string,
	action string,
	cause metadata.ErrorCause,
	details string,
	attrs []metadata.Attribute,
) {
	s.errors = append(s.errors, cause)
}

const klimaHeader = `"RAUM";"DATENQUELLE";"THEMENBEREICH";"MERKMAL";"ZEIT";"WERT";"WERTEEINHEIT"`
