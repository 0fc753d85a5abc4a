package metadata

import (
	"strings"
	"time"

	"go.uber.org/zap"
)

/*
Metadata Collected
- Fetch events (live or cache hit, status code, size)
- Row repairs and unmatched rows
- Written artifacts with content hashes
- Per-recipe run statistics

Metadata is write-only.
No component may read metadata to influence control flow.
*/

/*
Recorder renders structured events to a zap logger.
It must not:
- perform I/O decisions
- affect control flow
Ordering guarantees:
  - Events are recorded synchronously in the order they are received.
    Runs are strictly sequential, so this is also the global order.
*/
type Recorder struct {
	logger *zap.Logger
}

func NewRecorder(logger *zap.Logger) Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return Recorder{
		logger: logger,
	}
}

func (r *Recorder) RecordError(
	observedAt time.Time,
	packageName string,
	action string,
	cause ErrorCause,
	errorString string,
	attrs []Attribute,
) {
	fields := []zap.Field{
		zap.Time("observed_at", observedAt),
		zap.String("package", packageName),
		zap.String("action", action),
		zap.Stringer("cause", cause),
		zap.String("error", errorString),
	}
	r.logger.Error("stage failed", append(fields, attrFields(attrs)...)...)
}

func (r *Recorder) RecordWarning(
	packageName string,
	message string,
	attrs []Attribute,
) {
	fields := []zap.Field{zap.String("package", packageName)}
	r.logger.Warn(message, append(fields, attrFields(attrs)...)...)
}

func (r *Recorder) RecordFetch(
	fetchUrl string,
	httpStatus int,
	duration time.Duration,
	cacheKey string,
	fromCache bool,
	sizeByte int,
) {
	event := FetchEvent{
		fetchUrl:   fetchUrl,
		httpStatus: httpStatus,
		duration:   duration,
		cacheKey:   cacheKey,
		fromCache:  fromCache,
		sizeByte:   sizeByte,
	}
	msg := "http get"
	if event.fromCache {
		msg = "cache hit"
	}
	r.logger.Debug(msg,
		zap.String("url", event.fetchUrl),
		zap.Int("http_status", event.httpStatus),
		zap.Duration("duration", event.duration),
		zap.String("cache_key", event.cacheKey),
		zap.Int("size_byte", event.sizeByte),
	)
}

func (r *Recorder) RecordRowRepair(line int, before []string, after []string) {
	r.logger.Info("fixed broken row",
		zap.Int("line", line),
		zap.Strings("before", before),
		zap.Strings("after", after),
	)
}

func (r *Recorder) RecordUnmatchedRow(line int, fields []string) {
	r.logger.Warn("row matches no rule",
		zap.Int("line", line),
		zap.String("row", strings.Join(fields, ";")),
	)
}

func (r *Recorder) RecordArtifact(kind ArtifactKind, path string, attrs []Attribute) {
	fields := []zap.Field{
		zap.String("kind", string(kind)),
		zap.String("path", path),
	}
	r.logger.Info("artifact written", append(fields, attrFields(attrs)...)...)
}

/*
RecordFinalRunStats records a terminal, derived summary of one recipe run.

Contract:
  - MUST be called exactly once per recipe execution, after it returned.
  - Recorded stats MUST NOT influence control flow.
*/
func (r *Recorder) RecordFinalRunStats(
	recipe string,
	totalRows int,
	buckets int,
	unknowns int,
	artifacts int,
	duration time.Duration,
) {
	stats := runStats{
		recipe:     recipe,
		totalRows:  totalRows,
		buckets:    buckets,
		unknowns:   unknowns,
		artifacts:  artifacts,
		durationMs: duration.Milliseconds(),
	}
	r.logger.Info("run finished",
		zap.String("recipe", stats.recipe),
		zap.Int("rows", stats.totalRows),
		zap.Int("buckets", stats.buckets),
		zap.Int("unknowns", stats.unknowns),
		zap.Int("artifacts", stats.artifacts),
		zap.Int64("duration_ms", stats.durationMs),
	)
}

func attrFields(attrs []Attribute) []zap.Field {
	fields := make([]zap.Field, 0, len(attrs))
	for _, a := range attrs {
		fields = append(fields, zap.String(string(a.Key), a.Value))
	}
	return fields
}

type MetadataSink interface {
	RecordError(
		observedAt time.Time,
		packageName string,
		action string,
		cause ErrorCause,
		details string,
		attrs []Attribute,
	)
	RecordWarning(
		packageName string,
		message string,
		attrs []Attribute,
	)
	RecordFetch(
		fetchUrl string,
		httpStatus int,
		duration time.Duration,
		cacheKey string,
		fromCache bool,
		sizeByte int,
	)
	RecordRowRepair(line int, before []string, after []string)
	RecordUnmatchedRow(line int, fields []string)
	RecordArtifact(kind ArtifactKind, path string, attrs []Attribute)
}

type RunFinalizer interface {
	RecordFinalRunStats(
		recipe string,
		totalRows int,
		buckets int,
		unknowns int,
		artifacts int,
		duration time.Duration,
	)
}

// NoopSink implements MetadataSink and RunFinalizer but does nothing.
// Tests inject it where metadata is irrelevant.
type NoopSink struct{}

func (n *NoopSink) RecordError(
	observedAt time.Time,
	packageName string,
	action string,
	cause ErrorCause,
	errorString string,
	attrs []Attribute,
) {
}

func (n *NoopSink) RecordWarning(packageName string, message string, attrs []Attribute) {}

func (n *NoopSink) RecordFetch(
	fetchUrl string,
	httpStatus int,
	duration time.Duration,
	cacheKey string,
	fromCache bool,
	sizeByte int,
) {
}

func (n *NoopSink) RecordRowRepair(line int, before []string, after []string) {}

func (n *NoopSink) RecordUnmatchedRow(line int, fields []string) {}

func (n *NoopSink) RecordArtifact(kind ArtifactKind, path string, attrs []Attribute) {}

func (n *NoopSink) RecordFinalRunStats(
	recipe string,
	totalRows int,
	buckets int,
	unknowns int,
	artifacts int,
	duration time.Duration,
) {
}
