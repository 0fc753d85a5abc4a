package storage_test

import (
	"time"

	"github.com/rohmanhakim/opendata-harvester/internal/metadata"
)

type recordedArtifact struct {
	kind  metadata.ArtifactKind
	path  string
	attrs map[metadata.AttributeKey]string
}

type recordedError struct {
	packageName string
	action      string
	cause       metadata.ErrorCause
}

// recordingSink keeps the artifact and error events the sink reports.
type recordingSink struct {
	metadata.NoopSink
	artifacts []recordedArtifact
	errors    []recordedError
}

func (r *recordingSink) RecordError(
	observedAt time.Time,
	packageName string,
	action string,
	cause metadata.ErrorCause,
	details string,
	attrs []metadata.Attribute,
) {
	r.errors = append(r.errors, recordedError{packageName: packageName, action: action, cause: cause})
}

func (r *recordingSink) RecordArtifact(kind metadata.ArtifactKind, path string, attrs []metadata.Attribute) {
	byKey := make(map[metadata.AttributeKey]string, len(attrs))
	for _, attr := range attrs {
		byKey[attr.Key] = attr.Value
	}
	r.artifacts = append(r.artifacts, recordedArtifact{kind: kind, path: path, attrs: byKey})
}
