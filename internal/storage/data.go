package storage

import "github.com/rohmanhakim/opendata-harvester/internal/metadata"

// Artifact is one output file, fully rendered in memory before it is written.
type Artifact struct {
	name    string // path relative to the output directory
	kind    metadata.ArtifactKind
	content []byte
}

func NewArtifact(name string, kind metadata.ArtifactKind, content []byte) Artifact {
	return Artifact{
		name:    name,
		kind:    kind,
		content: content,
	}
}

func (a Artifact) Name() string {
	return a.name
}

func (a Artifact) Kind() metadata.ArtifactKind {
	return a.kind
}

func (a Artifact) Content() []byte {
	return a.content
}

// Persistence

type WriteResult struct {
	path        string
	contentHash string
	written     bool
}

func NewWriteResult(
	path string,
	contentHash string,
	written bool,
) WriteResult {
	return WriteResult{
		path:        path,
		contentHash: contentHash,
		written:     written,
	}
}

func (w *WriteResult) Path() string {
	return w.path
}

func (w *WriteResult) ContentHash() string {
	return w.contentHash
}

// Written is false for dry runs.
func (w *WriteResult) Written() bool {
	return w.written
}
