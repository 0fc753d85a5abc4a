package recipe

import "github.com/rohmanhakim/opendata-harvester/internal/storage"

// Outcome is what one recipe run produced.
type Outcome struct {
	rows      int
	buckets   int
	unknowns  int
	artifacts []storage.WriteResult
}

func NewOutcomeForTest(rows, buckets, unknowns int, artifacts []storage.WriteResult) Outcome {
	return Outcome{rows: rows, buckets: buckets, unknowns: unknowns, artifacts: artifacts}
}

// Rows counts input records the recipe consumed.
func (o Outcome) Rows() int {
	return o.rows
}

func (o Outcome) Buckets() int {
	return o.buckets
}

func (o Outcome) Unknowns() int {
	return o.unknowns
}

func (o Outcome) Artifacts() []storage.WriteResult {
	return o.artifacts
}

func (o Outcome) ArtifactPaths() []string {
	paths := make([]string, len(o.artifacts))
	for i := range o.artifacts {
		paths[i] = o.artifacts[i].Path()
	}
	return paths
}
