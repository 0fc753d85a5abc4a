package recipe_test

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rohmanhakim/opendata-harvester/internal/config"
	"github.com/rohmanhakim/opendata-harvester/internal/metadata"
	"github.com/rohmanhakim/opendata-harvester/internal/recipe"
	"github.com/rohmanhakim/opendata-harvester/pkg/timeutil"
	"github.com/stretchr/testify/require"
)

// mockMetadataSink is a test double for metadata.MetadataSink
type mockMetadataSink struct {
	metadata.NoopSink
	mu        sync.Mutex
	warnings  []string
	errors    []metadata.ErrorCause
	artifacts []string
	fetches   int
}

func (m *mockMetadataSink) RecordWarning(packageName string, message string, attrs []metadata.Attribute) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.warnings = append(m.warnings, message)
}

func (m *mockMetadataSink) RecordError(
	observedAt time.Time,
	packageName string,
	action string,
	cause metadata.ErrorCause,
	details string,
	attrs []metadata.Attribute,
) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, cause)
}

func (m *mockMetadataSink) RecordArtifact(kind metadata.ArtifactKind, path string, attrs []metadata.Attribute) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.artifacts = append(m.artifacts, filepath.Base(path))
}

func (m *mockMetadataSink) RecordFetch(
	fetchUrl string,
	httpStatus int,
	duration time.Duration,
	cacheKey string,
	fromCache bool,
	sizeByte int,
) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetches++
}

type fixture struct {
	env    recipe.Env
	sink   *mockMetadataSink
	clock  *timeutil.ManualClock
	input  string
	output string
	cache  string
}

var fixtureNow = time.Date(2024, 3, 12, 9, 30, 0, 0, time.UTC)

// newFixture builds an Env over temp directories. configure may adjust the
// config builder before it is built.
func newFixture(t *testing.T, configure func(*config.Config)) fixture {
	t.Helper()
	root := t.TempDir()
	fx := fixture{
		sink:   &mockMetadataSink{},
		clock:  timeutil.NewManualClock(fixtureNow),
		input:  filepath.Join(root, "data"),
		output: filepath.Join(root, "output"),
		cache:  filepath.Join(root, "cache"),
	}
	require.NoError(t, os.MkdirAll(fx.input, 0755))
	require.NoError(t, os.MkdirAll(fx.output, 0755))

	builder := config.WithDefault().
		WithCacheDir(fx.cache).
		WithInputDir(fx.input).
		WithOutputDir(fx.output).
		WithPolitenessDelay(0).
		WithTimeout(5 * time.Second)
	if configure != nil {
		configure(builder)
	}
	cfg, err := builder.Build()
	require.NoError(t, err)
	fx.env = recipe.NewEnv(cfg, fx.sink, fx.clock)
	return fx
}

func (fx fixture) writeInput(t *testing.T, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(fx.input, name), []byte(content), 0644))
}

func (fx fixture) writeOutput(t *testing.T, name, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(filepath.Join(fx.output, name)), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(fx.output, name), []byte(content), 0644))
}

func (fx fixture) readOutput(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(fx.output, name))
	require.NoError(t, err)
	return string(data)
}

func (fx fixture) outputNames(t *testing.T) []string {
	t.Helper()
	var names []string
	err := filepath.WalkDir(fx.output, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			rel, _ := filepath.Rel(fx.output, path)
			names = append(names, filepath.ToSlash(rel))
		}
		return nil
	})
	require.NoError(t, err)
	return names
}
