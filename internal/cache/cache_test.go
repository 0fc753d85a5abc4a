package cache_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rohmanhakim/opendata-harvester/internal/cache"
	"github.com/rohmanhakim/opendata-harvester/pkg/failure"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	tests := []struct {
		name        string
		raw         string
		stripPrefix string
		want        string
	}{
		{
			name:        "oparl page relative to base",
			raw:         "https://oparl.stadt-muenster.de/bodies/0001/meetings?page=3",
			stripPrefix: "https://oparl.stadt-muenster.de/",
			want:        "bodies_0001_meetings_page_3",
		},
		{
			name: "no prefix",
			raw:  "https://example.org/a.csv",
			want: "https_example_org_a_csv",
		},
		{
			name:        "prefix equals url",
			raw:         "https://example.org/",
			stripPrefix: "https://example.org/",
			want:        "index",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cache.Key(tt.raw, tt.stripPrefix))
		})
	}
}

func TestKey_TruncatesLongURLs(t *testing.T) {
	raw := "https://example.org/" + strings.Repeat("a", 400)
	key := cache.Key(raw, "")
	assert.Len(t, key, cache.MaxKeyLength)
}

func TestEntry_PutGet(t *testing.T) {
	fc := cache.NewFileCache(t.TempDir())
	entry := fc.Entry("k")

	assert.False(t, entry.Exists())
	require.NoError(t, entry.Put([]byte("body")))
	assert.True(t, entry.Exists())

	got, err := entry.Get()
	require.Nil(t, err)
	assert.Equal(t, "body", string(got))
}

func TestEntry_PutCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "cache")
	entry := cache.NewFileCache(dir).Entry("k")

	require.Nil(t, entry.Put([]byte("x")))
	_, err := os.Stat(filepath.Join(dir, "k"))
	assert.NoError(t, err)
}

func TestEntry_GetMissing(t *testing.T) {
	entry := cache.NewFileCache(t.TempDir()).Entry("missing")

	_, err := entry.Get()
	require.NotNil(t, err)

	var cacheErr *cache.CacheError
	require.True(t, errors.As(err, &cacheErr))
	assert.Equal(t, cache.ErrCauseNotFound, cacheErr.Cause)
	assert.Equal(t, failure.SeverityFatal, err.Severity())
}

func TestEntry_Fresh(t *testing.T) {
	fc := cache.NewFileCache(t.TempDir())
	entry := fc.Entry("k")
	require.Nil(t, entry.Put([]byte("x")))

	written := time.Now().Add(-10 * 24 * time.Hour)
	require.NoError(t, os.Chtimes(entry.Path(), written, written))
	now := time.Now()

	assert.True(t, entry.Fresh(now, 30*24*time.Hour))
	assert.False(t, entry.Fresh(now, 5*24*time.Hour))
	assert.False(t, entry.Fresh(now, 0), "zero max age always refetches")
}

func TestEntry_FreshMissing(t *testing.T) {
	entry := cache.NewFileCache(t.TempDir()).Entry("k")
	assert.False(t, entry.Fresh(time.Now(), time.Hour))
}

func TestEntry_Age(t *testing.T) {
	entry := cache.NewFileCache(t.TempDir()).Entry("k")
	_, ok := entry.Age(time.Now())
	assert.False(t, ok)

	require.Nil(t, entry.Put([]byte("x")))
	written := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, os.Chtimes(entry.Path(), written, written))

	age, ok := entry.Age(written.Add(time.Hour))
	assert.True(t, ok)
	assert.Equal(t, time.Hour, age)
}
