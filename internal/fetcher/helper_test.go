package fetcher_test

import (
	"sync"
	"time"

	"github.com/rohmanhakim/opendata-harvester/internal/cache"
	"github.com/rohmanhakim/opendata-harvester/internal/fetcher"
	"github.com/rohmanhakim/opendata-harvester/internal/metadata"
	"github.com/rohmanhakim/opendata-harvester/pkg/timeutil"
)

// mockMetadataSink is a test double for metadata.MetadataSink
type mockMetadataSink struct {
	metadata.NoopSink
	mu            sync.Mutex
	fetchEvents   []fetchEvent
	errorEvents   []errorEvent
	warningEvents []string
}

type fetchEvent struct {
	fetchUrl   string
	httpStatus int
	cacheKey   string
	fromCache  bool
	sizeByte   int
}

type errorEvent struct {
	packageName string
	action      string
	cause       metadata.ErrorCause
	details     string
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
	m.fetchEvents = append(m.fetchEvents, fetchEvent{
		fetchUrl:   fetchUrl,
		httpStatus: httpStatus,
		cacheKey:   cacheKey,
		fromCache:  fromCache,
		sizeByte:   sizeByte,
	})
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
	m.errorEvents = append(m.errorEvents, errorEvent{
		packageName: packageName,
		action:      action,
		cause:       cause,
		details:     details,
	})
}

func (m *mockMetadataSink) RecordWarning(packageName string, message string, attrs []metadata.Attribute) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.warningEvents = append(m.warningEvents, message)
}

type fetcherFixture struct {
	fetcher *fetcher.CachedFetcher
	sink    *mockMetadataSink
	clock   *timeutil.ManualClock
	cache   cache.FileCache
}

func newFetcherFixture(cacheDir string, opts fetcher.Options) fetcherFixture {
	sink := &mockMetadataSink{}
	clock := timeutil.NewManualClock(time.Now())
	fc := cache.NewFileCache(cacheDir)
	return fetcherFixture{
		fetcher: fetcher.NewCachedFetcher(sink, fc, clock, opts),
		sink:    sink,
		clock:   clock,
		cache:   fc,
	}
}
