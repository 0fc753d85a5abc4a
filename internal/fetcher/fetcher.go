package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http/cookiejar"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rohmanhakim/opendata-harvester/internal/cache"
	"github.com/rohmanhakim/opendata-harvester/internal/metadata"
	"github.com/rohmanhakim/opendata-harvester/pkg/failure"
	"github.com/rohmanhakim/opendata-harvester/pkg/timeutil"
	"github.com/rohmanhakim/opendata-harvester/pkg/urlutil"
)

/*
Responsibilities

- Serve bodies from the file cache while they are fresh
- Perform live GETs with the configured headers and timeout
- Persist every live body, including error responses
- Pause after every live request

Fetch Semantics

- HTTP >= 400 is logged as a warning; the body is still cached and returned
  (unless the caller asked for strict status handling)
- Only absolute http(s) URLs are fetched; anything else is a fatal invalid url
- A transport failure or timeout aborts the run; there is no retry
- Cache hits never sleep and never touch the network

The fetcher never parses content; it only returns bytes and metadata.
*/

type Fetcher interface {
	Fetch(ctx context.Context, fetchParam FetchParam) (FetchResult, failure.ClassifiedError)
	FetchJSON(ctx context.Context, fetchParam FetchParam, out any) (bool, failure.ClassifiedError)
}

type Options struct {
	UserAgent       string
	Timeout         time.Duration
	PolitenessDelay time.Duration
}

type CachedFetcher struct {
	metadataSink    metadata.MetadataSink
	httpClient      *resty.Client
	fileCache       cache.FileCache
	clock           timeutil.Clock
	politenessDelay time.Duration
}

func NewCachedFetcher(
	metadataSink metadata.MetadataSink,
	fileCache cache.FileCache,
	clock timeutil.Clock,
	opts Options,
) *CachedFetcher {
	client := resty.New()
	// cookiejar.New only fails on a broken PublicSuffixList; nil has none.
	jar, _ := cookiejar.New(nil)
	client.SetCookieJar(jar)
	if opts.UserAgent != "" {
		client.SetHeader("User-Agent", opts.UserAgent)
	}
	if opts.Timeout > 0 {
		client.SetTimeout(opts.Timeout)
	}

	return &CachedFetcher{
		metadataSink:    metadataSink,
		httpClient:      client,
		fileCache:       fileCache,
		clock:           clock,
		politenessDelay: opts.PolitenessDelay,
	}
}

// Fresh reports whether Fetch would be served from the cache.
func (f *CachedFetcher) Fresh(fetchParam FetchParam) bool {
	return f.entryFor(fetchParam).Fresh(f.clock.Now(), fetchParam.maxAge)
}

func (f *CachedFetcher) Fetch(
	ctx context.Context,
	fetchParam FetchParam,
) (FetchResult, failure.ClassifiedError) {
	if !urlutil.IsHTTP(fetchParam.fetchUrl) {
		err := &FetchError{
			Message: fmt.Sprintf("%q is not an absolute http(s) url", fetchParam.fetchUrl),
			Cause:   ErrCauseInvalidURL,
			URL:     fetchParam.fetchUrl,
		}
		f.recordFetchError("CachedFetcher.Fetch", fetchParam.fetchUrl, err)
		return FetchResult{}, err
	}

	entry := f.entryFor(fetchParam)

	if entry.Fresh(f.clock.Now(), fetchParam.maxAge) {
		body, err := entry.Get()
		if err == nil {
			f.metadataSink.RecordFetch(fetchParam.fetchUrl, 0, 0, entry.Key(), true, len(body))
			return FetchResult{
				url:       fetchParam.fetchUrl,
				body:      body,
				fromCache: true,
				cacheKey:  entry.Key(),
			}, nil
		}
		f.metadataSink.RecordWarning("fetcher", "unreadable cache entry, fetching live", []metadata.Attribute{
			metadata.NewAttr(metadata.AttrCacheKey, entry.Key()),
			metadata.NewAttr(metadata.AttrMessage, err.Error()),
		})
	}

	result, err := f.fetchLive(ctx, fetchParam, entry)
	if err != nil {
		f.recordFetchError("CachedFetcher.Fetch", fetchParam.fetchUrl, err)
		return FetchResult{}, err
	}
	return result, nil
}

func (f *CachedFetcher) fetchLive(
	ctx context.Context,
	fetchParam FetchParam,
	entry cache.Entry,
) (FetchResult, failure.ClassifiedError) {
	startTime := time.Now()
	resp, err := f.httpClient.R().
		SetContext(ctx).
		SetHeaders(fetchParam.headers).
		Get(fetchParam.fetchUrl)
	duration := time.Since(startTime)
	if err != nil {
		return FetchResult{}, classifyTransportError(fetchParam.fetchUrl, err)
	}

	statusCode := resp.StatusCode()
	body := resp.Body()
	f.metadataSink.RecordFetch(fetchParam.fetchUrl, statusCode, duration, entry.Key(), false, len(body))

	if statusCode >= 400 {
		if fetchParam.strictStatus {
			f.clock.Sleep(f.politenessDelay)
			return FetchResult{}, &FetchError{
				Message: fmt.Sprintf("HTTP %d", statusCode),
				Cause:   ErrCauseErrorStatus,
				URL:     fetchParam.fetchUrl,
			}
		}
		f.metadataSink.RecordWarning("fetcher", "request returned error status", []metadata.Attribute{
			metadata.NewAttr(metadata.AttrURL, fetchParam.fetchUrl),
			metadata.NewAttr(metadata.AttrHTTPStatus, fmt.Sprintf("%d", statusCode)),
		})
	}

	if putErr := entry.Put(body); putErr != nil {
		return FetchResult{}, &FetchError{
			Message: putErr.Error(),
			Cause:   ErrCauseCacheFailure,
			URL:     fetchParam.fetchUrl,
		}
	}

	f.clock.Sleep(f.politenessDelay)

	return FetchResult{
		url:        fetchParam.fetchUrl,
		body:       body,
		statusCode: statusCode,
		cacheKey:   entry.Key(),
	}, nil
}

func (f *CachedFetcher) entryFor(fetchParam FetchParam) cache.Entry {
	key := fetchParam.cacheKey
	if key == "" {
		key = cache.Key(fetchParam.fetchUrl, fetchParam.cacheKeyPrefix)
	}
	return f.fileCache.Entry(key)
}

func (f *CachedFetcher) recordFetchError(callerMethod string, fetchUrl string, err failure.ClassifiedError) {
	cause := metadata.CauseUnknown
	var fetchError *FetchError
	if errors.As(err, &fetchError) {
		cause = mapFetchErrorToMetadataCause(fetchError)
	}
	f.metadataSink.RecordError(
		time.Now(),
		"fetcher",
		callerMethod,
		cause,
		err.Error(),
		[]metadata.Attribute{
			metadata.NewAttr(metadata.AttrURL, fetchUrl),
		},
	)
}

func classifyTransportError(fetchUrl string, err error) *FetchError {
	cause := ErrCauseNetworkFailure
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		cause = ErrCauseTimeout
	}
	return &FetchError{
		Message: err.Error(),
		Cause:   cause,
		URL:     fetchUrl,
	}
}
