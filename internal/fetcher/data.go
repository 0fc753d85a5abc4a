package fetcher

import (
	"maps"
	"time"
)

type FetchParam struct {
	fetchUrl       string
	maxAge         time.Duration
	headers        map[string]string
	cacheKeyPrefix string
	cacheKey       string
	strictStatus   bool
}

// NewFetchParam describes one cached GET. A zero maxAge always fetches live.
func NewFetchParam(fetchUrl string, maxAge time.Duration) FetchParam {
	return FetchParam{
		fetchUrl: fetchUrl,
		maxAge:   maxAge,
	}
}

// WithHeaders adds request headers on top of the client defaults.
// Later calls override earlier values for the same header.
func (p FetchParam) WithHeaders(headers map[string]string) FetchParam {
	merged := make(map[string]string, len(p.headers)+len(headers))
	maps.Copy(merged, p.headers)
	maps.Copy(merged, headers)
	p.headers = merged
	return p
}

// WithCacheKeyPrefix strips prefix from the URL before deriving the cache key.
func (p FetchParam) WithCacheKeyPrefix(prefix string) FetchParam {
	p.cacheKeyPrefix = prefix
	return p
}

// WithCacheKey pins the cache key instead of deriving it from the URL.
func (p FetchParam) WithCacheKey(key string) FetchParam {
	p.cacheKey = key
	return p
}

// WithStrictStatus turns HTTP >= 400 into a fatal error instead of a warning.
// Nothing is cached in that case.
func (p FetchParam) WithStrictStatus() FetchParam {
	p.strictStatus = true
	return p
}

func (p FetchParam) URL() string {
	return p.fetchUrl
}

func (p FetchParam) MaxAge() time.Duration {
	return p.maxAge
}

func (p FetchParam) Headers() map[string]string {
	return maps.Clone(p.headers)
}

type FetchResult struct {
	url        string
	body       []byte
	statusCode int
	fromCache  bool
	cacheKey   string
}

func (f *FetchResult) URL() string {
	return f.url
}

func (f *FetchResult) Body() []byte {
	return f.body
}

// Code is the HTTP status of a live fetch, 0 for cache hits.
func (f *FetchResult) Code() int {
	return f.statusCode
}

func (f *FetchResult) FromCache() bool {
	return f.fromCache
}

func (f *FetchResult) CacheKey() string {
	return f.cacheKey
}

func (f *FetchResult) SizeByte() int {
	return len(f.body)
}
