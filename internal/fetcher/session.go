package fetcher

import (
	"context"
	"net/url"
	"time"

	"github.com/rohmanhakim/opendata-harvester/internal/extract"
	"github.com/rohmanhakim/opendata-harvester/internal/metadata"
	"github.com/rohmanhakim/opendata-harvester/pkg/failure"
)

/*
Session emulates a browser visit for APIs that want a CSRF token and a
session cookie: the start page is requested once, its <meta name="csrf-token">
is kept, and the cookies land in the shared client's jar.

Bootstrapping is lazy. A run served entirely from the cache never touches
the start page.
*/
type Session struct {
	fetcher      *CachedFetcher
	extractor    extract.CSRFTokenExtractor
	metadataSink metadata.MetadataSink
	startUrl     string
	referer      string
	token        string
	bootstrapped bool
}

func NewSession(
	metadataSink metadata.MetadataSink,
	fetcher *CachedFetcher,
	startUrl string,
) *Session {
	return &Session{
		fetcher:      fetcher,
		extractor:    extract.NewCSRFTokenExtractor(metadataSink),
		metadataSink: metadataSink,
		startUrl:     startUrl,
		referer:      refererFor(startUrl),
	}
}

// Bootstrap requests the start page and stores its CSRF token.
// A page without a token is only a warning; later requests go out without one.
func (s *Session) Bootstrap(ctx context.Context) failure.ClassifiedError {
	startTime := time.Now()
	resp, err := s.fetcher.httpClient.R().
		SetContext(ctx).
		Get(s.startUrl)
	if err != nil {
		fetchErr := classifyTransportError(s.startUrl, err)
		s.fetcher.recordFetchError("Session.Bootstrap", s.startUrl, fetchErr)
		return fetchErr
	}
	s.metadataSink.RecordFetch(s.startUrl, resp.StatusCode(), time.Since(startTime), "", false, len(resp.Body()))
	s.fetcher.clock.Sleep(s.fetcher.politenessDelay)

	s.bootstrapped = true
	token, extractErr := s.extractor.Extract(resp.Body())
	if extractErr != nil {
		s.metadataSink.RecordWarning("fetcher", "did not find csrf token", []metadata.Attribute{
			metadata.NewAttr(metadata.AttrURL, s.startUrl),
		})
		return nil
	}
	s.token = token
	return nil
}

func (s *Session) Token() string {
	return s.token
}

// Headers are the extra request headers an XHR from the start page would carry.
func (s *Session) Headers() map[string]string {
	headers := map[string]string{
		"Referer":          s.referer,
		"Accept":           "application/json, text/plain, */*",
		"X-Requested-With": "XMLHttpRequest",
	}
	if s.token != "" {
		headers["X-CSRF-TOKEN"] = s.token
	}
	return headers
}

func (s *Session) Fetch(ctx context.Context, fetchParam FetchParam) (FetchResult, failure.ClassifiedError) {
	fetchParam, err := s.prepare(ctx, fetchParam)
	if err != nil {
		return FetchResult{}, err
	}
	return s.fetcher.Fetch(ctx, fetchParam)
}

func (s *Session) FetchJSON(ctx context.Context, fetchParam FetchParam, out any) (bool, failure.ClassifiedError) {
	fetchParam, err := s.prepare(ctx, fetchParam)
	if err != nil {
		return false, err
	}
	return s.fetcher.FetchJSON(ctx, fetchParam, out)
}

func (s *Session) prepare(ctx context.Context, fetchParam FetchParam) (FetchParam, failure.ClassifiedError) {
	if s.fetcher.Fresh(fetchParam) {
		return fetchParam, nil
	}
	if !s.bootstrapped {
		if err := s.Bootstrap(ctx); err != nil {
			return fetchParam, err
		}
	}
	headers := s.Headers()
	for k, v := range fetchParam.headers {
		headers[k] = v
	}
	return fetchParam.WithHeaders(headers), nil
}

func refererFor(startUrl string) string {
	u, err := url.Parse(startUrl)
	if err != nil {
		return startUrl
	}
	if u.Path == "" {
		u.Path = "/"
	}
	return u.String()
}
