package metadata

import (
	"time"
)

type FetchEvent struct {
	fetchUrl   string
	httpStatus int
	duration   time.Duration
	cacheKey   string
	fromCache  bool
	sizeByte   int
}

/*
runStats
  - Represents a terminal, derived summary of one recipe run
  - Contains only aggregate counts and durations
  - Is computed by the runner after the recipe returned
  - Is recorded exactly once per recipe
  - Must not influence control flow
*/
type runStats struct {
	recipe     string
	totalRows  int
	buckets    int
	unknowns   int
	artifacts  int
	durationMs int64
}

/*
ErrorCause is a closed, canonical classification used exclusively for
observability (logging, reporting).

Rules:
  - ErrorCause MUST NOT influence control flow.
  - Pipeline packages MAY map their local errors to ErrorCause,
    but MUST NOT invent new meanings.

If a failure does not clearly match a defined cause, CauseUnknown MUST be used.
*/
type ErrorCause int

/*
Canonical ErrorCause Table

# CauseUnknown

  - The failure does not map cleanly to any known category.

# CauseNetworkFailure

  - DNS, timeout, connection reset, unreadable response body.

# CauseSchemaDrift

  - The upstream publisher changed its format: header mismatch,
    unrepairable row, unmatched row, unexpected JSON/HTML shape.

# CauseEncodingFailure

  - Source bytes could not be decoded with the declared charset.

# CauseStorageFailure

  - Failure while persisting cache entries or output artifacts.

# CauseInvariantViolation

  - Internal consistency checks failing (invalid rule, bad configuration).
*/
const (
	CauseUnknown ErrorCause = iota
	CauseNetworkFailure
	CauseSchemaDrift
	CauseEncodingFailure
	CauseStorageFailure
	CauseInvariantViolation
)

func (c ErrorCause) String() string {
	switch c {
	case CauseNetworkFailure:
		return "network_failure"
	case CauseSchemaDrift:
		return "schema_drift"
	case CauseEncodingFailure:
		return "encoding_failure"
	case CauseStorageFailure:
		return "storage_failure"
	case CauseInvariantViolation:
		return "invariant_violation"
	default:
		return "unknown"
	}
}

type ArtifactKind string

const (
	ArtifactCSV     ArtifactKind = "csv"
	ArtifactJSON    ArtifactKind = "json"
	ArtifactGeoJSON ArtifactKind = "geojson"
	ArtifactICal    ArtifactKind = "ics"
	ArtifactText    ArtifactKind = "text"
	ArtifactCache   ArtifactKind = "cache"
	ArtifactOther   ArtifactKind = "other"
)

type Attribute struct {
	Key   AttributeKey
	Value string
}

func NewAttr(key AttributeKey, val string) Attribute {
	return Attribute{
		Key:   key,
		Value: val,
	}
}

type AttributeKey string

const (
	AttrURL         AttributeKey = "url"
	AttrPath        AttributeKey = "path"
	AttrField       AttributeKey = "field"
	AttrHTTPStatus  AttributeKey = "http_status"
	AttrCacheKey    AttributeKey = "cache_key"
	AttrWritePath   AttributeKey = "write_path"
	AttrContentHash AttributeKey = "content_hash"
	AttrLine        AttributeKey = "line"
	AttrBucket      AttributeKey = "bucket"
	AttrRecipe      AttributeKey = "recipe"
	AttrMessage     AttributeKey = "message"
)
