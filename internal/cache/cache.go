package cache

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/rohmanhakim/opendata-harvester/pkg/failure"
	"github.com/rohmanhakim/opendata-harvester/pkg/fileutil"
	"github.com/rohmanhakim/opendata-harvester/pkg/urlutil"
)

/*
Responsibilities

- Derive a filesystem-safe key from a URL
- Report whether a cached body is fresh enough
- Read and overwrite cached bodies

Entries are plain files named by key, with no sidecar metadata: the file's
mtime is the fetch time. There is no locking; concurrent runs against the
same cache directory are unsupported.
*/

// MaxKeyLength bounds keys so they fit common filesystem name limits.
const MaxKeyLength = 250

// Key derives the cache key for rawURL. stripPrefix (usually the API base
// URL) is removed first so keys stay short and readable.
func Key(rawURL string, stripPrefix string) string {
	key := urlutil.Slug(rawURL, stripPrefix, MaxKeyLength)
	if key == "" || key == "_" {
		return "index"
	}
	return key
}

type FileCache struct {
	dir string
}

func NewFileCache(dir string) FileCache {
	return FileCache{dir: dir}
}

func (c FileCache) Dir() string {
	return c.dir
}

func (c FileCache) Entry(key string) Entry {
	return Entry{key: key, dir: c.dir}
}

func (e Entry) Exists() bool {
	_, ok := fileutil.FileAge(e.Path(), time.Now())
	return ok
}

// Age returns the time since the entry was last written.
// The boolean is false when the entry does not exist.
func (e Entry) Age(now time.Time) (time.Duration, bool) {
	return fileutil.FileAge(e.Path(), now)
}

// Fresh reports whether the entry exists and is no older than maxAge.
// A zero (or negative) maxAge is never fresh.
func (e Entry) Fresh(now time.Time, maxAge time.Duration) bool {
	if maxAge <= 0 {
		return false
	}
	age, ok := e.Age(now)
	if !ok {
		return false
	}
	return age <= maxAge
}

func (e Entry) Get() ([]byte, failure.ClassifiedError) {
	data, err := os.ReadFile(e.Path())
	if err != nil {
		cause := ErrCauseReadFailed
		if errors.Is(err, fs.ErrNotExist) {
			cause = ErrCauseNotFound
		}
		return nil, &CacheError{
			Message: fmt.Sprintf("%v", err),
			Cause:   cause,
			Key:     e.key,
		}
	}
	return data, nil
}

// Put replaces the entry's content atomically. Its mtime becomes the new fetch time.
func (e Entry) Put(data []byte) failure.ClassifiedError {
	if err := fileutil.WriteFileAtomic(e.Path(), data, 0644); err != nil {
		return &CacheError{
			Message: err.Error(),
			Cause:   ErrCauseWriteFailed,
			Key:     e.key,
		}
	}
	return nil
}
