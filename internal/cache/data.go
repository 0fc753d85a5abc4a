package cache

import "path/filepath"

// Entry is one cached response body, addressed by its key.
// An Entry value says nothing about whether the file exists.
type Entry struct {
	key string
	dir string
}

func (e Entry) Key() string {
	return e.key
}

func (e Entry) Path() string {
	return filepath.Join(e.dir, e.key)
}
