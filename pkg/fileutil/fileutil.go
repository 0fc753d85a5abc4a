package fileutil

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rohmanhakim/opendata-harvester/pkg/failure"
)

// EnsureDir check if a given directory plus the following path exist, then create one if not
func EnsureDir(dir string, path ...string) failure.ClassifiedError {
	targetPath := []string{dir}
	targetPath = append(targetPath, path...)

	target := filepath.Join(targetPath...)
	if err := os.MkdirAll(target, 0755); err != nil {
		return &FileError{
			Message:   fmt.Sprintf("%v", err),
			Retryable: false,
			Cause:     ErrCausePathError,
			Path:      target,
			Err:       err,
		}
	}
	return nil
}

// WriteFileAtomic writes data to a temporary file next to path and renames it
// into place. Readers either see the previous content or the complete new one;
// a failed write leaves no partial file behind.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) failure.ClassifiedError {
	staged, err := StageFile(path, data, perm)
	if err != nil {
		return err
	}
	return staged.Commit()
}

// StagedFile is complete content sitting in a temporary file next to its
// final path. Commit renames it into place, Discard removes it.
type StagedFile struct {
	tmpPath string
	path    string
}

func (s StagedFile) Path() string {
	return s.path
}

// StageFile writes data to a hidden temporary file in path's directory,
// creating the directory if needed.
func StageFile(path string, data []byte, perm os.FileMode) (StagedFile, failure.ClassifiedError) {
	dir := filepath.Dir(path)
	if err := EnsureDir(dir); err != nil {
		return StagedFile{}, err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return StagedFile{}, &FileError{
			Message: err.Error(),
			Cause:   ErrCauseWriteFailed,
			Path:    path,
			Err:     err,
		}
	}
	tmpName := tmp.Name()

	cleanup := func(err error) (StagedFile, failure.ClassifiedError) {
		tmp.Close()
		os.Remove(tmpName)
		return StagedFile{}, &FileError{
			Message: err.Error(),
			Cause:   ErrCauseWriteFailed,
			Path:    path,
			Err:     err,
		}
	}

	if _, err := tmp.Write(data); err != nil {
		return cleanup(err)
	}
	if err := tmp.Chmod(perm); err != nil {
		return cleanup(err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return StagedFile{}, &FileError{
			Message: err.Error(),
			Cause:   ErrCauseWriteFailed,
			Path:    path,
			Err:     err,
		}
	}
	return StagedFile{tmpPath: tmpName, path: path}, nil
}

func (s StagedFile) Commit() failure.ClassifiedError {
	if err := os.Rename(s.tmpPath, s.path); err != nil {
		os.Remove(s.tmpPath)
		return &FileError{
			Message: err.Error(),
			Cause:   ErrCauseRenameError,
			Path:    s.path,
			Err:     err,
		}
	}
	return nil
}

func (s StagedFile) Discard() {
	os.Remove(s.tmpPath)
}

// FileAge returns how long ago path was last modified relative to now.
// The boolean is false when the file does not exist or is a directory.
func FileAge(path string, now time.Time) (time.Duration, bool) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return 0, false
	}
	return now.Sub(info.ModTime()), true
}
