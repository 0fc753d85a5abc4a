package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rohmanhakim/opendata-harvester/internal/metadata"
	"github.com/rohmanhakim/opendata-harvester/pkg/failure"
	"github.com/rohmanhakim/opendata-harvester/pkg/fileutil"
	"github.com/rohmanhakim/opendata-harvester/pkg/hashutil"
)

/*
Responsibilities
- Persist rendered artifacts (CSV, JSON, GeoJSON, iCalendar)
- Never leave a partially written file behind
- Stage a recipe's whole artifact set before replacing any of it
- Report a content hash for every artifact

Output Characteristics
- Stable directory layout: names are relative to the output directory
- Idempotent writes: same content, same bytes, same hash
- Overwrite-safe reruns: temp file in the target directory, then rename
*/

type Sink interface {
	Write(
		outputDir string,
		artifact Artifact,
	) (WriteResult, failure.ClassifiedError)
	WriteAll(
		outputDir string,
		artifacts ...Artifact,
	) ([]WriteResult, failure.ClassifiedError)
	ReadExisting(outputDir string, name string) ([]byte, failure.ClassifiedError)
}

type LocalSink struct {
	metadataSink metadata.MetadataSink
	hashAlgo     hashutil.HashAlgo
	dryRun       bool
}

func NewLocalSink(
	metadataSink metadata.MetadataSink,
	dryRun bool,
) LocalSink {
	return LocalSink{
		metadataSink: metadataSink,
		hashAlgo:     hashutil.HashAlgoBLAKE3,
		dryRun:       dryRun,
	}
}

func (s *LocalSink) Write(
	outputDir string,
	artifact Artifact,
) (WriteResult, failure.ClassifiedError) {
	results, err := s.WriteAll(outputDir, artifact)
	if err != nil {
		return WriteResult{}, err
	}
	return results[0], nil
}

// WriteAll stages every artifact next to its destination before renaming any
// of them into place. A failure while staging leaves the output directory
// untouched; only a failing rename can leave the set partly replaced.
func (s *LocalSink) WriteAll(
	outputDir string,
	artifacts ...Artifact,
) ([]WriteResult, failure.ClassifiedError) {
	results, err := s.writeAll(outputDir, artifacts)
	if err != nil {
		s.metadataSink.RecordError(
			time.Now(),
			"storage",
			"LocalSink.Write",
			mapStorageErrorToMetadataCause(err),
			err.Error(),
			[]metadata.Attribute{
				metadata.NewAttr(metadata.AttrWritePath, err.Path),
			},
		)
		return nil, err
	}
	for i := range results {
		s.metadataSink.RecordArtifact(
			artifacts[i].kind,
			results[i].Path(),
			[]metadata.Attribute{
				metadata.NewAttr(metadata.AttrWritePath, results[i].Path()),
				metadata.NewAttr(metadata.AttrContentHash, results[i].ContentHash()),
			},
		)
	}
	return results, nil
}

func (s *LocalSink) writeAll(
	outputDir string,
	artifacts []Artifact,
) ([]WriteResult, *StorageError) {
	results := make([]WriteResult, 0, len(artifacts))
	staged := make([]fileutil.StagedFile, 0, len(artifacts))
	discard := func(files []fileutil.StagedFile) {
		for _, f := range files {
			f.Discard()
		}
	}

	for _, artifact := range artifacts {
		fullPath, contentHash, err := s.prepare(outputDir, artifact)
		if err != nil {
			discard(staged)
			return nil, err
		}
		if s.dryRun {
			results = append(results, NewWriteResult(fullPath, contentHash, false))
			continue
		}
		file, fileErr := fileutil.StageFile(fullPath, artifact.content, 0644)
		if fileErr != nil {
			discard(staged)
			return nil, fromFileError(fullPath, fileErr)
		}
		staged = append(staged, file)
		results = append(results, NewWriteResult(fullPath, contentHash, true))
	}

	for i, file := range staged {
		if err := file.Commit(); err != nil {
			discard(staged[i+1:])
			return nil, fromFileError(file.Path(), err)
		}
	}
	return results, nil
}

// prepare validates the artifact name and hashes its content.
func (s *LocalSink) prepare(outputDir string, artifact Artifact) (string, string, *StorageError) {
	if !filepath.IsLocal(artifact.name) {
		return "", "", &StorageError{
			Message: fmt.Sprintf("%q must be a relative path inside the output directory", artifact.name),
			Cause:   ErrCauseInvalidName,
			Path:    artifact.name,
		}
	}
	fullPath := filepath.Join(outputDir, artifact.name)

	contentHash, err := hashutil.HashBytes(artifact.content, s.hashAlgo)
	if err != nil {
		return "", "", &StorageError{
			Message: err.Error(),
			Cause:   ErrCauseHashComputationFailed,
			Path:    fullPath,
		}
	}
	return fullPath, contentHash, nil
}

func fromFileError(fullPath string, err error) *StorageError {
	cause := ErrCauseWriteFailure
	var fileErr *fileutil.FileError
	if errors.As(err, &fileErr) && fileErr.Cause == fileutil.ErrCausePathError {
		cause = ErrCausePathError
	}
	if errors.Is(err, syscall.ENOSPC) {
		cause = ErrCauseDiskFull
	}
	return &StorageError{
		Message: err.Error(),
		Cause:   cause,
		Path:    fullPath,
	}
}

// ReadExisting returns the current content of an artifact, or nil when it
// does not exist yet. Recipes that extend a published file use it.
func (s *LocalSink) ReadExisting(outputDir string, name string) ([]byte, failure.ClassifiedError) {
	fullPath := filepath.Join(outputDir, name)
	data, err := os.ReadFile(fullPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, &StorageError{
			Message: err.Error(),
			Cause:   ErrCauseReadFailure,
			Path:    fullPath,
		}
	}
	return data, nil
}
