package reshape

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rohmanhakim/opendata-harvester/internal/metadata"
	"github.com/rohmanhakim/opendata-harvester/pkg/failure"
)

/*
Responsibilities
- Check the header against the expected literal before any row is read
- Read and repair rows
- Apply string fix-ups, then classify

Pipeline never writes. Rendering happens only after Run succeeded, so a
failed run cannot leave partial output behind.
*/

type PipelineConfig struct {
	Dialect Dialect
	Charset Charset
	// ExpectedHeader is the literal header line. Empty disables the check.
	ExpectedHeader string
	// HeaderRenames renames fields in the output header.
	HeaderRenames map[string]string
	Rules         []Rule
	FixStrings    FixStrings
	// Strict makes any unmatched row fatal.
	Strict bool
}

type Result struct {
	header   Header
	buckets  *Buckets
	rows     int
	unknowns int
	repairs  int
}

// Header is the output header (after renames).
func (r Result) Header() Header {
	return r.header
}

func (r Result) Buckets() *Buckets {
	return r.buckets
}

// Rows counts logical rows read, matched or not.
func (r Result) Rows() int {
	return r.rows
}

func (r Result) Unknowns() int {
	return r.unknowns
}

func (r Result) Repairs() int {
	return r.repairs
}

type Pipeline struct {
	metadataSink metadata.MetadataSink
	cfg          PipelineConfig
}

func NewPipeline(metadataSink metadata.MetadataSink, cfg PipelineConfig) Pipeline {
	if cfg.Dialect.Delimiter == 0 {
		cfg.Dialect = Semicolon
	}
	if cfg.Charset == "" {
		cfg.Charset = CharsetUTF8
	}
	return Pipeline{
		metadataSink: metadataSink,
		cfg:          cfg,
	}
}

func (p *Pipeline) Run(r io.Reader) (Result, failure.ClassifiedError) {
	result, err := p.run(r)
	if err != nil {
		p.recordError(err)
		return Result{}, err
	}
	return result, nil
}

func (p *Pipeline) run(r io.Reader) (Result, failure.ClassifiedError) {
	raw, readErr := io.ReadAll(r)
	if readErr != nil {
		return Result{}, &ReshapeError{Message: readErr.Error(), Cause: ErrCauseReadFailed}
	}
	content, err := Decode(raw, p.cfg.Charset)
	if err != nil {
		return Result{}, err
	}

	reader := NewRowReader(p.metadataSink, bytes.NewReader(content), p.cfg.Dialect)
	header, err := reader.ReadHeader()
	if err != nil {
		return Result{}, err
	}
	if p.cfg.ExpectedHeader != "" {
		if err := header.Expect(p.cfg.ExpectedHeader, p.cfg.Dialect); err != nil {
			return Result{}, err
		}
	}

	classifier, err := NewClassifier(header, p.cfg.Rules)
	if err != nil {
		return Result{}, err
	}

	result := Result{
		header:  header.Rename(p.cfg.HeaderRenames),
		buckets: NewBuckets(),
	}
	for {
		row, ok, err := reader.Next()
		if err != nil {
			return Result{}, err
		}
		if !ok {
			break
		}
		result.rows++

		row.fields = p.cfg.FixStrings.Apply(row.fields)
		bucket, matched := classifier.Classify(row)
		if !matched {
			result.unknowns++
			p.metadataSink.RecordUnmatchedRow(row.line, row.fields)
			continue
		}
		result.buckets.Add(bucket, row)
	}
	result.repairs = reader.Repairs()

	if p.cfg.Strict && result.unknowns > 0 {
		return Result{}, &ReshapeError{
			Message: fmt.Sprintf("%d of %d rows match no rule", result.unknowns, result.rows),
			Cause:   ErrCauseUnmatchedRows,
		}
	}
	return result, nil
}

func (p *Pipeline) recordError(err failure.ClassifiedError) {
	cause := metadata.CauseUnknown
	attrs := []metadata.Attribute{}
	var reshapeErr *ReshapeError
	if errors.As(err, &reshapeErr) {
		cause = mapReshapeErrorToMetadataCause(reshapeErr)
		if reshapeErr.Line > 0 {
			attrs = append(attrs, metadata.NewAttr(metadata.AttrLine, fmt.Sprintf("%d", reshapeErr.Line)))
		}
	}
	p.metadataSink.RecordError(
		time.Now(),
		"reshape",
		"Pipeline.Run",
		cause,
		err.Error(),
		attrs,
	)
}
