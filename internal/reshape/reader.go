package reshape

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/rohmanhakim/opendata-harvester/internal/metadata"
	"github.com/rohmanhakim/opendata-harvester/pkg/failure"
)

const maxLineBytes = 4 * 1024 * 1024

/*
RowReader streams logical rows from delimited text.

Repair rule: a row with fewer fields than the header is one logical row
broken across two physical lines. The next physical line is appended to it
(the last field of the short row and the first field of the next line join
into one value) and the result is split again. One merge per short row; a
row that is still short, or any row with more fields than the header, is
fatal.

Blank lines are skipped.
*/
type RowReader struct {
	metadataSink metadata.MetadataSink
	scanner      *bufio.Scanner
	dialect      Dialect
	width        int
	line         int
	repairs      int
}

func NewRowReader(metadataSink metadata.MetadataSink, r io.Reader, dialect Dialect) *RowReader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
	return &RowReader{
		metadataSink: metadataSink,
		scanner:      scanner,
		dialect:      dialect,
	}
}

// Line is the number of physical lines consumed so far.
func (r *RowReader) Line() int {
	return r.line
}

// Repairs is the number of short rows merged with their next line so far.
func (r *RowReader) Repairs() int {
	return r.repairs
}

// Skip discards n physical lines, e.g. a free-text preamble before the header.
func (r *RowReader) Skip(n int) failure.ClassifiedError {
	for i := 0; i < n; i++ {
		if _, ok, err := r.nextLine(); err != nil {
			return err
		} else if !ok {
			return &ReshapeError{
				Message: fmt.Sprintf("input ended after %d of %d preamble lines", i, n),
				Cause:   ErrCauseMissingHeader,
				Line:    r.line,
			}
		}
	}
	return nil
}

// ReadHeader consumes the next physical line as the header. Its field
// count becomes the width every following row must have.
func (r *RowReader) ReadHeader() (Header, failure.ClassifiedError) {
	line, ok, err := r.nextLine()
	if err != nil {
		return Header{}, err
	}
	if !ok {
		return Header{}, &ReshapeError{
			Message: "input is empty",
			Cause:   ErrCauseMissingHeader,
			Line:    r.line,
		}
	}
	header := ParseHeader(line, r.dialect)
	r.width = header.Len()
	return header, nil
}

// Next returns the next logical row. ok is false at the end of input.
func (r *RowReader) Next() (row DelimitedRow, ok bool, err failure.ClassifiedError) {
	if r.width == 0 {
		return DelimitedRow{}, false, &ReshapeError{
			Message: "Next called before ReadHeader",
			Cause:   ErrCauseReaderNotStarted,
		}
	}

	var line string
	for {
		line, ok, err = r.nextLine()
		if err != nil || !ok {
			return DelimitedRow{}, false, err
		}
		if strings.TrimSpace(line) != "" {
			break
		}
	}
	start := r.line

	fields, _ := r.dialect.split(line)
	if len(fields) < r.width {
		fields, err = r.repair(start, line, fields)
		if err != nil {
			return DelimitedRow{}, false, err
		}
	}
	if len(fields) > r.width {
		return DelimitedRow{}, false, &ReshapeError{
			Message: fmt.Sprintf("%d fields, header has %d", len(fields), r.width),
			Cause:   ErrCauseUnrepairableRow,
			Line:    start,
		}
	}

	return DelimitedRow{line: start, fields: fields}, true, nil
}

func (r *RowReader) repair(start int, line string, short []string) ([]string, failure.ClassifiedError) {
	next, ok, err := r.nextLine()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &ReshapeError{
			Message: fmt.Sprintf("%d fields, header has %d, and no line follows", len(short), r.width),
			Cause:   ErrCauseUnrepairableRow,
			Line:    start,
		}
	}

	merged, _ := r.dialect.split(line + next)
	if len(merged) != r.width {
		return nil, &ReshapeError{
			Message: fmt.Sprintf("%d fields after merging with line %d, header has %d", len(merged), r.line, r.width),
			Cause:   ErrCauseUnrepairableRow,
			Line:    start,
		}
	}

	r.repairs++
	r.metadataSink.RecordRowRepair(start, short, merged)
	return merged, nil
}

func (r *RowReader) nextLine() (string, bool, failure.ClassifiedError) {
	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			return "", false, &ReshapeError{
				Message: err.Error(),
				Cause:   ErrCauseReadFailed,
				Line:    r.line + 1,
			}
		}
		return "", false, nil
	}
	r.line++
	return strings.TrimSuffix(r.scanner.Text(), "\r"), true, nil
}
