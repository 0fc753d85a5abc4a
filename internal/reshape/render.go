package reshape

import (
	"encoding/json"
	"io"
	"strings"

	"github.com/rohmanhakim/opendata-harvester/pkg/failure"
	"github.com/rohmanhakim/opendata-harvester/pkg/jsonutil"
)

// RenderCSV writes leadColumn followed by the header, then every row of
// every bucket prefixed by the bucket's name. Buckets come out in
// first-seen order.
func RenderCSV(w io.Writer, buckets *Buckets, header Header, leadColumn string, dialect Dialect) failure.ClassifiedError {
	var b strings.Builder
	b.WriteString(dialect.FormatRecord(append([]string{leadColumn}, header.names...)))
	for _, bucket := range buckets.All() {
		for _, row := range bucket.rows {
			b.WriteString(dialect.FormatRecord(append([]string{bucket.name}, row.fields...)))
		}
	}
	if _, err := io.WriteString(w, b.String()); err != nil {
		return &ReshapeError{Message: err.Error(), Cause: ErrCauseRenderFailed}
	}
	return nil
}

// RenderJSON writes {"bucket": [[field, ...], ...], ...} with keys sorted,
// two-space indentation and every non-ASCII character \u-escaped. Fields
// marked numeric are written as JSON numbers.
func RenderJSON(w io.Writer, buckets *Buckets) failure.ClassifiedError {
	doc := make(map[string][][]any, buckets.Len())
	for _, bucket := range buckets.All() {
		rows := make([][]any, len(bucket.rows))
		for i, row := range bucket.rows {
			fields := make([]any, len(row.fields))
			for j, f := range row.fields {
				if row.IsNumeric(j) {
					fields[j] = json.Number(f)
					continue
				}
				fields[j] = f
			}
			rows[i] = fields
		}
		doc[bucket.name] = rows
	}

	out, err := jsonutil.MarshalASCII(doc)
	if err != nil {
		return &ReshapeError{Message: err.Error(), Cause: ErrCauseRenderFailed}
	}
	if _, err := w.Write(out); err != nil {
		return &ReshapeError{Message: err.Error(), Cause: ErrCauseRenderFailed}
	}
	return nil
}
