package reshape

import (
	"fmt"
	"slices"
	"strings"

	"github.com/rohmanhakim/opendata-harvester/pkg/failure"
)

type Header struct {
	names []string
}

func NewHeader(names ...string) Header {
	return Header{names: slices.Clone(names)}
}

// ParseHeader splits the first line of a file into field names.
// A leading byte order mark is ignored.
func ParseHeader(line string, dialect Dialect) Header {
	line = strings.TrimPrefix(line, "\ufeff")
	line = strings.TrimRight(line, "\r\n")
	names, _ := dialect.split(line)
	return Header{names: names}
}

func (h Header) Names() []string {
	return slices.Clone(h.names)
}

func (h Header) Len() int {
	return len(h.names)
}

// Index returns the position of the named field.
func (h Header) Index(name string) (int, bool) {
	i := slices.Index(h.names, name)
	return i, i >= 0
}

// Expect compares the header with a literal header line in the same dialect.
// Any difference in a field name, in field order or in field count is a
// mismatch. Quoting differences alone are not.
func (h Header) Expect(literal string, dialect Dialect) failure.ClassifiedError {
	want := ParseHeader(literal, dialect)
	if slices.Equal(h.names, want.names) {
		return nil
	}
	return &ReshapeError{
		Message: fmt.Sprintf("got %q, want %q", h.names, want.names),
		Cause:   ErrCauseHeaderMismatch,
		Line:    1,
	}
}

// Rename returns a copy with fields renamed according to renames.
// Names not in the map are kept.
func (h Header) Rename(renames map[string]string) Header {
	out := make([]string, len(h.names))
	for i, n := range h.names {
		if to, ok := renames[n]; ok {
			out[i] = to
			continue
		}
		out[i] = n
	}
	return Header{names: out}
}
