package recipe

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/rohmanhakim/opendata-harvester/internal/reshape"
)

// csvBytes renders header and rows with the given dialect.
func csvBytes(dialect reshape.Dialect, header []string, rows [][]string) []byte {
	var buf bytes.Buffer
	if header != nil {
		buf.WriteString(dialect.FormatRecord(header))
	}
	for _, row := range rows {
		buf.WriteString(dialect.FormatRecord(row))
	}
	return buf.Bytes()
}

// formatFloat prints the shortest representation that round-trips, always
// with a decimal point: 7 becomes "7.0".
func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eEnN") {
		s += ".0"
	}
	return s
}

// parseDecimalComma parses "51,96" as well as "51.96".
func parseDecimalComma(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(strings.Replace(s, ",", ".", 1)), 64)
}
