package reshape

import "strings"

// Dialect describes a delimited text format.
type Dialect struct {
	Delimiter rune
	Quote     rune
	// LineTerminator is used when rendering. Reading accepts "\n" and "\r\n".
	LineTerminator string
}

// Semicolon is the dialect of most German open-data CSV exports.
var Semicolon = Dialect{Delimiter: ';', Quote: '"', LineTerminator: "\r\n"}

// Excel is a comma separated dialect with CRLF line endings.
var Excel = Dialect{Delimiter: ',', Quote: '"', LineTerminator: "\r\n"}

// split tokenizes one physical line.
//
// A field that starts with the quote character is read up to the matching
// closing quote, with doubled quotes unescaped. Quote characters anywhere
// else are literal. Quoted fields never span lines: an unterminated quote
// runs to the end of the line and is reported through the second return
// value, which is how a row broken in two shows up.
func (d Dialect) split(line string) ([]string, bool) {
	var fields []string
	var b strings.Builder
	inQuotes := false
	fieldStart := true

	rs := []rune(line)
	for i := 0; i < len(rs); i++ {
		c := rs[i]
		switch {
		case inQuotes:
			if c == d.Quote {
				if i+1 < len(rs) && rs[i+1] == d.Quote {
					b.WriteRune(c)
					i++
					continue
				}
				inQuotes = false
				continue
			}
			b.WriteRune(c)
		case c == d.Delimiter:
			fields = append(fields, b.String())
			b.Reset()
			fieldStart = true
			continue
		case c == d.Quote && fieldStart:
			inQuotes = true
		default:
			b.WriteRune(c)
		}
		fieldStart = false
	}
	fields = append(fields, b.String())
	return fields, inQuotes
}

// needsQuote mirrors minimal quoting: only fields containing the delimiter,
// the quote character or a line break are quoted.
func (d Dialect) needsQuote(field string) bool {
	return strings.ContainsRune(field, d.Delimiter) ||
		strings.ContainsRune(field, d.Quote) ||
		strings.ContainsAny(field, "\r\n")
}

// FormatRecord renders one record in this dialect, including the line terminator.
func (d Dialect) FormatRecord(fields []string) string {
	var b strings.Builder
	quote := string(d.Quote)
	for i, f := range fields {
		if i > 0 {
			b.WriteRune(d.Delimiter)
		}
		// A lone empty field must be quoted, or the record reads back as a blank line.
		if d.needsQuote(f) || (len(fields) == 1 && f == "") {
			b.WriteString(quote)
			b.WriteString(strings.ReplaceAll(f, quote, quote+quote))
			b.WriteString(quote)
			continue
		}
		b.WriteString(f)
	}
	terminator := d.LineTerminator
	if terminator == "" {
		terminator = "\n"
	}
	b.WriteString(terminator)
	return b.String()
}
