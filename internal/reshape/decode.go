package reshape

import (
	"fmt"
	"unicode/utf8"

	"github.com/rohmanhakim/opendata-harvester/pkg/failure"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

type Charset string

const (
	CharsetUTF8    Charset = "utf-8"
	CharsetUTF8BOM Charset = "utf-8-sig"
	CharsetLatin1  Charset = "latin-1"
)

// Decode converts raw file content to UTF-8.
//
// UTF-8 input must be valid; a leading byte order mark is dropped for both
// UTF-8 charsets. Latin-1 cannot fail since every byte is a code point.
// Failures are recoverable: the caller skips this file and moves on.
func Decode(raw []byte, charset Charset) ([]byte, failure.ClassifiedError) {
	switch charset {
	case CharsetUTF8, CharsetUTF8BOM:
		if !utf8.Valid(raw) {
			return nil, newDecodeError(fmt.Sprintf("input is not valid %s", charset))
		}
		out, _, err := transform.Bytes(unicode.UTF8BOM.NewDecoder(), raw)
		if err != nil {
			return nil, newDecodeError(err.Error())
		}
		return out, nil
	case CharsetLatin1:
		out, _, err := transform.Bytes(charmap.ISO8859_1.NewDecoder(), raw)
		if err != nil {
			return nil, newDecodeError(err.Error())
		}
		return out, nil
	default:
		return nil, &ReshapeError{
			Message: fmt.Sprintf("unsupported charset %q", charset),
			Cause:   ErrCauseInvalidRule,
		}
	}
}
