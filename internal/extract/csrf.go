package extract

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rohmanhakim/opendata-harvester/internal/metadata"
	"github.com/rohmanhakim/opendata-harvester/pkg/failure"
	"golang.org/x/net/html"
)

// CSRFTokenExtractor reads the token of a <meta name="csrf-token" content="...">
// element. Only the first matching element counts.
type CSRFTokenExtractor struct {
	metadataSink metadata.MetadataSink
	metaName     string
}

func NewCSRFTokenExtractor(metadataSink metadata.MetadataSink) CSRFTokenExtractor {
	return CSRFTokenExtractor{
		metadataSink: metadataSink,
		metaName:     "csrf-token",
	}
}

func (c *CSRFTokenExtractor) Extract(htmlByte []byte) (string, failure.ClassifiedError) {
	token, err := c.extract(htmlByte)
	if err != nil {
		recordExtractionError(c.metadataSink, "CSRFTokenExtractor.Extract", err, nil)
		return "", err
	}
	return token, nil
}

func (c *CSRFTokenExtractor) extract(htmlByte []byte) (string, *ExtractionError) {
	tokenizer := html.NewTokenizer(bytes.NewReader(htmlByte))
	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			if errors.Is(tokenizer.Err(), io.EOF) {
				return "", &ExtractionError{
					Message: fmt.Sprintf("no <meta name=%q> element", c.metaName),
					Cause:   ErrCauseNoMatch,
				}
			}
			return "", &ExtractionError{
				Message: tokenizer.Err().Error(),
				Cause:   ErrCauseParseFailed,
			}
		case html.StartTagToken, html.SelfClosingTagToken:
			token := tokenizer.Token()
			if token.Data != "meta" {
				continue
			}
			if content, ok := c.tokenFromMeta(token); ok {
				return content, nil
			}
		}
	}
}

func (c *CSRFTokenExtractor) tokenFromMeta(token html.Token) (string, bool) {
	var name, content string
	hasContent := false
	for _, attr := range token.Attr {
		switch strings.ToLower(attr.Key) {
		case "name":
			name = attr.Val
		case "content":
			content = attr.Val
			hasContent = true
		}
	}
	if !strings.EqualFold(name, c.metaName) || !hasContent || content == "" {
		return "", false
	}
	return content, true
}
