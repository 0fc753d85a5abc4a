package extract_test

import (
	"errors"
	"testing"

	"github.com/rohmanhakim/opendata-harvester/internal/extract"
	"github.com/rohmanhakim/opendata-harvester/internal/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSRFTokenExtractor_Extract(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{
			name: "meta in head",
			html: `<html><head><meta charset="utf-8"><meta name="csrf-token" content="abc123"></head><body></body></html>`,
			want: "abc123",
		},
		{
			name: "self closing with attributes reversed",
			html: `<head><meta content="tok-2" name="csrf-token" /></head>`,
			want: "tok-2",
		},
		{
			name: "first match wins",
			html: `<meta name="csrf-token" content="first"><meta name="csrf-token" content="second">`,
			want: "first",
		},
		{
			name: "upper case attribute value",
			html: `<META NAME="CSRF-TOKEN" CONTENT="x">`,
			want: "x",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ext := extract.NewCSRFTokenExtractor(&metadata.NoopSink{})
			got, err := ext.Extract([]byte(tt.html))
			require.Nil(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCSRFTokenExtractor_Missing(t *testing.T) {
	sink := &mockMetadataSink{}
	ext := extract.NewCSRFTokenExtractor(sink)

	_, err := ext.Extract([]byte(`<html><head><meta name="viewport" content="w"></head></html>`))
	require.NotNil(t, err)

	var extractionErr *extract.ExtractionError
	require.True(t, errors.As(err, &extractionErr))
	assert.Equal(t, extract.ErrCauseNoMatch, extractionErr.Cause)

	require.Len(t, sink.errors, 1)
	assert.Equal(t, "extract", sink.errors[0].PackageName)
	assert.Equal(t, metadata.CauseSchemaDrift, sink.errors[0].Cause)
}

func TestCSRFTokenExtractor_EmptyContentIgnored(t *testing.T) {
	ext := extract.NewCSRFTokenExtractor(&metadata.NoopSink{})
	_, err := ext.Extract([]byte(`<meta name="csrf-token" content="">`))
	assert.NotNil(t, err)
}
