package reshape_test

import (
	"errors"
	"testing"

	"github.com/rohmanhakim/opendata-harvester/internal/reshape"
	"github.com/rohmanhakim/opendata-harvester/pkg/failure"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		raw     []byte
		charset reshape.Charset
		want    string
	}{
		{"utf-8", []byte("Münster"), reshape.CharsetUTF8, "Münster"},
		{"utf-8-sig strips bom", append([]byte{0xEF, 0xBB, 0xBF}, []byte("RAUM")...), reshape.CharsetUTF8BOM, "RAUM"},
		{"utf-8-sig without bom", []byte("RAUM"), reshape.CharsetUTF8BOM, "RAUM"},
		{"latin-1", []byte{'M', 0xFC, 'n', 's', 't', 'e', 'r'}, reshape.CharsetLatin1, "Münster"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := reshape.Decode(tt.raw, tt.charset)
			require.Nil(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestDecode_InvalidUTF8IsRecoverable(t *testing.T) {
	_, err := reshape.Decode([]byte{'M', 0xFC, 'n'}, reshape.CharsetUTF8)
	require.NotNil(t, err)
	assert.Equal(t, failure.SeverityRecoverable, err.Severity())
	assert.False(t, failure.IsFatal(err))

	var reshapeErr *reshape.ReshapeError
	require.True(t, errors.As(err, &reshapeErr))
	assert.Equal(t, reshape.ErrCauseDecodeFailed, reshapeErr.Cause)
}
