package reshape_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/rohmanhakim/opendata-harvester/internal/metadata"
	"github.com/rohmanhakim/opendata-harvester/internal/reshape"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readAll(t *testing.T, sink metadata.MetadataSink, input string) ([]reshape.DelimitedRow, error) {
	t.Helper()
	reader := reshape.NewRowReader(sink, strings.NewReader(input), reshape.Semicolon)
	_, err := reader.ReadHeader()
	require.Nil(t, err)

	var rows []reshape.DelimitedRow
	for {
		row, ok, err := reader.Next()
		if err != nil {
			return rows, err
		}
		if !ok {
			return rows, nil
		}
		rows = append(rows, row)
	}
}

func TestRowReader_SplitRowIsRepaired(t *testing.T) {
	sink := &recordingSink{}
	input := klimaHeader + "\n" +
		`"Münster";"IT.NRW";"15";"Münster gesamt` + "\n" +
		` Text";"2020";"5";"Anzahl"` + "\n" +
		`"Münster";"IT.NRW";"8";"Stadtradeln km";"2021";"100";"km"` + "\n"

	rows, err := readAll(t, sink, input)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, []string{"Münster", "IT.NRW", "15", "Münster gesamt Text", "2020", "5", "Anzahl"}, rows[0].Fields())
	assert.Equal(t, 2, rows[0].Line())
	assert.Equal(t, 4, rows[1].Line())

	require.Len(t, sink.repairs, 1)
	assert.Equal(t, 2, sink.repairs[0].line)
	assert.Len(t, sink.repairs[0].before, 4)
	assert.Len(t, sink.repairs[0].after, 7)
}

func TestRowReader_UnquotedSplitConcatenatesFields(t *testing.T) {
	input := "a;b;c\n" +
		"1;2\n" +
		"x;3\n"

	rows, err := readAll(t, &recordingSink{}, input)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"1", "2x", "3"}, rows[0].Fields())
}

func TestRowReader_StillShortAfterMergeIsFatal(t *testing.T) {
	input := "a;b;c;d\n" +
		"1\n" +
		"2\n"

	_, err := readAll(t, &recordingSink{}, input)
	require.Error(t, err)

	var reshapeErr *reshape.ReshapeError
	require.True(t, errors.As(err, &reshapeErr))
	assert.Equal(t, reshape.ErrCauseUnrepairableRow, reshapeErr.Cause)
	assert.Equal(t, 2, reshapeErr.Line)
}

func TestRowReader_ShortLastRowIsFatal(t *testing.T) {
	_, err := readAll(t, &recordingSink{}, "a;b;c\n1;2\n")

	var reshapeErr *reshape.ReshapeError
	require.True(t, errors.As(err, &reshapeErr))
	assert.Equal(t, reshape.ErrCauseUnrepairableRow, reshapeErr.Cause)
}

func TestRowReader_LongRowIsFatal(t *testing.T) {
	_, err := readAll(t, &recordingSink{}, "a;b\n1;2;3\n")

	var reshapeErr *reshape.ReshapeError
	require.True(t, errors.As(err, &reshapeErr))
	assert.Equal(t, reshape.ErrCauseUnrepairableRow, reshapeErr.Cause)
}

func TestRowReader_CRLFAndBlankLines(t *testing.T) {
	rows, err := readAll(t, &recordingSink{}, "a;b\r\n1;2\r\n\r\n3;4\r\n")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"3", "4"}, rows[1].Fields())
	assert.Equal(t, 4, rows[1].Line())
}

func TestRowReader_SkipPreamble(t *testing.T) {
	input := "Ladesäulenregister\nStand 2024\n\n" + "a;b\n1;2\n"
	reader := reshape.NewRowReader(&metadata.NoopSink{}, strings.NewReader(input), reshape.Semicolon)

	require.Nil(t, reader.Skip(3))
	header, err := reader.ReadHeader()
	require.Nil(t, err)
	assert.Equal(t, []string{"a", "b"}, header.Names())
}

func TestRowReader_SkipPastEnd(t *testing.T) {
	reader := reshape.NewRowReader(&metadata.NoopSink{}, strings.NewReader("only\n"), reshape.Semicolon)

	err := reader.Skip(10)
	require.NotNil(t, err)
	var reshapeErr *reshape.ReshapeError
	require.True(t, errors.As(err, &reshapeErr))
	assert.Equal(t, reshape.ErrCauseMissingHeader, reshapeErr.Cause)
}

func TestRowReader_NextBeforeHeader(t *testing.T) {
	reader := reshape.NewRowReader(&metadata.NoopSink{}, strings.NewReader("a;b\n"), reshape.Semicolon)

	_, ok, err := reader.Next()
	assert.False(t, ok)
	require.NotNil(t, err)
}

func TestRowReader_EmptyInput(t *testing.T) {
	reader := reshape.NewRowReader(&metadata.NoopSink{}, strings.NewReader(""), reshape.Semicolon)

	_, err := reader.ReadHeader()
	require.NotNil(t, err)
}
