package jsondom

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadArrayAdvancesWhenNotPositioned(t *testing.T) {
	r := NewReader(strings.NewReader(`  [1, "two", [3], {"four": 4}]`))
	assert.False(t, r.Positioned())

	a, err := ReadArray(r)
	require.NoError(t, err)
	assert.Equal(t, 4, a.Len())
	assert.Equal(t, json.Delim(']'), r.Current())
}

func TestReadArrayFromPositionedReader(t *testing.T) {
	r := NewReader(strings.NewReader(`{"items": [true, false]}`))

	_, err := r.Next() // {
	require.NoError(t, err)
	tok, err := r.Next() // "items"
	require.NoError(t, err)
	require.Equal(t, "items", tok)
	_, err = r.Next() // [
	require.NoError(t, err)

	a, err := ReadArray(r)
	require.NoError(t, err)
	assert.Equal(t, 2, a.Len())
}

func TestReadMismatchedStartToken(t *testing.T) {
	tests := []struct {
		name  string
		input string
		read  func(*Reader) error
		found string
	}{
		{"array from object", `{"a":1}`, func(r *Reader) error { _, err := ReadArray(r); return err }, "start of object"},
		{"object from array", `[1]`, func(r *Reader) error { _, err := ReadObject(r); return err }, "start of array"},
		{"array from string", `"x"`, func(r *Reader) error { _, err := ReadArray(r); return err }, "string"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.read(NewReader(strings.NewReader(tt.input)))

			var structural *StructuralError
			require.True(t, errors.As(err, &structural))
			assert.Equal(t, tt.found, structural.Found)
			assert.Contains(t, structural.Expected, "start of")
		})
	}
}

func TestParseMalformed(t *testing.T) {
	inputs := []string{
		``,
		`   `,
		`[1,`,
		`[1,]`,
		`{"a" 1}`,
		`{"a":}`,
		`tru`,
		`[1] 2`,
		`{} {}`,
	}
	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			n, err := Parse([]byte(input))
			assert.Nil(t, n)

			var structural *StructuralError
			assert.True(t, errors.As(err, &structural), "got %v", err)
		})
	}
}

func TestParseTruncatedReportsUnexpectedEOF(t *testing.T) {
	_, err := Parse([]byte(`{"a":[1,2`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, io.ErrUnexpectedEOF))
}

func TestDecodeNested(t *testing.T) {
	input := `{"name":"vault","tags":["a","b"],"size":1.50,"owner":null,"enabled":true}`

	n, err := Decode(bytes.NewBufferString(input))
	require.NoError(t, err)
	o := n.(*Object)
	assert.Equal(t, []string{"name", "tags", "size", "owner", "enabled"}, o.Keys())

	data, err := Marshal(o)
	require.NoError(t, err)
	assert.Equal(t, input, string(data))
}

func TestReaderNextEOF(t *testing.T) {
	r := NewReader(strings.NewReader(`1`))
	tok, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, json.Number("1"), tok)

	_, err = r.Next()
	assert.Equal(t, io.EOF, err)
}
