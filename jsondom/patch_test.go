package jsondom

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, s string) Node {
	t.Helper()
	n, err := Parse([]byte(s))
	require.NoError(t, err)
	return n
}

func mustMarshal(t *testing.T, n Node) string {
	t.Helper()
	data, err := Marshal(n)
	require.NoError(t, err)
	return string(data)
}

func TestPatchApply(t *testing.T) {
	tests := []struct {
		name  string
		doc   string
		patch *PatchDocument
		want  string
	}{
		{
			name:  "add member",
			doc:   `{"a":1}`,
			patch: NewPatch().Add("/b", NewString("x")),
			want:  `{"a":1,"b":"x"}`,
		},
		{
			name:  "add appends with dash",
			doc:   `{"list":[1,2]}`,
			patch: NewPatch().Add("/list/-", NewNumber(3)),
			want:  `{"list":[1,2,3]}`,
		},
		{
			name:  "add inserts into array",
			doc:   `[1,3]`,
			patch: NewPatch().Add("/1", NewNumber(2)),
			want:  `[1,2,3]`,
		},
		{
			name:  "remove",
			doc:   `{"a":1,"b":[1,2]}`,
			patch: NewPatch().Remove("/a").Remove("/b/0"),
			want:  `{"b":[2]}`,
		},
		{
			name:  "replace root",
			doc:   `{"a":1}`,
			patch: NewPatch().Replace("", NewArray()),
			want:  `[]`,
		},
		{
			name:  "replace nested",
			doc:   `{"a":{"b":[0]}}`,
			patch: NewPatch().Replace("/a/b/0", NewBool(true)),
			want:  `{"a":{"b":[true]}}`,
		},
		{
			name:  "move",
			doc:   `{"from":{"x":1},"to":{}}`,
			patch: NewPatch().Move("/from/x", "/to/y"),
			want:  `{"from":{},"to":{"y":1}}`,
		},
		{
			name:  "copy",
			doc:   `{"a":[1]}`,
			patch: NewPatch().Copy("/a", "/b"),
			want:  `{"a":[1],"b":[1]}`,
		},
		{
			name:  "test passes",
			doc:   `{"n":1.0}`,
			patch: NewPatch().Test("/n", NewNumber(1)),
			want:  `{"n":1.0}`,
		},
		{
			name:  "escaped pointer",
			doc:   `{"a/b":{"m~n":1}}`,
			patch: NewPatch().Replace("/a~1b/m~0n", NewNumber(2)),
			want:  `{"a/b":{"m~n":2}}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := mustParse(t, tt.doc)
			out, err := tt.patch.Apply(doc)
			require.NoError(t, err)
			assert.Equal(t, tt.want, mustMarshal(t, out))
			assert.Equal(t, tt.doc, mustMarshal(t, doc), "input must not change")
		})
	}
}

func TestPatchFailures(t *testing.T) {
	tests := []struct {
		name   string
		patch  *PatchDocument
		target error
	}{
		{"missing member", NewPatch().Remove("/missing"), ErrPathNotFound},
		{"missing parent", NewPatch().Add("/x/y", Null()), ErrPathNotFound},
		{"test mismatch", NewPatch().Test("/a", NewNumber(2)), ErrTestFailed},
		{"bad pointer", NewPatch().Add("a", Null()), ErrInvalidPointer},
		{"array index", NewPatch().Replace("/list/5", Null()), ErrIndexOutOfRange},
		{"leading zero index", NewPatch().Remove("/list/01"), ErrInvalidPointer},
		{"move into child", NewPatch().Move("/list", "/list/0"), ErrInvalidOperation},
		{"dash outside add", NewPatch().Remove("/list/-"), ErrPathNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.patch.Apply(mustParse(t, `{"a":1,"list":[1]}`))
			require.Error(t, err)

			var patchErr *PatchError
			require.True(t, errors.As(err, &patchErr))
			assert.Equal(t, 0, patchErr.Index)
			assert.True(t, errors.Is(err, tt.target), "got %v", err)
		})
	}
}

func TestPatchStopsAtFirstFailure(t *testing.T) {
	doc := mustParse(t, `{"a":1}`)
	_, err := NewPatch().Add("/b", Null()).Remove("/nope").Apply(doc)

	var patchErr *PatchError
	require.True(t, errors.As(err, &patchErr))
	assert.Equal(t, 1, patchErr.Index)
	assert.Equal(t, OpRemove, patchErr.Op)
	assert.Equal(t, `{"a":1}`, mustMarshal(t, doc))
}

func TestPatchSerialization(t *testing.T) {
	patch := NewPatch().
		Add("/a", NewNumber(1)).
		Remove("/b").
		Move("/c", "/d").
		Test("/e", Null())

	data, err := patch.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t,
		`[{"op":"add","path":"/a","value":1},{"op":"remove","path":"/b"},{"op":"move","path":"/d","from":"/c"},{"op":"test","path":"/e","value":null}]`,
		string(data))

	parsed, err := ParsePatch(data)
	require.NoError(t, err)
	ops := parsed.Operations()
	require.Len(t, ops, 4)
	assert.Equal(t, OpMove, ops[2].Op)
	assert.Equal(t, "/c", ops[2].From)
	assert.True(t, IsNull(ops[3].Value))
}

func TestParsePatchRejectsInvalid(t *testing.T) {
	_, err := ParsePatch([]byte(`[{"op":"frobnicate","path":"/a"}]`))
	assert.True(t, errors.Is(err, ErrInvalidOperation))

	_, err = ParsePatch([]byte(`[{"op":"add","path":"/a"}]`))
	assert.True(t, errors.Is(err, ErrInvalidOperation))

	_, err = ParsePatch([]byte(`{"op":"add"}`))
	var structural *StructuralError
	assert.True(t, errors.As(err, &structural))
}

func TestPointerRoundTrip(t *testing.T) {
	p, err := ParsePointer("/a~1b/~0/0")
	require.NoError(t, err)
	assert.Equal(t, Pointer{"a/b", "~", "0"}, p)
	assert.Equal(t, "/a~1b/~0/0", p.String())

	_, err = ParsePointer("/bad~2")
	assert.True(t, errors.Is(err, ErrInvalidPointer))

	doc := mustParse(t, `{"a":[{"b":"hit"}]}`)
	n, err := Get(doc, "/a/0/b")
	require.NoError(t, err)
	assert.Equal(t, "hit", n.(*String).Value())

	root, err := Get(doc, "")
	require.NoError(t, err)
	assert.Same(t, doc, root)
}
