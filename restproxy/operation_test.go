package restproxy

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryOperations(t *testing.T) {
	registry := &Registry{}

	get := Operation{Name: "GetItem", Method: http.MethodGet, Path: "/items/{id}", Tags: []string{"items"}}
	put := Operation{Name: "PutItem", Method: http.MethodPut, Path: "/items/{id}", Expected: []int{200, 201}}
	registry.Register(get)
	registry.Register(put)

	assert.Equal(t, 2, registry.Count())
	assert.Len(t, registry.ByMethod("get"), 1)
	assert.Len(t, registry.ByTag("items"), 1)

	found, ok := registry.ByName("PutItem")
	require.True(t, ok)
	assert.Equal(t, []int{200, 201}, found.Expected)

	found.Expected[0] = 500
	again, _ := registry.ByName("PutItem")
	assert.Equal(t, 200, again.Expected[0], "registry must hand out copies")

	_, ok = registry.ByName("Nope")
	assert.False(t, ok)

	registry.Clear()
	assert.Zero(t, registry.Count())
}

func TestDefineRegistersInDefaultRegistry(t *testing.T) {
	DefaultRegistry.Clear()
	t.Cleanup(DefaultRegistry.Clear)

	op := Define(Operation{Name: "Ping", Method: http.MethodGet, Path: "/ping"})
	assert.Equal(t, "Ping", op.Name)
	assert.Equal(t, 1, DefaultRegistry.Count())
}

func TestOperationValidate(t *testing.T) {
	assert.Error(t, (&Operation{Path: "/x"}).Validate())
	assert.Error(t, (&Operation{Method: "GET", Path: "/x/{id"}).Validate())
	assert.Error(t, (&Operation{Method: "GET", Host: "{host", Path: "/x"}).Validate())
	assert.NoError(t, (&Operation{Method: "GET", Path: "/x/{id}"}).Validate())
}

func TestOperationExpects(t *testing.T) {
	op := Operation{}
	assert.True(t, op.expects(204))
	assert.False(t, op.expects(304))

	op.Expected = []int{200, 404}
	assert.True(t, op.expects(404))
	assert.False(t, op.expects(201))
}

func TestReturnKindString(t *testing.T) {
	assert.Equal(t, "stream", ReturnStream.String())
	assert.Equal(t, "ReturnKind(99)", ReturnKind(99).String())
}

func TestCodecFor(t *testing.T) {
	assert.Equal(t, jsonBodyCodec, CodecFor(""))
	assert.Equal(t, jsonBodyCodec, CodecFor("application/problem+json; charset=utf-8"))
	assert.Equal(t, xmlBodyCodec, CodecFor("text/xml"))
	assert.Equal(t, yamlBodyCodec, CodecFor("application/x-yaml"))
	assert.Equal(t, textBodyCodec, CodecFor("text/csv"))
	assert.Equal(t, binaryBodyCodec, CodecFor(MediaTypeBinary))
	assert.Equal(t, jsonBodyCodec, CodecFor("application/unknown"))
}

func TestOperationReturnIsAdvisory(t *testing.T) {
	sender := &recordingSender{status: http.StatusOK, body: io.NopCloser(strings.NewReader(`{"id":"1"}`))}
	p, err := New(sender, testEndpoint)
	require.NoError(t, err)

	op := Operation{Name: "GetRaw", Method: http.MethodGet, Path: "/raw", Return: ReturnValue}
	resp, err := InvokeStream(context.Background(), p, op, nil)
	require.NoError(t, err)
	defer resp.Close()

	data, err := resp.Bytes()
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"1"}`, string(data))
}
