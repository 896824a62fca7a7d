package restproxy

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaborage/go-bricks-sdk/httpclient"
	"github.com/gaborage/go-bricks-sdk/jsondom"
)

type item struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

type itemParams struct {
	ID string `param:"id"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type itemHeaders struct {
	ETag         string            `header:"ETag"`
	RequestCount int               `header:"x-request-count"`
	LastModified time.Time         `header:"Last-Modified"`
	RetryAfter   time.Duration     `header:"Retry-After"`
	Links        []string          `header:"Link"`
	Meta         map[string]string `header:"x-meta-,prefix"`
	Missing      *string           `header:"x-missing"`
}

var (
	getItem    = Operation{Name: "GetItem", Method: http.MethodGet, Path: "/items/{id}", Return: ReturnValue}
	headItem   = Operation{Name: "HeadItem", Method: http.MethodHead, Path: "/items/{id}", Return: ReturnExists}
	deleteItem = Operation{Name: "DeleteItem", Method: http.MethodDelete, Path: "/items/{id}", Expected: []int{204}, Return: ReturnVoid}
)

func newItemService(t *testing.T) *Proxy {
	t.Helper()
	e := echo.New()
	e.HideBanner = true

	e.GET("/items/:id", func(c echo.Context) error {
		switch c.Param("id") {
		case "missing":
			return c.JSON(http.StatusNotFound, apiError{Code: "NotFound", Message: "no such item"})
		case "yaml":
			return c.Blob(http.StatusOK, "application/yaml", []byte("id: yaml\nname: from yaml\n"))
		case "text":
			return c.String(http.StatusOK, "plain body")
		}
		c.Response().Header().Set("ETag", `"v1"`)
		c.Response().Header().Set("x-request-count", "7")
		c.Response().Header().Set("Last-Modified", "Tue, 02 Jan 2024 03:04:05 GMT")
		c.Response().Header().Set("Retry-After", "3")
		c.Response().Header().Add("Link", "<a>, <b>")
		c.Response().Header().Set("x-meta-Owner", "team-a")
		return c.JSON(http.StatusOK, item{ID: c.Param("id"), Name: "widget"})
	})
	e.HEAD("/items/:id", func(c echo.Context) error {
		switch c.Param("id") {
		case "missing":
			return c.NoContent(http.StatusNotFound)
		case "broken":
			return c.NoContent(http.StatusInternalServerError)
		}
		return c.NoContent(http.StatusOK)
	})
	e.DELETE("/items/:id", func(c echo.Context) error {
		if c.Param("id") == "locked" {
			return c.JSON(http.StatusConflict, apiError{Code: "Locked", Message: "item is locked"})
		}
		return c.NoContent(http.StatusNoContent)
	})

	return newEchoProxy(t, e)
}

func TestInvokeDecodesValue(t *testing.T) {
	p := newItemService(t)

	got, err := Invoke[item](context.Background(), p, getItem, itemParams{ID: "42"})
	require.NoError(t, err)
	assert.Equal(t, item{ID: "42", Name: "widget"}, got)

	fromYAML, err := Invoke[item](context.Background(), p, getItem, itemParams{ID: "yaml"})
	require.NoError(t, err)
	assert.Equal(t, "from yaml", fromYAML.Name)

	text, err := Invoke[string](context.Background(), p, getItem, itemParams{ID: "text"})
	require.NoError(t, err)
	assert.Equal(t, "plain body", text)
}

func TestInvokeDecodesIntoJSONDOM(t *testing.T) {
	p := newItemService(t)

	node, err := Invoke[jsondom.Node](context.Background(), p, getItem, itemParams{ID: "7"})
	require.NoError(t, err)

	obj, ok := node.(*jsondom.Object)
	require.True(t, ok)
	assert.Equal(t, []string{"id", "name"}, obj.Keys())
}

func TestInvokeResponseBuffersBody(t *testing.T) {
	p := newItemService(t)

	resp, err := InvokeResponse[item](context.Background(), p, getItem, itemParams{ID: "1"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `"v1"`, resp.Header.Get("ETag"))
	assert.Equal(t, "1", resp.Value.ID)
	assert.JSONEq(t, `{"id":"1","name":"widget"}`, string(resp.Raw))
	assert.Equal(t, "/items/1", resp.Request.URL.Path)
}

func TestInvokeWithHeadersDecodesHeaders(t *testing.T) {
	p := newItemService(t)

	resp, err := InvokeWithHeaders[itemHeaders, item](context.Background(), p, getItem, itemParams{ID: "9"})
	require.NoError(t, err)

	h := resp.Headers
	assert.Equal(t, `"v1"`, h.ETag)
	assert.Equal(t, 7, h.RequestCount)
	assert.Equal(t, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), h.LastModified)
	assert.Equal(t, 3*time.Second, h.RetryAfter)
	assert.Equal(t, []string{"<a>", "<b>"}, h.Links)
	assert.Equal(t, map[string]string{"owner": "team-a"}, h.Meta)
	assert.Nil(t, h.Missing)
	assert.Equal(t, "9", resp.Value.ID)
}

func TestUnexpectedStatusCarriesDecodableBody(t *testing.T) {
	p := newItemService(t)

	_, err := Invoke[item](context.Background(), p, getItem, itemParams{ID: "missing"})
	require.Error(t, err)
	assert.True(t, httpclient.IsHTTPStatusError(err, http.StatusNotFound))

	var apiErr apiError
	require.NoError(t, DecodeError(err, &apiErr))
	assert.Equal(t, "NotFound", apiErr.Code)

	err = InvokeVoid(context.Background(), p, deleteItem, itemParams{ID: "locked"})
	require.Error(t, err)
	require.NoError(t, DecodeError(err, &apiErr))
	assert.Equal(t, "Locked", apiErr.Code)

	assert.Error(t, DecodeError(errors.New("plain"), &apiErr))
}

func TestInvokeVoidAndExists(t *testing.T) {
	p := newItemService(t)
	ctx := context.Background()

	require.NoError(t, InvokeVoid(ctx, p, deleteItem, itemParams{ID: "1"}))

	found, err := Exists(ctx, p, headItem, itemParams{ID: "1"})
	require.NoError(t, err)
	assert.True(t, found)

	found, err = Exists(ctx, p, headItem, itemParams{ID: "missing"})
	require.NoError(t, err)
	assert.False(t, found)

	_, err = Exists(ctx, p, headItem, itemParams{ID: "broken"})
	assert.True(t, httpclient.IsHTTPStatusError(err, http.StatusInternalServerError))

	ok, err := Invoke[bool](ctx, p, headItem, itemParams{ID: "1"})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestInvokeVoidDrainsAndClosesOnce(t *testing.T) {
	body := newTrackedBody("ignored payload")
	sender := &recordingSender{body: body}
	p := newTestProxy(t, sender)

	require.NoError(t, InvokeVoid(context.Background(), p, Operation{Method: http.MethodPost, Path: "/jobs"}, nil))

	assert.Positive(t, body.reads.Load())
	assert.Equal(t, int32(1), body.closes.Load())
	n, _ := body.Reader.Read(make([]byte, 1))
	assert.Zero(t, n, "body must be fully drained")
}

func TestHeadNeverReadsBody(t *testing.T) {
	op := Operation{Method: http.MethodHead, Path: "/blob"}

	for name, call := range map[string]func(*Proxy) error{
		"void":   func(p *Proxy) error { return InvokeVoid(context.Background(), p, op, nil) },
		"value":  func(p *Proxy) error { _, err := Invoke[item](context.Background(), p, op, nil); return err },
		"exists": func(p *Proxy) error { _, err := Exists(context.Background(), p, op, nil); return err },
	} {
		t.Run(name, func(t *testing.T) {
			body := newTrackedBody("should never be read")
			p := newTestProxy(t, &recordingSender{body: body})

			require.NoError(t, call(p))
			assert.Zero(t, body.reads.Load())
			assert.Equal(t, int32(1), body.closes.Load())
		})
	}
}

func TestInvokeStreamLeavesBodyUnread(t *testing.T) {
	body := newTrackedBody("chunked data")
	p := newTestProxy(t, &recordingSender{body: body, header: http.Header{"Content-Type": {MediaTypeBinary}}})

	resp, err := InvokeStream(context.Background(), p, Operation{Method: http.MethodGet, Path: "/download"}, nil)
	require.NoError(t, err)
	assert.Zero(t, body.reads.Load())
	assert.Zero(t, body.closes.Load())

	data, err := resp.Bytes()
	require.NoError(t, err)
	assert.Equal(t, "chunked data", string(data))
	assert.Equal(t, int32(1), body.closes.Load())
}

func TestInvokeStreamUnexpectedStatus(t *testing.T) {
	body := newTrackedBody(`{"code":"Gone"}`)
	p := newTestProxy(t, &recordingSender{status: http.StatusGone, body: body})

	resp, err := InvokeStream(context.Background(), p, Operation{Method: http.MethodGet, Path: "/download"}, nil)
	assert.Nil(t, resp)
	assert.True(t, httpclient.IsHTTPStatusError(err, http.StatusGone))
	assert.Equal(t, int32(1), body.closes.Load())
}

func TestRegistryRecordsInvokedOperations(t *testing.T) {
	registry := &Registry{}
	sender := &recordingSender{}
	p, err := New(sender, testEndpoint, WithRegistry(registry))
	require.NoError(t, err)

	op := Operation{Name: "ListItems", Method: http.MethodGet, Path: "/items", Tags: []string{"items"}}
	require.NoError(t, InvokeVoid(context.Background(), p, op, nil))
	require.NoError(t, InvokeVoid(context.Background(), p, op, nil))

	assert.Equal(t, 1, registry.Count())
	assert.Len(t, registry.ByTag("items"), 1)
}
