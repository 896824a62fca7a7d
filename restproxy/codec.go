package restproxy

import (
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"mime"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/gaborage/go-bricks-sdk/jsondom"
)

// Media types understood by the built-in codecs
const (
	MediaTypeJSON   = "application/json"
	MediaTypeXML    = "application/xml"
	MediaTypeYAML   = "application/yaml"
	MediaTypeText   = "text/plain"
	MediaTypeBinary = "application/octet-stream"
)

// Codec serializes request bodies and deserializes response bodies.
type Codec interface {
	Encode(v any) ([]byte, error)
	Decode(data []byte, v any) error
}

var (
	jsonBodyCodec   Codec = jsonCodec{}
	xmlBodyCodec    Codec = xmlCodec{}
	yamlBodyCodec   Codec = yamlCodec{}
	textBodyCodec   Codec = textCodec{}
	binaryBodyCodec Codec = binaryCodec{}
)

// CodecFor returns the codec for a Content-Type value. Parameters such as
// charset are ignored; unknown types fall back to JSON.
func CodecFor(contentType string) Codec {
	mediaType := strings.ToLower(strings.TrimSpace(contentType))
	if parsed, _, err := mime.ParseMediaType(contentType); err == nil {
		mediaType = parsed
	}

	switch {
	case mediaType == "" || mediaType == MediaTypeJSON || strings.HasSuffix(mediaType, "+json"):
		return jsonBodyCodec
	case mediaType == MediaTypeXML || mediaType == "text/xml" || strings.HasSuffix(mediaType, "+xml"):
		return xmlBodyCodec
	case mediaType == MediaTypeYAML || mediaType == "application/x-yaml" || mediaType == "text/yaml" ||
		strings.HasSuffix(mediaType, "+yaml"):
		return yamlBodyCodec
	case strings.HasPrefix(mediaType, "text/"):
		return textBodyCodec
	case mediaType == MediaTypeBinary:
		return binaryBodyCodec
	default:
		return jsonBodyCodec
	}
}

type jsonCodec struct{}

func (jsonCodec) Encode(v any) ([]byte, error) {
	switch x := v.(type) {
	case jsondom.Node:
		return jsondom.Marshal(x)
	case json.RawMessage:
		return x, nil
	}
	return json.Marshal(v)
}

func (jsonCodec) Decode(data []byte, v any) error {
	if target, ok := v.(*jsondom.Node); ok {
		n, err := jsondom.Parse(data)
		if err != nil {
			return err
		}
		*target = n
		return nil
	}
	return json.Unmarshal(data, v)
}

type xmlCodec struct{}

func (xmlCodec) Encode(v any) ([]byte, error) {
	return xml.Marshal(v)
}

func (xmlCodec) Decode(data []byte, v any) error {
	return xml.Unmarshal(data, v)
}

type yamlCodec struct{}

func (yamlCodec) Encode(v any) ([]byte, error) {
	return yaml.Marshal(v)
}

func (yamlCodec) Decode(data []byte, v any) error {
	return yaml.Unmarshal(data, v)
}

type textCodec struct{}

func (textCodec) Encode(v any) ([]byte, error) {
	switch x := v.(type) {
	case string:
		return []byte(x), nil
	case []byte:
		return x, nil
	case io.Reader:
		return io.ReadAll(x)
	case fmt.Stringer:
		return []byte(x.String()), nil
	}
	return []byte(fmt.Sprint(v)), nil
}

func (textCodec) Decode(data []byte, v any) error {
	return decodeRaw(data, v, "text/plain")
}

type binaryCodec struct{}

func (binaryCodec) Encode(v any) ([]byte, error) {
	switch x := v.(type) {
	case []byte:
		return x, nil
	case string:
		return []byte(x), nil
	case io.Reader:
		return io.ReadAll(x)
	}
	return nil, fmt.Errorf("restproxy: %T cannot be sent as %s", v, MediaTypeBinary)
}

func (binaryCodec) Decode(data []byte, v any) error {
	return decodeRaw(data, v, MediaTypeBinary)
}

var errUnsupportedTarget = errors.New("restproxy: unsupported decode target")

func decodeRaw(data []byte, v any, mediaType string) error {
	switch target := v.(type) {
	case *[]byte:
		*target = append((*target)[:0], data...)
	case *string:
		*target = string(data)
	case *any:
		*target = string(data)
	default:
		return fmt.Errorf("%w: %T for %s", errUnsupportedTarget, v, mediaType)
	}
	return nil
}

// decodeInto decodes data into v, choosing the codec by content type. Raw
// targets receive the bytes untouched whatever the content type.
func decodeInto(data []byte, contentType string, v any) error {
	switch target := v.(type) {
	case *[]byte:
		*target = data
		return nil
	case *string:
		if codec := CodecFor(contentType); codec == textBodyCodec || codec == binaryBodyCodec {
			*target = string(data)
			return nil
		}
	}
	if len(data) == 0 {
		return nil
	}
	return CodecFor(contentType).Decode(data, v)
}
