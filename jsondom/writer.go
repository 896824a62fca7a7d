package jsondom

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// Marshal writes n as compact JSON. Object keys keep their order and number
// literals are written as stored.
func Marshal(n Node) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeNode(&buf, n); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteTo writes n as compact JSON to w.
func WriteTo(w io.Writer, n Node) (int64, error) {
	data, err := Marshal(n)
	if err != nil {
		return 0, err
	}
	written, err := w.Write(data)
	return int64(written), err
}

// MarshalIndent writes n as indented JSON.
func MarshalIndent(n Node, prefix, indent string) ([]byte, error) {
	data, err := Marshal(n)
	if err != nil {
		return nil, err
	}
	var out bytes.Buffer
	if err := json.Indent(&out, data, prefix, indent); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func writeNode(buf *bytes.Buffer, n Node) error {
	switch v := orNull(n).(type) {
	case null:
		buf.WriteString("null")
	case *Boolean:
		if v.value {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case *Number:
		if !isNumberLiteral(v.Literal()) {
			return fmt.Errorf("jsondom: invalid number literal %q", v.Literal())
		}
		buf.WriteString(v.Literal())
	case *String:
		return writeString(buf, v.value)
	case *Array:
		buf.WriteByte('[')
		for i, elem := range v.elems {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeNode(buf, elem); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case *Object:
		buf.WriteByte('{')
		for i, key := range v.keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeString(buf, key); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := writeNode(buf, v.values[key]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("jsondom: unsupported node type %T", n)
	}
	return nil
}

func writeString(buf *bytes.Buffer, s string) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	// Encode terminates with a newline
	buf.Truncate(buf.Len() - 1)
	return nil
}
