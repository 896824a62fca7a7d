package jsondom

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Reader walks the tokens of a JSON stream. Numbers are kept as literals.
type Reader struct {
	dec        *json.Decoder
	current    json.Token
	positioned bool
}

// NewReader creates a Reader over r.
func NewReader(r io.Reader) *Reader {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	return &Reader{dec: dec}
}

// Current returns the token the reader is positioned at, or nil before the
// first call to Next.
func (r *Reader) Current() json.Token {
	return r.current
}

// Positioned reports whether Next has returned a token.
func (r *Reader) Positioned() bool {
	return r.positioned
}

// Offset returns the input offset after the current token.
func (r *Reader) Offset() int64 {
	return r.dec.InputOffset()
}

// Next advances to the next token. It returns io.EOF at the clean end of the
// input and a *StructuralError for malformed input.
func (r *Reader) Next() (json.Token, error) {
	offset := r.dec.InputOffset()
	tok, err := r.dec.Token()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, &StructuralError{Offset: offset, Err: err}
	}
	r.current = tok
	r.positioned = true
	return tok, nil
}

// ReadArray reads an array starting at the current token, advancing first
// when the reader has not been positioned yet.
func ReadArray(r *Reader) (*Array, error) {
	n, err := readExpecting(r, KindArray)
	if err != nil {
		return nil, err
	}
	return n.(*Array), nil
}

// ReadObject reads an object starting at the current token, advancing first
// when the reader has not been positioned yet.
func ReadObject(r *Reader) (*Object, error) {
	n, err := readExpecting(r, KindObject)
	if err != nil {
		return nil, err
	}
	return n.(*Object), nil
}

// ReadNode reads any value starting at the current token, advancing first
// when the reader has not been positioned yet.
func ReadNode(r *Reader) (Node, error) {
	if err := r.ensurePositioned("value"); err != nil {
		return nil, err
	}
	return r.readValue()
}

// Parse decodes a complete JSON document. Trailing data is an error.
func Parse(data []byte) (Node, error) {
	return Decode(bytes.NewReader(data))
}

// Decode reads one complete JSON document from r. Anything other than
// whitespace after the value is an error.
func Decode(r io.Reader) (Node, error) {
	reader := NewReader(r)
	n, err := ReadNode(reader)
	if err != nil {
		return nil, err
	}
	if err := reader.expectEnd(); err != nil {
		return nil, err
	}
	return n, nil
}

func parseAs(data []byte, kind Kind) (Node, error) {
	reader := NewReader(bytes.NewReader(data))
	n, err := readExpecting(reader, kind)
	if err != nil {
		return nil, err
	}
	if err := reader.expectEnd(); err != nil {
		return nil, err
	}
	return n, nil
}

func readExpecting(r *Reader, kind Kind) (Node, error) {
	expected := "start of " + kind.String()
	if err := r.ensurePositioned(expected); err != nil {
		return nil, err
	}
	if tokenKind(r.current) != kind {
		return nil, &StructuralError{
			Offset:   r.dec.InputOffset(),
			Expected: expected,
			Found:    describeToken(r.current),
		}
	}
	return r.readValue()
}

func (r *Reader) ensurePositioned(expected string) error {
	if r.positioned {
		return nil
	}
	if _, err := r.Next(); err != nil {
		if errors.Is(err, io.EOF) {
			return &StructuralError{Offset: r.dec.InputOffset(), Expected: expected, Err: io.ErrUnexpectedEOF}
		}
		return err
	}
	return nil
}

func (r *Reader) expectEnd() error {
	offset := r.dec.InputOffset()
	tok, err := r.Next()
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return err
	}
	return &StructuralError{Offset: offset, Expected: "end of input", Found: describeToken(tok)}
}

// advance moves to the next token inside a container, where EOF is never clean.
func (r *Reader) advance(expected string) error {
	if _, err := r.Next(); err != nil {
		if errors.Is(err, io.EOF) {
			return &StructuralError{Offset: r.dec.InputOffset(), Expected: expected, Err: io.ErrUnexpectedEOF}
		}
		return err
	}
	return nil
}

// readValue builds the node starting at the current token and leaves the
// reader on the value's last token.
func (r *Reader) readValue() (Node, error) {
	switch tok := r.current.(type) {
	case json.Delim:
		switch tok {
		case '[':
			return r.readArrayBody()
		case '{':
			return r.readObjectBody()
		}
		return nil, &StructuralError{Offset: r.dec.InputOffset(), Expected: "value", Found: describeToken(tok)}
	case string:
		return NewString(tok), nil
	case json.Number:
		return &Number{literal: tok}, nil
	case bool:
		return NewBool(tok), nil
	case nil:
		return Null(), nil
	default:
		return nil, &StructuralError{Offset: r.dec.InputOffset(), Expected: "value", Found: describeToken(tok)}
	}
}

func (r *Reader) readArrayBody() (*Array, error) {
	a := NewArray()
	for {
		if err := r.advance("array element or ]"); err != nil {
			return nil, err
		}
		if r.current == json.Delim(']') {
			return a, nil
		}
		elem, err := r.readValue()
		if err != nil {
			return nil, err
		}
		a.Add(elem)
	}
}

func (r *Reader) readObjectBody() (*Object, error) {
	o := NewObject()
	for {
		if err := r.advance("object key or }"); err != nil {
			return nil, err
		}
		if r.current == json.Delim('}') {
			return o, nil
		}
		key, ok := r.current.(string)
		if !ok {
			return nil, &StructuralError{Offset: r.dec.InputOffset(), Expected: "object key", Found: describeToken(r.current)}
		}
		if err := r.advance("object value"); err != nil {
			return nil, err
		}
		value, err := r.readValue()
		if err != nil {
			return nil, err
		}
		o.Set(key, value)
	}
}

func tokenKind(tok json.Token) Kind {
	switch t := tok.(type) {
	case json.Delim:
		if t == '[' {
			return KindArray
		}
		if t == '{' {
			return KindObject
		}
		return -1
	case string:
		return KindString
	case json.Number:
		return KindNumber
	case bool:
		return KindBoolean
	case nil:
		return KindNull
	default:
		return -1
	}
}

func describeToken(tok json.Token) string {
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '[':
			return "start of array"
		case ']':
			return "end of array"
		case '{':
			return "start of object"
		default:
			return "end of object"
		}
	case string:
		return "string"
	case json.Number:
		return "number " + t.String()
	case bool:
		return fmt.Sprintf("boolean %t", t)
	case nil:
		return "null"
	default:
		return fmt.Sprintf("%T", tok)
	}
}
