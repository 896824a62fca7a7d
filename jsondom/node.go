// Package jsondom provides a mutable, schema-free JSON tree.
//
// A document is built from Node values: *Array, *Object, *String, *Number,
// *Boolean and the Null node. JSON null is a node of its own, distinct from
// an absent value, so convenience constructors taking pointers map nil to
// Null rather than to a nil Node.
//
// Documents are read with Reader (or Parse/Decode), written with Marshal or
// WriteTo, and edited in place or through a JSON Patch document.
package jsondom

import (
	"encoding/json"
	"math"
	"reflect"
	"strconv"
)

// Kind identifies the JSON type of a Node.
type Kind int

const (
	KindNull Kind = iota
	KindBoolean
	KindNumber
	KindString
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBoolean:
		return "boolean"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Node is one element of a JSON document.
type Node interface {
	Kind() Kind
	json.Marshaler
	node()
}

// String is a JSON string.
type String struct {
	value string
}

// NewString creates a string node.
func NewString(s string) *String {
	return &String{value: s}
}

// StringPtr creates a string node, or Null when s is nil.
func StringPtr(s *string) Node {
	if s == nil {
		return Null()
	}
	return NewString(*s)
}

func (*String) Kind() Kind { return KindString }

// Value returns the string.
func (s *String) Value() string { return s.value }

func (s *String) MarshalJSON() ([]byte, error) { return Marshal(s) }

func (*String) node() {}

// Boolean is a JSON true or false.
type Boolean struct {
	value bool
}

// NewBool creates a boolean node.
func NewBool(b bool) *Boolean {
	return &Boolean{value: b}
}

// BoolPtr creates a boolean node, or Null when b is nil.
func BoolPtr(b *bool) Node {
	if b == nil {
		return Null()
	}
	return NewBool(*b)
}

func (*Boolean) Kind() Kind { return KindBoolean }

// Value returns the boolean.
func (b *Boolean) Value() bool { return b.value }

func (b *Boolean) MarshalJSON() ([]byte, error) { return Marshal(b) }

func (*Boolean) node() {}

// Numeric lists the Go types accepted by the number constructors.
type Numeric interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

// Number is a JSON number. The literal text is kept as read so that
// integers beyond float64 precision survive a round trip.
type Number struct {
	literal json.Number
}

// NewNumber creates a number node. NaN and infinities have no JSON form and
// yield Null.
func NewNumber[N Numeric](n N) Node {
	rv := reflect.ValueOf(n)
	switch rv.Kind() {
	case reflect.Float32:
		return floatNode(rv.Float(), 32)
	case reflect.Float64:
		return floatNode(rv.Float(), 64)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return &Number{literal: json.Number(strconv.FormatInt(rv.Int(), 10))}
	default:
		return &Number{literal: json.Number(strconv.FormatUint(rv.Uint(), 10))}
	}
}

// NumberPtr creates a number node, or Null when n is nil.
func NumberPtr[N Numeric](n *N) Node {
	if n == nil {
		return Null()
	}
	return NewNumber(*n)
}

// NewNumberString creates a number node from a JSON number literal.
func NewNumberString(literal string) (*Number, error) {
	if !isNumberLiteral(literal) {
		return nil, &StructuralError{Expected: "number", Found: strconv.Quote(literal)}
	}
	return &Number{literal: json.Number(literal)}, nil
}

func floatNode(f float64, bits int) Node {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Null()
	}
	return &Number{literal: json.Number(strconv.FormatFloat(f, 'g', -1, bits))}
}

func (*Number) Kind() Kind { return KindNumber }

// Literal returns the number as written.
func (n *Number) Literal() string { return n.literal.String() }

// Int64 returns the number as an integer.
func (n *Number) Int64() (int64, error) { return n.literal.Int64() }

// Float64 returns the number as a float.
func (n *Number) Float64() (float64, error) { return n.literal.Float64() }

func (n *Number) MarshalJSON() ([]byte, error) { return Marshal(n) }

func (*Number) node() {}

type null struct{}

// Null returns the JSON null node.
func Null() Node { return null{} }

func (null) Kind() Kind { return KindNull }

func (null) MarshalJSON() ([]byte, error) { return []byte("null"), nil }

func (null) node() {}

// IsNull reports whether n is nil, a nil node pointer, or the JSON null node.
func IsNull(n Node) bool {
	return orNull(n).Kind() == KindNull
}

// orNull maps a nil Node, including a typed nil pointer, to Null.
func orNull(n Node) Node {
	switch v := n.(type) {
	case nil:
		return Null()
	case *String:
		if v == nil {
			return Null()
		}
	case *Boolean:
		if v == nil {
			return Null()
		}
	case *Number:
		if v == nil {
			return Null()
		}
	case *Array:
		if v == nil {
			return Null()
		}
	case *Object:
		if v == nil {
			return Null()
		}
	}
	return n
}

// isNumberLiteral checks the JSON number grammar:
// -? (0 | [1-9][0-9]*) (. [0-9]+)? ([eE] [+-]? [0-9]+)?
func isNumberLiteral(s string) bool {
	i := 0
	if i < len(s) && s[i] == '-' {
		i++
	}
	switch {
	case i < len(s) && s[i] == '0':
		i++
	case i < len(s) && s[i] >= '1' && s[i] <= '9':
		for i < len(s) && isDigit(s[i]) {
			i++
		}
	default:
		return false
	}
	if i < len(s) && s[i] == '.' {
		i++
		start := i
		for i < len(s) && isDigit(s[i]) {
			i++
		}
		if i == start {
			return false
		}
	}
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		i++
		if i < len(s) && (s[i] == '+' || s[i] == '-') {
			i++
		}
		start := i
		for i < len(s) && isDigit(s[i]) {
			i++
		}
		if i == start {
			return false
		}
	}
	return i == len(s)
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
