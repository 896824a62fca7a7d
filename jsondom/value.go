package jsondom

import (
	"encoding/json"
	"fmt"
	"math/big"
	"reflect"
	"sort"
)

// FromValue converts a Go value into a node. Nil values and nil pointers
// become Null; other types go through encoding/json.
func FromValue(v any) (Node, error) {
	switch x := v.(type) {
	case nil:
		return Null(), nil
	case Node:
		return orNull(x), nil
	case string:
		return NewString(x), nil
	case bool:
		return NewBool(x), nil
	case int:
		return NewNumber(x), nil
	case int64:
		return NewNumber(x), nil
	case float64:
		return NewNumber(x), nil
	case json.Number:
		n, err := NewNumberString(x.String())
		if err != nil {
			return nil, err
		}
		return n, nil
	case []any:
		a := NewArray()
		for _, elem := range x {
			n, err := FromValue(elem)
			if err != nil {
				return nil, err
			}
			a.Add(n)
		}
		return a, nil
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		o := NewObject()
		for _, k := range keys {
			n, err := FromValue(x[k])
			if err != nil {
				return nil, err
			}
			o.Set(k, n)
		}
		return o, nil
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer && rv.IsNil() {
		return Null(), nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("jsondom: convert %T: %w", v, err)
	}
	return Parse(data)
}

// Unmarshal decodes n into the Go value pointed to by v.
func Unmarshal(n Node, v any) error {
	data, err := Marshal(n)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// Clone returns a deep copy of n.
func Clone(n Node) Node {
	switch v := orNull(n).(type) {
	case *Array:
		out := &Array{elems: make([]Node, len(v.elems))}
		for i, elem := range v.elems {
			out.elems[i] = Clone(elem)
		}
		return out
	case *Object:
		out := &Object{keys: make([]string, len(v.keys)), values: make(map[string]Node, len(v.values))}
		copy(out.keys, v.keys)
		for k, elem := range v.values {
			out.values[k] = Clone(elem)
		}
		return out
	case *String:
		return NewString(v.value)
	case *Boolean:
		return NewBool(v.value)
	case *Number:
		return &Number{literal: v.literal}
	default:
		return Null()
	}
}

// Equal reports whether a and b hold the same JSON value. Numbers compare by
// value and object member order is ignored.
func Equal(a, b Node) bool {
	a, b = orNull(a), orNull(b)
	if a.Kind() != b.Kind() {
		return false
	}
	switch x := a.(type) {
	case *String:
		return x.value == b.(*String).value
	case *Boolean:
		return x.value == b.(*Boolean).value
	case *Number:
		return numbersEqual(x, b.(*Number))
	case *Array:
		y := b.(*Array)
		if len(x.elems) != len(y.elems) {
			return false
		}
		for i := range x.elems {
			if !Equal(x.elems[i], y.elems[i]) {
				return false
			}
		}
		return true
	case *Object:
		y := b.(*Object)
		if len(x.keys) != len(y.keys) {
			return false
		}
		for k, xv := range x.values {
			yv, ok := y.values[k]
			if !ok || !Equal(xv, yv) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

func numbersEqual(a, b *Number) bool {
	if a.literal == b.literal {
		return true
	}
	x, okA := new(big.Float).SetString(a.Literal())
	y, okB := new(big.Float).SetString(b.Literal())
	return okA && okB && x.Cmp(y) == 0
}
