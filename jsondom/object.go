package jsondom

import "slices"

// Object is a JSON object that keeps its keys in insertion order.
type Object struct {
	keys   []string
	values map[string]Node
}

// NewObject creates an empty object.
func NewObject() *Object {
	return &Object{values: make(map[string]Node)}
}

func (*Object) Kind() Kind { return KindObject }

func (o *Object) MarshalJSON() ([]byte, error) { return Marshal(o) }

// UnmarshalJSON replaces the contents of o with the decoded object.
func (o *Object) UnmarshalJSON(data []byte) error {
	parsed, err := parseAs(data, KindObject)
	if err != nil {
		return err
	}
	decoded := parsed.(*Object)
	o.keys, o.values = decoded.keys, decoded.values
	return nil
}

func (*Object) node() {}

// Len returns the number of members.
func (o *Object) Len() int { return len(o.keys) }

// Keys returns the member names in order.
func (o *Object) Keys() []string {
	return slices.Clone(o.keys)
}

// Has reports whether key is present.
func (o *Object) Has(key string) bool {
	_, ok := o.values[key]
	return ok
}

// Get returns the member named key.
func (o *Object) Get(key string) (Node, bool) {
	n, ok := o.values[key]
	return n, ok
}

// Set stores n under key. Replacing a member keeps its position; a nil n is
// stored as Null.
func (o *Object) Set(key string, n Node) *Object {
	if o.values == nil {
		o.values = make(map[string]Node)
	}
	if _, exists := o.values[key]; !exists {
		o.keys = append(o.keys, key)
	}
	o.values[key] = orNull(n)
	return o
}

// Remove deletes the member named key and returns it.
func (o *Object) Remove(key string) (Node, bool) {
	n, ok := o.values[key]
	if !ok {
		return nil, false
	}
	delete(o.values, key)
	o.keys = slices.DeleteFunc(o.keys, func(k string) bool { return k == key })
	return n, true
}

// SetString stores a string member.
func (o *Object) SetString(key, s string) *Object { return o.Set(key, NewString(s)) }

// SetBool stores a boolean member.
func (o *Object) SetBool(key string, b bool) *Object { return o.Set(key, NewBool(b)) }

// SetNumber stores a number member.
func (o *Object) SetNumber(key string, f float64) *Object { return o.Set(key, NewNumber(f)) }

// SetInt stores an integer number member.
func (o *Object) SetInt(key string, i int64) *Object { return o.Set(key, NewNumber(i)) }

// SetNull stores Null under key.
func (o *Object) SetNull(key string) *Object { return o.Set(key, Null()) }
