package jsondom

import "slices"

// Array is an ordered sequence of heterogeneous nodes.
type Array struct {
	elems []Node
}

// NewArray creates an array holding elems. Nil elements become Null.
func NewArray(elems ...Node) *Array {
	a := &Array{elems: make([]Node, 0, len(elems))}
	for _, e := range elems {
		a.elems = append(a.elems, orNull(e))
	}
	return a
}

func (*Array) Kind() Kind { return KindArray }

func (a *Array) MarshalJSON() ([]byte, error) { return Marshal(a) }

// UnmarshalJSON replaces the contents of a with the decoded array.
func (a *Array) UnmarshalJSON(data []byte) error {
	parsed, err := parseAs(data, KindArray)
	if err != nil {
		return err
	}
	a.elems = parsed.(*Array).elems
	return nil
}

func (*Array) node() {}

// Len returns the number of elements.
func (a *Array) Len() int { return len(a.elems) }

// Elements returns a copy of the element slice.
func (a *Array) Elements() []Node {
	return slices.Clone(a.elems)
}

// Get returns the element at index.
func (a *Array) Get(index int) (Node, error) {
	if err := a.check(index, len(a.elems)); err != nil {
		return nil, err
	}
	return a.elems[index], nil
}

// Set replaces the element at index.
func (a *Array) Set(index int, n Node) error {
	if err := a.check(index, len(a.elems)); err != nil {
		return err
	}
	a.elems[index] = orNull(n)
	return nil
}

// Insert places n before the element at index. An index equal to Len appends.
func (a *Array) Insert(index int, n Node) error {
	if err := a.check(index, len(a.elems)+1); err != nil {
		return err
	}
	a.elems = slices.Insert(a.elems, index, orNull(n))
	return nil
}

// Remove deletes and returns the element at index.
func (a *Array) Remove(index int) (Node, error) {
	if err := a.check(index, len(a.elems)); err != nil {
		return nil, err
	}
	removed := a.elems[index]
	a.elems = slices.Delete(a.elems, index, index+1)
	return removed, nil
}

// Add appends n; a nil n is stored as Null.
func (a *Array) Add(n Node) *Array {
	a.elems = append(a.elems, orNull(n))
	return a
}

// AddString appends a string node.
func (a *Array) AddString(s string) *Array { return a.Add(NewString(s)) }

// AddBool appends a boolean node.
func (a *Array) AddBool(b bool) *Array { return a.Add(NewBool(b)) }

// AddNumber appends a number node.
func (a *Array) AddNumber(f float64) *Array { return a.Add(NewNumber(f)) }

// AddInt appends an integer number node.
func (a *Array) AddInt(i int64) *Array { return a.Add(NewNumber(i)) }

// AddNull appends Null.
func (a *Array) AddNull() *Array { return a.Add(Null()) }

func (a *Array) check(index, limit int) error {
	if index < 0 || index >= limit {
		return &IndexError{Index: index, Len: len(a.elems)}
	}
	return nil
}
