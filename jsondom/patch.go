package jsondom

import (
	"errors"
	"fmt"
)

// Patch operation names (RFC 6902)
const (
	OpAdd     = "add"
	OpRemove  = "remove"
	OpReplace = "replace"
	OpMove    = "move"
	OpCopy    = "copy"
	OpTest    = "test"
)

// PatchOperation is one step of a JSON Patch document.
type PatchOperation struct {
	Op    string
	Path  string
	From  string
	Value Node
}

func (op PatchOperation) toNode() *Object {
	o := NewObject().SetString("op", op.Op).SetString("path", op.Path)
	switch op.Op {
	case OpMove, OpCopy:
		o.SetString("from", op.From)
	case OpAdd, OpReplace, OpTest:
		o.Set("value", op.Value)
	}
	return o
}

// PatchDocument is an ordered list of patch operations.
type PatchDocument struct {
	ops []PatchOperation
}

// NewPatch creates an empty patch document.
func NewPatch() *PatchDocument {
	return &PatchDocument{}
}

// Add appends an "add" operation.
func (d *PatchDocument) Add(path string, value Node) *PatchDocument {
	return d.append(PatchOperation{Op: OpAdd, Path: path, Value: orNull(value)})
}

// Remove appends a "remove" operation.
func (d *PatchDocument) Remove(path string) *PatchDocument {
	return d.append(PatchOperation{Op: OpRemove, Path: path})
}

// Replace appends a "replace" operation.
func (d *PatchDocument) Replace(path string, value Node) *PatchDocument {
	return d.append(PatchOperation{Op: OpReplace, Path: path, Value: orNull(value)})
}

// Move appends a "move" operation.
func (d *PatchDocument) Move(from, path string) *PatchDocument {
	return d.append(PatchOperation{Op: OpMove, From: from, Path: path})
}

// Copy appends a "copy" operation.
func (d *PatchDocument) Copy(from, path string) *PatchDocument {
	return d.append(PatchOperation{Op: OpCopy, From: from, Path: path})
}

// Test appends a "test" operation.
func (d *PatchDocument) Test(path string, value Node) *PatchDocument {
	return d.append(PatchOperation{Op: OpTest, Path: path, Value: orNull(value)})
}

func (d *PatchDocument) append(op PatchOperation) *PatchDocument {
	d.ops = append(d.ops, op)
	return d
}

// Operations returns a copy of the operations.
func (d *PatchDocument) Operations() []PatchOperation {
	return append([]PatchOperation(nil), d.ops...)
}

// Node returns the patch as a JSON array of operation objects.
func (d *PatchDocument) Node() *Array {
	a := NewArray()
	for _, op := range d.ops {
		a.Add(op.toNode())
	}
	return a
}

func (d *PatchDocument) MarshalJSON() ([]byte, error) {
	return Marshal(d.Node())
}

// UnmarshalJSON replaces d with the decoded patch.
func (d *PatchDocument) UnmarshalJSON(data []byte) error {
	parsed, err := ParsePatch(data)
	if err != nil {
		return err
	}
	d.ops = parsed.ops
	return nil
}

// ParsePatch decodes a JSON Patch document.
func ParsePatch(data []byte) (*PatchDocument, error) {
	arr, err := parseAs(data, KindArray)
	if err != nil {
		return nil, err
	}

	d := NewPatch()
	for i, elem := range arr.(*Array).elems {
		obj, ok := elem.(*Object)
		if !ok {
			return nil, &PatchError{Index: i, Err: fmt.Errorf("%w: operation must be an object", ErrInvalidOperation)}
		}
		op := PatchOperation{
			Op:   stringMember(obj, "op"),
			Path: stringMember(obj, "path"),
			From: stringMember(obj, "from"),
		}
		if v, ok := obj.Get("value"); ok {
			op.Value = v
		}
		if err := op.validate(); err != nil {
			return nil, &PatchError{Index: i, Op: op.Op, Path: op.Path, Err: err}
		}
		d.ops = append(d.ops, op)
	}
	return d, nil
}

func stringMember(o *Object, key string) string {
	if n, ok := o.Get(key); ok {
		if s, ok := n.(*String); ok {
			return s.value
		}
	}
	return ""
}

func (op PatchOperation) validate() error {
	switch op.Op {
	case OpAdd, OpReplace, OpTest:
		if op.Value == nil {
			return fmt.Errorf("%w: %s needs a value", ErrInvalidOperation, op.Op)
		}
	case OpMove, OpCopy:
		if _, err := ParsePointer(op.From); err != nil {
			return err
		}
	case OpRemove:
	default:
		return fmt.Errorf("%w: unknown op %q", ErrInvalidOperation, op.Op)
	}
	_, err := ParsePointer(op.Path)
	return err
}

// Apply runs the patch against a deep copy of doc and returns the result.
// doc is never modified.
func (d *PatchDocument) Apply(doc Node) (Node, error) {
	result := Clone(doc)
	for i, op := range d.ops {
		var err error
		result, err = applyOp(result, op)
		if err != nil {
			return nil, &PatchError{Index: i, Op: op.Op, Path: op.Path, Err: err}
		}
	}
	return result, nil
}

func applyOp(doc Node, op PatchOperation) (Node, error) {
	if err := op.validate(); err != nil {
		return nil, err
	}
	path, _ := ParsePointer(op.Path)

	switch op.Op {
	case OpAdd:
		return add(doc, path, Clone(op.Value))
	case OpRemove:
		_, err := remove(doc, path)
		return doc, err
	case OpReplace:
		if _, err := path.Resolve(doc); err != nil {
			return nil, err
		}
		if len(path) == 0 {
			return Clone(op.Value), nil
		}
		parentPtr, last := path.parent()
		parent, _ := parentPtr.Resolve(doc)
		return doc, replaceChild(parent, last, Clone(op.Value))
	case OpMove:
		from, _ := ParsePointer(op.From)
		if from.isPrefixOf(path) {
			return nil, fmt.Errorf("%w: cannot move %s into its own child", ErrInvalidOperation, op.From)
		}
		if from.String() == path.String() {
			_, err := from.Resolve(doc)
			return doc, err
		}
		value, err := remove(doc, from)
		if err != nil {
			return nil, err
		}
		return add(doc, path, value)
	case OpCopy:
		from, _ := ParsePointer(op.From)
		value, err := from.Resolve(doc)
		if err != nil {
			return nil, err
		}
		return add(doc, path, Clone(value))
	case OpTest:
		actual, err := path.Resolve(doc)
		if err != nil {
			return nil, err
		}
		if !Equal(actual, op.Value) {
			return nil, ErrTestFailed
		}
		return doc, nil
	}
	return nil, ErrInvalidOperation
}

func add(doc Node, path Pointer, value Node) (Node, error) {
	if len(path) == 0 {
		return orNull(value), nil
	}
	parentPtr, last := path.parent()
	parent, err := parentPtr.Resolve(doc)
	if err != nil {
		return nil, err
	}
	switch p := parent.(type) {
	case *Object:
		p.Set(last, value)
	case *Array:
		index, err := arrayIndex(last, p.Len(), true)
		if err != nil {
			return nil, err
		}
		if err := p.Insert(index, value); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: parent of %s is a %s", ErrPathNotFound, path, parent.Kind())
	}
	return doc, nil
}

func remove(doc Node, path Pointer) (Node, error) {
	if len(path) == 0 {
		return nil, errors.New("cannot remove the document root")
	}
	parentPtr, last := path.parent()
	parent, err := parentPtr.Resolve(doc)
	if err != nil {
		return nil, err
	}
	switch p := parent.(type) {
	case *Object:
		removed, ok := p.Remove(last)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrPathNotFound, path)
		}
		return removed, nil
	case *Array:
		index, err := arrayIndex(last, p.Len(), false)
		if err != nil {
			return nil, err
		}
		return p.Remove(index)
	default:
		return nil, fmt.Errorf("%w: %s", ErrPathNotFound, path)
	}
}

func replaceChild(parent Node, last string, value Node) error {
	switch p := parent.(type) {
	case *Object:
		p.Set(last, value)
		return nil
	case *Array:
		index, err := arrayIndex(last, p.Len(), false)
		if err != nil {
			return err
		}
		return p.Set(index, value)
	default:
		return ErrPathNotFound
	}
}
