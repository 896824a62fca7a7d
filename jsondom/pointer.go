package jsondom

import (
	"fmt"
	"strconv"
	"strings"
)

// Pointer is a parsed JSON Pointer (RFC 6901). The empty pointer addresses
// the whole document.
type Pointer []string

// ParsePointer parses s, which must be empty or start with "/".
func ParsePointer(s string) (Pointer, error) {
	if s == "" {
		return Pointer{}, nil
	}
	if !strings.HasPrefix(s, "/") {
		return nil, fmt.Errorf("%w: %q must start with /", ErrInvalidPointer, s)
	}
	raw := strings.Split(s[1:], "/")
	p := make(Pointer, len(raw))
	for i, tok := range raw {
		if err := checkEscapes(tok); err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrInvalidPointer, s, err)
		}
		p[i] = strings.NewReplacer("~1", "/", "~0", "~").Replace(tok)
	}
	return p, nil
}

func checkEscapes(tok string) error {
	for i := 0; i < len(tok); i++ {
		if tok[i] != '~' {
			continue
		}
		if i+1 >= len(tok) || (tok[i+1] != '0' && tok[i+1] != '1') {
			return fmt.Errorf("bad escape at %d", i)
		}
	}
	return nil
}

func (p Pointer) String() string {
	if len(p) == 0 {
		return ""
	}
	var sb strings.Builder
	escape := strings.NewReplacer("~", "~0", "/", "~1")
	for _, tok := range p {
		sb.WriteByte('/')
		sb.WriteString(escape.Replace(tok))
	}
	return sb.String()
}

// Resolve returns the node p addresses in doc.
func (p Pointer) Resolve(doc Node) (Node, error) {
	current := orNull(doc)
	for i, tok := range p {
		next, err := child(current, tok)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", err, p[:i+1])
		}
		current = next
	}
	return current, nil
}

// Get resolves the pointer string s against doc.
func Get(doc Node, s string) (Node, error) {
	p, err := ParsePointer(s)
	if err != nil {
		return nil, err
	}
	return p.Resolve(doc)
}

func child(n Node, tok string) (Node, error) {
	switch v := n.(type) {
	case *Object:
		value, ok := v.Get(tok)
		if !ok {
			return nil, ErrPathNotFound
		}
		return value, nil
	case *Array:
		index, err := arrayIndex(tok, v.Len(), false)
		if err != nil {
			return nil, err
		}
		return v.elems[index], nil
	default:
		return nil, ErrPathNotFound
	}
}

// arrayIndex parses an array reference token. "-" addresses the slot past
// the last element and is only valid when appending.
func arrayIndex(tok string, length int, appending bool) (int, error) {
	if tok == "-" {
		if appending {
			return length, nil
		}
		return 0, ErrPathNotFound
	}
	if tok == "" || (len(tok) > 1 && tok[0] == '0') {
		return 0, fmt.Errorf("%w: bad array index %q", ErrInvalidPointer, tok)
	}
	for i := 0; i < len(tok); i++ {
		if !isDigit(tok[i]) {
			return 0, fmt.Errorf("%w: bad array index %q", ErrInvalidPointer, tok)
		}
	}
	index, err := strconv.Atoi(tok)
	if err != nil {
		return 0, fmt.Errorf("%w: bad array index %q", ErrInvalidPointer, tok)
	}
	limit := length
	if appending {
		limit++
	}
	if index >= limit {
		return 0, &IndexError{Index: index, Len: length}
	}
	return index, nil
}

func (p Pointer) parent() (Pointer, string) {
	return p[:len(p)-1], p[len(p)-1]
}

// isPrefixOf reports whether p is a proper prefix of other.
func (p Pointer) isPrefixOf(other Pointer) bool {
	if len(p) >= len(other) {
		return false
	}
	for i := range p {
		if p[i] != other[i] {
			return false
		}
	}
	return true
}
