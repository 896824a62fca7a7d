package jsondom

import (
	"errors"
	"fmt"
)

var (
	// ErrIndexOutOfRange is matched by every *IndexError.
	ErrIndexOutOfRange = errors.New("jsondom: index out of range")
	// ErrPathNotFound reports a JSON Pointer that does not resolve.
	ErrPathNotFound = errors.New("jsondom: path not found")
	// ErrInvalidPointer reports a malformed JSON Pointer.
	ErrInvalidPointer = errors.New("jsondom: invalid JSON pointer")
	// ErrTestFailed reports a failed patch "test" operation.
	ErrTestFailed = errors.New("jsondom: test operation failed")
	// ErrInvalidOperation reports an unknown or incomplete patch operation.
	ErrInvalidOperation = errors.New("jsondom: invalid patch operation")
)

// IndexError is returned when an array index is outside the valid range.
type IndexError struct {
	Index int
	Len   int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("jsondom: index %d out of range [0,%d)", e.Index, e.Len)
}

func (e *IndexError) Is(target error) bool {
	return target == ErrIndexOutOfRange
}

// StructuralError reports JSON that does not have the expected shape:
// malformed input, a wrong start token, or trailing data.
type StructuralError struct {
	Offset   int64
	Expected string
	Found    string
	Err      error
}

func (e *StructuralError) Error() string {
	switch {
	case e.Err != nil && e.Expected != "":
		return fmt.Sprintf("jsondom: expected %s at offset %d: %v", e.Expected, e.Offset, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("jsondom: malformed JSON at offset %d: %v", e.Offset, e.Err)
	default:
		return fmt.Sprintf("jsondom: expected %s at offset %d, found %s", e.Expected, e.Offset, e.Found)
	}
}

func (e *StructuralError) Unwrap() error {
	return e.Err
}

// PatchError reports the operation that made a patch fail.
type PatchError struct {
	Index int
	Op    string
	Path  string
	Err   error
}

func (e *PatchError) Error() string {
	return fmt.Sprintf("jsondom: patch operation %d (%s %q) failed: %v", e.Index, e.Op, e.Path, e.Err)
}

func (e *PatchError) Unwrap() error {
	return e.Err
}
