package disc

import (
	"errors"
	"fmt"
)

// Sentinel errors for the failure classes of the disc reader. Callers match
// them with errors.Is; the typed errors below carry the details.
var (
	ErrUnrecognizedFormat = errors.New("unrecognized disk image format")
	ErrMalformedStructure = errors.New("malformed disc structure")
	ErrPathNotFound       = errors.New("path not found")
)

// StructureError describes a structurally inconsistent PVD field or
// directory record.
type StructureError struct {
	What   string // structure being decoded, e.g. "directory record"
	Offset int64  // byte offset inside the decoded buffer
	Reason string
}

func (e *StructureError) Error() string {
	return fmt.Sprintf("%s at offset 0x%X: %s", e.What, e.Offset, e.Reason)
}

func (e *StructureError) Unwrap() error {
	return ErrMalformedStructure
}

func malformed(what string, offset int, format string, args ...interface{}) error {
	return &StructureError{What: what, Offset: int64(offset), Reason: fmt.Sprintf(format, args...)}
}

// PathNotFoundError is returned by Resolve for unknown paths.
type PathNotFoundError struct {
	Path string
}

func (e *PathNotFoundError) Error() string {
	return fmt.Sprintf("%s: %q", ErrPathNotFound, e.Path)
}

func (e *PathNotFoundError) Unwrap() error {
	return ErrPathNotFound
}

// IOError wraps a failed read or write on the image or an output sink.
type IOError struct {
	Op     string
	Offset int64
	Err    error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s at 0x%X: %v", e.Op, e.Offset, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}
