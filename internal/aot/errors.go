package aot

import (
	"errors"
	"fmt"
)

var (
	// ErrFormat is returned when the input is not an AOT cache file.
	ErrFormat = errors.New("invalid AOT cache format")

	// ErrTruncated is returned when the input ends in the middle of a field.
	ErrTruncated = errors.New("truncated input")

	// ErrLayout is returned when a decoded record violates a structural invariant
	// of the pinned layout.
	ErrLayout = errors.New("layout violation")

	// ErrUnknownKind is returned for candidates whose kind discriminant does not
	// name a known klass variant. Such candidates are scan noise.
	ErrUnknownKind = errors.New("unknown klass kind")

	// ErrClassNotFound is returned when a named class is not present in the rw region.
	ErrClassNotFound = errors.New("class not found")
)

// FormatError reports a magic number mismatch.
type FormatError struct {
	Magic uint32
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid AOT cache file: magic number mismatch (actual: %08x)", e.Magic)
}

// Is matches ErrFormat.
func (e *FormatError) Is(target error) bool {
	return target == ErrFormat
}

// TruncationError reports a read that needed more bytes than the source holds.
type TruncationError struct {
	Field  string
	Offset int64
	Need   int64
	Have   int64
}

func (e *TruncationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("truncated at offset %d: need %d bytes, have %d", e.Offset, e.Need, e.Have)
	}
	return fmt.Sprintf("truncated reading %s at offset %d: need %d bytes, have %d",
		e.Field, e.Offset, e.Need, e.Have)
}

// Is matches ErrTruncated.
func (e *TruncationError) Is(target error) bool {
	return target == ErrTruncated
}

// LayoutError reports a record whose decoded fields contradict the layout.
type LayoutError struct {
	Offset int64 // record offset inside the rw region
	Field  string
	Detail string
}

func (e *LayoutError) Error() string {
	return fmt.Sprintf("layout violation in record at rw+0x%x (%s): %s", e.Offset, e.Field, e.Detail)
}

// Is matches ErrLayout.
func (e *LayoutError) Is(target error) bool {
	return target == ErrLayout
}

// IsRecordNoise reports whether err is an expected per-record failure that the
// scanner drops silently, such as truncation past the snapshot bound or an
// unknown kind.
func IsRecordNoise(err error) bool {
	return errors.Is(err, ErrTruncated) || errors.Is(err, ErrUnknownKind)
}
