package bsonstream

import (
	"errors"
	"fmt"
)

// Sentinel errors for stream decoding and output validation.
var (
	// Decode errors. The stream position is unknown after any of these.
	ErrInvalidLength     = errors.New("invalid frame length")
	ErrTruncatedFrame    = errors.New("truncated frame")
	ErrMissingTerminator = errors.New("missing document terminator")
	ErrMalformedDocument = errors.New("malformed document")

	// Validation errors. They concern a single record only.
	ErrMissingKey = errors.New("missing key field")

	ErrUnsupportedValue = errors.New("unsupported value")

	// ErrOutput marks a failure of the output stream itself. The Writer
	// keeps returning it once it has occurred.
	ErrOutput = errors.New("output stream")
)

// DecodeError reports a structural failure of the input stream.
type DecodeError struct {
	// Offset is the byte offset of the frame that failed to decode.
	Offset int64
	// Records is the number of frames decoded successfully before it.
	Records int64
	// Kind is one of the decode sentinels.
	Kind error
	Err  error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%v at offset %d: %v", e.Kind, e.Offset, e.Err)
	}
	return fmt.Sprintf("%v at offset %d", e.Kind, e.Offset)
}

func (e *DecodeError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// ValidationError reports a record that violates the output contract.
type ValidationError struct {
	// Index is the zero-based position of the offending record.
	Index int64
	Field string
	Kind  error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("record %d: %v %q", e.Index, e.Kind, e.Field)
}

func (e *ValidationError) Unwrap() error {
	return e.Kind
}

// decodeKind returns the decode sentinel err matches, if any.
func decodeKind(err error) error {
	for _, kind := range []error{ErrInvalidLength, ErrTruncatedFrame, ErrMissingTerminator, ErrMalformedDocument} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
