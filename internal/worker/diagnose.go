package worker

import (
	"errors"
	"fmt"

	"github.com/mongodb/mongo-hadoop/pkg/bsonstream"
)

// Failure kinds reported by Diagnose.
const (
	KindInvalidLength     = "invalid_length"
	KindTruncatedFrame    = "truncated_frame"
	KindMissingTerminator = "missing_terminator"
	KindMalformedDocument = "malformed_document"
	KindMissingKey        = "missing_key"
	KindMapper            = "mapper"
	KindReducer           = "reducer"
	KindOutput            = "output"
)

// Kind classifies a failure of a run of phase. Errors that are neither
// stream errors nor output failures are blamed on the phase's executor.
func Kind(err error, phase Phase) string {
	switch {
	case errors.Is(err, bsonstream.ErrOutput):
		return KindOutput
	case errors.Is(err, bsonstream.ErrInvalidLength):
		return KindInvalidLength
	case errors.Is(err, bsonstream.ErrTruncatedFrame):
		return KindTruncatedFrame
	case errors.Is(err, bsonstream.ErrMissingTerminator):
		return KindMissingTerminator
	case errors.Is(err, bsonstream.ErrMalformedDocument):
		return KindMalformedDocument
	case errors.Is(err, bsonstream.ErrMissingKey):
		return KindMissingKey
	}
	if phase == PhaseMap {
		return KindMapper
	}
	return KindReducer
}

// Diagnose renders a one-line failure report: the failure kind, the
// number of records processed, and for decode failures the byte offset of
// the bad frame.
func Diagnose(err error, phase Phase, stats bsonstream.Stats) string {
	line := fmt.Sprintf("error=%s read=%d written=%d", Kind(err, phase), stats.Read, stats.Written)

	var decErr *bsonstream.DecodeError
	if errors.As(err, &decErr) {
		line += fmt.Sprintf(" offset=%d", decErr.Offset)
	}
	var valErr *bsonstream.ValidationError
	if errors.As(err, &valErr) {
		line += fmt.Sprintf(" record=%d", valErr.Index)
	}
	return fmt.Sprintf("%s: %v", line, err)
}
