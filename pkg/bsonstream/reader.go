package bsonstream

import (
	"bufio"
	"errors"
	"io"
	"iter"
)

// Reader is a forward-only cursor over a stream of frames. It is not
// restartable: once Next returns an error, every later call returns the
// same error.
type Reader struct {
	r      *bufio.Reader
	cfg    Config
	offset int64
	count  int64
	err    error
}

// NewReader returns a Reader that decodes frames from r.
func NewReader(r io.Reader, cfg Config) *Reader {
	cfg = cfg.withDefaults()
	return &Reader{
		r:   bufio.NewReaderSize(r, cfg.BufferSize),
		cfg: cfg,
	}
}

// Next decodes the next document. It returns io.EOF at a clean end of
// stream and a *DecodeError when the stream is corrupt.
func (r *Reader) Next() (Document, error) {
	if r.err != nil {
		return nil, r.err
	}

	frame, err := ReadFrame(r.r, r.cfg.MaxFrameSize)
	if err == nil {
		var doc Document
		if doc, err = DecodeDocument(frame); err == nil {
			r.offset += int64(len(frame))
			r.count++
			return doc, nil
		}
	}

	r.err = r.wrap(err)
	return nil, r.err
}

func (r *Reader) wrap(err error) error {
	if errors.Is(err, io.EOF) {
		return io.EOF
	}
	kind := decodeKind(err)
	if kind == nil {
		return err
	}
	return &DecodeError{Offset: r.offset, Records: r.count, Kind: kind, Err: err}
}

// All yields documents until the end of the stream. A decode failure is
// yielded once with a nil document and ends the sequence; a clean end
// yields nothing.
func (r *Reader) All() iter.Seq2[Document, error] {
	return func(yield func(Document, error) bool) {
		for {
			doc, err := r.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if !yield(doc, err) || err != nil {
				return
			}
		}
	}
}

// Err returns the terminal error, or nil if the stream ended cleanly or
// has not ended yet.
func (r *Reader) Err() error {
	if errors.Is(r.err, io.EOF) {
		return nil
	}
	return r.err
}

// Offset returns the number of bytes consumed by decoded frames.
func (r *Reader) Offset() int64 { return r.offset }

// Count returns the number of documents decoded.
func (r *Reader) Count() int64 { return r.count }

// KeyField returns the configured record key.
func (r *Reader) KeyField() string { return r.cfg.KeyField }
