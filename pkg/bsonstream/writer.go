package bsonstream

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"iter"
)

// ValueField holds a bare value that was wrapped into a document.
const ValueField = "value"

// Writer encodes documents to a buffered output stream. Every document
// must carry the configured key field.
type Writer struct {
	w       *bufio.Writer
	cfg     Config
	buf     []byte
	count   int64
	records int64
	err     error
}

// NewWriter returns a Writer that frames documents onto w.
func NewWriter(w io.Writer, cfg Config) *Writer {
	cfg = cfg.withDefaults()
	return &Writer{
		w:   bufio.NewWriterSize(w, cfg.BufferSize),
		cfg: cfg,
	}
}

// Write validates and encodes doc. A document without the key field is
// rejected with a *ValidationError and nothing is written.
func (w *Writer) Write(doc Document) error {
	if w.err != nil {
		return w.err
	}

	index := w.records
	w.records++

	if !doc.Has(w.cfg.KeyField) {
		return &ValidationError{Index: index, Field: w.cfg.KeyField, Kind: ErrMissingKey}
	}

	frame, err := AppendDocument(w.buf[:0], doc)
	if err != nil {
		return fmt.Errorf("record %d: %w", index, err)
	}
	w.buf = frame

	if _, err := w.w.Write(frame); err != nil {
		w.err = fmt.Errorf("%w: write record %d: %w", ErrOutput, index, err)
		return w.err
	}
	w.count++
	return nil
}

// writeBatch writes docs as a unit: if any of them fails validation or
// encoding, none is written.
func (w *Writer) writeBatch(docs []Document) error {
	if w.err != nil {
		return w.err
	}

	batch := w.buf[:0]
	for i, doc := range docs {
		index := w.records + int64(i)
		if !doc.Has(w.cfg.KeyField) {
			w.records += int64(len(docs))
			return &ValidationError{Index: index, Field: w.cfg.KeyField, Kind: ErrMissingKey}
		}
		var err error
		if batch, err = AppendDocument(batch, doc); err != nil {
			w.records += int64(len(docs))
			return fmt.Errorf("record %d: %w", index, err)
		}
	}
	w.buf = batch
	w.records += int64(len(docs))

	if _, err := w.w.Write(batch); err != nil {
		w.err = fmt.Errorf("%w: write records: %w", ErrOutput, err)
		return w.err
	}
	w.count += int64(len(docs))
	return nil
}

// WriteValue writes v, wrapping anything other than a Document as
// {value: v}.
func (w *Writer) WriteValue(v Value) error {
	if doc, ok := v.(Document); ok {
		return w.Write(doc)
	}
	return w.Write(Document{{Key: ValueField, Value: v}})
}

// WriteAll writes every document of docs in order and flushes. When a
// document is rejected, what was written before it is still flushed; a
// failure of the underlying stream is returned as is.
func (w *Writer) WriteAll(docs iter.Seq[Document]) error {
	for doc := range docs {
		if err := w.Write(doc); err != nil {
			if w.err == nil {
				if ferr := w.Flush(); ferr != nil {
					return errors.Join(err, ferr)
				}
			}
			return err
		}
	}
	return w.Flush()
}

// Flush writes buffered frames to the underlying stream.
func (w *Writer) Flush() error {
	if w.err != nil {
		return w.err
	}
	if err := w.w.Flush(); err != nil {
		w.err = fmt.Errorf("%w: flush: %w", ErrOutput, err)
		return w.err
	}
	return nil
}

// Close flushes the writer. The underlying stream is left open.
func (w *Writer) Close() error {
	return w.Flush()
}

// Count returns the number of documents written.
func (w *Writer) Count() int64 { return w.count }

// KeyField returns the configured record key.
func (w *Writer) KeyField() string { return w.cfg.KeyField }
