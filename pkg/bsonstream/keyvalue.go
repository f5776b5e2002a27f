package bsonstream

import (
	"errors"
	"io"
	"iter"
)

// KeyValue pairs a record key with its value.
type KeyValue struct {
	Key   Value
	Value Value
}

// KeyValueReader projects each input document onto (key, document).
type KeyValueReader struct {
	r   *Reader
	err error
}

// NewKeyValueReader wraps r.
func NewKeyValueReader(r *Reader) *KeyValueReader {
	return &KeyValueReader{r: r}
}

// Next returns the next pair. A document that decodes but has no key field
// yields a *ValidationError; the clean end of stream is io.EOF.
func (kr *KeyValueReader) Next() (KeyValue, error) {
	if kr.err != nil {
		return KeyValue{}, kr.err
	}

	doc, err := kr.r.Next()
	if err != nil {
		kr.err = err
		return KeyValue{}, err
	}

	key, ok := doc.Lookup(kr.r.KeyField())
	if !ok {
		kr.err = &ValidationError{Index: kr.r.Count() - 1, Field: kr.r.KeyField(), Kind: ErrMissingKey}
		return KeyValue{}, kr.err
	}
	return KeyValue{Key: key, Value: doc}, nil
}

// All yields pairs until the end of the stream; see Reader.All.
func (kr *KeyValueReader) All() iter.Seq2[KeyValue, error] {
	return func(yield func(KeyValue, error) bool) {
		for {
			kv, err := kr.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if !yield(kv, err) || err != nil {
				return
			}
		}
	}
}

// Err returns the terminal error, if any.
func (kr *KeyValueReader) Err() error {
	if errors.Is(kr.err, io.EOF) {
		return nil
	}
	return kr.err
}

// Reader returns the underlying document reader.
func (kr *KeyValueReader) Reader() *Reader { return kr.r }

// KeyValueWriter writes pairs, injecting the key into the value document.
type KeyValueWriter struct {
	w *Writer
}

// NewKeyValueWriter wraps w.
func NewKeyValueWriter(w *Writer) *KeyValueWriter {
	return &KeyValueWriter{w: w}
}

// Write sets the value's key field to kv.Key and writes it. An existing key
// field in the value is overwritten without notice: the pair's key wins.
// Non-document values are wrapped as {_id: key, value: v}.
func (kw *KeyValueWriter) Write(kv KeyValue) error {
	return kw.w.Write(kw.document(kv))
}

func (kw *KeyValueWriter) document(kv KeyValue) Document {
	var doc Document
	if d, ok := kv.Value.(Document); ok {
		doc = d.Clone()
	} else {
		doc = Document{{Key: ValueField, Value: kv.Value}}
	}
	if kv.Key != nil {
		doc.Set(kw.w.KeyField(), kv.Key)
	}
	return doc
}

// WriteAll writes pairs in order and flushes; see Writer.WriteAll.
func (kw *KeyValueWriter) WriteAll(pairs iter.Seq[KeyValue]) error {
	return kw.w.WriteAll(func(yield func(Document) bool) {
		for kv := range pairs {
			if !yield(kw.document(kv)) {
				return
			}
		}
	})
}

// Flush flushes the underlying writer.
func (kw *KeyValueWriter) Flush() error { return kw.w.Flush() }

// Writer returns the underlying document writer.
func (kw *KeyValueWriter) Writer() *Writer { return kw.w }
