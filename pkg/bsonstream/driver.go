package bsonstream

import (
	"fmt"
	"iter"
)

// Emitter hands one output document to the driver.
type Emitter func(Document) error

// KVEmitter hands one output pair to the driver.
type KVEmitter func(KeyValue) error

// Mapper transforms the input documents into output documents.
type Mapper interface {
	Map(docs iter.Seq[Document], emit Emitter) error
}

// Reducer is called once per group of consecutive documents sharing a key.
type Reducer interface {
	Reduce(key Value, values iter.Seq[Document], emit Emitter) error
}

// KVMapper transforms (key, document) pairs into output pairs.
type KVMapper interface {
	MapKV(pairs iter.Seq2[Value, Document], emit KVEmitter) error
}

// KVReducer is the key/value form of Reducer.
type KVReducer interface {
	ReduceKV(key Value, values iter.Seq[Document], emit KVEmitter) error
}

// MapperFunc adapts a function to Mapper.
type MapperFunc func(docs iter.Seq[Document], emit Emitter) error

func (f MapperFunc) Map(docs iter.Seq[Document], emit Emitter) error { return f(docs, emit) }

// ReducerFunc adapts a function to Reducer.
type ReducerFunc func(key Value, values iter.Seq[Document], emit Emitter) error

func (f ReducerFunc) Reduce(key Value, values iter.Seq[Document], emit Emitter) error {
	return f(key, values, emit)
}

// KVMapperFunc adapts a function to KVMapper.
type KVMapperFunc func(pairs iter.Seq2[Value, Document], emit KVEmitter) error

func (f KVMapperFunc) MapKV(pairs iter.Seq2[Value, Document], emit KVEmitter) error {
	return f(pairs, emit)
}

// KVReducerFunc adapts a function to KVReducer.
type KVReducerFunc func(key Value, values iter.Seq[Document], emit KVEmitter) error

func (f KVReducerFunc) ReduceKV(key Value, values iter.Seq[Document], emit KVEmitter) error {
	return f(key, values, emit)
}

// Stats summarizes one driver run.
type Stats struct {
	// Read is the number of input documents decoded.
	Read int64
	// Written is the number of output documents written.
	Written int64
	// Groups is the number of reduce groups completed or attempted.
	Groups int64
	// Offset is the input byte offset reached.
	Offset int64
}

// Map runs m over every document of r, writing emitted documents to w as
// they are produced. Output is flushed on return unless the output stream
// itself failed.
func Map(r *Reader, w *Writer, m Mapper) (Stats, error) {
	docs := func(yield func(Document) bool) {
		for {
			doc, err := r.Next()
			if err != nil || !yield(doc) {
				return
			}
		}
	}

	var emitErr error
	emit := func(doc Document) error {
		err := w.Write(doc)
		if err != nil && emitErr == nil {
			emitErr = err
		}
		return err
	}

	err := m.Map(docs, emit)
	if err == nil {
		err = emitErr
	}
	return finish(r, w, 0, err, r.Err)
}

// MapKV is Map over (key, document) pairs.
func MapKV(kr *KeyValueReader, kw *KeyValueWriter, m KVMapper) (Stats, error) {
	pairs := func(yield func(Value, Document) bool) {
		for {
			kv, err := kr.Next()
			if err != nil {
				return
			}
			doc, _ := kv.Value.(Document)
			if !yield(kv.Key, doc) {
				return
			}
		}
	}

	var emitErr error
	emit := func(kv KeyValue) error {
		err := kw.Write(kv)
		if err != nil && emitErr == nil {
			emitErr = err
		}
		return err
	}

	err := m.MapKV(pairs, emit)
	if err == nil {
		err = emitErr
	}
	return finish(kr.Reader(), kw.Writer(), 0, err, kr.Err)
}

// Reduce groups consecutive documents of r by key and calls red once per
// group. A group's output is written only after red returns nil and every
// record of the group decoded cleanly, including records red did not read;
// output of earlier groups is flushed even
// when a later group fails.
func Reduce(r *Reader, w *Writer, red Reducer) (Stats, error) {
	kr := NewKeyValueReader(r)
	g := NewGrouper(kr.Next, pairKey)

	var groups int64
	var out []Document
	for key, pairs := range g.Groups() {
		groups++
		out = out[:0]
		emit := func(doc Document) error {
			out = append(out, doc)
			return nil
		}

		err := red.Reduce(key, pairValues(pairs), emit)
		g.drain()
		if err == nil {
			err = g.Err()
		}
		if err == nil {
			err = w.writeBatch(out)
		}
		if err != nil {
			return finish(r, w, groups, fmt.Errorf("reduce key %s: %w", Format(key), err), g.Err)
		}
	}

	return finish(r, w, groups, nil, g.Err)
}

// ReduceKV is Reduce emitting (key, value) pairs.
func ReduceKV(kr *KeyValueReader, kw *KeyValueWriter, red KVReducer) (Stats, error) {
	g := NewGrouper(kr.Next, pairKey)

	var groups int64
	var out []Document
	for key, pairs := range g.Groups() {
		groups++
		out = out[:0]
		emit := func(kv KeyValue) error {
			out = append(out, kw.document(kv))
			return nil
		}

		err := red.ReduceKV(key, pairValues(pairs), emit)
		g.drain()
		if err == nil {
			err = g.Err()
		}
		if err == nil {
			err = kw.Writer().writeBatch(out)
		}
		if err != nil {
			return finish(kr.Reader(), kw.Writer(), groups, fmt.Errorf("reduce key %s: %w", Format(key), err), g.Err)
		}
	}

	return finish(kr.Reader(), kw.Writer(), groups, nil, g.Err)
}

func pairKey(kv KeyValue) Value { return kv.Key }

func pairValues(pairs iter.Seq[KeyValue]) iter.Seq[Document] {
	return func(yield func(Document) bool) {
		for kv := range pairs {
			doc, _ := kv.Value.(Document)
			if !yield(doc) {
				return
			}
		}
	}
}

func finish(r *Reader, w *Writer, groups int64, err error, inputErr func() error) (Stats, error) {
	if err == nil {
		err = inputErr()
	}
	// A failed output stream is sticky, so Flush reports the same error
	// without writing.
	if ferr := w.Flush(); ferr != nil && err == nil {
		err = ferr
	}

	return Stats{
		Read:    r.Count(),
		Written: w.Count(),
		Groups:  groups,
		Offset:  r.Offset(),
	}, err
}
