package worker

import (
	"iter"

	"github.com/mongodb/mongo-hadoop/pkg/bsonstream"
	"github.com/mongodb/mongo-hadoop/pkg/executor"
)

// pairs runs a document executor over (key, document) pairs. Emitted
// documents are keyed by their own key field.
type pairs struct {
	exec     executor.Executor
	keyField string
}

func (p pairs) MapKV(in iter.Seq2[bsonstream.Value, bsonstream.Document], emit bsonstream.KVEmitter) error {
	docs := func(yield func(bsonstream.Document) bool) {
		for _, doc := range in {
			if !yield(doc) {
				return
			}
		}
	}
	return p.exec.Map(docs, p.emitter(emit))
}

func (p pairs) ReduceKV(key bsonstream.Value, values iter.Seq[bsonstream.Document], emit bsonstream.KVEmitter) error {
	return p.exec.Reduce(key, values, p.emitter(emit))
}

func (p pairs) emitter(emit bsonstream.KVEmitter) bsonstream.Emitter {
	return func(doc bsonstream.Document) error {
		// A missing key stays nil and is rejected by the writer.
		key, _ := doc.Lookup(p.keyField)
		return emit(bsonstream.KeyValue{Key: key, Value: doc})
	}
}
