package distinct

import (
	"iter"

	"github.com/mongodb/mongo-hadoop/pkg/bsonstream"
	"github.com/mongodb/mongo-hadoop/pkg/executor"
)

const Description = "Emits each distinct key once"

// Executor deduplicates group keys.
type Executor struct {
	opts executor.Options
}

func New(opts executor.Options) (executor.Executor, error) {
	return Executor{opts: opts.WithDefaults()}, nil
}

// Map emits {key} per document that has a group key.
func (e Executor) Map(docs iter.Seq[bsonstream.Document], emit bsonstream.Emitter) error {
	for doc := range docs {
		key, ok := e.opts.GroupKey(doc)
		if !ok {
			continue
		}
		if err := emit(bsonstream.D(e.opts.KeyField, key)); err != nil {
			return err
		}
	}
	return nil
}

// Reduce emits the key of the group once, without reading its values.
func (e Executor) Reduce(key bsonstream.Value, _ iter.Seq[bsonstream.Document], emit bsonstream.Emitter) error {
	return emit(bsonstream.D(e.opts.KeyField, key))
}

func (e Executor) Description() string { return Description }
