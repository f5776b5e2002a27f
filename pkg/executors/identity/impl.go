package identity

import (
	"iter"

	"github.com/mongodb/mongo-hadoop/pkg/bsonstream"
	"github.com/mongodb/mongo-hadoop/pkg/executor"
)

const Description = "Passes every document through unchanged"

// Executor re-emits its input in both phases.
type Executor struct{}

func New(executor.Options) (executor.Executor, error) {
	return Executor{}, nil
}

func (Executor) Map(docs iter.Seq[bsonstream.Document], emit bsonstream.Emitter) error {
	for doc := range docs {
		if err := emit(doc); err != nil {
			return err
		}
	}
	return nil
}

func (Executor) Reduce(_ bsonstream.Value, values iter.Seq[bsonstream.Document], emit bsonstream.Emitter) error {
	for doc := range values {
		if err := emit(doc); err != nil {
			return err
		}
	}
	return nil
}

func (Executor) Description() string { return Description }
