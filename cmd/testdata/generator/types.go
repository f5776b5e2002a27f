package generator

import (
	"math/rand/v2"

	"github.com/mongodb/mongo-hadoop/pkg/bsonstream"
)

// Generator produces test documents for the built-in executors.
type Generator interface {
	// Init gives the generator its own random source.
	Init(r *rand.Rand)

	// Next returns the i-th document.
	Next(i int64) bsonstream.Document

	Description() string

	// DefaultCount is the suggested number of documents to generate.
	DefaultCount() int64
}
