// Package executor defines the map and reduce functions a worker can run
// over a document stream.
package executor

import (
	"errors"

	"github.com/mongodb/mongo-hadoop/pkg/bsonstream"
)

var (
	ErrUnknownExecutor = errors.New("unknown executor")
	ErrMissingField    = errors.New("executor requires a field")
)

// Executor is a named pair of map and reduce functions.
type Executor interface {
	bsonstream.Mapper
	bsonstream.Reducer
	Description() string
}

// Options configure an executor instance.
type Options struct {
	// KeyField names the record key of emitted documents. Defaults to _id.
	KeyField string
	// GroupBy is the input field whose value becomes the output key.
	// Defaults to KeyField.
	GroupBy string
	// Field is the numeric input field aggregated by executors that need one.
	Field string
}

// WithDefaults fills in the default key and grouping fields.
func (o Options) WithDefaults() Options {
	if o.KeyField == "" {
		o.KeyField = bsonstream.DefaultKeyField
	}
	if o.GroupBy == "" {
		o.GroupBy = o.KeyField
	}
	return o
}

// Factory builds an executor from options.
type Factory func(Options) (Executor, error)

// GroupKey returns the output key of doc under o. Date values group by
// calendar year.
func (o Options) GroupKey(doc bsonstream.Document) (bsonstream.Value, bool) {
	v, ok := doc.Lookup(o.GroupBy)
	if !ok {
		return nil, false
	}
	if dt, isDate := v.(bsonstream.DateTime); isDate {
		return bsonstream.Int32(dt.Time().UTC().Year()), true
	}
	return v, true
}

// Numeric returns the value of the aggregated field as a float.
func (o Options) Numeric(doc bsonstream.Document) (float64, bool) {
	v, ok := doc.Lookup(o.Field)
	if !ok {
		return 0, false
	}
	return bsonstream.Number(v)
}
