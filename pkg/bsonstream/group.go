package bsonstream

import (
	"errors"
	"io"
	"iter"
)

// Grouper splits an ordered stream into runs of consecutive elements whose
// keys are the same under SameKey. It never sorts: a key that reappears
// after a different key starts a new group.
type Grouper[T any] struct {
	next func() (T, error)
	key  func(T) Value

	pending    T
	hasPending bool
	cur        *group[T]
	done       bool
	err        error
}

type group[T any] struct {
	key      Value
	first    T
	iterated bool
	closed   bool
	stale    bool
}

// NewGrouper groups the elements returned by next, which must return io.EOF
// at the end of input.
func NewGrouper[T any](next func() (T, error), key func(T) Value) *Grouper[T] {
	return &Grouper[T]{next: next, key: key}
}

// Next advances to the next group. Values left unconsumed in the previous
// group are skipped. The returned sequence is single-pass and is only valid
// until the following call to Next.
func (g *Grouper[T]) Next() (Value, iter.Seq[T], bool) {
	if g.cur != nil {
		g.drain()
		g.cur.stale = true
		g.cur = nil
	}

	if !g.hasPending {
		if g.done || g.err != nil {
			return nil, nil, false
		}
		v, err := g.next()
		if err != nil {
			g.fail(err)
			return nil, nil, false
		}
		g.pending = v
	}

	var zero T
	grp := &group[T]{key: g.key(g.pending), first: g.pending}
	g.pending, g.hasPending = zero, false
	g.cur = grp

	return grp.key, g.values(grp), true
}

func (g *Grouper[T]) values(grp *group[T]) iter.Seq[T] {
	return func(yield func(T) bool) {
		if grp.stale || grp.iterated {
			return
		}
		grp.iterated = true

		if !yield(grp.first) {
			return
		}
		for {
			v, ok := g.pull(grp)
			if !ok || !yield(v) {
				return
			}
		}
	}
}

// drain reads the rest of the current group so that Err reflects every
// element of it.
func (g *Grouper[T]) drain() {
	if g.cur == nil {
		return
	}
	for {
		if _, ok := g.pull(g.cur); !ok {
			return
		}
	}
}

// pull returns the next element of grp, stopping at the first element with
// a different key, which is kept for the following group.
func (g *Grouper[T]) pull(grp *group[T]) (T, bool) {
	var zero T
	if grp.closed {
		return zero, false
	}

	v, err := g.next()
	if err != nil {
		g.fail(err)
		grp.closed = true
		return zero, false
	}

	if !SameKey(g.key(v), grp.key) {
		g.pending, g.hasPending = v, true
		grp.closed = true
		return zero, false
	}
	return v, true
}

func (g *Grouper[T]) fail(err error) {
	g.done = true
	if !errors.Is(err, io.EOF) {
		g.err = err
	}
}

// Err returns the first non-EOF error returned by the input.
func (g *Grouper[T]) Err() error {
	return g.err
}

// Groups returns every (key, values) group in input order. Iteration stops
// at the first input error, which Err then reports.
func (g *Grouper[T]) Groups() iter.Seq2[Value, iter.Seq[T]] {
	return func(yield func(Value, iter.Seq[T]) bool) {
		for {
			key, values, ok := g.Next()
			if !ok || !yield(key, values) {
				return
			}
		}
	}
}
