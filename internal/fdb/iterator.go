package fdb

import (
	"fmt"
	"iter"
)

type iteratorState int

const (
	stateCreated iteratorState = iota
	stateActive
	stateExhausted
	stateFailed
)

func (s iteratorState) String() string {
	switch s {
	case stateCreated:
		return "created"
	case stateActive:
		return "active"
	case stateExhausted:
		return "exhausted"
	case stateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ListOptions tunes List.
type ListOptions struct {
	// Duplicates also lists entries masked by a later archive of the same key.
	Duplicates bool
}

// ListIterator walks the fields matching a request, probing the store one
// combination at a time as Next is called. It is not safe for concurrent use.
type ListIterator struct {
	store  Store
	schema *Schema
	opts   MatchOptions
	combos *combinations

	pending []*Entry
	state   iteratorState
	err     error
	visited int
	emitted int
}

func newListIterator(store Store, schema *Schema, req *Request, opts ListOptions) *ListIterator {
	return &ListIterator{
		store:  store,
		schema: schema,
		opts:   MatchOptions{Duplicates: opts.Duplicates},
		combos: newCombinations(req.Clone()),
	}
}

// Next returns the next matching element. It returns ErrIterationComplete
// when the matches run out. A store failure is returned by the call that hit
// it and leaves the iterator failed; elements already returned stay valid.
// Calling Next after either terminal outcome is an InvalidArgument error.
func (it *ListIterator) Next() (el *ListElement, err error) {
	defer guard("list next", &err)

	switch it.state {
	case stateExhausted:
		return nil, newError(InvalidArgument, "list next", ErrIteratorTerminated)
	case stateFailed:
		return nil, newError(InvalidArgument, "list next", fmt.Errorf("%w: %w", ErrIteratorTerminated, it.err))
	}

	for len(it.pending) == 0 {
		partial := it.combos.next()
		if partial == nil {
			it.state = stateExhausted
			return nil, ErrIterationComplete
		}
		it.visited++
		entries, err := it.store.Match(partial, it.opts)
		if err != nil {
			it.state = stateFailed
			it.err = storeError("list next", fmt.Errorf("matching %s: %w", partial, err))
			return nil, it.err
		}
		it.pending = entries
	}

	e := it.pending[0]
	it.pending = it.pending[1:]
	it.state = stateActive
	it.emitted++
	return &ListElement{Key: e.Key, Location: e.Location, Masked: e.Masked, schema: it.schema}, nil
}

// All adapts the iterator to a range-over-func sequence. Breaking out of the
// loop simply stops enumeration. A failure is yielded once as the error.
func (it *ListIterator) All() iter.Seq2[*ListElement, error] {
	return func(yield func(*ListElement, error) bool) {
		for {
			el, err := it.Next()
			if err == ErrIterationComplete {
				return
			}
			if !yield(el, err) || err != nil {
				return
			}
		}
	}
}

// Visited returns how many request combinations have been looked up so far.
func (it *ListIterator) Visited() int { return it.visited }

// Emitted returns how many elements Next has returned.
func (it *ListIterator) Emitted() int { return it.emitted }

// Err returns the failure that terminated the iterator, if any.
func (it *ListIterator) Err() error { return it.err }

// Done reports whether the iterator reached a terminal state.
func (it *ListIterator) Done() bool {
	return it.state == stateExhausted || it.state == stateFailed
}
