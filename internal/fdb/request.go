package fdb

import (
	"math"
	"strings"
)

// Request maps axis names to ordered, non-empty lists of candidate values.
// Values within one axis are alternatives; axes are combined with AND. The
// request denotes the Cartesian product of its value lists. A value list may
// contain ranges ("1/to/10/by/2"); they are expanded lazily while the
// request is resolved.
type Request struct {
	axes     []string
	values   map[string][]string
	terms    map[string][]valueTerm
	restrict *KeySet
}

// NewRequest returns an empty request. An empty request matches every
// stored field.
func NewRequest() *Request {
	return &Request{values: make(map[string][]string), terms: make(map[string][]valueTerm)}
}

// Add binds axis to values, replacing any earlier binding while keeping the
// axis' original position. Repeated literal values are dropped, keeping the
// first. "a/to/b" and "a/to/b/by/s" denote inclusive integer ranges, or day
// ranges over YYYYMMDD values on the date axis.
func (r *Request) Add(axis string, values ...string) error {
	if strings.TrimSpace(axis) == "" {
		return errorf(InvalidArgument, "request add", "empty axis name")
	}
	if len(values) == 0 {
		return errorf(InvalidArgument, "request add", "no values for axis %q", axis)
	}
	axis = normaliseAxis(axis)
	if r.restrict != nil && !r.restrict.Contains(axis) {
		return errorf(AxisNotAllowed, "request add", "axis %q", axis)
	}

	for _, v := range values {
		if v == "" {
			return errorf(InvalidArgument, "request add", "empty value for axis %q", axis)
		}
	}
	terms, list, err := parseTerms(axis, values)
	if err != nil {
		return err
	}

	if r.values == nil {
		r.values = make(map[string][]string)
		r.terms = make(map[string][]valueTerm)
	}
	if _, ok := r.values[axis]; !ok {
		r.axes = append(r.axes, axis)
	}
	r.values[axis] = list
	r.terms[axis] = terms
	return nil
}

// Values returns the value list of axis as written, ranges unexpanded.
func (r *Request) Values(axis string) []string {
	return append([]string(nil), r.values[normaliseAxis(axis)]...)
}

// Axes returns the bound axis names in declaration order.
func (r *Request) Axes() []string {
	return append([]string(nil), r.axes...)
}

// Has reports whether axis is bound.
func (r *Request) Has(axis string) bool {
	_, ok := r.values[normaliseAxis(axis)]
	return ok
}

// Len returns the number of bound axes.
func (r *Request) Len() int {
	return len(r.axes)
}

// Count returns the number of concrete combinations the request denotes,
// saturating at math.MaxInt64.
func (r *Request) Count() int64 {
	var n int64 = 1
	for _, a := range r.axes {
		l := termsLen(r.terms[a])
		if l != 0 && n > math.MaxInt64/l {
			return math.MaxInt64
		}
		n *= l
	}
	return n
}

// Restriction returns the KeySet limiting which axes may be bound, or nil.
func (r *Request) Restriction() *KeySet {
	return r.restrict
}

// Key converts a request with exactly one value per axis into a Key.
func (r *Request) Key() (*Key, error) {
	k := NewKey()
	for _, a := range r.axes {
		terms := r.terms[a]
		if len(terms) != 1 || terms[0].isRange {
			return nil, errorf(InvalidArgument, "request key", "axis %q has %d values, want 1", a, termsLen(terms))
		}
		if err := k.Add(a, terms[0].lit); err != nil {
			return nil, err
		}
	}
	return k, nil
}

// Equal reports whether both requests bind the same axes, in the same
// order, to the same value lists.
func (r *Request) Equal(other *Request) bool {
	if len(r.axes) != len(other.axes) {
		return false
	}
	for i, a := range r.axes {
		if other.axes[i] != a {
			return false
		}
		rv, ov := r.values[a], other.values[a]
		if len(rv) != len(ov) {
			return false
		}
		for j := range rv {
			if rv[j] != ov[j] {
				return false
			}
		}
	}
	return true
}

// Clone returns an independent copy, restriction included.
func (r *Request) Clone() *Request {
	c := &Request{
		axes:     append([]string(nil), r.axes...),
		values:   make(map[string][]string, len(r.values)),
		terms:    make(map[string][]valueTerm, len(r.terms)),
		restrict: r.restrict,
	}
	for a, v := range r.values {
		c.values[a] = append([]string(nil), v...)
	}
	for a, t := range r.terms {
		c.terms[a] = append([]valueTerm(nil), t...)
	}
	return c
}

// String renders the request in the default grammar, e.g. "a=1/2,b=3".
func (r *Request) String() string {
	return DefaultGrammar.format(r.axes, r.values)
}

// combinations walks the Cartesian product in declaration order, last axis
// fastest. Each step builds the partial Key for the current combination;
// range values are computed from their position.
type combinations struct {
	req     *Request
	idx     []int64
	lens    []int64
	started bool
	done    bool
}

func newCombinations(r *Request) *combinations {
	c := &combinations{req: r, idx: make([]int64, len(r.axes)), lens: make([]int64, len(r.axes))}
	for i, a := range r.axes {
		c.lens[i] = termsLen(r.terms[a])
	}
	return c
}

// next returns the next combination, or nil once the product is exhausted.
func (c *combinations) next() *Key {
	if c.done {
		return nil
	}
	if c.started && !c.advance() {
		c.done = true
		return nil
	}
	c.started = true

	k := NewKey()
	for i, a := range c.req.axes {
		k.axes = append(k.axes, a)
		k.values[a] = termAt(c.req.terms[a], c.idx[i])
	}
	return k
}

func (c *combinations) advance() bool {
	for i := len(c.idx) - 1; i >= 0; i-- {
		c.idx[i]++
		if c.idx[i] < c.lens[i] {
			return true
		}
		c.idx[i] = 0
	}
	return false
}
