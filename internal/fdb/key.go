package fdb

import (
	"sort"
	"strings"
)

// Key addresses exactly one stored field: an ordered set of axis/value
// pairs with one value per axis. Axis names are case-insensitive and stored
// in lower case. A Key may omit axes.
type Key struct {
	axes   []string
	values map[string]string
}

// NewKey returns an empty Key.
func NewKey() *Key {
	return &Key{values: make(map[string]string)}
}

// KeyFromPairs builds a Key from alternating axis, value arguments.
func KeyFromPairs(pairs ...string) (*Key, error) {
	if len(pairs)%2 != 0 {
		return nil, errorf(InvalidArgument, "key", "odd number of arguments: %d", len(pairs))
	}
	k := NewKey()
	for i := 0; i < len(pairs); i += 2 {
		if err := k.Add(pairs[i], pairs[i+1]); err != nil {
			return nil, err
		}
	}
	return k, nil
}

// Add sets the value for axis. An existing axis is overwritten in place
// (last write wins, original position kept).
func (k *Key) Add(axis, value string) error {
	axis = normaliseAxis(axis)
	if axis == "" {
		return errorf(InvalidArgument, "key add", "empty axis name")
	}
	if value == "" {
		return errorf(InvalidArgument, "key add", "empty value for axis %q", axis)
	}
	if k.values == nil {
		k.values = make(map[string]string)
	}
	if _, ok := k.values[axis]; !ok {
		k.axes = append(k.axes, axis)
	}
	k.values[axis] = value
	return nil
}

// Value returns the value bound to axis.
func (k *Key) Value(axis string) (string, bool) {
	if k == nil {
		return "", false
	}
	v, ok := k.values[normaliseAxis(axis)]
	return v, ok
}

// Axes returns the axis names in insertion order.
func (k *Key) Axes() []string {
	if k == nil {
		return nil
	}
	return append([]string(nil), k.axes...)
}

// Len returns the number of axes.
func (k *Key) Len() int {
	if k == nil {
		return 0
	}
	return len(k.axes)
}

// Clean drops every pair so the Key can be reused.
func (k *Key) Clean() {
	k.axes = nil
	k.values = make(map[string]string)
}

// Clone returns an independent copy.
func (k *Key) Clone() *Key {
	c := &Key{
		axes:   append([]string(nil), k.axes...),
		values: make(map[string]string, len(k.values)),
	}
	for a, v := range k.values {
		c.values[a] = v
	}
	return c
}

// Equal reports whether both keys bind the same values to the same axes.
// Axis order is not significant.
func (k *Key) Equal(other *Key) bool {
	if k.Len() != other.Len() {
		return false
	}
	for a, v := range k.values {
		if ov, ok := other.values[a]; !ok || ov != v {
			return false
		}
	}
	return true
}

// Matches reports whether k binds every axis of partial to the same value.
func (k *Key) Matches(partial *Key) bool {
	for _, a := range partial.axes {
		if v, ok := k.values[a]; !ok || v != partial.values[a] {
			return false
		}
	}
	return true
}

// Canonical returns the order-independent identity of the key: pairs sorted
// by axis name, joined by commas. Backslash, comma and equals inside axes and
// values are escaped with a backslash, so distinct keys never share a
// canonical form.
func (k *Key) Canonical() string {
	axes := k.Axes()
	sort.Strings(axes)
	return k.join(axes)
}

// String renders the key in insertion order as {a=1,b=2}.
func (k *Key) String() string {
	return "{" + k.join(k.axes) + "}"
}

func (k *Key) join(axes []string) string {
	var b strings.Builder
	for i, a := range axes {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(keyEscaper.Replace(a))
		b.WriteByte('=')
		b.WriteString(keyEscaper.Replace(k.values[a]))
	}
	return b.String()
}

var keyEscaper = strings.NewReplacer(`\`, `\\`, `,`, `\,`, `=`, `\=`)

func normaliseAxis(axis string) string {
	return strings.ToLower(strings.TrimSpace(axis))
}
