package fdb

import "sort"

// KeySet is an unordered, duplicate-free set of axis names. It restricts
// which axes a textual request may bind.
type KeySet struct {
	names map[string]struct{}
}

// NewKeySet returns a KeySet holding names. Empty names are ignored.
func NewKeySet(names ...string) *KeySet {
	ks := &KeySet{names: make(map[string]struct{}, len(names))}
	for _, n := range names {
		ks.Add(n)
	}
	return ks
}

// Add inserts name. Adding an existing name is a no-op.
func (ks *KeySet) Add(name string) {
	name = normaliseAxis(name)
	if name == "" {
		return
	}
	if ks.names == nil {
		ks.names = make(map[string]struct{})
	}
	ks.names[name] = struct{}{}
}

// Contains reports whether name (case-insensitive) is in the set.
func (ks *KeySet) Contains(name string) bool {
	if ks == nil {
		return false
	}
	_, ok := ks.names[normaliseAxis(name)]
	return ok
}

// Len returns the number of names.
func (ks *KeySet) Len() int {
	if ks == nil {
		return 0
	}
	return len(ks.names)
}

// Names returns the names sorted.
func (ks *KeySet) Names() []string {
	if ks == nil {
		return nil
	}
	out := make([]string, 0, len(ks.names))
	for n := range ks.names {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Clean empties the set.
func (ks *KeySet) Clean() {
	ks.names = make(map[string]struct{})
}
