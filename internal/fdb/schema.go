package fdb

import "strings"

// Schema groups axes into ordered levels for display, e.g.
// {class,expver,stream,date,time,domain}{type,levtype}{step,levelist,param}.
// Axes not named by any level are appended to the last level in key order.
// The zero Schema renders a key as a single level.
type Schema struct {
	levels [][]string
}

// NewSchema builds a Schema from level axis lists. Axis names are
// normalised; empty levels are dropped.
func NewSchema(levels ...[]string) *Schema {
	s := &Schema{}
	for _, lvl := range levels {
		var names []string
		for _, a := range lvl {
			if a = normaliseAxis(a); a != "" {
				names = append(names, a)
			}
		}
		if len(names) > 0 {
			s.levels = append(s.levels, names)
		}
	}
	return s
}

// Levels returns the number of levels (at least one).
func (s *Schema) Levels() int {
	if s == nil || len(s.levels) == 0 {
		return 1
	}
	return len(s.levels)
}

// Split partitions key into one Key per level. Levels the key binds no
// axis of come back empty.
func (s *Schema) Split(key *Key) []*Key {
	n := s.Levels()
	out := make([]*Key, n)
	for i := range out {
		out[i] = NewKey()
	}

	placed := make(map[string]bool, key.Len())
	if s != nil {
		for i, lvl := range s.levels {
			for _, a := range lvl {
				if v, ok := key.values[a]; ok {
					out[i].axes = append(out[i].axes, a)
					out[i].values[a] = v
					placed[a] = true
				}
			}
		}
	}
	last := out[n-1]
	for _, a := range key.axes {
		if !placed[a] {
			last.axes = append(last.axes, a)
			last.values[a] = key.values[a]
		}
	}
	return out
}

// Format renders key as {..}{..} following the levels.
func (s *Schema) Format(key *Key) string {
	var b strings.Builder
	for _, part := range s.Split(key) {
		b.WriteString(part.String())
	}
	return b.String()
}
