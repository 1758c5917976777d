package fdb

import (
	"fmt"
	"io"
	"time"
)

// Store is the backing index and payload store. This package never touches
// physical storage directly; every lookup goes through a Store.
type Store interface {
	// Exists reports whether a field is stored under exactly key.
	Exists(key *Key) (bool, error)

	// Match returns every stored field whose key binds each axis of partial
	// to the same value. Axes absent from partial match any value. Results
	// are in archive order; masked entries are included only when
	// opts.Duplicates is set.
	Match(partial *Key, opts MatchOptions) ([]*Entry, error)

	// Open returns the payload of the newest field stored under exactly key.
	// It returns an error matching ErrNotFound when there is none.
	Open(key *Key) (io.ReadCloser, error)

	// Put stores size bytes read from r under key. An existing field with the
	// same key is masked, not deleted.
	Put(key *Key, r io.Reader, size int64) error

	// Remove deletes one stored entry and its payload.
	Remove(entry *Entry) error
}

// MatchOptions tunes Store.Match.
type MatchOptions struct {
	// Duplicates includes entries masked by a later archive of the same key.
	Duplicates bool
}

// Entry is one stored field as reported by the Store.
type Entry struct {
	Key      *Key
	Location Location
	Masked   bool
}

// Location describes where the payload of an entry lives. It is opaque to
// this package apart from Length.
type Location struct {
	ID         int64
	Object     string
	Offset     int64
	Length     int64
	ArchivedAt time.Time
}

func (l Location) String() string {
	s := fmt.Sprintf("%s offset=%d length=%d", l.Object, l.Offset, l.Length)
	if !l.ArchivedAt.IsZero() {
		s += " archived=" + l.ArchivedAt.UTC().Format(time.RFC3339)
	}
	return s
}
