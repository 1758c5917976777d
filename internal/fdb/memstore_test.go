package fdb

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"testing"
)

// memStore is an in-memory Store for exercising the handle without a
// database or vault.
type memStore struct {
	entries []*Entry
	data    map[int64][]byte
	nextID  int64

	matchCalls int
	// failMatchAt makes the n-th Match call (1-based) fail with matchErr.
	failMatchAt int
	matchErr    error
	openErr     error
	putErr      error
	removeErr   error
	panicOnOpen bool
	// eofErr replaces io.EOF at the end of every opened payload.
	eofErr error
}

func newMemStore() *memStore {
	return &memStore{data: make(map[int64][]byte)}
}

func (s *memStore) Exists(key *Key) (bool, error) {
	for _, e := range s.entries {
		if !e.Masked && e.Key.Equal(key) {
			return true, nil
		}
	}
	return false, nil
}

func (s *memStore) Match(partial *Key, opts MatchOptions) ([]*Entry, error) {
	s.matchCalls++
	if s.failMatchAt > 0 && s.matchCalls >= s.failMatchAt {
		return nil, s.matchErr
	}
	var out []*Entry
	for _, e := range s.entries {
		if e.Masked && !opts.Duplicates {
			continue
		}
		if e.Key.Matches(partial) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *memStore) Open(key *Key) (io.ReadCloser, error) {
	if s.panicOnOpen {
		panic("store exploded")
	}
	if s.openErr != nil {
		return nil, s.openErr
	}
	for i := len(s.entries) - 1; i >= 0; i-- {
		e := s.entries[i]
		if !e.Masked && e.Key.Equal(key) {
			var r io.Reader = bytes.NewReader(s.data[e.Location.ID])
			if s.eofErr != nil {
				r = &eofErrReader{r: r, err: s.eofErr}
			}
			return io.NopCloser(r), nil
		}
	}
	return nil, errorf(NotFound, "open", "no field for %s", key)
}

// eofErrReader reports err where r reports io.EOF, like a store that
// verifies a payload once it has been read to the end.
type eofErrReader struct {
	r   io.Reader
	err error
}

func (e *eofErrReader) Read(p []byte) (int, error) {
	n, err := e.r.Read(p)
	if err == io.EOF {
		return n, e.err
	}
	return n, err
}

func (s *memStore) Put(key *Key, r io.Reader, size int64) error {
	if s.putErr != nil {
		return s.putErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if int64(len(data)) != size {
		return fmt.Errorf("read %d bytes, want %d", len(data), size)
	}
	for _, e := range s.entries {
		if e.Key.Equal(key) {
			e.Masked = true
		}
	}
	s.nextID++
	s.data[s.nextID] = data
	s.entries = append(s.entries, &Entry{
		Key: key.Clone(),
		Location: Location{
			ID:     s.nextID,
			Object: fmt.Sprintf("obj-%d", s.nextID),
			Length: size,
		},
	})
	return nil
}

func (s *memStore) Remove(entry *Entry) error {
	if s.removeErr != nil {
		return s.removeErr
	}
	for i, e := range s.entries {
		if e.Location.ID == entry.Location.ID {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			delete(s.data, e.Location.ID)
			return nil
		}
	}
	return errors.New("no such entry")
}

func mustKey(t testing.TB, pairs ...string) *Key {
	t.Helper()
	k, err := KeyFromPairs(pairs...)
	if err != nil {
		t.Fatalf("KeyFromPairs(%v) error = %v", pairs, err)
	}
	return k
}

func mustRequest(t testing.TB, text string) *Request {
	t.Helper()
	r, err := ParseRequest(text)
	if err != nil {
		t.Fatalf("ParseRequest(%q) error = %v", text, err)
	}
	return r
}
