package fdb

import (
	"errors"
	"fmt"
	"io"
	"sort"
)

// DataReader presents the payloads matching a request as one seekable byte
// stream. Payloads are opened lazily, one at a time.
type DataReader struct {
	store    Store
	elements []*ListElement
	starts   []int64
	size     int64

	pos    int64
	cur    int
	rc     io.ReadCloser
	curPos int64
	closed bool
}

func newDataReader(store Store, elements []*ListElement) *DataReader {
	r := &DataReader{store: store, elements: elements, cur: -1}
	r.starts = make([]int64, len(elements))
	for i, el := range elements {
		r.starts[i] = r.size
		r.size += el.Location.Length
	}
	return r
}

// Size returns the total length of the concatenated payloads.
func (r *DataReader) Size() int64 { return r.size }

// Elements returns the matched elements in stream order.
func (r *DataReader) Elements() []*ListElement { return r.elements }

// Read implements io.Reader.
func (r *DataReader) Read(p []byte) (int, error) {
	if r.closed {
		return 0, errorf(InvalidArgument, "read", "reader is closed")
	}
	if len(p) == 0 {
		return 0, nil
	}
	if r.pos >= r.size {
		return 0, io.EOF
	}

	idx := r.elementAt(r.pos)
	el := r.elements[idx]
	within := r.pos - r.starts[idx]
	if r.rc == nil || r.cur != idx || r.curPos != within {
		if err := r.open(idx, within); err != nil {
			return 0, err
		}
	}

	remaining := el.Location.Length - r.curPos
	if int64(len(p)) > remaining {
		p = p[:remaining]
	}
	n, err := r.rc.Read(p)
	r.pos += int64(n)
	r.curPos += int64(n)

	if r.curPos == el.Location.Length && err == nil {
		err = r.drain(el)
		r.closeCurrent()
		return n, err
	}
	if r.curPos == el.Location.Length && errors.Is(err, io.EOF) {
		r.closeCurrent()
		return n, nil
	}
	if errors.Is(err, io.EOF) {
		r.closeCurrent()
		return n, errorf(BackingStoreError, "read", "payload for %s ended after %d of %d bytes", el.Key, r.curPos, el.Location.Length)
	}
	if err != nil {
		return n, storeError("read", err)
	}
	return n, nil
}

// Seek implements io.Seeker over the concatenated stream.
func (r *DataReader) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = r.pos + offset
	case io.SeekEnd:
		abs = r.size + offset
	default:
		return r.pos, errorf(InvalidArgument, "seek", "invalid whence %d", whence)
	}
	if abs < 0 {
		return r.pos, errorf(InvalidArgument, "seek", "negative position %d", abs)
	}
	r.pos = abs
	return abs, nil
}

// Tell returns the current position.
func (r *DataReader) Tell() int64 { return r.pos }

// Skip advances the position by n bytes.
func (r *DataReader) Skip(n int64) error {
	_, err := r.Seek(n, io.SeekCurrent)
	return err
}

// Close releases the open payload, if any. Further reads fail.
func (r *DataReader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	return r.closeCurrent()
}

func (r *DataReader) elementAt(pos int64) int {
	// Last element whose start is <= pos and which is not empty at pos.
	i := sort.Search(len(r.starts), func(i int) bool { return r.starts[i] > pos }) - 1
	for i < len(r.elements)-1 && r.elements[i].Location.Length == 0 {
		i++
	}
	return i
}

func (r *DataReader) open(idx int, within int64) error {
	r.closeCurrent()
	el := r.elements[idx]
	rc, err := r.store.Open(el.Key)
	if err != nil {
		return storeError("read", fmt.Errorf("opening %s: %w", el.Key, err))
	}
	if within > 0 {
		if seeker, ok := rc.(io.Seeker); ok {
			_, err = seeker.Seek(within, io.SeekStart)
		} else {
			_, err = io.CopyN(io.Discard, rc, within)
		}
		if err != nil {
			rc.Close()
			return storeError("read", fmt.Errorf("positioning in %s: %w", el.Key, err))
		}
	}
	r.rc = rc
	r.cur = idx
	r.curPos = within
	return nil
}

// drain reads the open payload to EOF once its recorded length has been
// delivered. Stores verify integrity at EOF, so the payload is not complete
// until that read succeeds.
func (r *DataReader) drain(el *ListElement) error {
	var tail [1]byte
	for range maxEmptyReads {
		n, err := r.rc.Read(tail[:])
		if n > 0 {
			return errorf(BackingStoreError, "read", "payload for %s is longer than %d bytes", el.Key, el.Location.Length)
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return storeError("read", fmt.Errorf("reading %s: %w", el.Key, err))
		}
	}
	return errorf(BackingStoreError, "read", "payload for %s did not end after %d bytes", el.Key, el.Location.Length)
}

// maxEmptyReads bounds consecutive (0, nil) reads while draining.
const maxEmptyReads = 100

func (r *DataReader) closeCurrent() error {
	if r.rc == nil {
		return nil
	}
	err := r.rc.Close()
	r.rc = nil
	r.cur = -1
	return err
}
