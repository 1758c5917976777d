package fdb

import (
	"bytes"
	"fmt"
	"io"
)

// FDB is a handle on one field store. It is not safe for concurrent use;
// open one handle per goroutine.
type FDB struct {
	store  Store
	schema *Schema
	logger Logger
	opts   RetrieveOptions
}

// NewFDB creates a handle over store. A nil schema renders keys as a single
// level and a nil logger discards output.
func NewFDB(store Store, schema *Schema, logger Logger, opts RetrieveOptions) *FDB {
	if schema == nil {
		schema = NewSchema()
	}
	if logger == nil {
		logger = NewNopLogger()
	}
	return &FDB{
		store:  store,
		schema: schema,
		logger: logger,
		opts:   opts.withDefaults(),
	}
}

// Schema returns the schema used to render list elements.
func (f *FDB) Schema() *Schema { return f.schema }

// Archive stores data under key. Archiving an existing key masks the older
// field; retrieval then returns the new one.
func (f *FDB) Archive(key *Key, data []byte) (err error) {
	defer guard("archive", &err)
	return f.ArchiveFrom(key, bytes.NewReader(data), int64(len(data)))
}

// ArchiveFrom stores size bytes read from r under key.
func (f *FDB) ArchiveFrom(key *Key, r io.Reader, size int64) (err error) {
	defer guard("archive", &err)

	if key == nil || key.Len() == 0 {
		return errorf(InvalidArgument, "archive", "key binds no axes")
	}
	if r == nil {
		return errorf(InvalidArgument, "archive", "nil data")
	}
	if size < 0 {
		return errorf(InvalidArgument, "archive", "negative size %d", size)
	}

	if err := f.store.Put(key, r, size); err != nil {
		f.logger.Error("archive failed", "key", key.String(), "error", err)
		return storeError("archive", fmt.Errorf("storing %s: %w", key, err))
	}
	f.logger.Info("archived field", "key", key.String(), "size", size)
	return nil
}

// ArchiveRequest archives data under the key denoted by a request binding
// exactly one value per axis.
func (f *FDB) ArchiveRequest(req *Request, data []byte) (err error) {
	defer guard("archive", &err)
	if req == nil {
		return errorf(InvalidArgument, "archive", "nil request")
	}
	key, err := req.Key()
	if err != nil {
		return err
	}
	return f.Archive(key, data)
}

// Exists reports whether a field is stored under exactly key.
func (f *FDB) Exists(key *Key) (ok bool, err error) {
	defer guard("exists", &err)
	if key == nil || key.Len() == 0 {
		return false, errorf(InvalidArgument, "exists", "key binds no axes")
	}
	ok, err = f.store.Exists(key)
	if err != nil {
		return false, storeError("exists", fmt.Errorf("looking up %s: %w", key, err))
	}
	return ok, nil
}

// List returns a lazy iterator over the fields matching req. A nil request
// lists everything.
func (f *FDB) List(req *Request, opts ListOptions) (it *ListIterator, err error) {
	defer guard("list", &err)
	if req == nil {
		req = NewRequest()
	}
	f.logger.Debug("listing", "request", req.String(), "combinations", req.Count(), "duplicates", opts.Duplicates)
	return newListIterator(f.store, f.schema, req, opts), nil
}

// Retrieve resolves req and returns a seekable reader over the concatenated
// payloads, in list order.
func (f *FDB) Retrieve(req *Request) (r *DataReader, err error) {
	defer guard("retrieve", &err)
	if req == nil {
		return nil, errorf(InvalidArgument, "retrieve", "nil request")
	}
	elements, err := f.collect(req, ListOptions{})
	if err != nil {
		return nil, err
	}
	return newDataReader(f.store, elements), nil
}

// Wipe lists every field matching req, masked ones included. With doit set
// it also removes them from the store. The request must bind at least one
// axis. On failure the returned elements end with the one whose removal
// failed; the store may have removed it in part.
func (f *FDB) Wipe(req *Request, doit bool) (wiped []*ListElement, err error) {
	defer guard("wipe", &err)
	if req == nil || req.Len() == 0 {
		return nil, errorf(InvalidArgument, "wipe", "refusing to wipe without any axis")
	}
	elements, err := f.collect(req, ListOptions{Duplicates: true})
	if err != nil {
		return nil, err
	}
	if !doit {
		return elements, nil
	}

	for i, el := range elements {
		entry := &Entry{Key: el.Key, Location: el.Location, Masked: el.Masked}
		if err := f.store.Remove(entry); err != nil {
			f.logger.Error("wipe failed", "key", el.Key.String(), "error", err)
			return elements[:i+1], storeError("wipe", fmt.Errorf("removing %s: %w", el.Key, err))
		}
		f.logger.Info("wiped field", "key", el.Key.String(), "object", el.Location.Object)
	}
	return elements, nil
}

func (f *FDB) collect(req *Request, opts ListOptions) ([]*ListElement, error) {
	it := newListIterator(f.store, f.schema, req, opts)
	var out []*ListElement
	for {
		el, err := it.Next()
		if err == ErrIterationComplete {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, el)
	}
}
