package fdb

import (
	"errors"
	"fmt"
	"io"
)

const (
	DefaultChunkSize  = 64 * 1024
	DefaultStallLimit = 1000
)

// RetrieveOptions tunes the retrieval pipeline. Zero values take the defaults.
type RetrieveOptions struct {
	// ChunkSize is the size of each read from the store and write to the sink.
	ChunkSize int
	// StallLimit is how many consecutive zero-byte writes a sink may report
	// before the retrieval fails.
	StallLimit int
}

func (o RetrieveOptions) withDefaults() RetrieveOptions {
	if o.ChunkSize <= 0 {
		o.ChunkSize = DefaultChunkSize
	}
	if o.StallLimit <= 0 {
		o.StallLimit = DefaultStallLimit
	}
	return o
}

// RetrieveToStream writes the payloads matching req, in list order, to fn.
// It returns the number of bytes fn accepted.
func (f *FDB) RetrieveToStream(req *Request, fn StreamFunc) (n int64, err error) {
	defer guard("retrieve", &err)
	if fn == nil {
		return 0, errorf(InvalidArgument, "retrieve", "nil stream callback")
	}
	return f.retrieve("retrieve", req, &streamSink{fn: fn, stallLimit: f.opts.StallLimit})
}

// RetrieveToFile writes the payloads matching req to the open descriptor fd.
func (f *FDB) RetrieveToFile(req *Request, fd int) (n int64, err error) {
	defer guard("retrieve", &err)
	if fd < 0 {
		return 0, errorf(InvalidArgument, "retrieve", "invalid file descriptor %d", fd)
	}
	return f.retrieve("retrieve", req, &fdSink{fd: fd, stallLimit: f.opts.StallLimit})
}

// RetrieveToBuffer copies the payloads matching req into buf. When buf is too
// small it is filled and BufferTooSmall is returned with n == len(buf).
func (f *FDB) RetrieveToBuffer(req *Request, buf []byte) (n int64, err error) {
	defer guard("retrieve", &err)
	return f.retrieve("retrieve", req, &bufferSink{buf: buf})
}

func (f *FDB) retrieve(op string, req *Request, s sink) (int64, error) {
	if req == nil {
		return 0, errorf(InvalidArgument, op, "nil request")
	}

	it := newListIterator(f.store, f.schema, req, ListOptions{})
	buf := make([]byte, f.opts.ChunkSize)
	var total int64
	fields := 0
	for {
		el, err := it.Next()
		if err == ErrIterationComplete {
			break
		}
		if err != nil {
			f.logger.Error("retrieve failed", "request", req.String(), "error", err)
			return total, err
		}
		n, err := f.copyField(op, el, s, buf)
		total += n
		if errors.Is(err, ErrStopStream) {
			f.logger.Debug("retrieve stopped by sink", "request", req.String(), "bytes", total)
			return total, nil
		}
		if err != nil {
			f.logger.Error("retrieve failed", "request", req.String(), "key", el.Key.String(), "error", err)
			return total, err
		}
		fields++
	}
	f.logger.Debug("retrieve complete", "request", req.String(), "fields", fields, "bytes", total, "visited", it.Visited())
	return total, nil
}

func (f *FDB) copyField(op string, el *ListElement, s sink, buf []byte) (int64, error) {
	rc, err := f.store.Open(el.Key)
	if err != nil {
		return 0, storeError(op, fmt.Errorf("opening %s: %w", el.Key, err))
	}
	defer rc.Close()

	var total int64
	for {
		n, rerr := rc.Read(buf)
		if n > 0 {
			w, werr := s.write(buf[:n])
			total += int64(w)
			if werr != nil {
				return total, werr
			}
		}
		if rerr == io.EOF {
			return total, nil
		}
		if rerr != nil {
			return total, storeError(op, fmt.Errorf("reading %s: %w", el.Key, rerr))
		}
	}
}
