package fdb

import (
	"errors"
	"fmt"
)

// StreamFunc receives retrieved bytes. It returns how many leading bytes of p
// it accepted; the rest is offered again on the next call. Returning
// ErrStopStream ends the retrieval cleanly. Any other error, or an
// acceptance outside [0, len(p)], fails the retrieval with SinkWriteError.
type StreamFunc func(p []byte) (int, error)

// sink writes all of p or fails, reporting how many bytes it took.
type sink interface {
	write(p []byte) (int, error)
}

type streamSink struct {
	fn         StreamFunc
	stallLimit int
}

func (s *streamSink) write(p []byte) (int, error) {
	written := 0
	stalls := 0
	for len(p) > 0 {
		n, err := s.fn(p)
		if n < 0 || n > len(p) {
			return written, errorf(SinkWriteError, "stream", "callback accepted %d of %d bytes", n, len(p))
		}
		written += n
		p = p[n:]
		if errors.Is(err, ErrStopStream) {
			return written, ErrStopStream
		}
		if err != nil {
			return written, newError(SinkWriteError, "stream", err)
		}
		if n > 0 {
			stalls = 0
			continue
		}
		stalls++
		if stalls >= s.stallLimit {
			return written, errorf(SinkWriteError, "stream", "callback accepted nothing %d times in a row", stalls)
		}
	}
	return written, nil
}

type bufferSink struct {
	buf []byte
	n   int
}

func (s *bufferSink) write(p []byte) (int, error) {
	space := len(s.buf) - s.n
	if len(p) > space {
		copy(s.buf[s.n:], p[:space])
		s.n += space
		return space, errorf(BufferTooSmall, "buffer", "capacity %d exceeded", len(s.buf))
	}
	copy(s.buf[s.n:], p)
	s.n += len(p)
	return len(p), nil
}

// fdSink writes to a raw file descriptor; write is platform specific.
type fdSink struct {
	fd         int
	stallLimit int
}

func fdWriteError(fd int, err error) error {
	return newError(SinkWriteError, "fd", fmt.Errorf("writing to descriptor %d: %w", fd, err))
}
