//go:build unix

package fdb

import (
	"golang.org/x/sys/unix"
)

func (s *fdSink) write(p []byte) (int, error) {
	written := 0
	stalls := 0
	for len(p) > 0 {
		n, err := unix.Write(s.fd, p)
		switch {
		case err == unix.EINTR:
			continue
		case err == unix.EAGAIN:
			if perr := s.waitWritable(); perr != nil {
				return written, fdWriteError(s.fd, perr)
			}
			continue
		case err != nil:
			return written, fdWriteError(s.fd, err)
		}
		if n <= 0 {
			stalls++
			if stalls >= s.stallLimit {
				return written, fdWriteError(s.fd, unix.EIO)
			}
			continue
		}
		stalls = 0
		written += n
		p = p[n:]
	}
	return written, nil
}

// waitWritable blocks until a non-blocking descriptor can take more bytes.
func (s *fdSink) waitWritable() error {
	fds := []unix.PollFd{{Fd: int32(s.fd), Events: unix.POLLOUT}}
	for {
		_, err := unix.Poll(fds, -1)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return err
		}
		if fds[0].Revents&(unix.POLLERR|unix.POLLNVAL) != 0 {
			return unix.EIO
		}
		return nil
	}
}
