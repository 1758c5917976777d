//go:build !unix

package fdb

func (s *fdSink) write(p []byte) (int, error) {
	return 0, errorf(InvalidArgument, "fd", "file descriptor sinks are not supported on this platform")
}
