//go:build unix

package fdb

import (
	"errors"
	"io"
	"os"
	"strings"
	"testing"

	"golang.org/x/sys/unix"
)

func TestRetrieveToFile(t *testing.T) {
	f, _ := newTestFDB(t)
	payload := strings.Repeat("0123456789", 20000)
	archiveAll(t, f, map[string]string{"a=1": payload, "a=2": "tail"})

	t.Run("pipe", func(t *testing.T) {
		r, w, err := os.Pipe()
		if err != nil {
			t.Fatalf("Pipe() error = %v", err)
		}
		defer r.Close()

		done := make(chan string)
		go func() {
			b, _ := io.ReadAll(r)
			done <- string(b)
		}()

		n, err := f.RetrieveToFile(mustRequest(t, "a=1/2"), int(w.Fd()))
		w.Close()
		if err != nil {
			t.Fatalf("RetrieveToFile() error = %v", err)
		}
		got := <-done
		if n != int64(len(payload)+4) || got != payload+"tail" {
			t.Errorf("n = %d, got %d bytes", n, len(got))
		}
	})

	t.Run("non-blocking pipe", func(t *testing.T) {
		var fds [2]int
		if err := unix.Pipe(fds[:]); err != nil {
			t.Fatalf("Pipe() error = %v", err)
		}
		r := os.NewFile(uintptr(fds[0]), "r")
		defer r.Close()
		if err := unix.SetNonblock(fds[1], true); err != nil {
			t.Fatalf("SetNonblock() error = %v", err)
		}

		done := make(chan int)
		go func() {
			b, _ := io.ReadAll(r)
			done <- len(b)
		}()

		n, err := f.RetrieveToFile(mustRequest(t, "a=1"), fds[1])
		unix.Close(fds[1])
		if err != nil {
			t.Fatalf("RetrieveToFile() error = %v", err)
		}
		if got := <-done; n != int64(len(payload)) || got != len(payload) {
			t.Errorf("n = %d, read %d", n, got)
		}
	})

	t.Run("closed descriptor", func(t *testing.T) {
		r, w, err := os.Pipe()
		if err != nil {
			t.Fatalf("Pipe() error = %v", err)
		}
		r.Close()
		defer w.Close()

		// Writing to a pipe with no reader raises EPIPE; SIGPIPE is not
		// delivered for descriptors other than stdout and stderr in Go.
		_, err = f.RetrieveToFile(mustRequest(t, "a=2"), int(w.Fd()))
		if !errors.Is(err, ErrSinkWrite) {
			t.Errorf("error = %v, want SinkWriteError", err)
		}
	})
}
