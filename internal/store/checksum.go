package store

import (
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"

	"github.com/zeebo/blake3"
)

// ErrChecksumMismatch is returned when a payload read back does not hash to
// the digest recorded at archive time.
var ErrChecksumMismatch = errors.New("payload checksum mismatch")

func newHasher() hash.Hash { return blake3.New() }

func hexSum(h hash.Hash) string { return hex.EncodeToString(h.Sum(nil)) }

// verifyingReader hashes everything read through it and checks the length
// and digest once the underlying reader reports EOF.
type verifyingReader struct {
	r      io.Reader
	h      hash.Hash
	want   string
	length int64
	n      int64
}

func newVerifyingReader(r io.Reader, checksum string, length int64) *verifyingReader {
	return &verifyingReader{r: r, h: newHasher(), want: checksum, length: length}
}

func (v *verifyingReader) Read(p []byte) (int, error) {
	n, err := v.r.Read(p)
	if n > 0 {
		v.h.Write(p[:n])
		v.n += int64(n)
		if v.n > v.length {
			return n, fmt.Errorf("payload longer than recorded length %d", v.length)
		}
	}
	if err == io.EOF {
		if v.n != v.length {
			return n, fmt.Errorf("payload is %d bytes, recorded length %d", v.n, v.length)
		}
		if got := hexSum(v.h); got != v.want {
			return n, fmt.Errorf("%w: got %s, want %s", ErrChecksumMismatch, got, v.want)
		}
	}
	return n, err
}
