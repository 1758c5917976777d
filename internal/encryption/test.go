package encryption

import (
	"bytes"
	"fmt"
	"io"

	"fdb-go/internal/store"
)

// testHeader marks payloads sealed by TestEncryptor.
var testHeader = []byte("FDBTEST\x00")

// TestEncryptor is a deterministic stand-in for age in tests. It prepends a
// fixed 8-byte header on encryption and strips it on decryption, so stored
// objects differ from their plaintext without any key material.
type TestEncryptor struct {
	setupCalled bool
}

var _ store.Encryptor = (*TestEncryptor)(nil)

// NewTestEncryptor creates a new TestEncryptor.
func NewTestEncryptor() *TestEncryptor {
	return &TestEncryptor{}
}

func (e *TestEncryptor) Setup(passphrase string) error {
	e.setupCalled = true
	return nil
}

func (e *TestEncryptor) Encrypt(w io.Writer) (io.WriteCloser, error) {
	return &headerWriter{w: w}, nil
}

func (e *TestEncryptor) Unlock(passphrase string) (store.DecryptionContext, error) {
	return &TestDecryptionContext{}, nil
}

func (e *TestEncryptor) IsConfigured() bool {
	return true
}

// headerWriter writes testHeader before the first byte, or on Close when
// nothing was written.
type headerWriter struct {
	w       io.Writer
	started bool
}

func (h *headerWriter) start() error {
	if h.started {
		return nil
	}
	h.started = true
	if _, err := h.w.Write(testHeader); err != nil {
		return fmt.Errorf("writing test header: %w", err)
	}
	return nil
}

func (h *headerWriter) Write(p []byte) (int, error) {
	if err := h.start(); err != nil {
		return 0, err
	}
	return h.w.Write(p)
}

func (h *headerWriter) Close() error {
	return h.start()
}

// TestDecryptionContext strips the test header added by TestEncryptor.
type TestDecryptionContext struct{}

var _ store.DecryptionContext = (*TestDecryptionContext)(nil)

func (c *TestDecryptionContext) Decrypt(r io.Reader) (io.Reader, error) {
	header := make([]byte, len(testHeader))
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, fmt.Errorf("reading test header: %w", err)
	}
	if !bytes.Equal(header, testHeader) {
		return nil, fmt.Errorf("invalid test encryption header")
	}
	return r, nil
}
