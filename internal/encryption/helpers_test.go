package encryption

import (
	"bytes"
	"io"
	"testing"

	"fdb-go/internal/store"
)

func seal(t *testing.T, e store.Encryptor, plaintext []byte) []byte {
	t.Helper()

	var out bytes.Buffer
	w, err := e.Encrypt(&out)
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	if _, err := w.Write(plaintext); err != nil {
		t.Fatalf("writing plaintext: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("closing encrypted writer: %v", err)
	}
	return out.Bytes()
}

func unseal(t *testing.T, dc store.DecryptionContext, ciphertext []byte) []byte {
	t.Helper()

	r, err := dc.Decrypt(bytes.NewReader(ciphertext))
	if err != nil {
		t.Fatalf("Decrypt() error = %v", err)
	}
	out, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("reading plaintext: %v", err)
	}
	return out
}
