package testutil

import (
	"fdb-go/internal/encryption"
	"fdb-go/internal/store"
)

// NewTestEncryptor returns the header-only encryptor together with its
// unlocked decryption context.
func NewTestEncryptor() (store.Encryptor, store.DecryptionContext) {
	e := encryption.NewTestEncryptor()
	dc, _ := e.Unlock("")
	return e, dc
}
