package store

import (
	"errors"
	"io"

	"fdb-go/internal/database/sqlc"
)

// ErrContentNotFound is wrapped by vaults when an object does not exist.
var ErrContentNotFound = errors.New("content not found")

// Index records which fields exist, under which keys, and where their
// payloads live.
type Index interface {
	// CreateField records a new field and its axes in one transaction. Any
	// existing field with the same canonical key is masked first.
	CreateField(field *sqlc.Field, axes []sqlc.FieldAxis) (*sqlc.Field, error)

	// FindCurrentField returns the newest unmasked field stored under the
	// canonical key, or nil when there is none.
	FindCurrentField(canonicalKey string) (*sqlc.Field, error)

	// FindFieldsByAxis returns every field, masked or not, binding axis to
	// value, in archive order.
	FindFieldsByAxis(axis, value string) ([]*sqlc.Field, error)

	// ListFields returns every field, masked or not, in archive order.
	ListFields() ([]*sqlc.Field, error)

	// FindFieldAxes returns the axes of a field in their archived order.
	FindFieldAxes(fieldID int64) ([]*sqlc.FieldAxis, error)

	// DeleteField removes a field. When it was the visible version of its
	// key, the newest remaining version becomes visible.
	DeleteField(fieldID int64) error
}

// Vault stores payload objects and versioned metadata blobs. All operations
// stream so large payloads are never held in memory.
type Vault interface {
	// PutContent stores size bytes read from r under id.
	PutContent(id string, r io.Reader, size int64) error

	// OpenContent opens the object stored under id. A missing object yields
	// an error wrapping ErrContentNotFound.
	OpenContent(id string) (io.ReadCloser, error)

	// DeleteContent removes the object stored under id. Deleting a missing
	// object is not an error.
	DeleteContent(id string) error

	// PutMetadata stores a named metadata item for one store, along with a
	// version used for consistency checks. Known names: "db".
	PutMetadata(fdbName string, name string, r io.Reader, size int64, version int64) error

	// GetMetadata writes a named metadata item to w.
	GetMetadata(fdbName string, name string, w io.Writer) error

	// GetMetadataVersion returns the version stored with a metadata item, or
	// 0 if it has never been stored.
	GetMetadataVersion(fdbName string, name string) (int64, error)

	// ValidateSetup verifies that the vault is reachable and usable.
	ValidateSetup() error
}

// Encryptor encrypts payloads at rest. Encryption uses the public key only;
// decryption needs the passphrase to unlock the private key.
type Encryptor interface {
	// Setup generates and stores a key pair, protecting the private key with
	// passphrase. Called during `fdb config init`.
	Setup(passphrase string) error

	// Encrypt returns a writer that encrypts into w. Close must be called to
	// flush the final block.
	Encrypt(w io.Writer) (io.WriteCloser, error)

	// Unlock decrypts the private key and returns a context that can read
	// encrypted payloads for the rest of the session.
	Unlock(passphrase string) (DecryptionContext, error)

	// IsConfigured reports whether key material exists.
	IsConfigured() bool
}

// DecryptionContext holds an unlocked private key in memory.
type DecryptionContext interface {
	// Decrypt returns a reader yielding the plaintext of r.
	Decrypt(r io.Reader) (io.Reader, error)
}
