package encryption

import (
	"fmt"

	"fdb-go/internal/config"
	"fdb-go/internal/store"
)

// NewEncryptorFromConfig creates an Encryptor based on the configuration type.
// Type "none" returns a nil Encryptor: payloads are stored in plaintext.
func NewEncryptorFromConfig(cfg config.EncryptionConfig) (store.Encryptor, error) {
	switch cfg.Type {
	case "age", "":
		return NewAgeEncryptor(cfg), nil
	case "test":
		return NewTestEncryptor(), nil
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown encryption type: %q", cfg.Type)
	}
}
