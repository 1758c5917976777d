package app

import (
	"fmt"
	"os"
	"path/filepath"

	"fdb-go/internal/config"
	"fdb-go/internal/database"
	"fdb-go/internal/encryption"
	"fdb-go/internal/vault"
)

// Initialize prepares a new store: it creates and migrates the index, checks
// that the vault is usable and generates encryption keys when none exist.
// passphrase is only used for key generation.
func Initialize(cfg *config.Config, passphrase string) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	db, err := database.NewDatabaseFromConfig(cfg.Database, cfg.Name)
	if err != nil {
		return fmt.Errorf("creating database: %w", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}

	v, err := vault.NewVaultFromConfig(cfg.Vaults[0])
	if err != nil {
		return fmt.Errorf("creating vault: %w", err)
	}
	if err := v.ValidateSetup(); err != nil {
		return fmt.Errorf("validating vault: %w", err)
	}

	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		return fmt.Errorf("creating encryptor: %w", err)
	}
	if enc != nil && !enc.IsConfigured() {
		if passphrase == "" {
			return fmt.Errorf("a passphrase is required to generate encryption keys")
		}
		if err := enc.Setup(passphrase); err != nil {
			return fmt.Errorf("generating encryption keys: %w", err)
		}
	}

	return nil
}

// RestoreIndex downloads the index snapshot from the vault into the local
// data directory. It refuses to overwrite an existing index.
func RestoreIndex(cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if cfg.Database.Type != "sqlite" {
		return fmt.Errorf("restore needs a sqlite database, got %q", cfg.Database.Type)
	}

	dest := filepath.Join(cfg.Database.DataDir, cfg.Name+".db")
	if _, err := os.Stat(dest); err == nil {
		return fmt.Errorf("index already exists at %s", dest)
	}

	v, err := vault.NewVaultFromConfig(cfg.Vaults[0])
	if err != nil {
		return fmt.Errorf("creating vault: %w", err)
	}

	if err := os.MkdirAll(cfg.Database.DataDir, 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	tmp, err := os.CreateTemp(cfg.Database.DataDir, ".restore-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if err := v.GetMetadata(cfg.Name, metadataName, tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("downloading index snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing index snapshot: %w", err)
	}

	if err := os.Rename(tmpPath, dest); err != nil {
		return fmt.Errorf("installing index snapshot: %w", err)
	}
	return nil
}
