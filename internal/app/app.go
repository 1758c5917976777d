package app

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"fdb-go/internal/config"
	"fdb-go/internal/database"
	"fdb-go/internal/database/sqlc"
	"fdb-go/internal/encryption"
	"fdb-go/internal/fdb"
	"fdb-go/internal/store"
	"fdb-go/internal/vault"
)

// metadataName is the vault metadata item holding the index snapshot.
const metadataName = "db"

// FDBApp is the application layer between the CLI and fdb.FDB.
// It constructs all dependencies from config, exposes high-level operations
// that accept raw request text, and manages the index lifecycle on Close.
type FDBApp struct {
	cfg       *config.Config
	db        *database.SQLiteDatabase
	vault     store.Vault
	encryptor store.Encryptor
	store     *store.FieldStore
	fdb       *fdb.FDB
	grammar   fdb.Grammar
	op        *Operation
	logger    *slog.Logger
	logFile   *os.File
}

// NewFDBApp creates a fully wired FDBApp from the given config.
// operation identifies the CLI command being run (e.g. "archive", "wipe").
// The caller must call Close when done.
func NewFDBApp(cfg *config.Config, operation string, verbose bool) (*FDBApp, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	grammar, err := grammarFromConfig(cfg.Grammar)
	if err != nil {
		return nil, err
	}
	compression, err := store.ParseCompression(cfg.Store.Compression)
	if err != nil {
		return nil, err
	}

	v, err := vault.NewVaultFromConfig(cfg.Vaults[0])
	if err != nil {
		return nil, fmt.Errorf("creating vault: %w", err)
	}

	db, err := database.NewDatabaseFromConfig(cfg.Database, cfg.Name)
	if err != nil {
		return nil, fmt.Errorf("creating database: %w", err)
	}

	if err := db.CheckMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database schema out of date (run `fdb config init`): %w", err)
	}

	// The vault copy of the index must never be newer than the local one.
	remoteVersion, err := v.GetMetadataVersion(cfg.Name, metadataName)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("checking remote metadata version: %w", err)
	}

	localMax, err := db.MaxOperationID()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("checking local metadata version: %w", err)
	}

	if remoteVersion > localMax {
		db.Close()
		return nil, fmt.Errorf("local index is behind remote (local=%d, remote=%d): run `fdb config restore`", localMax, remoteVersion)
	}

	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating encryptor: %w", err)
	}
	if enc != nil && !enc.IsConfigured() {
		db.Close()
		return nil, fmt.Errorf("encryption keys missing: run `fdb config init`")
	}

	opID := time.Now().UTC().Format("20060102T150405Z")
	logger, logFile, err := newLogger(cfg.LogDir, opID, verbose)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	adapter := &slogAdapter{l: logger}

	fs := store.NewFieldStore(db, v, store.Options{
		Encryptor:   enc,
		Compression: compression,
		SpoolDir:    cfg.Store.SpoolDir,
		Logger:      adapter,
	})
	svc := fdb.NewFDB(fs, fdb.NewSchema(cfg.Schema.Levels...), adapter, fdb.RetrieveOptions{
		ChunkSize:  cfg.Retrieve.ChunkSize,
		StallLimit: cfg.Retrieve.StallLimit,
	})

	fdb.SetFailureHandler(func(code fdb.Code) {
		logger.Error("operation failed", "code", code, "description", fdb.ErrorString(code))
	})

	return &FDBApp{
		cfg:       cfg,
		db:        db,
		vault:     v,
		encryptor: enc,
		store:     fs,
		fdb:       svc,
		grammar:   grammar,
		op:        NewOperation(operation, ""),
		logger:    logger,
		logFile:   logFile,
	}, nil
}

func grammarFromConfig(gc config.GrammarConfig) (fdb.Grammar, error) {
	g := fdb.DefaultGrammar
	for _, f := range []struct {
		dst *rune
		val string
	}{
		{&g.ClauseSep, gc.ClauseSep},
		{&g.ValueSep, gc.ValueSep},
		{&g.Assign, gc.Assign},
		{&g.Escape, gc.Escape},
	} {
		if f.val != "" {
			*f.dst = []rune(f.val)[0]
		}
	}
	if err := g.Validate(); err != nil {
		return fdb.Grammar{}, fmt.Errorf("invalid grammar config: %w", err)
	}
	return g, nil
}

// persistOperation saves the operation to the database, giving it an auto-increment ID.
// This should only be called for index-mutating commands.
func (a *FDBApp) persistOperation(parameters string) error {
	if a.op.Persisted() {
		return nil
	}
	a.op.Parameters = parameters
	dbOp, err := a.db.CreateOperation(a.op.Operation, a.op.Parameters)
	if err != nil {
		return fmt.Errorf("persisting operation: %w", err)
	}
	a.op.ID = dbOp.ID
	return nil
}

// track marks the operation failed when err is non-nil.
func (a *FDBApp) track(err error) error {
	if err != nil {
		a.op.Fail()
	}
	return err
}

// ParseRequest parses request text with the configured grammar. When
// allowed is non-empty, only those axes may appear.
func (a *FDBApp) ParseRequest(text string, allowed []string) (*fdb.Request, error) {
	m, err := a.grammar.Parse(text)
	if err != nil {
		return nil, err
	}
	var keys *fdb.KeySet
	if len(allowed) > 0 {
		keys = fdb.NewKeySet(allowed...)
	}
	return fdb.NewToolRequest(m, keys)
}

// Unlock opens the private key so encrypted fields can be retrieved.
func (a *FDBApp) Unlock(passphrase string) error {
	if a.encryptor == nil {
		return nil
	}
	dc, err := a.encryptor.Unlock(passphrase)
	if err != nil {
		return fmt.Errorf("unlocking private key: %w", err)
	}
	a.store.SetDecryptionContext(dc)
	return nil
}

// NeedsPassphrase reports whether retrieval requires Unlock.
func (a *FDBApp) NeedsPassphrase() bool {
	return a.encryptor != nil
}

// Archive stores size bytes from r under the key given by request text,
// which must bind exactly one value per axis.
func (a *FDBApp) Archive(text string, r io.Reader, size int64) error {
	if err := a.persistOperation(text); err != nil {
		return err
	}
	req, err := a.ParseRequest(text, nil)
	if err != nil {
		return a.track(err)
	}
	key, err := req.Key()
	if err != nil {
		return a.track(err)
	}
	if err := a.track(a.fdb.ArchiveFrom(key, r, size)); err != nil {
		return err
	}
	a.logger.Info("field archived", "key", key.String(), "size", size)
	return nil
}

// ArchiveFile archives the contents of path.
func (a *FDBApp) ArchiveFile(text string, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	return a.Archive(text, f, info.Size())
}

// List starts a lazy listing of the fields matching request text. An empty
// text lists everything.
func (a *FDBApp) List(text string, allowed []string, duplicates bool) (*fdb.ListIterator, error) {
	req, err := a.requestOrAll(text, allowed)
	if err != nil {
		return nil, err
	}
	return a.fdb.List(req, fdb.ListOptions{Duplicates: duplicates})
}

func (a *FDBApp) requestOrAll(text string, allowed []string) (*fdb.Request, error) {
	if strings.TrimSpace(text) == "" {
		var keys *fdb.KeySet
		if len(allowed) > 0 {
			keys = fdb.NewKeySet(allowed...)
		}
		return fdb.AllRequest(keys), nil
	}
	return a.ParseRequest(text, allowed)
}

// Retrieve writes the payloads matching request text to w in list order.
// Files are written through their descriptor; other writers get a stream.
func (a *FDBApp) Retrieve(text string, w io.Writer) (int64, error) {
	req, err := a.ParseRequest(text, nil)
	if err != nil {
		return 0, err
	}

	var n int64
	if f, ok := w.(*os.File); ok {
		n, err = a.fdb.RetrieveToFile(req, int(f.Fd()))
	} else {
		n, err = a.fdb.RetrieveToStream(req, w.Write)
	}
	if err != nil {
		return n, err
	}
	a.logger.Info("retrieved", "request", req.String(), "bytes", n)
	return n, nil
}

// Exists reports whether a field is stored under the key in request text.
func (a *FDBApp) Exists(text string) (bool, error) {
	req, err := a.ParseRequest(text, nil)
	if err != nil {
		return false, err
	}
	key, err := req.Key()
	if err != nil {
		return false, err
	}
	return a.fdb.Exists(key)
}

// Wipe lists, and with doit deletes, every field matching request text,
// masked versions included.
func (a *FDBApp) Wipe(text string, doit bool) ([]*fdb.ListElement, error) {
	if doit {
		if err := a.persistOperation(text); err != nil {
			return nil, err
		}
	}
	req, err := a.ParseRequest(text, nil)
	if err != nil {
		return nil, a.track(err)
	}
	wiped, err := a.fdb.Wipe(req, doit)
	if err != nil {
		return wiped, a.track(err)
	}
	if doit {
		a.logger.Info("fields wiped", "request", req.String(), "count", len(wiped))
	}
	return wiped, nil
}

// History returns the most recent mutating operations.
func (a *FDBApp) History(limit int) ([]*sqlc.Operation, error) {
	return a.db.ListOperations(limit)
}

// FieldCount returns the number of visible fields in the index.
func (a *FDBApp) FieldCount() (int64, error) {
	return a.db.CountFields()
}

// AxisNames returns every axis used by a stored field.
func (a *FDBApp) AxisNames() ([]string, error) {
	return a.db.ListAxisNames()
}

// Close finalizes the operation and closes all resources.
// For persisted operations: finishes the operation record, snapshots the
// index and uploads it to the vault. Otherwise it just closes the database.
func (a *FDBApp) Close() error {
	var firstErr error
	setErr := func(err error) {
		if firstErr == nil {
			firstErr = err
		}
	}

	if a.op.Persisted() {
		if err := a.db.FinishOperation(a.op.ID, a.op.Status); err != nil {
			setErr(fmt.Errorf("finishing operation: %w", err))
		}

		// VACUUM INTO refuses to overwrite, so only reserve a name.
		var tmpPath string
		tmpFile, err := os.CreateTemp("", "fdb-index-snapshot-*.db")
		if err != nil {
			setErr(fmt.Errorf("creating temp file for index snapshot: %w", err))
		} else {
			tmpPath = tmpFile.Name()
			tmpFile.Close()
			os.Remove(tmpPath)

			if err := a.db.BackupTo(tmpPath); err != nil {
				setErr(fmt.Errorf("snapshotting index: %w", err))
				tmpPath = ""
			}
		}

		if err := a.db.Close(); err != nil {
			setErr(fmt.Errorf("closing database: %w", err))
		}

		if tmpPath != "" {
			if err := a.uploadMetadata(tmpPath, a.op.ID); err != nil {
				setErr(err)
			}
			os.Remove(tmpPath)
		}
	} else {
		if err := a.db.Close(); err != nil {
			setErr(fmt.Errorf("closing database: %w", err))
		}
	}

	fdb.ClearFailureHandler()
	if a.logFile != nil {
		a.logFile.Close()
	}

	return firstErr
}

// uploadMetadata opens the snapshot file and uploads it to the vault.
func (a *FDBApp) uploadMetadata(path string, version int64) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening index snapshot for upload: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat index snapshot: %w", err)
	}

	if err := a.vault.PutMetadata(a.cfg.Name, metadataName, f, info.Size(), version); err != nil {
		return fmt.Errorf("uploading index snapshot to vault: %w", err)
	}

	return nil
}
