package testutil

import (
	"testing"

	"fdb-go/internal/database"
	"fdb-go/internal/fdb"
	"fdb-go/internal/store"
	"fdb-go/internal/vault"
)

// TestStore bundles a FieldStore with the index and vault behind it so
// tests can inspect or corrupt either side.
type TestStore struct {
	*store.FieldStore
	DB    *database.SQLiteDatabase
	Vault *vault.MemoryVault
	Clock *StubClock
	IDs   *StubIDGenerator
}

// NewTestStore creates a FieldStore over an in-memory index and vault with
// a stub clock and sequential object IDs. opts may set Encryptor,
// Compression or SpoolDir; the remaining fields are overwritten.
func NewTestStore(t testing.TB, opts store.Options) *TestStore {
	t.Helper()

	ts := &TestStore{
		DB:    NewTestDatabase(t),
		Vault: NewTestVault(),
		Clock: FixedClock(),
		IDs:   NewStubIDGenerator(),
	}
	if opts.SpoolDir == "" {
		opts.SpoolDir = t.TempDir()
	}
	opts.Logger = fdb.NewNopLogger()
	opts.Clock = ts.Clock
	opts.IDGen = ts.IDs
	ts.FieldStore = store.NewFieldStore(ts.DB, ts.Vault, opts)
	return ts
}

// NewTestFDB wires an FDB over a fresh TestStore.
func NewTestFDB(t testing.TB, opts store.Options) (*fdb.FDB, *TestStore) {
	t.Helper()

	ts := NewTestStore(t, opts)
	return fdb.NewFDB(ts, nil, nil, fdb.RetrieveOptions{}), ts
}
