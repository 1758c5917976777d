package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"fdb-go/internal/database/migrations"
	"fdb-go/internal/database/sqlc"
	"fdb-go/internal/store"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteDatabase is the field index, backed by SQLite.
type SQLiteDatabase struct {
	db      *sql.DB
	queries *sqlc.Queries
	path    string
}

// NewSQLiteDatabase opens a SQLite database connection.
// path can be a file path or ":memory:" for an in-memory database.
func NewSQLiteDatabase(path string) (*SQLiteDatabase, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}

	return &SQLiteDatabase{
		db:      db,
		queries: sqlc.New(db),
		path:    path,
	}, nil
}

// NewSQLiteDatabaseFromDB wraps an existing database connection.
// The caller is responsible for ensuring the connection is properly configured.
func NewSQLiteDatabaseFromDB(db *sql.DB) *SQLiteDatabase {
	return &SQLiteDatabase{
		db:      db,
		queries: sqlc.New(db),
		path:    "",
	}
}

// OpenConnection opens and configures a SQLite database connection with appropriate PRAGMAs.
// This is exported for use in tools and tests that need a properly configured SQLite connection.
// path can be a file path or ":memory:" for in-memory database.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Every connection to ":memory:" is a separate database.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	// Enable foreign key constraints (SQLite default is OFF for backward compatibility)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// Field operations

func (s *SQLiteDatabase) CreateField(field *sqlc.Field, axes []sqlc.FieldAxis) (*sqlc.Field, error) {
	ctx := context.Background()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	qtx := s.queries.WithTx(tx)

	// Older versions of the same key stay in the index, masked.
	if err := qtx.MaskFieldsByCanonicalKey(ctx, field.CanonicalKey); err != nil {
		return nil, fmt.Errorf("masking previous versions: %w", err)
	}

	created, err := qtx.InsertField(ctx, sqlc.InsertFieldParams{
		CanonicalKey: field.CanonicalKey,
		ObjectID:     field.ObjectID,
		DataOffset:   field.DataOffset,
		Length:       field.Length,
		StoredSize:   field.StoredSize,
		Codec:        field.Codec,
		Encrypted:    field.Encrypted,
		Checksum:     field.Checksum,
		ArchivedAt:   field.ArchivedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("inserting field: %w", err)
	}

	for _, a := range axes {
		err := qtx.InsertFieldAxis(ctx, sqlc.InsertFieldAxisParams{
			FieldID:  created.ID,
			Position: a.Position,
			Axis:     a.Axis,
			Value:    a.Value,
		})
		if err != nil {
			return nil, fmt.Errorf("inserting axis %s: %w", a.Axis, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}

	return &created, nil
}

func (s *SQLiteDatabase) FindCurrentField(canonicalKey string) (*sqlc.Field, error) {
	f, err := s.queries.GetCurrentFieldByCanonicalKey(context.Background(), canonicalKey)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding field by key: %w", err)
	}
	return &f, nil
}

func (s *SQLiteDatabase) FindFieldsByAxis(axis, value string) ([]*sqlc.Field, error) {
	fields, err := s.queries.ListFieldsByAxisValue(context.Background(), sqlc.ListFieldsByAxisValueParams{
		Axis:  axis,
		Value: value,
	})
	if err != nil {
		return nil, fmt.Errorf("finding fields by axis: %w", err)
	}
	return toPointers(fields), nil
}

func (s *SQLiteDatabase) ListFields() ([]*sqlc.Field, error) {
	fields, err := s.queries.ListFields(context.Background())
	if err != nil {
		return nil, fmt.Errorf("listing fields: %w", err)
	}
	return toPointers(fields), nil
}

func (s *SQLiteDatabase) FindFieldAxes(fieldID int64) ([]*sqlc.FieldAxis, error) {
	axes, err := s.queries.ListFieldAxes(context.Background(), fieldID)
	if err != nil {
		return nil, fmt.Errorf("listing field axes: %w", err)
	}
	return toPointers(axes), nil
}

// DeleteField removes a field and its axes. If the field was the visible
// version of its key, the newest remaining version is unmasked.
func (s *SQLiteDatabase) DeleteField(fieldID int64) error {
	ctx := context.Background()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	qtx := s.queries.WithTx(tx)

	f, err := qtx.GetFieldByID(ctx, fieldID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("field %d not found", fieldID)
		}
		return fmt.Errorf("finding field: %w", err)
	}

	if err := qtx.DeleteField(ctx, fieldID); err != nil {
		return fmt.Errorf("deleting field: %w", err)
	}

	if !f.Masked {
		if err := qtx.UnmaskLatestField(ctx, f.CanonicalKey); err != nil {
			return fmt.Errorf("unmasking previous version: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// CountFields returns the number of visible fields.
func (s *SQLiteDatabase) CountFields() (int64, error) {
	n, err := s.queries.CountFields(context.Background())
	if err != nil {
		return 0, fmt.Errorf("counting fields: %w", err)
	}
	return n, nil
}

// ListAxisNames returns every axis name used by a stored field, sorted.
func (s *SQLiteDatabase) ListAxisNames() ([]string, error) {
	names, err := s.queries.ListAxisNames(context.Background())
	if err != nil {
		return nil, fmt.Errorf("listing axis names: %w", err)
	}
	return names, nil
}

// Operation tracking

func (s *SQLiteDatabase) CreateOperation(operation string, parameters string) (*sqlc.Operation, error) {
	op, err := s.queries.InsertOperation(context.Background(), sqlc.InsertOperationParams{
		StartedAt:  time.Now(),
		Operation:  operation,
		Parameters: parameters,
	})
	if err != nil {
		return nil, fmt.Errorf("creating operation: %w", err)
	}
	return &op, nil
}

func (s *SQLiteDatabase) FinishOperation(id int64, status string) error {
	err := s.queries.FinishOperation(context.Background(), sqlc.FinishOperationParams{
		FinishedAt: sql.NullTime{Time: time.Now(), Valid: true},
		Status:     status,
		ID:         id,
	})
	if err != nil {
		return fmt.Errorf("finishing operation: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) ListOperations(limit int) ([]*sqlc.Operation, error) {
	ops, err := s.queries.ListOperations(context.Background(), int64(limit))
	if err != nil {
		return nil, fmt.Errorf("listing operations: %w", err)
	}
	return toPointers(ops), nil
}

func (s *SQLiteDatabase) MaxOperationID() (int64, error) {
	id, err := s.queries.MaxOperationID(context.Background())
	if err != nil {
		return 0, fmt.Errorf("getting max operation ID: %w", err)
	}
	return id, nil
}

// Path returns the database file path (or ":memory:" for in-memory databases).
func (s *SQLiteDatabase) Path() string {
	return s.path
}

// CheckMigrations verifies the database schema is up-to-date.
func (s *SQLiteDatabase) CheckMigrations() error {
	return migrations.CheckDBMigrationStatus(s.db)
}

// Migrate brings the schema to the latest version.
func (s *SQLiteDatabase) Migrate() error {
	return migrations.MigrateUp(s.db)
}

// BackupTo creates a complete copy of the database at destPath using VACUUM INTO.
// destPath must not exist yet.
func (s *SQLiteDatabase) BackupTo(destPath string) error {
	_, err := s.db.Exec("VACUUM INTO ?", destPath)
	if err != nil {
		return fmt.Errorf("backing up database: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteDatabase) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func toPointers[T any](items []T) []*T {
	out := make([]*T, len(items))
	for i := range items {
		out[i] = &items[i]
	}
	return out
}

// Compile-time check that SQLiteDatabase implements store.Index
var _ store.Index = (*SQLiteDatabase)(nil)
