// Package store implements fdb.Store on top of an index database, a payload
// vault, optional at-rest encryption and optional compression.
//
// Archiving a field spools the encoded payload (compressed, then encrypted)
// to a temporary file, uploads it to the vault under a fresh object ID and
// only then records it in the index. A failure between the two steps leaves
// an orphaned object in the vault, never an index row without a payload.
package store

import (
	"errors"
	"fmt"
	"io"
	"os"

	"fdb-go/internal/database/sqlc"
	"fdb-go/internal/fdb"
)

// Options configures a FieldStore. Zero values are usable: no encryption, no
// compression, the system temp directory, real clock and UUID object IDs.
type Options struct {
	// Encryptor encrypts new payloads. Nil stores them in plaintext.
	Encryptor   Encryptor
	Compression Compression
	// SpoolDir holds encoded payloads while they are uploaded.
	SpoolDir string
	Logger   fdb.Logger
	Clock    fdb.Clock
	IDGen    fdb.IDGenerator
}

// FieldStore is the production fdb.Store.
type FieldStore struct {
	index       Index
	vault       Vault
	encryptor   Encryptor
	decryptor   DecryptionContext
	compression Compression
	spoolDir    string
	logger      fdb.Logger
	clock       fdb.Clock
	idgen       fdb.IDGenerator
}

var _ fdb.Store = (*FieldStore)(nil)

// NewFieldStore creates a FieldStore over index and vault.
func NewFieldStore(index Index, vault Vault, opts Options) *FieldStore {
	s := &FieldStore{
		index:       index,
		vault:       vault,
		encryptor:   opts.Encryptor,
		compression: opts.Compression,
		spoolDir:    opts.SpoolDir,
		logger:      opts.Logger,
		clock:       opts.Clock,
		idgen:       opts.IDGen,
	}
	if s.compression == "" {
		s.compression = CompressionNone
	}
	if s.logger == nil {
		s.logger = fdb.NewNopLogger()
	}
	if s.clock == nil {
		s.clock = fdb.RealClock{}
	}
	if s.idgen == nil {
		s.idgen = fdb.UUIDGenerator{}
	}
	return s
}

// SetDecryptionContext supplies the unlocked key used to read encrypted
// payloads. Without one, opening an encrypted field fails.
func (s *FieldStore) SetDecryptionContext(dec DecryptionContext) {
	s.decryptor = dec
}

// Exists reports whether a visible field is stored under exactly key.
func (s *FieldStore) Exists(key *fdb.Key) (bool, error) {
	f, err := s.index.FindCurrentField(key.Canonical())
	if err != nil {
		return false, fmt.Errorf("looking up field: %w", err)
	}
	return f != nil, nil
}

// Match returns the fields whose keys contain every pair of partial.
func (s *FieldStore) Match(partial *fdb.Key, opts fdb.MatchOptions) ([]*fdb.Entry, error) {
	var candidates []*sqlc.Field
	var err error
	if axes := partial.Axes(); len(axes) > 0 {
		// Narrow on one pair in SQL; the rest is checked against the full key.
		value, _ := partial.Value(axes[0])
		candidates, err = s.index.FindFieldsByAxis(axes[0], value)
	} else {
		candidates, err = s.index.ListFields()
	}
	if err != nil {
		return nil, fmt.Errorf("querying index: %w", err)
	}

	var entries []*fdb.Entry
	for _, f := range candidates {
		if f.Masked && !opts.Duplicates {
			continue
		}
		key, err := s.loadKey(f.ID)
		if err != nil {
			return nil, err
		}
		if !key.Matches(partial) {
			continue
		}
		entries = append(entries, entryFor(f, key))
	}
	return entries, nil
}

// Open streams the payload of the visible field stored under key, undoing
// encryption and compression and verifying the checksum at EOF.
func (s *FieldStore) Open(key *fdb.Key) (io.ReadCloser, error) {
	f, err := s.index.FindCurrentField(key.Canonical())
	if err != nil {
		return nil, fmt.Errorf("looking up field: %w", err)
	}
	if f == nil {
		return nil, &fdb.Error{Code: fdb.NotFound, Op: "open", Err: fmt.Errorf("no field stored under %s", key)}
	}
	return s.openField(f)
}

func (s *FieldStore) openField(f *sqlc.Field) (io.ReadCloser, error) {
	codec, err := ParseCompression(f.Codec)
	if err != nil {
		return nil, fmt.Errorf("field %d: %w", f.ID, err)
	}
	if f.Encrypted && s.decryptor == nil {
		return nil, fmt.Errorf("field %d is encrypted and no passphrase was provided", f.ID)
	}

	obj, err := s.vault.OpenContent(f.ObjectID)
	if err != nil {
		if errors.Is(err, ErrContentNotFound) {
			return nil, &fdb.Error{Code: fdb.NotFound, Op: "open", Err: fmt.Errorf("payload object %s: %w", f.ObjectID, err)}
		}
		return nil, fmt.Errorf("opening payload object %s: %w", f.ObjectID, err)
	}

	var r io.Reader = obj
	if f.Encrypted {
		r, err = s.decryptor.Decrypt(r)
		if err != nil {
			obj.Close()
			return nil, fmt.Errorf("decrypting payload object %s: %w", f.ObjectID, err)
		}
	}
	dec, err := codec.NewReader(r)
	if err != nil {
		obj.Close()
		return nil, err
	}
	if f.DataOffset > 0 {
		if _, err := io.CopyN(io.Discard, dec, f.DataOffset); err != nil {
			dec.Close()
			obj.Close()
			return nil, fmt.Errorf("skipping to offset %d: %w", f.DataOffset, err)
		}
	}

	return &payloadReader{
		Reader:  newVerifyingReader(dec, f.Checksum, f.Length),
		closers: []io.Closer{dec, obj},
	}, nil
}

// Put encodes and uploads size bytes from r, then records the field. An
// existing field under the same key is masked.
func (s *FieldStore) Put(key *fdb.Key, r io.Reader, size int64) error {
	spool, err := os.CreateTemp(s.spoolDir, "fdb-spool-*")
	if err != nil {
		return fmt.Errorf("creating spool file: %w", err)
	}
	defer func() {
		spool.Close()
		os.Remove(spool.Name())
	}()

	checksum, err := s.encode(spool, r, size)
	if err != nil {
		return err
	}
	stored, err := spool.Seek(0, io.SeekCurrent)
	if err != nil {
		return fmt.Errorf("sizing spool file: %w", err)
	}
	if _, err := spool.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewinding spool file: %w", err)
	}

	objectID := s.idgen.New()
	if err := s.vault.PutContent(objectID, spool, stored); err != nil {
		return fmt.Errorf("uploading to vault: %w", err)
	}

	field := &sqlc.Field{
		CanonicalKey: key.Canonical(),
		ObjectID:     objectID,
		Length:       size,
		StoredSize:   stored,
		Codec:        s.compression.String(),
		Encrypted:    s.encryptor != nil,
		Checksum:     checksum,
		ArchivedAt:   s.clock.Now(),
	}
	var axes []sqlc.FieldAxis
	for i, a := range key.Axes() {
		v, _ := key.Value(a)
		axes = append(axes, sqlc.FieldAxis{Position: int64(i), Axis: a, Value: v})
	}
	created, err := s.index.CreateField(field, axes)
	if err != nil {
		return fmt.Errorf("recording field in index: %w", err)
	}

	s.logger.Debug("field stored", "key", key.String(), "id", created.ID, "object", objectID, "size", size, "stored", stored)
	return nil
}

// encode writes plaintext from r through the compressor and encryptor into
// w, returning the blake3 digest of the plaintext.
func (s *FieldStore) encode(w io.Writer, r io.Reader, size int64) (string, error) {
	var sealer io.WriteCloser
	out := w
	if s.encryptor != nil {
		var err error
		sealer, err = s.encryptor.Encrypt(w)
		if err != nil {
			return "", fmt.Errorf("creating encrypted writer: %w", err)
		}
		out = sealer
	}
	comp, err := s.compression.NewWriter(out)
	if err != nil {
		return "", err
	}

	h := newHasher()
	n, err := io.Copy(comp, io.TeeReader(r, h))
	if err != nil {
		return "", fmt.Errorf("encoding payload: %w", err)
	}
	if n != size {
		return "", fmt.Errorf("size mismatch: expected %d bytes, got %d", size, n)
	}
	if err := comp.Close(); err != nil {
		return "", fmt.Errorf("finalizing compression: %w", err)
	}
	if sealer != nil {
		if err := sealer.Close(); err != nil {
			return "", fmt.Errorf("finalizing encryption: %w", err)
		}
	}
	return hexSum(h), nil
}

// Remove deletes one field from the index and its payload from the vault.
func (s *FieldStore) Remove(entry *fdb.Entry) error {
	if err := s.index.DeleteField(entry.Location.ID); err != nil {
		return fmt.Errorf("deleting field %d: %w", entry.Location.ID, err)
	}
	if err := s.vault.DeleteContent(entry.Location.Object); err != nil {
		return fmt.Errorf("deleting payload object %s: %w", entry.Location.Object, err)
	}
	s.logger.Debug("field removed", "key", entry.Key.String(), "id", entry.Location.ID, "object", entry.Location.Object)
	return nil
}

func (s *FieldStore) loadKey(fieldID int64) (*fdb.Key, error) {
	axes, err := s.index.FindFieldAxes(fieldID)
	if err != nil {
		return nil, fmt.Errorf("loading axes of field %d: %w", fieldID, err)
	}
	key := fdb.NewKey()
	for _, a := range axes {
		if err := key.Add(a.Axis, a.Value); err != nil {
			return nil, fmt.Errorf("field %d: %w", fieldID, err)
		}
	}
	return key, nil
}

func entryFor(f *sqlc.Field, key *fdb.Key) *fdb.Entry {
	return &fdb.Entry{
		Key: key,
		Location: fdb.Location{
			ID:         f.ID,
			Object:     f.ObjectID,
			Offset:     f.DataOffset,
			Length:     f.Length,
			ArchivedAt: f.ArchivedAt,
		},
		Masked: f.Masked,
	}
}

// payloadReader closes the decoding chain innermost first.
type payloadReader struct {
	io.Reader
	closers []io.Closer
}

func (p *payloadReader) Close() error {
	var firstErr error
	for _, c := range p.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
