package vault

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"fdb-go/internal/store"
)

// MemoryVault keeps payload objects and metadata in memory. It is used by
// tests and by the "memory" vault type. Safe for concurrent use.
type MemoryVault struct {
	name            string
	content         map[string][]byte // object ID -> encoded payload
	metadata        map[string][]byte // "fdbName/name" -> blob
	metadataVersion map[string]int64
	mu              sync.RWMutex
}

// NewMemoryVault creates an empty vault with the given name.
func NewMemoryVault(name string) *MemoryVault {
	return &MemoryVault{
		name:            name,
		content:         make(map[string][]byte),
		metadata:        make(map[string][]byte),
		metadataVersion: make(map[string]int64),
	}
}

func metadataKey(fdbName, name string) string {
	return fdbName + "/" + name
}

// PutContent stores an object under id, replacing any previous one.
func (m *MemoryVault) PutContent(id string, r io.Reader, size int64) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read content: %w", err)
	}
	if int64(len(data)) != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, len(data))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.content[id] = data
	return nil
}

// OpenContent returns a reader over a snapshot of the object.
func (m *MemoryVault) OpenContent(id string) (io.ReadCloser, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.content[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", store.ErrContentNotFound, id)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// DeleteContent removes an object. Missing objects are ignored.
func (m *MemoryVault) DeleteContent(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.content, id)
	return nil
}

// ObjectCount returns the number of stored objects.
func (m *MemoryVault) ObjectCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.content)
}

// PutMetadata stores a named metadata blob for one store with its version.
func (m *MemoryVault) PutMetadata(fdbName string, name string, r io.Reader, size int64, version int64) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read metadata: %w", err)
	}
	if int64(len(data)) != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, len(data))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := metadataKey(fdbName, name)
	m.metadata[key] = data
	m.metadataVersion[key] = version
	return nil
}

// GetMetadataVersion returns 0 when nothing has been stored yet.
func (m *MemoryVault) GetMetadataVersion(fdbName string, name string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.metadataVersion[metadataKey(fdbName, name)], nil
}

func (m *MemoryVault) GetMetadata(fdbName string, name string, w io.Writer) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.metadata[metadataKey(fdbName, name)]
	if !ok {
		return fmt.Errorf("metadata %q not found for store: %s", name, fdbName)
	}
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}
	return nil
}

// ValidateSetup always succeeds for in-memory vault.
func (m *MemoryVault) ValidateSetup() error {
	return nil
}

var _ store.Vault = (*MemoryVault)(nil)
