package vault

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"fdb-go/internal/store"
)

func readObject(t *testing.T, v store.Vault, id string) string {
	t.Helper()

	rc, err := v.OpenContent(id)
	if err != nil {
		t.Fatalf("OpenContent(%s) error: %v", id, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("reading %s: %v", id, err)
	}
	return string(data)
}

func TestMemoryVault_PutAndOpenContent(t *testing.T) {
	vault := NewMemoryVault("test-vault")

	tests := []struct {
		name    string
		id      string
		content string
	}{
		{name: "store and retrieve content", id: "abc123", content: "hello world"},
		{name: "store empty content", id: "empty", content: ""},
		{name: "store large content", id: "large", content: strings.Repeat("x", 10000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := strings.NewReader(tt.content)
			if err := vault.PutContent(tt.id, r, int64(len(tt.content))); err != nil {
				t.Fatalf("PutContent() error = %v", err)
			}

			if got := readObject(t, vault, tt.id); got != tt.content {
				t.Errorf("OpenContent() = %q, want %q", got, tt.content)
			}
		})
	}

	if n := vault.ObjectCount(); n != len(tests) {
		t.Errorf("ObjectCount() = %d, want %d", n, len(tests))
	}
}

func TestMemoryVault_PutContentReplaces(t *testing.T) {
	vault := NewMemoryVault("test-vault")

	for _, content := range []string{"first", "second"} {
		if err := vault.PutContent("obj", strings.NewReader(content), int64(len(content))); err != nil {
			t.Fatalf("PutContent(%q) error: %v", content, err)
		}
	}

	if got := readObject(t, vault, "obj"); got != "second" {
		t.Errorf("OpenContent() = %q, want second", got)
	}
}

func TestMemoryVault_OpenContentNotFound(t *testing.T) {
	vault := NewMemoryVault("test-vault")

	_, err := vault.OpenContent("nonexistent")
	if !errors.Is(err, store.ErrContentNotFound) {
		t.Errorf("OpenContent() error = %v, want ErrContentNotFound", err)
	}
}

func TestMemoryVault_DeleteContent(t *testing.T) {
	vault := NewMemoryVault("test-vault")

	if err := vault.PutContent("obj", strings.NewReader("data"), 4); err != nil {
		t.Fatalf("PutContent() error: %v", err)
	}
	if err := vault.DeleteContent("obj"); err != nil {
		t.Fatalf("DeleteContent() error: %v", err)
	}
	if _, err := vault.OpenContent("obj"); !errors.Is(err, store.ErrContentNotFound) {
		t.Errorf("OpenContent() after delete error = %v", err)
	}
	if err := vault.DeleteContent("obj"); err != nil {
		t.Errorf("DeleteContent() of missing object error: %v", err)
	}
}

func TestMemoryVault_PutContentSizeMismatch(t *testing.T) {
	vault := NewMemoryVault("test-vault")

	content := "test"
	err := vault.PutContent("obj", strings.NewReader(content), int64(len(content)+10))
	if err == nil {
		t.Error("PutContent() expected error for size mismatch, got nil")
	}
}

func TestMemoryVault_Metadata(t *testing.T) {
	vault := NewMemoryVault("test-vault")

	version, err := vault.GetMetadataVersion("ops", "db")
	if err != nil {
		t.Fatalf("GetMetadataVersion() error: %v", err)
	}
	if version != 0 {
		t.Errorf("GetMetadataVersion() before put = %d, want 0", version)
	}

	metadata := "database content"
	if err := vault.PutMetadata("ops", "db", strings.NewReader(metadata), int64(len(metadata)), 7); err != nil {
		t.Fatalf("PutMetadata() error: %v", err)
	}

	var buf bytes.Buffer
	if err := vault.GetMetadata("ops", "db", &buf); err != nil {
		t.Fatalf("GetMetadata() error: %v", err)
	}
	if got := buf.String(); got != metadata {
		t.Errorf("GetMetadata() = %q, want %q", got, metadata)
	}

	version, err = vault.GetMetadataVersion("ops", "db")
	if err != nil {
		t.Fatalf("GetMetadataVersion() error: %v", err)
	}
	if version != 7 {
		t.Errorf("GetMetadataVersion() = %d, want 7", version)
	}

	// Metadata is scoped per store.
	if err := vault.GetMetadata("research", "db", &buf); err == nil {
		t.Error("GetMetadata() for another store expected error, got nil")
	}
}

func TestMemoryVault_ValidateSetup(t *testing.T) {
	vault := NewMemoryVault("test-vault")

	if err := vault.ValidateSetup(); err != nil {
		t.Errorf("ValidateSetup() unexpected error: %v", err)
	}
}
