package vault

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"fdb-go/internal/store"
)

// FileSystemVault stores objects and metadata as files:
//
//	<root>/
//	  content/
//	    <id[:2]>/<id>      (encoded payload objects)
//	  metadata/
//	    <fdbName>/
//	      <name>           (metadata blob, e.g. the index snapshot "db")
//	      <name>.version
type FileSystemVault struct {
	name        string
	root        string
	contentDir  string
	metadataDir string
}

// NewFileSystemVault creates a new filesystem vault rooted at the given path.
func NewFileSystemVault(name, root string) (*FileSystemVault, error) {
	contentDir := filepath.Join(root, "content")
	metadataDir := filepath.Join(root, "metadata")

	if err := os.MkdirAll(contentDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create content directory: %w", err)
	}
	if err := os.MkdirAll(metadataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create metadata directory: %w", err)
	}

	return &FileSystemVault{
		name:        name,
		root:        root,
		contentDir:  contentDir,
		metadataDir: metadataDir,
	}, nil
}

func (v *FileSystemVault) contentPath(id string) (string, error) {
	if id == "" || strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return "", fmt.Errorf("invalid object id %q", id)
	}
	shard := id
	if len(shard) > 2 {
		shard = shard[:2]
	}
	return filepath.Join(v.contentDir, shard, id), nil
}

// PutContent stores an object under id, replacing any previous one.
func (v *FileSystemVault) PutContent(id string, r io.Reader, size int64) error {
	destPath, err := v.contentPath(id)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return fmt.Errorf("failed to create shard directory: %w", err)
	}
	return v.writeFile(destPath, r, size)
}

// OpenContent opens the object file for streaming.
func (v *FileSystemVault) OpenContent(id string) (io.ReadCloser, error) {
	srcPath, err := v.contentPath(id)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(srcPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", store.ErrContentNotFound, id)
		}
		return nil, fmt.Errorf("failed to open content: %w", err)
	}
	return f, nil
}

// DeleteContent removes an object. Missing objects are ignored.
func (v *FileSystemVault) DeleteContent(id string) error {
	path, err := v.contentPath(id)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete content: %w", err)
	}
	return nil
}

func (v *FileSystemVault) metadataPath(fdbName, name string) string {
	return filepath.Join(v.metadataDir, fdbName, name)
}

// PutMetadata stores a metadata blob along with a version marker.
func (v *FileSystemVault) PutMetadata(fdbName string, name string, r io.Reader, size int64, version int64) error {
	destPath := v.metadataPath(fdbName, name)
	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return fmt.Errorf("failed to create metadata directory: %w", err)
	}
	if err := v.writeFile(destPath, r, size); err != nil {
		return err
	}

	versionData := strconv.FormatInt(version, 10)
	return os.WriteFile(destPath+".version", []byte(versionData), 0644)
}

// GetMetadataVersion returns 0 if no version file exists.
func (v *FileSystemVault) GetMetadataVersion(fdbName string, name string) (int64, error) {
	data, err := os.ReadFile(v.metadataPath(fdbName, name) + ".version")
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading version file: %w", err)
	}

	version, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing version: %w", err)
	}
	return version, nil
}

func (v *FileSystemVault) GetMetadata(fdbName string, name string, w io.Writer) error {
	f, err := os.Open(v.metadataPath(fdbName, name))
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("metadata %q not found for store: %s", name, fdbName)
		}
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	return nil
}

// ValidateSetup verifies that the vault directories are accessible.
func (v *FileSystemVault) ValidateSetup() error {
	info, err := os.Stat(v.root)
	if err != nil {
		return fmt.Errorf("vault root not accessible: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("vault root is not a directory: %s", v.root)
	}

	for _, dir := range []string{v.contentDir, v.metadataDir} {
		info, err := os.Stat(dir)
		if err != nil {
			return fmt.Errorf("vault directory not accessible: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("vault path is not a directory: %s", dir)
		}
	}

	return nil
}

// writeFile writes r to destPath through a temp file in the same directory
// and renames it into place.
func (v *FileSystemVault) writeFile(destPath string, r io.Reader, expectedSize int64) error {
	tmpFile, err := os.CreateTemp(filepath.Dir(destPath), ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	written, err := io.Copy(tmpFile, r)
	if err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write data: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if written != expectedSize {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", expectedSize, written)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}

var _ store.Vault = (*FileSystemVault)(nil)
