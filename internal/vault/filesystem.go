package vault

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"notebox/internal/nb"
)

// ErrBlobNotFound is returned by GetBlob for keys that were never stored.
var ErrBlobNotFound = errors.New("blob not found")

// FileSystemVault is a filesystem-based implementation of the Vault interface.
// Blobs are plain files in a single directory:
//
//	<root>/
//	  blobs/
//	    <key>
type FileSystemVault struct {
	root    string
	blobDir string
}

// NewFileSystemVault creates a new filesystem vault rooted at the given path.
func NewFileSystemVault(root string) (*FileSystemVault, error) {
	blobDir := filepath.Join(root, "blobs")
	if err := os.MkdirAll(blobDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create blob directory: %w", err)
	}
	return &FileSystemVault{root: root, blobDir: blobDir}, nil
}

// PutBlob stores the content read from r under key, replacing any previous blob.
func (v *FileSystemVault) PutBlob(key string, r io.Reader, size int64) error {
	if err := checkKey(key); err != nil {
		return err
	}
	return v.writeFile(filepath.Join(v.blobDir, key), r, size)
}

// GetBlob writes the blob stored under key to w.
func (v *FileSystemVault) GetBlob(key string, w io.Writer) error {
	if err := checkKey(key); err != nil {
		return err
	}

	f, err := os.Open(filepath.Join(v.blobDir, key))
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrBlobNotFound, key)
		}
		return fmt.Errorf("failed to open blob: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("failed to read blob: %w", err)
	}
	return nil
}

// HasBlob reports whether key has been stored.
func (v *FileSystemVault) HasBlob(key string) (bool, error) {
	if err := checkKey(key); err != nil {
		return false, err
	}
	_, err := os.Stat(filepath.Join(v.blobDir, key))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("checking blob %s: %w", key, err)
}

// ValidateSetup verifies that the vault directories are accessible.
func (v *FileSystemVault) ValidateSetup() error {
	for _, dir := range []string{v.root, v.blobDir} {
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

// writeFile writes data from r to destPath using atomic write (temp file + rename).
// A negative expectedSize skips the size check.
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

	if expectedSize >= 0 && written != expectedSize {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", expectedSize, written)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}

// checkKey rejects keys that would escape the blob directory.
func checkKey(key string) error {
	if key == "" || key == "." || key == ".." || strings.ContainsAny(key, `/\`) || strings.HasPrefix(key, ".tmp-") {
		return fmt.Errorf("invalid blob key: %q", key)
	}
	return nil
}

// Compile-time check that FileSystemVault implements nb.Vault interface
var _ nb.Vault = (*FileSystemVault)(nil)
