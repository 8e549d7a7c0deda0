package vault

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"notebox/internal/nb"
)

// MemoryVault is an in-memory implementation of the Vault interface.
// It is useful for tests and for a throwaway relay.
// This implementation is safe for concurrent use.
type MemoryVault struct {
	blobs map[string][]byte
	mu    sync.RWMutex
}

// NewMemoryVault creates a new, empty in-memory vault.
func NewMemoryVault() *MemoryVault {
	return &MemoryVault{blobs: make(map[string][]byte)}
}

// PutBlob stores the content read from r under key, replacing any previous blob.
func (m *MemoryVault) PutBlob(key string, r io.Reader, size int64) error {
	if err := checkKey(key); err != nil {
		return err
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read blob: %w", err)
	}
	if size >= 0 && int64(len(data)) != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, len(data))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[key] = data
	return nil
}

// GetBlob writes the blob stored under key to w.
func (m *MemoryVault) GetBlob(key string, w io.Writer) error {
	m.mu.RLock()
	data, ok := m.blobs[key]
	m.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrBlobNotFound, key)
	}
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write blob: %w", err)
	}
	return nil
}

// HasBlob reports whether key has been stored.
func (m *MemoryVault) HasBlob(key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.blobs[key]
	return ok, nil
}

// ValidateSetup always succeeds for in-memory vault.
func (m *MemoryVault) ValidateSetup() error {
	return nil
}

// Compile-time check that MemoryVault implements nb.Vault interface
var _ nb.Vault = (*MemoryVault)(nil)
