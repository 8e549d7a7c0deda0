package ledger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"notebox/internal/nb"
)

// FileLedger keeps the pending upload record in a single JSON file.
// Writes go to a temp file in the same directory and are renamed into
// place, so a crash mid-write leaves either the old record or the new one.
type FileLedger struct {
	path string
	mu   sync.Mutex
}

// NewFileLedger creates a ledger backed by the file at path. The parent
// directory is created if needed; the file itself is only created on Save.
func NewFileLedger(path string) (*FileLedger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create ledger directory: %w", err)
	}
	return &FileLedger{path: path}, nil
}

// Path returns the location of the record file.
func (l *FileLedger) Path() string {
	return l.path
}

func (l *FileLedger) Save(rec *nb.PendingUpload) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal pending upload: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	tmp, err := os.CreateTemp(filepath.Dir(l.path), ".pending-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write pending upload: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync pending upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0600); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Rename(tmpPath, l.path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}

func (l *FileLedger) Load() (*nb.PendingUpload, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	data, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read pending upload: %w", err)
	}

	var rec nb.PendingUpload
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: %v", nb.ErrCorruptRecord, err)
	}
	if rec.FileName == "" {
		return nil, fmt.Errorf("%w: missing fileName", nb.ErrCorruptRecord)
	}
	return &rec, nil
}

func (l *FileLedger) Clear() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove pending upload: %w", err)
	}
	return nil
}

// Compile-time check that FileLedger implements nb.Ledger interface
var _ nb.Ledger = (*FileLedger)(nil)
