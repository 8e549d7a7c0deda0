package ledger

import (
	"sync"

	"notebox/internal/nb"
)

// MemoryLedger keeps the record in memory. It does not survive restarts and
// is meant for tests and throwaway sessions.
// This implementation is safe for concurrent use.
type MemoryLedger struct {
	mu    sync.Mutex
	rec   *nb.PendingUpload
	saves int
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{}
}

func (l *MemoryLedger) Save(rec *nb.PendingUpload) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	cp := *rec
	l.rec = &cp
	l.saves++
	return nil
}

func (l *MemoryLedger) Load() (*nb.PendingUpload, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.rec == nil {
		return nil, nil
	}
	cp := *l.rec
	return &cp, nil
}

func (l *MemoryLedger) Clear() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rec = nil
	return nil
}

// Saves returns how many times Save has been called.
func (l *MemoryLedger) Saves() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.saves
}

// Compile-time check that MemoryLedger implements nb.Ledger interface
var _ nb.Ledger = (*MemoryLedger)(nil)
