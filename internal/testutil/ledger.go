package testutil

import (
	"notebox/internal/ledger"
)

// NewTestLedger creates an empty in-memory recovery ledger.
func NewTestLedger() *ledger.MemoryLedger {
	return ledger.NewMemoryLedger()
}
