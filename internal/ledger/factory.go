package ledger

import (
	"fmt"

	"notebox/internal/config"
	"notebox/internal/nb"
)

// NewLedgerFromConfig creates a Ledger implementation based on the ledger config type.
func NewLedgerFromConfig(cfg config.LedgerConfig) (nb.Ledger, error) {
	switch cfg.Type {
	case "file":
		if cfg.Path == "" {
			return nil, fmt.Errorf("file ledger requires path to be set")
		}
		return NewFileLedger(cfg.Path)
	case "memory":
		return NewMemoryLedger(), nil
	default:
		return nil, fmt.Errorf("unknown ledger type: %s", cfg.Type)
	}
}
