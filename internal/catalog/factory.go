package catalog

import (
	"fmt"
	"os"
	"path/filepath"

	"notebox/internal/config"
	"notebox/internal/nb"
)

// NewCatalogFromConfig creates a Catalog implementation based on the catalog config type.
func NewCatalogFromConfig(cfg config.CatalogConfig, logger nb.Logger) (nb.Catalog, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite catalog")
		}
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("creating catalog directory: %w", err)
		}
		c, err := NewSQLiteCatalog(filepath.Join(cfg.DataDir, "catalog.db"), nb.RealClock{}, nb.UUIDGenerator{}, logger)
		if err != nil {
			return nil, err
		}
		if cfg.Watch {
			if err := c.WatchExternalChanges(); err != nil {
				logger.Warn("catalog change watcher unavailable", "error", err)
			}
		}
		return c, nil
	case "memory":
		return NewSQLiteCatalog(":memory:", nb.RealClock{}, nb.UUIDGenerator{}, logger)
	default:
		return nil, fmt.Errorf("unknown catalog type: %s", cfg.Type)
	}
}
