package testutil

import (
	"testing"

	"notebox/internal/catalog"
	"notebox/internal/nb"
)

// NewTestCatalog creates a new in-memory SQLite catalog with schema applied.
// The catalog is automatically closed when the test completes.
func NewTestCatalog(t *testing.T) *catalog.SQLiteCatalog {
	t.Helper()

	c, err := catalog.NewSQLiteCatalog(":memory:", NewStubClock(FixedClock().Now()), NewStubIDGenerator(), nil)
	if err != nil {
		t.Fatalf("failed to open catalog: %v", err)
	}

	t.Cleanup(func() {
		c.Close()
	})

	return c
}

// MustFolder creates a folder or fails the test.
func MustFolder(t *testing.T, c nb.Catalog, name, parentID string, allowUploads bool) *nb.Folder {
	t.Helper()
	f, err := c.CreateFolder(t.Context(), name, parentID, allowUploads)
	if err != nil {
		t.Fatalf("CreateFolder(%q) error = %v", name, err)
	}
	return f
}
