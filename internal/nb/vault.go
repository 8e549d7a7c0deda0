package nb

import "io"

// Vault stores the raw bytes behind the hosted drive relay.
// Blobs are addressed by an opaque key chosen by the caller.
type Vault interface {
	// PutBlob stores the content read from r under key.
	// size is the number of bytes expected from r, or -1 if unknown.
	PutBlob(key string, r io.Reader, size int64) error

	// GetBlob writes the content stored under key to w.
	GetBlob(key string, w io.Writer) error

	// HasBlob reports whether key has been stored.
	HasBlob(key string) (bool, error)

	// ValidateSetup verifies that the vault is accessible.
	ValidateSetup() error
}
