// Package drive implements the upload relay: the HTTP endpoint that hands
// out upload URLs, receives or delegates the bytes, and confirms stored
// files with a shareable link.
package drive

import (
	"context"
	"errors"
	"net/http"
)

// ErrFileNotFound is returned by Finalize when no stored file matches.
var ErrFileNotFound = errors.New("file not found")

// Ticket is the answer to a getUrl request.
type Ticket struct {
	UploadURL     string
	CorrelationID string
}

// Backend stores uploaded files on behalf of the relay.
type Backend interface {
	// Issue reserves a destination for filename and returns where to PUT it.
	Issue(ctx context.Context, filename, mimeType string) (*Ticket, error)

	// Finalize confirms that a file was stored and returns its link.
	// fileID may be empty; backends then fall back to the newest file
	// stored under filename.
	Finalize(ctx context.Context, filename, fileID string) (string, error)
}

// RouteRegistrar is implemented by backends that serve extra routes,
// such as the byte sink of the hosted backend.
type RouteRegistrar interface {
	RegisterRoutes(mux *http.ServeMux)
}
