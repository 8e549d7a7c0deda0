package nb

import (
	"context"
	"io"
)

// LocalFile is a user-selected file ready to be handed to a Transferrer.
type LocalFile struct {
	Name     string
	MIMEType string
	Size     int64
	Content  io.Reader
}

// TransferHooks lets the caller observe a transfer.
type TransferHooks struct {
	// BeforeStream runs once the endpoint has accepted the upload and before
	// any bytes are sent. Returning an error aborts the transfer.
	BeforeStream func() error

	// OnProgress receives the integer percentage sent so far.
	OnProgress func(percent int)
}

// Transferrer moves one local file to the remote endpoint and returns the
// resource locator of the stored file.
//
// A transfer whose outcome is unknown after streaming is verified against
// the endpoint before being reported; only a verified upload returns a link.
type Transferrer interface {
	Transfer(ctx context.Context, file *LocalFile, hooks TransferHooks) (string, error)
}

// FileSource opens user-selected files for upload. The returned closer
// releases the underlying handle once the transfer is done.
type FileSource interface {
	Open(path string) (*LocalFile, io.Closer, error)
}
