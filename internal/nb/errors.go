package nb

import (
	"errors"
	"fmt"
)

// Validation failures. These are returned wrapped in a *ValidationError.
var (
	ErrMissingName         = errors.New("name is required")
	ErrNoSource            = errors.New("a file or a link is required")
	ErrMissingUploaderName = errors.New("uploader name is required")
	ErrInvalidLink         = errors.New("link must be an http or https URL")
	ErrUnknownFolder       = errors.New("folder does not exist")
	ErrUploadsClosed       = errors.New("uploads are disabled for this folder")
)

// Upload pipeline failures.
var (
	ErrEndpointUnavailable = errors.New("upload endpoint unavailable")
	ErrTransferAmbiguous   = errors.New("transfer outcome unknown")
	ErrVerificationFailed  = errors.New("upload could not be verified")
	ErrCatalogWriteFailed  = errors.New("catalog write failed")
	ErrUploadInProgress    = errors.New("an upload is already in progress")
	ErrRecoveryPending     = errors.New("an interrupted upload is awaiting recovery")
	ErrNoPendingUpload     = errors.New("no interrupted upload to recover")
	ErrCorruptRecord       = errors.New("pending upload record is corrupt")
)

// Catalog failures.
var (
	ErrFolderExists   = errors.New("folder already exists")
	ErrFolderNotFound = errors.New("folder not found")
	ErrItemNotFound   = errors.New("item not found")
	ErrInvalidName    = errors.New("invalid name")
	ErrAdminRequired  = errors.New("admin access required")
)

// ValidationError reports which input field was rejected.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// IsValidation reports whether err came from input validation.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
