package nb

import (
	"net/url"
	"strings"
)

// Submission is one add request from the user: a local file, a link, or both.
// When both are given the file wins and the link is ignored.
type Submission struct {
	Name         string
	Description  string
	UploaderName string
	Folder       string
	Admin        bool
	Link         string
	File         *LocalFile
}

// Validate checks a submission against the current catalog state. It does
// not touch the network.
func Validate(sub *Submission, snap Snapshot) error {
	if strings.TrimSpace(sub.Name) == "" {
		return &ValidationError{Field: "name", Err: ErrMissingName}
	}
	if sub.File == nil && strings.TrimSpace(sub.Link) == "" {
		return &ValidationError{Field: "source", Err: ErrNoSource}
	}
	if !sub.Admin && strings.TrimSpace(sub.UploaderName) == "" {
		return &ValidationError{Field: "uploader", Err: ErrMissingUploaderName}
	}
	if sub.File == nil {
		if err := ValidateLink(sub.Link); err != nil {
			return err
		}
	}
	if !CanUpload(snap, sub.Folder, sub.Admin) {
		if snap.FolderByName(sub.Folder) == nil {
			return &ValidationError{Field: "folder", Err: ErrUnknownFolder}
		}
		return &ValidationError{Field: "folder", Err: ErrUploadsClosed}
	}
	return nil
}

// ValidateLink accepts absolute http and https URLs with a host.
func ValidateLink(link string) error {
	u, err := url.Parse(strings.TrimSpace(link))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return &ValidationError{Field: "link", Err: ErrInvalidLink}
	}
	return nil
}
