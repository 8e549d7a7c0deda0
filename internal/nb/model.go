package nb

import "time"

// Kind is the display category of a catalog item.
type Kind string

const (
	KindDoc   Kind = "doc"
	KindSheet Kind = "sheet"
	KindSlide Kind = "slide"
	KindPDF   Kind = "pdf"
	KindLink  Kind = "link"
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

const (
	// AllFiles is the virtual root. It is not a folder and never accepts uploads.
	AllFiles = "All Files"

	// AdminOwner is recorded as the owner of anything an admin adds.
	AdminOwner = "Admin"

	// DefaultDescription is used when an item is committed without one.
	DefaultDescription = "No description provided."
)

// Folder is a named container in the catalog. Items reference folders by
// Name, not ID, so renames have to rewrite every item in the folder.
type Folder struct {
	ID           string
	Name         string
	AllowUploads bool
	ParentID     string // empty for root folders
	CreatedAt    time.Time
}

// IsRoot reports whether the folder sits directly under All Files.
func (f *Folder) IsRoot() bool {
	return f.ParentID == ""
}

// Item is one catalog entry: an uploaded file or a saved link.
type Item struct {
	ID          string
	Name        string
	Kind        Kind
	Owner       string
	Folder      string
	Description string
	Link        string
	CreatedAt   time.Time
}

// ItemFields holds everything needed to create an Item except its ID and timestamp.
type ItemFields struct {
	Name        string
	Kind        Kind
	Owner       string
	Folder      string
	Description string
	Link        string
}

// ItemEdit is an admin edit of an existing item. Kind and Owner are not editable.
type ItemEdit struct {
	Name        string
	Link        string
	Description string
	Folder      string
}

// Snapshot is the full catalog state at one point in time. Subscribers
// always receive whole snapshots, never deltas.
type Snapshot struct {
	Folders []Folder // ordered by CreatedAt
	Items   []Item
}

// FolderByName returns the folder with the given name, or nil.
func (s Snapshot) FolderByName(name string) *Folder {
	for i := range s.Folders {
		if s.Folders[i].Name == name {
			return &s.Folders[i]
		}
	}
	return nil
}

// FolderByID returns the folder with the given ID, or nil.
func (s Snapshot) FolderByID(id string) *Folder {
	for i := range s.Folders {
		if s.Folders[i].ID == id {
			return &s.Folders[i]
		}
	}
	return nil
}

// ItemByID returns the item with the given ID, or nil.
func (s Snapshot) ItemByID(id string) *Item {
	for i := range s.Items {
		if s.Items[i].ID == id {
			return &s.Items[i]
		}
	}
	return nil
}

// PendingUpload is the recovery record for a local-file upload that has
// started streaming but not yet been committed to the catalog. It holds the
// metadata only; the bytes have to be re-selected on resume.
type PendingUpload struct {
	FileName     string `json:"fileName"`
	Description  string `json:"fileDesc"`
	UploaderName string `json:"userName"`
	Folder       string `json:"sectionName"`
	Admin        bool   `json:"userIsAdmin"`
	Timestamp    int64  `json:"timestamp"` // unix millis
}

// StartedAt returns the record's timestamp as a time.Time.
func (p *PendingUpload) StartedAt() time.Time {
	return time.UnixMilli(p.Timestamp)
}
