package nb

import "context"

// Catalog is the server-authoritative store of folders and items.
//
// Mutations either fully apply or return an error; nothing is retried.
// Multi-record mutations (folder rename and delete) are applied atomically,
// so subscribers never observe a folder whose items still point at its old name.
type Catalog interface {
	// Subscribe registers fn to receive the current snapshot and then a new
	// full snapshot after every committed change. Delivery is asynchronous and
	// coalescing: a slow subscriber only sees the latest state.
	// The returned function cancels the subscription.
	Subscribe(fn func(Snapshot)) (unsubscribe func())

	// Snapshot returns the current state synchronously.
	Snapshot(ctx context.Context) (Snapshot, error)

	// Folder operations

	// CreateFolder adds a folder. Names are unique across the whole catalog.
	CreateFolder(ctx context.Context, name, parentID string, allowUploads bool) (*Folder, error)

	// RenameFolder renames a folder and rewrites every item that referenced
	// the old name, in one transaction.
	RenameFolder(ctx context.Context, id, newName string) error

	// DeleteFolder removes a folder and every item under name, in one
	// transaction. Direct child folders move up to the deleted folder's parent.
	DeleteFolder(ctx context.Context, id, name string) error

	// SetFolderUploads toggles whether non-admins may upload into a folder.
	SetFolderUploads(ctx context.Context, id string, allow bool) error

	// FindFolderByName returns the folder with an exact name match, or nil.
	FindFolderByName(ctx context.Context, name string) (*Folder, error)

	// Item operations

	// CreateItem adds a single item. Its folder must exist.
	CreateItem(ctx context.Context, fields ItemFields) (*Item, error)

	// UpdateItem applies an admin edit to an item.
	UpdateItem(ctx context.Context, id string, edit ItemEdit) error

	// DeleteItem removes a single item.
	DeleteItem(ctx context.Context, id string) error

	// Close releases the store and stops all subscriptions.
	Close() error
}
