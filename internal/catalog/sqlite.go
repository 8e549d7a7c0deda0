package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	"notebox/internal/catalog/migrations"
	"notebox/internal/nb"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteCatalog implements nb.Catalog on a single SQLite connection.
// Every mutation commits, then publishes a fresh snapshot to subscribers
// while still holding the write lock, so snapshots are delivered in commit order.
type SQLiteCatalog struct {
	db     *sql.DB
	path   string
	clock  nb.Clock
	idgen  nb.IDGenerator
	logger nb.Logger

	mu  sync.Mutex // serializes mutate+publish
	hub *broadcaster

	watcher *changeWatcher
}

// NewSQLiteCatalog opens the catalog at path and applies pending migrations.
// path can be a file path or ":memory:".
func NewSQLiteCatalog(path string, clock nb.Clock, idgen nb.IDGenerator, logger nb.Logger) (*SQLiteCatalog, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}

	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating catalog: %w", err)
	}

	return NewSQLiteCatalogFromDB(db, path, clock, idgen, logger), nil
}

// NewSQLiteCatalogFromDB wraps an already migrated connection.
func NewSQLiteCatalogFromDB(db *sql.DB, path string, clock nb.Clock, idgen nb.IDGenerator, logger nb.Logger) *SQLiteCatalog {
	if clock == nil {
		clock = nb.RealClock{}
	}
	if idgen == nil {
		idgen = nb.UUIDGenerator{}
	}
	if logger == nil {
		logger = nb.NewNopLogger()
	}
	return &SQLiteCatalog{
		db:     db,
		path:   path,
		clock:  clock,
		idgen:  idgen,
		logger: logger,
		hub:    newBroadcaster(),
	}
}

// OpenConnection opens a SQLite connection configured for the catalog.
// The pool is limited to one connection: ":memory:" databases are
// per-connection, and PRAGMA data_version is only meaningful on a stable one.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	// Other processes may hold the write lock briefly.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return db, nil
}

// Path returns the catalog file path (or ":memory:").
func (c *SQLiteCatalog) Path() string {
	return c.path
}

// CheckMigrations verifies the schema is up to date.
func (c *SQLiteCatalog) CheckMigrations() error {
	return migrations.CheckStatus(c.db)
}

// Subscribe implements nb.Catalog.
func (c *SQLiteCatalog) Subscribe(fn func(nb.Snapshot)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap, err := c.load(context.Background())
	if err != nil {
		c.logger.Error("loading initial snapshot for subscriber", "error", err)
		return c.hub.subscribe(fn, nil)
	}
	return c.hub.subscribe(fn, &snap)
}

// Snapshot implements nb.Catalog.
func (c *SQLiteCatalog) Snapshot(ctx context.Context) (nb.Snapshot, error) {
	return c.load(ctx)
}

// Folder operations

func (c *SQLiteCatalog) CreateFolder(ctx context.Context, name, parentID string, allowUploads bool) (*nb.Folder, error) {
	name = strings.TrimSpace(name)
	if name == "" || name == nb.AllFiles {
		return nil, fmt.Errorf("%w: %q", nb.ErrInvalidName, name)
	}

	folder := &nb.Folder{
		ID:           c.idgen.New(),
		Name:         name,
		AllowUploads: allowUploads,
		ParentID:     parentID,
		CreatedAt:    c.clock.Now(),
	}

	err := c.mutate(ctx, func(tx *sql.Tx) error {
		if err := checkNameFree(ctx, tx, name); err != nil {
			return err
		}
		if parentID != "" {
			if _, err := folderNameByID(ctx, tx, parentID); err != nil {
				return fmt.Errorf("parent: %w", err)
			}
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO folders (id, name, allow_uploads, parent_id, created_at) VALUES (?, ?, ?, ?, ?)`,
			folder.ID, folder.Name, folder.AllowUploads, nullString(parentID), folder.CreatedAt)
		if err != nil {
			return fmt.Errorf("inserting folder: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info("folder created", "id", folder.ID, "name", folder.Name, "parent_id", parentID)
	return folder, nil
}

func (c *SQLiteCatalog) RenameFolder(ctx context.Context, id, newName string) error {
	newName = strings.TrimSpace(newName)
	if newName == "" || newName == nb.AllFiles {
		return fmt.Errorf("%w: %q", nb.ErrInvalidName, newName)
	}

	var oldName string
	var moved int64
	err := c.mutate(ctx, func(tx *sql.Tx) error {
		var err error
		oldName, err = folderNameByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if oldName == newName {
			return nil
		}
		if err := checkNameFree(ctx, tx, newName); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `UPDATE folders SET name = ? WHERE id = ?`, newName, id); err != nil {
			return fmt.Errorf("renaming folder: %w", err)
		}
		res, err := tx.ExecContext(ctx, `UPDATE items SET folder = ? WHERE folder = ?`, newName, oldName)
		if err != nil {
			return fmt.Errorf("moving items to %q: %w", newName, err)
		}
		moved, _ = res.RowsAffected()
		return nil
	})
	if err != nil {
		return err
	}

	c.logger.Info("folder renamed", "id", id, "from", oldName, "to", newName, "items", moved)
	return nil
}

func (c *SQLiteCatalog) DeleteFolder(ctx context.Context, id, name string) error {
	var removed int64
	err := c.mutate(ctx, func(tx *sql.Tx) error {
		var parent sql.NullString
		var stored string
		err := tx.QueryRowContext(ctx, `SELECT name, parent_id FROM folders WHERE id = ?`, id).Scan(&stored, &parent)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %s", nb.ErrFolderNotFound, id)
		}
		if err != nil {
			return fmt.Errorf("finding folder: %w", err)
		}
		if name == "" {
			name = stored
		}

		res, err := tx.ExecContext(ctx, `DELETE FROM items WHERE folder = ?`, name)
		if err != nil {
			return fmt.Errorf("deleting items in %q: %w", name, err)
		}
		removed, _ = res.RowsAffected()

		if _, err := tx.ExecContext(ctx, `UPDATE folders SET parent_id = ? WHERE parent_id = ?`, parent, id); err != nil {
			return fmt.Errorf("re-parenting child folders: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM folders WHERE id = ?`, id); err != nil {
			return fmt.Errorf("deleting folder: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	c.logger.Info("folder deleted", "id", id, "name", name, "items", removed)
	return nil
}

func (c *SQLiteCatalog) SetFolderUploads(ctx context.Context, id string, allow bool) error {
	return c.mutate(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE folders SET allow_uploads = ? WHERE id = ?`, allow, id)
		if err != nil {
			return fmt.Errorf("updating folder: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("%w: %s", nb.ErrFolderNotFound, id)
		}
		return nil
	})
}

func (c *SQLiteCatalog) FindFolderByName(ctx context.Context, name string) (*nb.Folder, error) {
	row := c.db.QueryRowContext(ctx,
		`SELECT id, name, allow_uploads, parent_id, created_at FROM folders WHERE name = ?`, name)
	f, err := scanFolder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding folder by name: %w", err)
	}
	return f, nil
}

// Item operations

func (c *SQLiteCatalog) CreateItem(ctx context.Context, fields nb.ItemFields) (*nb.Item, error) {
	if strings.TrimSpace(fields.Name) == "" {
		return nil, fmt.Errorf("%w: item name is empty", nb.ErrInvalidName)
	}

	item := &nb.Item{
		ID:          c.idgen.New(),
		Name:        fields.Name,
		Kind:        fields.Kind,
		Owner:       fields.Owner,
		Folder:      fields.Folder,
		Description: fields.Description,
		Link:        fields.Link,
		CreatedAt:   c.clock.Now(),
	}

	err := c.mutate(ctx, func(tx *sql.Tx) error {
		if err := checkFolderExists(ctx, tx, item.Folder); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO items (id, name, kind, owner, folder, description, link, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			item.ID, item.Name, string(item.Kind), item.Owner, item.Folder, item.Description, item.Link, item.CreatedAt)
		if err != nil {
			return fmt.Errorf("inserting item: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (c *SQLiteCatalog) UpdateItem(ctx context.Context, id string, edit nb.ItemEdit) error {
	if strings.TrimSpace(edit.Name) == "" {
		return fmt.Errorf("%w: item name is empty", nb.ErrInvalidName)
	}

	return c.mutate(ctx, func(tx *sql.Tx) error {
		if err := checkFolderExists(ctx, tx, edit.Folder); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx,
			`UPDATE items SET name = ?, link = ?, description = ?, folder = ? WHERE id = ?`,
			edit.Name, edit.Link, edit.Description, edit.Folder, id)
		if err != nil {
			return fmt.Errorf("updating item: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("%w: %s", nb.ErrItemNotFound, id)
		}
		return nil
	})
}

func (c *SQLiteCatalog) DeleteItem(ctx context.Context, id string) error {
	return c.mutate(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("deleting item: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("%w: %s", nb.ErrItemNotFound, id)
		}
		return nil
	})
}

// Close stops the change watcher and all subscribers, then closes the connection.
func (c *SQLiteCatalog) Close() error {
	if c.watcher != nil {
		c.watcher.stop()
	}
	c.hub.close()
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// mutate runs fn in a transaction and publishes the new state after commit.
func (c *SQLiteCatalog) mutate(ctx context.Context, fn func(tx *sql.Tx) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	c.publishLocked()
	return nil
}

// publishLocked loads and broadcasts the current state. Must hold c.mu.
func (c *SQLiteCatalog) publishLocked() {
	snap, err := c.load(context.Background())
	if err != nil {
		c.logger.Error("loading snapshot for subscribers", "error", err)
		return
	}
	c.hub.publish(snap)
}

func (c *SQLiteCatalog) load(ctx context.Context) (nb.Snapshot, error) {
	var snap nb.Snapshot

	rows, err := c.db.QueryContext(ctx,
		`SELECT id, name, allow_uploads, parent_id, created_at FROM folders ORDER BY created_at, rowid`)
	if err != nil {
		return snap, fmt.Errorf("listing folders: %w", err)
	}
	for rows.Next() {
		f, err := scanFolder(rows)
		if err != nil {
			rows.Close()
			return snap, fmt.Errorf("scanning folder: %w", err)
		}
		snap.Folders = append(snap.Folders, *f)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return snap, fmt.Errorf("listing folders: %w", err)
	}

	rows, err = c.db.QueryContext(ctx,
		`SELECT id, name, kind, owner, folder, description, link, created_at FROM items ORDER BY created_at, rowid`)
	if err != nil {
		return snap, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var it nb.Item
		var kind string
		if err := rows.Scan(&it.ID, &it.Name, &kind, &it.Owner, &it.Folder, &it.Description, &it.Link, &it.CreatedAt); err != nil {
			return snap, fmt.Errorf("scanning item: %w", err)
		}
		it.Kind = nb.Kind(kind)
		snap.Items = append(snap.Items, it)
	}
	if err := rows.Err(); err != nil {
		return snap, fmt.Errorf("listing items: %w", err)
	}

	return snap, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanFolder(s scanner) (*nb.Folder, error) {
	var f nb.Folder
	var parent sql.NullString
	if err := s.Scan(&f.ID, &f.Name, &f.AllowUploads, &parent, &f.CreatedAt); err != nil {
		return nil, err
	}
	f.ParentID = parent.String
	return &f, nil
}

func folderNameByID(ctx context.Context, tx *sql.Tx, id string) (string, error) {
	var name string
	err := tx.QueryRowContext(ctx, `SELECT name FROM folders WHERE id = ?`, id).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %s", nb.ErrFolderNotFound, id)
	}
	if err != nil {
		return "", fmt.Errorf("finding folder: %w", err)
	}
	return name, nil
}

func checkNameFree(ctx context.Context, tx *sql.Tx, name string) error {
	var n int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM folders WHERE name = ?`, name).Scan(&n); err != nil {
		return fmt.Errorf("checking folder name: %w", err)
	}
	if n > 0 {
		return fmt.Errorf("%w: %q", nb.ErrFolderExists, name)
	}
	return nil
}

func checkFolderExists(ctx context.Context, tx *sql.Tx, name string) error {
	var n int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM folders WHERE name = ?`, name).Scan(&n); err != nil {
		return fmt.Errorf("checking folder: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %q", nb.ErrFolderNotFound, name)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// Compile-time check that SQLiteCatalog implements nb.Catalog
var _ nb.Catalog = (*SQLiteCatalog)(nil)
