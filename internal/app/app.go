package app

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"notebox/internal/catalog"
	"notebox/internal/config"
	"notebox/internal/fs"
	"notebox/internal/ledger"
	"notebox/internal/nb"
	"notebox/internal/transfer"
)

var (
	ErrAdminNotConfigured = errors.New("no admin passphrase configured")
	ErrWrongPassphrase    = errors.New("incorrect admin passphrase")
)

// NBApp is the application layer between the CLI and the catalog and
// Uploader. It constructs all dependencies from config, resolves folder
// names to catalog ids, gates admin operations, and closes everything on
// Close.
type NBApp struct {
	cfg      *config.Config
	catalog  nb.Catalog
	ledger   nb.Ledger
	files    nb.FileSource
	uploader *nb.Uploader
	logger   nb.Logger
	clock    nb.Clock
	op       *Operation
	logFile  *os.File
	admin    bool
	pending  *nb.PendingUpload
}

// View is one folder as the browser shows it.
type View struct {
	Folder      string
	Breadcrumbs []string
	Folders     []nb.Folder
	Items       []nb.Item
	CanUpload   bool
}

// UploadRequest is a CLI add: FilePath or Link (FilePath wins when both
// are set).
type UploadRequest struct {
	Folder       string
	Name         string
	Description  string
	UploaderName string
	FilePath     string
	Link         string
}

// NewNBApp creates a fully wired NBApp from the given config.
// operation identifies the CLI command being run (e.g. "Upload", "RenameFolder").
// An interrupted upload found in the ledger is available from PendingUpload.
// The caller must call Close when done.
func NewNBApp(cfg *config.Config, operation string) (*NBApp, error) {
	return newNBApp(cfg, operation, nil, os.Stderr)
}

// newNBApp builds the app. A nil transfer uses the HTTP executor from the
// endpoint config; console receives warnings and errors.
func newNBApp(cfg *config.Config, operation string, xfer nb.Transferrer, console io.Writer) (*NBApp, error) {
	clock := nb.RealClock{}
	op := NewOperation(operation, clock.Now())

	slogger, logFile, err := newLogger(cfg.LogDir, op.ID, console)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: slogger}

	cat, err := catalog.NewCatalogFromConfig(cfg.Catalog, logger)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("creating catalog: %w", err)
	}

	led, err := ledger.NewLedgerFromConfig(cfg.Ledger)
	if err != nil {
		cat.Close()
		logFile.Close()
		return nil, fmt.Errorf("creating ledger: %w", err)
	}

	if xfer == nil {
		exec, err := transfer.NewExecutorFromConfig(cfg.Endpoint, logger)
		if err != nil {
			cat.Close()
			logFile.Close()
			return nil, fmt.Errorf("creating transfer executor: %w", err)
		}
		xfer = exec
	}

	a := &NBApp{
		cfg:      cfg,
		catalog:  cat,
		ledger:   led,
		files:    fs.NewOSFileSource(),
		uploader: nb.NewUploader(cat, led, xfer, logger, clock),
		logger:   logger,
		clock:    clock,
		op:       op,
		logFile:  logFile,
	}

	a.pending, err = a.uploader.CheckRecovery(context.Background())
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("checking for interrupted uploads: %w", err)
	}

	logger.Debug("operation started", "operation", op.Name, "client_id", cfg.ClientID)
	return a, nil
}

// Authenticate enables admin operations when passphrase matches the
// configured one.
func (a *NBApp) Authenticate(passphrase string) error {
	if a.cfg.AdminPass == "" {
		return a.op.Record(ErrAdminNotConfigured)
	}
	if subtle.ConstantTimeCompare([]byte(passphrase), []byte(a.cfg.AdminPass)) != 1 {
		a.logger.Warn("admin authentication failed")
		return a.op.Record(ErrWrongPassphrase)
	}
	a.admin = true
	return nil
}

// IsAdmin reports whether Authenticate succeeded.
func (a *NBApp) IsAdmin() bool {
	return a.admin
}

func (a *NBApp) requireAdmin() error {
	if !a.admin {
		return a.op.Record(nb.ErrAdminRequired)
	}
	return nil
}

// Browse returns the contents of folder. An empty folder means All Files.
func (a *NBApp) Browse(ctx context.Context, folder, query string) (*View, error) {
	if folder == "" {
		folder = nb.AllFiles
	}
	snap, err := a.catalog.Snapshot(ctx)
	if err != nil {
		return nil, a.op.Record(fmt.Errorf("reading catalog: %w", err))
	}
	if folder != nb.AllFiles && snap.FolderByName(folder) == nil {
		return nil, a.op.Record(fmt.Errorf("%w: %s", nb.ErrFolderNotFound, folder))
	}
	return &View{
		Folder:      folder,
		Breadcrumbs: nb.Breadcrumbs(snap, folder),
		Folders:     nb.SubFolders(snap, folder, query),
		Items:       nb.FilterItems(snap, folder, query),
		CanUpload:   nb.CanUpload(snap, folder, a.admin),
	}, nil
}

// Folders returns every folder in creation order.
func (a *NBApp) Folders(ctx context.Context) ([]nb.Folder, error) {
	snap, err := a.catalog.Snapshot(ctx)
	if err != nil {
		return nil, a.op.Record(fmt.Errorf("reading catalog: %w", err))
	}
	return snap.Folders, nil
}

// AddFolder creates a folder under parent (empty or All Files for a root folder).
func (a *NBApp) AddFolder(ctx context.Context, name, parent string, allowUploads bool) (*nb.Folder, error) {
	if err := a.requireAdmin(); err != nil {
		return nil, err
	}

	parentID := ""
	if parent != "" && parent != nb.AllFiles {
		p, err := a.folder(ctx, parent)
		if err != nil {
			return nil, a.op.Record(fmt.Errorf("parent: %w", err))
		}
		parentID = p.ID
	}

	f, err := a.catalog.CreateFolder(ctx, name, parentID, allowUploads)
	return f, a.op.Record(err)
}

// RenameFolder renames a folder and moves its items with it.
func (a *NBApp) RenameFolder(ctx context.Context, oldName, newName string) error {
	if err := a.requireAdmin(); err != nil {
		return err
	}
	f, err := a.folder(ctx, oldName)
	if err != nil {
		return a.op.Record(err)
	}
	return a.op.Record(a.catalog.RenameFolder(ctx, f.ID, newName))
}

// DeleteFolder deletes a folder and every item in it.
func (a *NBApp) DeleteFolder(ctx context.Context, name string) error {
	if err := a.requireAdmin(); err != nil {
		return err
	}
	f, err := a.folder(ctx, name)
	if err != nil {
		return a.op.Record(err)
	}
	return a.op.Record(a.catalog.DeleteFolder(ctx, f.ID, f.Name))
}

// SetFolderUploads opens or locks a folder for non-admin uploads.
func (a *NBApp) SetFolderUploads(ctx context.Context, name string, allow bool) error {
	if err := a.requireAdmin(); err != nil {
		return err
	}
	f, err := a.folder(ctx, name)
	if err != nil {
		return a.op.Record(err)
	}
	return a.op.Record(a.catalog.SetFolderUploads(ctx, f.ID, allow))
}

// EditItem applies edit to an item. Empty fields keep their current value.
func (a *NBApp) EditItem(ctx context.Context, id string, edit nb.ItemEdit) (*nb.Item, error) {
	if err := a.requireAdmin(); err != nil {
		return nil, err
	}

	snap, err := a.catalog.Snapshot(ctx)
	if err != nil {
		return nil, a.op.Record(fmt.Errorf("reading catalog: %w", err))
	}
	cur := snap.ItemByID(id)
	if cur == nil {
		return nil, a.op.Record(fmt.Errorf("%w: %s", nb.ErrItemNotFound, id))
	}

	merged := nb.ItemEdit{
		Name:        firstNonEmpty(edit.Name, cur.Name),
		Link:        firstNonEmpty(edit.Link, cur.Link),
		Description: firstNonEmpty(edit.Description, cur.Description),
		Folder:      firstNonEmpty(edit.Folder, cur.Folder),
	}
	if edit.Link != "" {
		if err := nb.ValidateLink(edit.Link); err != nil {
			return nil, a.op.Record(err)
		}
	}
	if err := a.catalog.UpdateItem(ctx, id, merged); err != nil {
		return nil, a.op.Record(err)
	}

	updated := *cur
	updated.Name = merged.Name
	updated.Link = merged.Link
	updated.Description = merged.Description
	updated.Folder = merged.Folder
	return &updated, nil
}

// DeleteItem removes an item from the catalog.
func (a *NBApp) DeleteItem(ctx context.Context, id string) error {
	if err := a.requireAdmin(); err != nil {
		return err
	}
	return a.op.Record(a.catalog.DeleteItem(ctx, id))
}

// Upload submits a file or a link. Without admin access the uploader name
// falls back to the configured user_name.
func (a *NBApp) Upload(ctx context.Context, req UploadRequest) (*nb.Item, error) {
	sub := &nb.Submission{
		Name:         req.Name,
		Description:  req.Description,
		UploaderName: firstNonEmpty(req.UploaderName, a.cfg.UserName),
		Folder:       req.Folder,
		Admin:        a.admin,
		Link:         req.Link,
	}

	if req.FilePath != "" {
		file, closer, err := a.files.Open(req.FilePath)
		if err != nil {
			return nil, a.op.Record(err)
		}
		defer closer.Close()
		sub.File = file
	}

	item, err := a.uploader.Submit(ctx, sub)
	return item, a.op.Record(err)
}

// PendingUpload returns the interrupted upload found at startup, or nil.
func (a *NBApp) PendingUpload() *nb.PendingUpload {
	return a.pending
}

// RecoveryNotice is a one-line prompt about the interrupted upload found at
// startup, or "" when there is none.
func (a *NBApp) RecoveryNotice() string {
	if a.pending == nil {
		return ""
	}
	return fmt.Sprintf("Interrupted upload %q to %s from %s is awaiting recovery; run 'notebox recover'.",
		a.pending.FileName, a.pending.Folder, a.pending.StartedAt().Local().Format("2006-01-02 15:04"))
}

// Resume re-uploads the interrupted upload from path with its saved metadata.
func (a *NBApp) Resume(ctx context.Context, path string) (*nb.Item, error) {
	if a.pending == nil {
		return nil, a.op.Record(nb.ErrNoPendingUpload)
	}
	file, closer, err := a.files.Open(path)
	if err != nil {
		return nil, a.op.Record(err)
	}
	defer closer.Close()

	item, err := a.uploader.Resume(ctx, file)
	if err != nil {
		return nil, a.op.Record(err)
	}
	a.pending = nil
	return item, nil
}

// Discard drops the interrupted upload without adding anything to the catalog.
func (a *NBApp) Discard(ctx context.Context) error {
	if err := a.uploader.Discard(ctx); err != nil {
		return a.op.Record(err)
	}
	a.pending = nil
	return nil
}

// WatchUpload streams upload status changes until the returned func is called.
func (a *NBApp) WatchUpload() (<-chan nb.Status, func()) {
	return a.uploader.Watch()
}

// InFlight reports whether an upload is running.
func (a *NBApp) InFlight() bool {
	return a.uploader.InFlight()
}

// Subscribe delivers the current catalog and every later change to fn.
func (a *NBApp) Subscribe(fn func(nb.Snapshot)) func() {
	return a.catalog.Subscribe(fn)
}

// Close logs the operation outcome and closes the catalog and log file.
func (a *NBApp) Close() error {
	var firstErr error

	if err := a.catalog.Close(); err != nil {
		firstErr = fmt.Errorf("closing catalog: %w", err)
		a.op.Record(firstErr)
	}

	elapsed := a.clock.Now().Sub(a.op.StartedAt).Truncate(time.Millisecond)
	a.logger.Info("operation finished", "operation", a.op.Name, "status", a.op.Status, "duration", elapsed)

	if a.logFile != nil {
		a.logFile.Close()
	}
	return firstErr
}

func (a *NBApp) folder(ctx context.Context, name string) (*nb.Folder, error) {
	f, err := a.catalog.FindFolderByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, fmt.Errorf("%w: %s", nb.ErrFolderNotFound, name)
	}
	return f, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
