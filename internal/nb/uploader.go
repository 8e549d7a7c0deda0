package nb

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// State is the position of the Uploader in its run.
type State string

const (
	StateIdle            State = "idle"
	StateValidating      State = "validating"
	StateLocalTransfer   State = "local_transfer"
	StateLinkOnly        State = "link_only"
	StateClassifying     State = "classifying"
	StateCommitting      State = "committing"
	StateRecoveryPending State = "recovery_pending"
)

// Status is the observable upload state. Only the Uploader writes it.
type Status struct {
	State     State
	FileName  string
	Progress  int // 0-100, never decreases within a run
	Uploading bool
	Pending   *PendingUpload // set only in StateRecoveryPending
}

// Uploader sequences validation, transfer, classification and the catalog
// commit for one submission at a time, and owns the startup recovery flow.
type Uploader struct {
	catalog  Catalog
	ledger   Ledger
	transfer Transferrer
	logger   Logger
	clock    Clock

	mu        sync.Mutex
	status    Status
	running   bool
	watchers  map[int]chan Status
	nextWatch int
}

// NewUploader creates an Uploader in the Idle state.
// Call CheckRecovery once at startup before accepting submissions.
func NewUploader(catalog Catalog, ledger Ledger, transfer Transferrer, logger Logger, clock Clock) *Uploader {
	if logger == nil {
		logger = NewNopLogger()
	}
	if clock == nil {
		clock = RealClock{}
	}
	return &Uploader{
		catalog:  catalog,
		ledger:   ledger,
		transfer: transfer,
		logger:   logger,
		clock:    clock,
		status:   Status{State: StateIdle},
		watchers: make(map[int]chan Status),
	}
}

// uploadJob is a validated submission, or a recovery record plus the
// re-selected file.
type uploadJob struct {
	name        string
	description string
	uploader    string
	folder      string
	admin       bool
	link        string
	file        *LocalFile
	resumed     bool
}

// Status returns a copy of the current status.
func (u *Uploader) Status() Status {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.copyStatusLocked()
}

// InFlight reports whether a run is in progress. Callers use it to warn
// before the process is interrupted.
func (u *Uploader) InFlight() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.running
}

// Watch returns a channel that receives the latest status after every
// change. The channel holds at most one value; a slow reader only sees the
// most recent status. Call the returned function to stop watching.
func (u *Uploader) Watch() (<-chan Status, func()) {
	ch := make(chan Status, 1)

	u.mu.Lock()
	id := u.nextWatch
	u.nextWatch++
	u.watchers[id] = ch
	ch <- u.copyStatusLocked()
	u.mu.Unlock()

	return ch, func() {
		u.mu.Lock()
		defer u.mu.Unlock()
		if c, ok := u.watchers[id]; ok {
			delete(u.watchers, id)
			close(c)
		}
	}
}

// Submit validates sub and runs it to completion. It returns the committed
// item on success.
//
// Local files are recorded in the ledger once the endpoint has accepted the
// upload and before any bytes are sent. The record is cleared only after
// the catalog commit succeeds.
func (u *Uploader) Submit(ctx context.Context, sub *Submission) (item *Item, err error) {
	u.mu.Lock()
	if u.running {
		u.mu.Unlock()
		return nil, ErrUploadInProgress
	}
	if u.status.State == StateRecoveryPending {
		u.mu.Unlock()
		return nil, ErrRecoveryPending
	}
	u.running = true
	u.status = Status{State: StateValidating, FileName: sub.Name, Uploading: true}
	u.notifyLocked()
	u.mu.Unlock()

	defer func() { u.finish(false, err == nil) }()

	snap, err := u.catalog.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	if err := Validate(sub, snap); err != nil {
		u.logger.Info("submission rejected", "name", sub.Name, "error", err)
		return nil, err
	}

	job := &uploadJob{
		name:        strings.TrimSpace(sub.Name),
		description: sub.Description,
		uploader:    strings.TrimSpace(sub.UploaderName),
		folder:      sub.Folder,
		admin:       sub.Admin,
		link:        strings.TrimSpace(sub.Link),
		file:        sub.File,
	}
	return u.run(ctx, job)
}

// CheckRecovery inspects the ledger at startup. If an interrupted upload is
// recorded the Uploader moves to StateRecoveryPending and the record is
// returned. A record that cannot be decoded is discarded.
func (u *Uploader) CheckRecovery(ctx context.Context) (*PendingUpload, error) {
	rec, err := u.ledger.Load()

	u.mu.Lock()
	defer u.mu.Unlock()

	if u.running {
		return nil, ErrUploadInProgress
	}
	if errors.Is(err, ErrCorruptRecord) {
		u.logger.Warn("discarding unreadable pending upload record", "error", err)
		if err := u.ledger.Clear(); err != nil {
			return nil, fmt.Errorf("clearing corrupt record: %w", err)
		}
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading pending upload: %w", err)
	}
	if rec == nil {
		return nil, nil
	}

	u.logger.Info("found interrupted upload", "file", rec.FileName, "folder", rec.Folder, "started_at", rec.StartedAt())

	u.status = Status{State: StateRecoveryPending, FileName: rec.FileName, Pending: rec}
	u.notifyLocked()
	return rec, nil
}

// Resume re-runs the recorded upload with a re-selected file and the saved
// metadata. If it fails while the record is still in the ledger the
// Uploader goes back to StateRecoveryPending.
func (u *Uploader) Resume(ctx context.Context, file *LocalFile) (item *Item, err error) {
	if file == nil {
		return nil, &ValidationError{Field: "source", Err: ErrNoSource}
	}

	u.mu.Lock()
	if u.running {
		u.mu.Unlock()
		return nil, ErrUploadInProgress
	}
	if u.status.State != StateRecoveryPending || u.status.Pending == nil {
		u.mu.Unlock()
		return nil, ErrNoPendingUpload
	}
	rec := *u.status.Pending
	u.running = true
	u.status = Status{State: StateValidating, FileName: rec.FileName, Uploading: true}
	u.notifyLocked()
	u.mu.Unlock()

	defer func() { u.finish(true, err == nil) }()

	snap, err := u.catalog.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	sub := &Submission{
		Name:         rec.FileName,
		Description:  rec.Description,
		UploaderName: rec.UploaderName,
		Folder:       rec.Folder,
		Admin:        rec.Admin,
		File:         file,
	}
	if err := Validate(sub, snap); err != nil {
		return nil, err
	}

	job := &uploadJob{
		name:        rec.FileName,
		description: rec.Description,
		uploader:    rec.UploaderName,
		folder:      rec.Folder,
		admin:       rec.Admin,
		file:        file,
		resumed:     true,
	}
	return u.run(ctx, job)
}

// Discard drops the pending record without touching the catalog.
func (u *Uploader) Discard(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.running {
		return ErrUploadInProgress
	}
	if err := u.ledger.Clear(); err != nil {
		return fmt.Errorf("clearing pending upload: %w", err)
	}
	if u.status.Pending != nil {
		u.logger.Info("discarded interrupted upload", "file", u.status.Pending.FileName)
	}
	u.status = Status{State: StateIdle}
	u.notifyLocked()
	return nil
}

func (u *Uploader) run(ctx context.Context, job *uploadJob) (*Item, error) {
	link := job.link
	mimeType := ""
	recorded := job.resumed

	if job.file != nil {
		u.setState(StateLocalTransfer)

		rec := &PendingUpload{
			FileName:     job.name,
			Description:  job.description,
			UploaderName: job.uploader,
			Folder:       job.folder,
			Admin:        job.admin,
			Timestamp:    u.clock.Now().UnixMilli(),
		}
		hooks := TransferHooks{
			BeforeStream: func() error {
				if job.resumed {
					return nil
				}
				if err := u.ledger.Save(rec); err != nil {
					return fmt.Errorf("saving pending upload: %w", err)
				}
				recorded = true
				return nil
			},
			OnProgress: u.setProgress,
		}

		l, err := u.transfer.Transfer(ctx, job.file, hooks)
		if err != nil {
			u.logger.Error("transfer failed", "file", job.name, "error", err)
			return nil, err
		}
		link = l
		mimeType = job.file.MIMEType
	} else {
		u.setState(StateLinkOnly)
	}

	u.setState(StateClassifying)
	kind := Classify(mimeType, job.name)

	u.setState(StateCommitting)
	owner := job.uploader
	if job.admin {
		owner = AdminOwner
	}
	desc := strings.TrimSpace(job.description)
	if desc == "" {
		desc = DefaultDescription
	}

	item, err := u.catalog.CreateItem(ctx, ItemFields{
		Name:        job.name,
		Kind:        kind,
		Owner:       owner,
		Folder:      job.folder,
		Description: desc,
		Link:        link,
	})
	if err != nil {
		u.logger.Error("catalog commit failed", "file", job.name, "folder", job.folder, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrCatalogWriteFailed, err)
	}

	if recorded {
		if err := u.ledger.Clear(); err != nil {
			u.logger.Warn("clearing pending upload after commit", "file", job.name, "error", err)
		}
	}

	u.logger.Info("item committed", "id", item.ID, "name", item.Name, "kind", item.Kind, "folder", item.Folder)
	return item, nil
}

// finish resets the status at the end of a run. A failed resume whose
// record is still in the ledger returns to StateRecoveryPending; a
// committed run always ends Idle.
func (u *Uploader) finish(resumed, committed bool) {
	var pending *PendingUpload
	if resumed && !committed {
		rec, err := u.ledger.Load()
		if err != nil {
			u.logger.Warn("reloading pending upload", "error", err)
		}
		pending = rec
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	u.running = false
	if pending != nil {
		u.status = Status{State: StateRecoveryPending, FileName: pending.FileName, Pending: pending}
	} else {
		u.status = Status{State: StateIdle}
	}
	u.notifyLocked()
}

func (u *Uploader) setState(s State) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.status.State = s
	u.notifyLocked()
}

func (u *Uploader) setProgress(percent int) {
	if percent > 100 {
		percent = 100
	}

	u.mu.Lock()
	defer u.mu.Unlock()
	if percent <= u.status.Progress {
		return
	}
	u.status.Progress = percent
	u.notifyLocked()
}

func (u *Uploader) copyStatusLocked() Status {
	st := u.status
	if st.Pending != nil {
		p := *st.Pending
		st.Pending = &p
	}
	return st
}

// notifyLocked replaces whatever is buffered in each watcher channel with
// the current status. Must be called with u.mu held.
func (u *Uploader) notifyLocked() {
	st := u.copyStatusLocked()
	for _, ch := range u.watchers {
		select {
		case <-ch:
		default:
		}
		ch <- st
	}
}
