package catalog

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchDebounce collapses the burst of events a single SQLite commit produces
// (journal create, db write, journal delete) into one refresh.
const watchDebounce = 150 * time.Millisecond

// changeWatcher republishes the catalog when another process commits to the
// same database file.
type changeWatcher struct {
	fsw  *fsnotify.Watcher
	quit chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

// WatchExternalChanges starts watching the catalog file. Writes made by this
// catalog are ignored: PRAGMA data_version only moves when a different
// connection commits.
func (c *SQLiteCatalog) WatchExternalChanges() error {
	if c.path == "" || c.path == ":memory:" {
		return fmt.Errorf("cannot watch an in-memory catalog")
	}
	if c.watcher != nil {
		return nil
	}

	version, err := c.dataVersion()
	if err != nil {
		return err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	// The directory is watched because SQLite replaces journal files.
	if err := fsw.Add(filepath.Dir(c.path)); err != nil {
		fsw.Close()
		return fmt.Errorf("watching %s: %w", filepath.Dir(c.path), err)
	}

	w := &changeWatcher{fsw: fsw, quit: make(chan struct{})}
	c.watcher = w

	w.wg.Add(1)
	go c.watchLoop(w, version)
	return nil
}

func (c *SQLiteCatalog) watchLoop(w *changeWatcher, version int64) {
	defer w.wg.Done()

	base := filepath.Base(c.path)
	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-w.quit:
			if timer != nil {
				timer.Stop()
			}
			return

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			c.logger.Warn("catalog watcher error", "error", err)

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !strings.HasPrefix(filepath.Base(ev.Name), base) {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(watchDebounce)
			} else {
				timer.Reset(watchDebounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			current, err := c.dataVersion()
			if err != nil {
				c.logger.Warn("reading catalog data version", "error", err)
				continue
			}
			if current == version {
				continue
			}
			version = current
			c.logger.Debug("catalog changed on disk, republishing", "data_version", current)
			c.refresh()
		}
	}
}

func (c *SQLiteCatalog) refresh() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.publishLocked()
}

func (c *SQLiteCatalog) dataVersion() (int64, error) {
	var v int64
	if err := c.db.QueryRowContext(context.Background(), "PRAGMA data_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("reading data_version: %w", err)
	}
	return v, nil
}

func (w *changeWatcher) stop() {
	w.once.Do(func() {
		close(w.quit)
		w.fsw.Close()
		w.wg.Wait()
	})
}
