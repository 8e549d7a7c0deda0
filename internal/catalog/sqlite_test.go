package catalog

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"notebox/internal/nb"
)

// newTestCatalog creates a new in-memory catalog with schema applied.
func newTestCatalog(t *testing.T) *SQLiteCatalog {
	t.Helper()

	c, err := NewSQLiteCatalog(":memory:", nil, nil, nil)
	if err != nil {
		t.Fatalf("failed to create catalog: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func mustFolder(t *testing.T, c *SQLiteCatalog, name, parentID string) *nb.Folder {
	t.Helper()
	f, err := c.CreateFolder(context.Background(), name, parentID, false)
	if err != nil {
		t.Fatalf("CreateFolder(%q) error = %v", name, err)
	}
	return f
}

func mustItem(t *testing.T, c *SQLiteCatalog, name, folder string) *nb.Item {
	t.Helper()
	it, err := c.CreateItem(context.Background(), nb.ItemFields{
		Name: name, Kind: nb.KindPDF, Owner: "Ann", Folder: folder, Description: "d", Link: "https://x/" + name,
	})
	if err != nil {
		t.Fatalf("CreateItem(%q) error = %v", name, err)
	}
	return it
}

func TestSQLiteCatalog_CreateFolder(t *testing.T) {
	ctx := context.Background()

	t.Run("creates root folder", func(t *testing.T) {
		c := newTestCatalog(t)

		f, err := c.CreateFolder(ctx, "Physics", "", true)
		if err != nil {
			t.Fatalf("CreateFolder() error = %v", err)
		}
		if f.ID == "" {
			t.Error("ID is empty")
		}
		if !f.IsRoot() {
			t.Error("IsRoot() = false, want true")
		}

		found, err := c.FindFolderByName(ctx, "Physics")
		if err != nil {
			t.Fatalf("FindFolderByName() error = %v", err)
		}
		if found == nil || found.ID != f.ID || !found.AllowUploads {
			t.Errorf("FindFolderByName() = %+v, want %+v", found, f)
		}
	})

	t.Run("names are unique across parents", func(t *testing.T) {
		c := newTestCatalog(t)
		parent := mustFolder(t, c, "Year 1", "")
		mustFolder(t, c, "Labs", parent.ID)

		_, err := c.CreateFolder(ctx, "Labs", "", false)
		if !errors.Is(err, nb.ErrFolderExists) {
			t.Errorf("CreateFolder() error = %v, want ErrFolderExists", err)
		}
	})

	t.Run("rejects empty and reserved names", func(t *testing.T) {
		c := newTestCatalog(t)
		for _, name := range []string{"", "   ", nb.AllFiles} {
			if _, err := c.CreateFolder(ctx, name, "", false); !errors.Is(err, nb.ErrInvalidName) {
				t.Errorf("CreateFolder(%q) error = %v, want ErrInvalidName", name, err)
			}
		}
	})

	t.Run("rejects unknown parent", func(t *testing.T) {
		c := newTestCatalog(t)
		if _, err := c.CreateFolder(ctx, "Orphan", "missing", false); !errors.Is(err, nb.ErrFolderNotFound) {
			t.Errorf("CreateFolder() error = %v, want ErrFolderNotFound", err)
		}
	})

	t.Run("find returns nil when missing", func(t *testing.T) {
		c := newTestCatalog(t)
		f, err := c.FindFolderByName(ctx, "nope")
		if err != nil {
			t.Fatalf("FindFolderByName() error = %v", err)
		}
		if f != nil {
			t.Errorf("FindFolderByName() = %+v, want nil", f)
		}
	})
}

func TestSQLiteCatalog_RenameFolder(t *testing.T) {
	ctx := context.Background()

	t.Run("rewrites every item in the folder", func(t *testing.T) {
		c := newTestCatalog(t)
		a := mustFolder(t, c, "A", "")
		mustFolder(t, c, "Other", "")
		const n = 25
		for i := 0; i < n; i++ {
			mustItem(t, c, fmt.Sprintf("file-%d.pdf", i), "A")
		}
		mustItem(t, c, "stay.pdf", "Other")

		if err := c.RenameFolder(ctx, a.ID, "B"); err != nil {
			t.Fatalf("RenameFolder() error = %v", err)
		}

		snap, err := c.Snapshot(ctx)
		if err != nil {
			t.Fatalf("Snapshot() error = %v", err)
		}
		if snap.FolderByName("A") != nil {
			t.Error("folder A still exists")
		}
		if got := len(nb.FilterItems(snap, "B", "")); got != n {
			t.Errorf("items in B = %d, want %d", got, n)
		}
		if got := len(nb.FilterItems(snap, "A", "")); got != 0 {
			t.Errorf("items in A = %d, want 0", got)
		}
		if got := len(nb.FilterItems(snap, "Other", "")); got != 1 {
			t.Errorf("items in Other = %d, want 1", got)
		}
	})

	t.Run("conflicting name leaves everything unchanged", func(t *testing.T) {
		c := newTestCatalog(t)
		a := mustFolder(t, c, "A", "")
		mustFolder(t, c, "B", "")
		mustItem(t, c, "x.pdf", "A")

		if err := c.RenameFolder(ctx, a.ID, "B"); !errors.Is(err, nb.ErrFolderExists) {
			t.Fatalf("RenameFolder() error = %v, want ErrFolderExists", err)
		}

		snap, _ := c.Snapshot(ctx)
		if got := len(nb.FilterItems(snap, "A", "")); got != 1 {
			t.Errorf("items in A = %d, want 1", got)
		}
	})

	t.Run("same name is a no-op", func(t *testing.T) {
		c := newTestCatalog(t)
		a := mustFolder(t, c, "A", "")
		if err := c.RenameFolder(ctx, a.ID, "A"); err != nil {
			t.Errorf("RenameFolder() error = %v", err)
		}
	})

	t.Run("unknown folder", func(t *testing.T) {
		c := newTestCatalog(t)
		if err := c.RenameFolder(ctx, "missing", "X"); !errors.Is(err, nb.ErrFolderNotFound) {
			t.Errorf("RenameFolder() error = %v, want ErrFolderNotFound", err)
		}
	})
}

func TestSQLiteCatalog_DeleteFolder(t *testing.T) {
	ctx := context.Background()

	t.Run("removes folder and all its items", func(t *testing.T) {
		c := newTestCatalog(t)
		a := mustFolder(t, c, "A", "")
		mustFolder(t, c, "Keep", "")
		for i := 0; i < 10; i++ {
			mustItem(t, c, fmt.Sprintf("f%d.pdf", i), "A")
		}
		mustItem(t, c, "k.pdf", "Keep")

		if err := c.DeleteFolder(ctx, a.ID, "A"); err != nil {
			t.Fatalf("DeleteFolder() error = %v", err)
		}

		snap, _ := c.Snapshot(ctx)
		if snap.FolderByID(a.ID) != nil {
			t.Error("folder still exists")
		}
		if len(snap.Items) != 1 || snap.Items[0].Folder != "Keep" {
			t.Errorf("Items = %+v, want only the Keep item", snap.Items)
		}
	})

	t.Run("child folders move up to the parent", func(t *testing.T) {
		c := newTestCatalog(t)
		root := mustFolder(t, c, "Root", "")
		mid := mustFolder(t, c, "Mid", root.ID)
		leaf := mustFolder(t, c, "Leaf", mid.ID)

		if err := c.DeleteFolder(ctx, mid.ID, "Mid"); err != nil {
			t.Fatalf("DeleteFolder() error = %v", err)
		}

		snap, _ := c.Snapshot(ctx)
		got := snap.FolderByID(leaf.ID)
		if got == nil {
			t.Fatal("leaf folder was deleted")
		}
		if got.ParentID != root.ID {
			t.Errorf("leaf ParentID = %q, want %q", got.ParentID, root.ID)
		}
	})

	t.Run("unknown folder", func(t *testing.T) {
		c := newTestCatalog(t)
		if err := c.DeleteFolder(ctx, "missing", "X"); !errors.Is(err, nb.ErrFolderNotFound) {
			t.Errorf("DeleteFolder() error = %v, want ErrFolderNotFound", err)
		}
	})
}

func TestSQLiteCatalog_SetFolderUploads(t *testing.T) {
	ctx := context.Background()
	c := newTestCatalog(t)
	f := mustFolder(t, c, "Drop", "")

	if err := c.SetFolderUploads(ctx, f.ID, true); err != nil {
		t.Fatalf("SetFolderUploads() error = %v", err)
	}
	got, _ := c.FindFolderByName(ctx, "Drop")
	if !got.AllowUploads {
		t.Error("AllowUploads = false, want true")
	}

	if err := c.SetFolderUploads(ctx, "missing", true); !errors.Is(err, nb.ErrFolderNotFound) {
		t.Errorf("SetFolderUploads() error = %v, want ErrFolderNotFound", err)
	}
}

func TestSQLiteCatalog_Items(t *testing.T) {
	ctx := context.Background()

	t.Run("create requires an existing folder", func(t *testing.T) {
		c := newTestCatalog(t)
		_, err := c.CreateItem(ctx, nb.ItemFields{Name: "a.pdf", Folder: "Ghost", Link: "https://x"})
		if !errors.Is(err, nb.ErrFolderNotFound) {
			t.Errorf("CreateItem() error = %v, want ErrFolderNotFound", err)
		}
	})

	t.Run("create stores all fields", func(t *testing.T) {
		c := newTestCatalog(t)
		mustFolder(t, c, "Notes", "")

		it, err := c.CreateItem(ctx, nb.ItemFields{
			Name: "deck", Kind: nb.KindSlide, Owner: "Admin", Folder: "Notes", Description: "week 1", Link: "https://x/deck",
		})
		if err != nil {
			t.Fatalf("CreateItem() error = %v", err)
		}

		snap, _ := c.Snapshot(ctx)
		got := snap.ItemByID(it.ID)
		if got == nil {
			t.Fatal("item not in snapshot")
		}
		if got.Kind != nb.KindSlide || got.Owner != "Admin" || got.Description != "week 1" || got.Link != "https://x/deck" {
			t.Errorf("item = %+v", got)
		}
	})

	t.Run("update edits name link description and folder", func(t *testing.T) {
		c := newTestCatalog(t)
		mustFolder(t, c, "A", "")
		mustFolder(t, c, "B", "")
		it := mustItem(t, c, "old.pdf", "A")

		err := c.UpdateItem(ctx, it.ID, nb.ItemEdit{Name: "new.pdf", Link: "https://y", Description: "moved", Folder: "B"})
		if err != nil {
			t.Fatalf("UpdateItem() error = %v", err)
		}

		snap, _ := c.Snapshot(ctx)
		got := snap.ItemByID(it.ID)
		if got.Name != "new.pdf" || got.Folder != "B" || got.Link != "https://y" || got.Description != "moved" {
			t.Errorf("item = %+v", got)
		}
		if got.Kind != nb.KindPDF || got.Owner != "Ann" {
			t.Errorf("kind/owner changed: %+v", got)
		}
	})

	t.Run("update unknown item", func(t *testing.T) {
		c := newTestCatalog(t)
		mustFolder(t, c, "A", "")
		err := c.UpdateItem(ctx, "missing", nb.ItemEdit{Name: "x", Folder: "A"})
		if !errors.Is(err, nb.ErrItemNotFound) {
			t.Errorf("UpdateItem() error = %v, want ErrItemNotFound", err)
		}
	})

	t.Run("delete", func(t *testing.T) {
		c := newTestCatalog(t)
		mustFolder(t, c, "A", "")
		it := mustItem(t, c, "x.pdf", "A")

		if err := c.DeleteItem(ctx, it.ID); err != nil {
			t.Fatalf("DeleteItem() error = %v", err)
		}
		if err := c.DeleteItem(ctx, it.ID); !errors.Is(err, nb.ErrItemNotFound) {
			t.Errorf("second DeleteItem() error = %v, want ErrItemNotFound", err)
		}
	})
}

func TestSQLiteCatalog_SnapshotOrdering(t *testing.T) {
	ctx := context.Background()
	c := newTestCatalog(t)
	for _, name := range []string{"C", "A", "B"} {
		mustFolder(t, c, name, "")
	}

	snap, err := c.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	var got []string
	for _, f := range snap.Folders {
		got = append(got, f.Name)
	}
	if fmt.Sprint(got) != "[C A B]" {
		t.Errorf("folder order = %v, want creation order [C A B]", got)
	}
}

// recorder collects snapshots delivered to a subscriber.
type recorder struct {
	mu    sync.Mutex
	snaps []nb.Snapshot
}

func (r *recorder) record(s nb.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snaps = append(r.snaps, s)
}

func (r *recorder) all() []nb.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]nb.Snapshot(nil), r.snaps...)
}

// waitFor polls until cond holds for the latest recorded snapshot.
func (r *recorder) waitFor(t *testing.T, cond func(nb.Snapshot) bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		snaps := r.all()
		if len(snaps) > 0 && cond(snaps[len(snaps)-1]) {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("timed out waiting for snapshot")
}

func TestSQLiteCatalog_Subscribe(t *testing.T) {
	ctx := context.Background()

	t.Run("delivers current state then each change", func(t *testing.T) {
		c := newTestCatalog(t)
		mustFolder(t, c, "Existing", "")

		rec := &recorder{}
		unsubscribe := c.Subscribe(rec.record)
		defer unsubscribe()

		rec.waitFor(t, func(s nb.Snapshot) bool { return s.FolderByName("Existing") != nil })

		mustFolder(t, c, "New", "")
		rec.waitFor(t, func(s nb.Snapshot) bool { return s.FolderByName("New") != nil })
	})

	t.Run("never observes a partial rename", func(t *testing.T) {
		c := newTestCatalog(t)
		a := mustFolder(t, c, "A", "")
		for i := 0; i < 20; i++ {
			mustItem(t, c, fmt.Sprintf("f%d", i), "A")
		}

		rec := &recorder{}
		unsubscribe := c.Subscribe(rec.record)
		defer unsubscribe()

		if err := c.RenameFolder(ctx, a.ID, "B"); err != nil {
			t.Fatalf("RenameFolder() error = %v", err)
		}
		rec.waitFor(t, func(s nb.Snapshot) bool { return s.FolderByName("B") != nil })

		for _, s := range rec.all() {
			inA := len(nb.FilterItems(s, "A", ""))
			inB := len(nb.FilterItems(s, "B", ""))
			if !(inA == 20 && inB == 0 && s.FolderByName("A") != nil) && !(inA == 0 && inB == 20 && s.FolderByName("B") != nil) {
				t.Errorf("partial snapshot observed: A=%d B=%d", inA, inB)
			}
		}
	})

	t.Run("unsubscribe stops delivery", func(t *testing.T) {
		c := newTestCatalog(t)
		rec := &recorder{}
		unsubscribe := c.Subscribe(rec.record)
		rec.waitFor(t, func(nb.Snapshot) bool { return true })
		unsubscribe()

		before := len(rec.all())
		mustFolder(t, c, "After", "")
		time.Sleep(50 * time.Millisecond)
		if got := len(rec.all()); got != before {
			t.Errorf("received %d snapshots after unsubscribe", got-before)
		}
	})

	t.Run("failed mutation publishes nothing", func(t *testing.T) {
		c := newTestCatalog(t)
		mustFolder(t, c, "A", "")
		rec := &recorder{}
		unsubscribe := c.Subscribe(rec.record)
		defer unsubscribe()
		rec.waitFor(t, func(nb.Snapshot) bool { return true })

		before := len(rec.all())
		if _, err := c.CreateFolder(ctx, "A", "", false); err == nil {
			t.Fatal("expected duplicate error")
		}
		time.Sleep(50 * time.Millisecond)
		if got := len(rec.all()); got != before {
			t.Errorf("received %d snapshots after failed mutation", got-before)
		}
	})
}

func TestSQLiteCatalog_WatchExternalChanges(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.db")

	watching, err := NewSQLiteCatalog(path, nil, nil, nil)
	if err != nil {
		t.Fatalf("NewSQLiteCatalog() error = %v", err)
	}
	defer watching.Close()
	if err := watching.WatchExternalChanges(); err != nil {
		t.Fatalf("WatchExternalChanges() error = %v", err)
	}

	rec := &recorder{}
	unsubscribe := watching.Subscribe(rec.record)
	defer unsubscribe()

	other, err := NewSQLiteCatalog(path, nil, nil, nil)
	if err != nil {
		t.Fatalf("second NewSQLiteCatalog() error = %v", err)
	}
	defer other.Close()

	if _, err := other.CreateFolder(context.Background(), "FromElsewhere", "", false); err != nil {
		t.Fatalf("CreateFolder() error = %v", err)
	}

	rec.waitFor(t, func(s nb.Snapshot) bool { return s.FolderByName("FromElsewhere") != nil })
}

func TestSQLiteCatalog_WatchRejectsMemory(t *testing.T) {
	c := newTestCatalog(t)
	if err := c.WatchExternalChanges(); err == nil {
		t.Error("WatchExternalChanges() expected error for in-memory catalog")
	}
}
