package ledger

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"notebox/internal/config"
	"notebox/internal/nb"
)

func sampleRecord() *nb.PendingUpload {
	return &nb.PendingUpload{
		FileName:     "report.pdf",
		Description:  "week 3 notes",
		UploaderName: "Ann",
		Folder:       "Physics",
		Admin:        false,
		Timestamp:    1705314600000,
	}
}

// ledgers returns one instance of every implementation.
func ledgers(t *testing.T) map[string]nb.Ledger {
	t.Helper()
	fl, err := NewFileLedger(filepath.Join(t.TempDir(), "state", "pending-upload.json"))
	if err != nil {
		t.Fatalf("NewFileLedger() error = %v", err)
	}
	return map[string]nb.Ledger{
		"file":   fl,
		"memory": NewMemoryLedger(),
	}
}

func TestLedger_SaveLoadClear(t *testing.T) {
	for name, l := range ledgers(t) {
		t.Run(name, func(t *testing.T) {
			got, err := l.Load()
			if err != nil {
				t.Fatalf("Load() on empty ledger error = %v", err)
			}
			if got != nil {
				t.Fatalf("Load() on empty ledger = %+v, want nil", got)
			}

			want := sampleRecord()
			if err := l.Save(want); err != nil {
				t.Fatalf("Save() error = %v", err)
			}

			got, err = l.Load()
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if got == nil || *got != *want {
				t.Errorf("Load() = %+v, want %+v", got, want)
			}

			if err := l.Clear(); err != nil {
				t.Fatalf("Clear() error = %v", err)
			}
			got, _ = l.Load()
			if got != nil {
				t.Errorf("Load() after Clear = %+v, want nil", got)
			}

			if err := l.Clear(); err != nil {
				t.Errorf("second Clear() error = %v", err)
			}
		})
	}
}

func TestLedger_SaveReplaces(t *testing.T) {
	for name, l := range ledgers(t) {
		t.Run(name, func(t *testing.T) {
			first := sampleRecord()
			second := sampleRecord()
			second.FileName = "slides.pptx"

			if err := l.Save(first); err != nil {
				t.Fatalf("Save() error = %v", err)
			}
			if err := l.Save(second); err != nil {
				t.Fatalf("Save() error = %v", err)
			}

			got, _ := l.Load()
			if got.FileName != "slides.pptx" {
				t.Errorf("FileName = %q, want slides.pptx", got.FileName)
			}
		})
	}
}

func TestFileLedger_Persistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pending-upload.json")

	l1, err := NewFileLedger(path)
	if err != nil {
		t.Fatalf("NewFileLedger() error = %v", err)
	}
	if err := l1.Save(sampleRecord()); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	// A fresh instance stands in for a restarted process.
	l2, _ := NewFileLedger(path)
	got, err := l2.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got == nil || got.Folder != "Physics" {
		t.Errorf("Load() = %+v", got)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("mode = %v, want 0600", info.Mode().Perm())
	}
}

func TestFileLedger_WireFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pending-upload.json")
	raw := `{"fileName":"a.pdf","fileDesc":"","userName":"Bo","sectionName":"Math","userIsAdmin":true,"timestamp":1700000000000}`
	if err := os.WriteFile(path, []byte(raw), 0600); err != nil {
		t.Fatal(err)
	}

	l, _ := NewFileLedger(path)
	got, err := l.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.FileName != "a.pdf" || got.UploaderName != "Bo" || got.Folder != "Math" || !got.Admin {
		t.Errorf("Load() = %+v", got)
	}
	if got.StartedAt().UnixMilli() != 1700000000000 {
		t.Errorf("StartedAt() = %v", got.StartedAt())
	}
}

func TestFileLedger_CorruptRecord(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "not json", content: "{{{"},
		{name: "missing file name", content: `{"sectionName":"Math"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "pending-upload.json")
			if err := os.WriteFile(path, []byte(tt.content), 0600); err != nil {
				t.Fatal(err)
			}

			l, _ := NewFileLedger(path)
			_, err := l.Load()
			if !errors.Is(err, nb.ErrCorruptRecord) {
				t.Errorf("Load() error = %v, want ErrCorruptRecord", err)
			}
		})
	}
}

func TestFileLedger_NoTempFilesLeft(t *testing.T) {
	dir := t.TempDir()
	l, _ := NewFileLedger(filepath.Join(dir, "pending-upload.json"))
	for i := 0; i < 3; i++ {
		if err := l.Save(sampleRecord()); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("directory contains %v, want only the record file", names)
	}
}

func TestNewLedgerFromConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.LedgerConfig
		wantErr bool
	}{
		{name: "memory", cfg: config.LedgerConfig{Type: "memory"}},
		{name: "file", cfg: config.LedgerConfig{Type: "file", Path: filepath.Join(t.TempDir(), "p.json")}},
		{name: "file without path", cfg: config.LedgerConfig{Type: "file"}, wantErr: true},
		{name: "unknown", cfg: config.LedgerConfig{Type: "localStorage"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewLedgerFromConfig(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewLedgerFromConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got == nil {
				t.Error("NewLedgerFromConfig() returned nil")
			}
		})
	}
}
