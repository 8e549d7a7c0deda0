package fs

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestOSFileSource_Open(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name     string
		file     string
		content  string
		wantType string
	}{
		{name: "pdf by extension", file: "report.pdf", content: "%PDF-1.4 data", wantType: "application/pdf"},
		{name: "png by extension", file: "photo.png", content: "not really a png", wantType: "image/png"},
		{name: "sniffed html", file: "page.unknownext", content: "<html><body>hi</body></html>", wantType: "text/html"},
		{name: "empty without extension", file: "blank", content: "", wantType: "application/octet-stream"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.file)
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatal(err)
			}

			lf, closer, err := NewOSFileSource().Open(path)
			if err != nil {
				t.Fatalf("Open() error = %v", err)
			}
			defer closer.Close()

			if lf.Name != tt.file {
				t.Errorf("Name = %q, want %q", lf.Name, tt.file)
			}
			if !strings.HasPrefix(lf.MIMEType, tt.wantType) {
				t.Errorf("MIMEType = %q, want prefix %q", lf.MIMEType, tt.wantType)
			}
			if lf.Size != int64(len(tt.content)) {
				t.Errorf("Size = %d, want %d", lf.Size, len(tt.content))
			}

			got, err := io.ReadAll(lf.Content)
			if err != nil {
				t.Fatalf("reading content: %v", err)
			}
			if string(got) != tt.content {
				t.Errorf("content = %q, want %q", got, tt.content)
			}
		})
	}
}

func TestOSFileSource_Open_Errors(t *testing.T) {
	dir := t.TempDir()

	if _, _, err := NewOSFileSource().Open(filepath.Join(dir, "missing.pdf")); err == nil {
		t.Error("Open() expected error for missing file")
	}
	if _, _, err := NewOSFileSource().Open(dir); err == nil {
		t.Error("Open() expected error for directory")
	}
}
