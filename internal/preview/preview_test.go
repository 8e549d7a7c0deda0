package preview

import (
	"strings"
	"testing"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name      string
		link      string
		wantKind  Kind
		wantImage string
		wantEmbed string
	}{
		{
			name:      "short youtube link",
			link:      "https://youtu.be/abc123",
			wantKind:  KindYouTube,
			wantImage: "https://img.youtube.com/vi/abc123/mqdefault.jpg",
			wantEmbed: "https://www.youtube.com/embed/abc123",
		},
		{
			name:      "youtube watch link",
			link:      "https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=10",
			wantKind:  KindYouTube,
			wantImage: "https://img.youtube.com/vi/dQw4w9WgXcQ/mqdefault.jpg",
			wantEmbed: "https://www.youtube.com/embed/dQw4w9WgXcQ",
		},
		{
			name:      "direct image",
			link:      "https://cdn.example.com/photos/cat.JPG",
			wantKind:  KindImage,
			wantImage: "https://cdn.example.com/photos/cat.JPG",
		},
		{
			name:      "drive file",
			link:      "https://drive.google.com/file/d/1AbCdEfGhIjKlMnOpQrStUvWxYz012345/view",
			wantKind:  KindDrive,
			wantImage: "https://drive.google.com/thumbnail?id=1AbCdEfGhIjKlMnOpQrStUvWxYz012345&sz=w500",
		},
		{
			name:      "docs link",
			link:      "https://docs.google.com/document/d/1AbCdEfGhIjKlMnOpQrStUvWxYz012345/edit",
			wantKind:  KindDrive,
			wantImage: "https://drive.google.com/thumbnail?id=1AbCdEfGhIjKlMnOpQrStUvWxYz012345&sz=w500",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve(tt.link)
			if got == nil {
				t.Fatalf("Resolve(%q) = nil", tt.link)
			}
			if got.Kind != tt.wantKind {
				t.Errorf("Kind = %q, want %q", got.Kind, tt.wantKind)
			}
			if got.Image != tt.wantImage {
				t.Errorf("Image = %q, want %q", got.Image, tt.wantImage)
			}
			if got.Embed != tt.wantEmbed {
				t.Errorf("Embed = %q, want %q", got.Embed, tt.wantEmbed)
			}
		})
	}
}

func TestResolve_ShortYouTubeContainsID(t *testing.T) {
	got := Resolve("https://youtu.be/abc123")
	if got == nil || !strings.Contains(got.Image, "abc123") {
		t.Fatalf("Resolve() = %+v, want image containing abc123", got)
	}
}

func TestResolve_NoPreview(t *testing.T) {
	links := []string{
		"",
		"https://example.com/article",
		"https://www.youtube.com/channel/xyz",
		"https://drive.google.com/drive/my-drive",
		"https://example.com/file/1AbCdEfGhIjKlMnOpQrStUvWxYz012345",
	}
	for _, link := range links {
		if got := Resolve(link); got != nil {
			t.Errorf("Resolve(%q) = %+v, want nil", link, got)
		}
	}
}
