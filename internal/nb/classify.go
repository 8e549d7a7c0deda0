package nb

import (
	"path/filepath"
	"strings"
)

// Classify picks the display kind of a committed item. The declared MIME
// type of an uploaded file wins; otherwise the extension of the display
// name decides; otherwise the item is a plain link. mimeType is empty for
// link-only submissions.
func Classify(mimeType, name string) Kind {
	if k := kindFromMIME(mimeType); k != KindLink {
		return k
	}
	return kindFromExtension(name)
}

func kindFromMIME(mimeType string) Kind {
	m := strings.ToLower(mimeType)
	switch {
	case m == "":
		return KindLink
	case strings.Contains(m, "pdf"):
		return KindPDF
	case strings.Contains(m, "image"):
		return KindImage
	case strings.HasPrefix(m, "video/"):
		return KindVideo
	case strings.Contains(m, "sheet"), strings.Contains(m, "excel"):
		return KindSheet
	// officedocument.presentationml also contains "document"
	case strings.Contains(m, "presentation"), strings.Contains(m, "powerpoint"):
		return KindSlide
	case strings.Contains(m, "document"), strings.Contains(m, "word"):
		return KindDoc
	default:
		return KindLink
	}
}

var extensionKinds = map[string]Kind{
	"pdf":  KindPDF,
	"doc":  KindDoc,
	"docx": KindDoc,
	"xls":  KindSheet,
	"xlsx": KindSheet,
	"ppt":  KindSlide,
	"pptx": KindSlide,
	"jpg":  KindImage,
	"jpeg": KindImage,
	"png":  KindImage,
	"gif":  KindImage,
	"webp": KindImage,
	"mp4":  KindVideo,
	"mov":  KindVideo,
	"webm": KindVideo,
}

func kindFromExtension(name string) Kind {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	if k, ok := extensionKinds[ext]; ok {
		return k
	}
	return KindLink
}
