package fs

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"

	"notebox/internal/nb"
)

// sniffLen is the number of bytes http.DetectContentType considers.
const sniffLen = 512

// OSFileSource opens files from the real filesystem.
type OSFileSource struct{}

// NewOSFileSource creates a FileSource backed by the os package.
func NewOSFileSource() *OSFileSource {
	return &OSFileSource{}
}

// Open resolves rawPath and returns it as an upload candidate. The MIME type
// comes from the extension, falling back to content sniffing.
func (s *OSFileSource) Open(rawPath string) (*nb.LocalFile, io.Closer, error) {
	absPath, err := filepath.Abs(rawPath)
	if err != nil {
		return nil, nil, fmt.Errorf("resolving absolute path: %w", err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return nil, nil, fmt.Errorf("stat path: %w", err)
	}

	mode := info.Mode()
	switch {
	case info.IsDir():
		return nil, nil, fmt.Errorf("cannot upload a directory: %s", absPath)
	case mode&os.ModeDevice != 0:
		return nil, nil, fmt.Errorf("device files not supported: %s", absPath)
	case mode&os.ModeNamedPipe != 0:
		return nil, nil, fmt.Errorf("named pipes not supported: %s", absPath)
	case mode&os.ModeSocket != 0:
		return nil, nil, fmt.Errorf("sockets not supported: %s", absPath)
	}

	f, err := os.Open(absPath)
	if err != nil {
		return nil, nil, fmt.Errorf("opening %s: %w", absPath, err)
	}

	mimeType, err := detectType(f, filepath.Ext(absPath))
	if err != nil {
		f.Close()
		return nil, nil, err
	}

	return &nb.LocalFile{
		Name:     filepath.Base(absPath),
		MIMEType: mimeType,
		Size:     info.Size(),
		Content:  f,
	}, f, nil
}

func detectType(f *os.File, ext string) (string, error) {
	if t := mime.TypeByExtension(ext); t != "" {
		return t, nil
	}

	buf := make([]byte, sniffLen)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", fmt.Errorf("reading %s: %w", f.Name(), err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("rewinding %s: %w", f.Name(), err)
	}
	if n == 0 {
		return "application/octet-stream", nil
	}
	return http.DetectContentType(buf[:n]), nil
}

// Compile-time check that OSFileSource implements nb.FileSource interface
var _ nb.FileSource = (*OSFileSource)(nil)
