package testutil

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"sync"

	"notebox/internal/nb"
)

// MockFile represents a file in the mock file source.
type MockFile struct {
	Content  []byte
	MIMEType string
}

// MockFileSource is an in-memory nb.FileSource for testing.
type MockFileSource struct {
	mu     sync.Mutex
	files  map[string]*MockFile
	opened int
	closed int
}

// NewMockFileSource creates an empty mock file source.
func NewMockFileSource() *MockFileSource {
	return &MockFileSource{files: make(map[string]*MockFile)}
}

// AddFile adds a file to the mock file source.
func (m *MockFileSource) AddFile(path string, content []byte, mimeType string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[path] = &MockFile{Content: content, MIMEType: mimeType}
}

func (m *MockFileSource) Open(path string) (*nb.LocalFile, io.Closer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	file, ok := m.files[path]
	if !ok {
		return nil, nil, fmt.Errorf("file not found: %s", path)
	}
	m.opened++
	return &nb.LocalFile{
		Name:     filepath.Base(path),
		MIMEType: file.MIMEType,
		Size:     int64(len(file.Content)),
		Content:  bytes.NewReader(file.Content),
	}, closerFunc(m.markClosed), nil
}

// OpenHandles returns the number of opened files not yet closed.
func (m *MockFileSource) OpenHandles() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.opened - m.closed
}

func (m *MockFileSource) markClosed() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed++
	return nil
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// LocalFile builds an nb.LocalFile from a string.
func LocalFile(name, mimeType, content string) *nb.LocalFile {
	return &nb.LocalFile{
		Name:     name,
		MIMEType: mimeType,
		Size:     int64(len(content)),
		Content:  bytes.NewReader([]byte(content)),
	}
}

var _ nb.FileSource = (*MockFileSource)(nil)
