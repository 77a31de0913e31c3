package testutil

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"

	"garage-go/internal/garage"
)

// MockFile represents a file in the mock filesystem.
type MockFile struct {
	Content     []byte
	Permissions fs.FileMode
	ModTime     time.Time
	IsDirectory bool
}

// MockFilesystemManager is an in-memory filesystem for testing. Paths are
// slash-separated and absolute; parent directories are created implicitly.
// A file is ignored when its base name is listed in Ignored.
type MockFilesystemManager struct {
	files   map[string]*MockFile
	Ignored map[string]bool
	Opened  []string
}

// NewMockFilesystemManager creates a new mock filesystem.
func NewMockFilesystemManager() *MockFilesystemManager {
	return &MockFilesystemManager{
		files:   make(map[string]*MockFile),
		Ignored: make(map[string]bool),
	}
}

// AddFile adds a file and its parent directories to the mock filesystem.
func (m *MockFilesystemManager) AddFile(p string, content []byte) {
	p = path.Clean(p)
	m.addParents(p)
	m.files[p] = &MockFile{
		Content:     content,
		Permissions: 0644,
		ModTime:     FixedClock().Now(),
	}
}

// AddDirectory adds a directory to the mock filesystem.
func (m *MockFilesystemManager) AddDirectory(p string) {
	p = path.Clean(p)
	m.addParents(p)
	m.files[p] = &MockFile{
		Permissions: 0755,
		ModTime:     FixedClock().Now(),
		IsDirectory: true,
	}
}

func (m *MockFilesystemManager) addParents(p string) {
	for dir := path.Dir(p); dir != "/" && dir != "."; dir = path.Dir(dir) {
		if _, ok := m.files[dir]; !ok {
			m.files[dir] = &MockFile{Permissions: 0755, IsDirectory: true}
		}
	}
}

func (m *MockFilesystemManager) info(p string, file *MockFile) *mockFileInfo {
	mode := file.Permissions
	if file.IsDirectory {
		mode |= fs.ModeDir
	}
	return &mockFileInfo{
		name:    path.Base(p),
		size:    int64(len(file.Content)),
		mode:    mode,
		modTime: file.ModTime,
		isDir:   file.IsDirectory,
	}
}

func (m *MockFilesystemManager) Resolve(rawPath string) (*garage.Path, error) {
	p := path.Clean(rawPath)
	file, ok := m.files[p]
	if !ok {
		return nil, fmt.Errorf("stat path: %w", fs.ErrNotExist)
	}
	return garage.NewPath(p, file.IsDirectory, m.info(p, file)), nil
}

func (m *MockFilesystemManager) Open(p *garage.Path) (io.ReadCloser, error) {
	file, ok := m.files[p.String()]
	if !ok {
		return nil, fmt.Errorf("file not found: %s", p.String())
	}
	if file.IsDirectory {
		return nil, fmt.Errorf("cannot open directory: %s", p.String())
	}
	m.Opened = append(m.Opened, p.String())
	return io.NopCloser(bytes.NewReader(file.Content)), nil
}

func (m *MockFilesystemManager) Stat(p *garage.Path) (fs.FileInfo, error) {
	file, ok := m.files[p.String()]
	if !ok {
		return nil, fmt.Errorf("file not found: %s", p.String())
	}
	return m.info(p.String(), file), nil
}

func (m *MockFilesystemManager) FindFiles(dir *garage.Path, recursive bool) ([]*garage.Path, error) {
	if !dir.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", dir.String())
	}
	prefix := strings.TrimSuffix(dir.String(), "/") + "/"

	var out []*garage.Path
	for p, file := range m.files {
		if file.IsDirectory || !strings.HasPrefix(p, prefix) {
			continue
		}
		if !recursive && strings.Contains(strings.TrimPrefix(p, prefix), "/") {
			continue
		}
		out = append(out, garage.NewPath(p, false, m.info(p, file)))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out, nil
}

func (m *MockFilesystemManager) IsIgnored(p *garage.Path, _ string) (bool, error) {
	return m.Ignored[path.Base(p.String())], nil
}

// mockFileInfo implements fs.FileInfo
type mockFileInfo struct {
	name    string
	size    int64
	mode    fs.FileMode
	modTime time.Time
	isDir   bool
}

func (m *mockFileInfo) Name() string       { return m.name }
func (m *mockFileInfo) Size() int64        { return m.size }
func (m *mockFileInfo) Mode() fs.FileMode  { return m.mode }
func (m *mockFileInfo) ModTime() time.Time { return m.modTime }
func (m *mockFileInfo) IsDir() bool        { return m.isDir }
func (m *mockFileInfo) Sys() any           { return nil }

var _ garage.FilesystemManager = (*MockFilesystemManager)(nil)
