package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/samber/lo"
)

// ErrNotFound is returned when an artifact does not exist.
var ErrNotFound = errors.New("artifact not found")

// Storage reads and writes named artifacts.
type Storage interface {
	Read(ctx context.Context, name string) ([]byte, error)
	Write(ctx context.Context, name string, data []byte) error
	// Location describes where name is (or would be) stored.
	Location(name string) string
}

// Dir stores artifacts as files under Root.
type Dir struct {
	Root string
}

// NewDir returns a directory backend. An empty root means the working directory.
func NewDir(root string) *Dir {
	if root == "" {
		root = "."
	}
	return &Dir{Root: root}
}

// Read implements Storage.
func (d *Dir) Read(_ context.Context, name string) ([]byte, error) {
	data, err := os.ReadFile(d.Location(name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", d.Location(name), ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", d.Location(name), err)
	}
	return data, nil
}

// Write implements Storage.
func (d *Dir) Write(_ context.Context, name string, data []byte) error {
	if err := os.MkdirAll(d.Root, 0o750); err != nil {
		return fmt.Errorf("failed to create %s: %w", d.Root, err)
	}
	if err := os.WriteFile(d.Location(name), data, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", d.Location(name), err)
	}
	return nil
}

// Location implements Storage.
func (d *Dir) Location(name string) string {
	return filepath.Join(d.Root, name)
}

// Memory keeps artifacts in a map.
type Memory struct {
	mu    sync.RWMutex
	items map[string][]byte
}

// NewMemory returns an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{items: make(map[string][]byte)}
}

// Read implements Storage.
func (m *Memory) Read(_ context.Context, name string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.items[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	return slices.Clone(data), nil
}

// Write implements Storage.
func (m *Memory) Write(_ context.Context, name string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[name] = slices.Clone(data)
	return nil
}

// Location implements Storage.
func (m *Memory) Location(name string) string {
	return "memory://" + name
}

// Names returns the stored artifact names, sorted.
func (m *Memory) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := lo.Keys(m.items)
	slices.Sort(names)
	return names
}

// Fallback reads from Primary and, when the artifact is missing there,
// from Secondary. Writes always go to Primary.
type Fallback struct {
	Primary   Storage
	Secondary Storage
}

// Read implements Storage.
func (f *Fallback) Read(ctx context.Context, name string) ([]byte, error) {
	data, err := f.Primary.Read(ctx, name)
	if err == nil || !errors.Is(err, ErrNotFound) || f.Secondary == nil {
		return data, err
	}
	return f.Secondary.Read(ctx, name)
}

// Write implements Storage.
func (f *Fallback) Write(ctx context.Context, name string, data []byte) error {
	return f.Primary.Write(ctx, name, data)
}

// Location implements Storage.
func (f *Fallback) Location(name string) string {
	return f.Primary.Location(name)
}
