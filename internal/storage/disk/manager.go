// Package disk provides the buffer pool's persistence collaborator (the
// Manager interface) and the scheduler that serializes access to it.
//
// The Manager itself is treated as an external collaborator per the
// storage engine's scope: its own durability, file format, and error
// recovery are not this package's concern. Two implementations are
// provided — FileManager for a real on-disk store and MemManager for
// deterministic, filesystem-free tests.
package disk

import (
	"fmt"
	"os"
	"sync"

	"storagecore/internal/storage/page"
)

// Manager reads and writes whole pages. Both ReadPage and WritePage
// operate on exactly page.Size bytes.
type Manager interface {
	ReadPage(pageID int32, buf []byte) error
	WritePage(pageID int32, buf []byte) error
}

// FileManager persists pages to a single flat file, offset by page id.
type FileManager struct {
	mu   sync.Mutex
	file *os.File
}

// NewFileManager opens (or creates) path as the backing store.
func NewFileManager(path string) (*FileManager, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("open disk file %s: %w", path, err)
	}
	return &FileManager{file: f}, nil
}

// ReadPage fills buf (which must be page.Size bytes) from disk. A page
// past the current end of file reads back as zeros, mirroring a page
// that was allocated but never written.
func (m *FileManager) ReadPage(pageID int32, buf []byte) error {
	if len(buf) != page.Size {
		return fmt.Errorf("disk: read buffer size %d does not match page size %d", len(buf), page.Size)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	offset := int64(pageID) * int64(page.Size)
	n, err := m.file.ReadAt(buf, offset)
	if err != nil && n == 0 {
		for i := range buf {
			buf[i] = 0
		}
		return nil
	}
	for i := n; i < page.Size; i++ {
		buf[i] = 0
	}
	return nil
}

// WritePage persists buf (which must be page.Size bytes) at pageID's offset.
func (m *FileManager) WritePage(pageID int32, buf []byte) error {
	if len(buf) != page.Size {
		return fmt.Errorf("disk: write buffer size %d does not match page size %d", len(buf), page.Size)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	offset := int64(pageID) * int64(page.Size)
	if _, err := m.file.WriteAt(buf, offset); err != nil {
		return fmt.Errorf("disk: write page %d: %w", pageID, err)
	}
	return nil
}

// Close syncs and closes the backing file.
func (m *FileManager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.file.Sync(); err != nil {
		m.file.Close()
		return fmt.Errorf("disk: sync before close: %w", err)
	}
	return m.file.Close()
}

// MemManager is a map-backed Manager for tests: no filesystem, no
// partial-write semantics to account for.
type MemManager struct {
	mu    sync.Mutex
	pages map[int32][]byte
}

// NewMemManager returns an empty in-memory disk.
func NewMemManager() *MemManager {
	return &MemManager{pages: make(map[int32][]byte)}
}

func (m *MemManager) ReadPage(pageID int32, buf []byte) error {
	if len(buf) != page.Size {
		return fmt.Errorf("disk: read buffer size %d does not match page size %d", len(buf), page.Size)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.pages[pageID]
	if !ok {
		for i := range buf {
			buf[i] = 0
		}
		return nil
	}
	copy(buf, data)
	return nil
}

func (m *MemManager) WritePage(pageID int32, buf []byte) error {
	if len(buf) != page.Size {
		return fmt.Errorf("disk: write buffer size %d does not match page size %d", len(buf), page.Size)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := make([]byte, page.Size)
	copy(stored, buf)
	m.pages[pageID] = stored
	return nil
}

// Snapshot returns a copy of the bytes stored for pageID, for tests that
// need to assert write-back contents without reaching into private state.
func (m *MemManager) Snapshot(pageID int32) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.pages[pageID]
	if !ok {
		return nil, false
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, true
}
