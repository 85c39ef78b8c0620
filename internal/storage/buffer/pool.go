// Package buffer implements the page cache that sits between higher-level
// access methods and the disk: the LRU-K replacer (replacer.go), the
// buffer pool manager itself (this file), and the scoped pin-lifetime
// guards (guard.go).
package buffer

import (
	"container/list"
	"fmt"
	"sync"

	"storagecore/internal/storage/disk"
	"storagecore/internal/storage/page"
)

// Manager owns a fixed array of frames, the page table mapping resident
// page ids to frames, the free list, and pin counts. It consults an
// LRUKReplacer for eviction victims and a disk.Scheduler for write-back
// and page-in I/O.
//
// A single mutex guards all of the above, including the wait on disk I/O
// completion — a deliberate simplification: holding the lock
// across a disk wait keeps the bookkeeping trivially consistent at the
// cost of blocking unrelated callers during that wait.
type Manager struct {
	mu sync.Mutex

	pages     []page.Page
	replacer  *LRUKReplacer
	scheduler *disk.Scheduler

	pageTable map[int32]int
	freeList  *list.List

	nextPageID   int32
	freedPageIDs []int32
}

// New builds a pool of poolSize frames, each frame's replacer history
// bounded to replacerK accesses, backed by dm for page I/O.
func New(poolSize, replacerK int, dm disk.Manager) *Manager {
	if poolSize <= 0 {
		panic("buffer: pool size must be positive")
	}

	m := &Manager{
		pages:     make([]page.Page, poolSize),
		replacer:  NewLRUKReplacer(poolSize, replacerK),
		scheduler: disk.NewScheduler(dm),
		pageTable: make(map[int32]int),
		freeList:  list.New(),
	}
	for i := range m.pages {
		m.pages[i].ID = page.InvalidID
		m.freeList.PushBack(i)
	}
	return m
}

// Close shuts down the background disk-I/O worker. Call after all pages
// have been released.
func (m *Manager) Close() {
	m.scheduler.Shutdown()
}

// secureFrame returns a frame ready to be reused: popped from the free
// list, or evicted from the replacer with its dirty contents written
// back first. Must be called with m.mu held. Returns false if every
// frame is pinned.
func (m *Manager) secureFrame() (int, bool) {
	if el := m.freeList.Front(); el != nil {
		m.freeList.Remove(el)
		return el.Value.(int), true
	}

	frameID, ok := m.replacer.Evict()
	if !ok {
		return 0, false
	}

	victim := &m.pages[frameID]
	if victim.IsDirty {
		m.writeBack(victim)
	}
	delete(m.pageTable, victim.ID)
	return frameID, true
}

// writeBack schedules a write of p's current contents and waits for it to
// complete, then clears the dirty bit. Must be called with m.mu held —
// Holding the pool lock across this wait is the baseline
// simplification.
func (m *Manager) writeBack(p *page.Page) {
	done := m.scheduler.CreatePromise()
	data := make([]byte, page.Size)
	copy(data, p.Data[:])
	m.scheduler.Schedule(disk.Request{IsWrite: true, Data: data, PageID: p.ID, Done: done})
	<-done
	p.IsDirty = false
}

// readIn schedules a read of pageID into p's data buffer and waits for it
// to complete. Must be called with m.mu held.
func (m *Manager) readIn(p *page.Page, pageID int32) {
	done := m.scheduler.CreatePromise()
	buf := make([]byte, page.Size)
	m.scheduler.Schedule(disk.Request{IsWrite: false, Data: buf, PageID: pageID, Done: done})
	<-done
	copy(p.Data[:], buf)
}

// NewPage allocates a fresh page id, pins it at 1 in a secured frame, and
// returns it zeroed. Returns (page.InvalidID, nil) if every frame is
// pinned.
func (m *Manager) NewPage() (int32, *page.Page) {
	m.mu.Lock()
	defer m.mu.Unlock()

	frameID, ok := m.secureFrame()
	if !ok {
		return page.InvalidID, nil
	}

	pageID := m.allocatePage()

	p := &m.pages[frameID]
	p.Reset()
	p.ID = pageID
	p.PinCount = 1

	m.replacer.RecordAccess(frameID)
	m.replacer.SetEvictable(frameID, false)
	m.pageTable[pageID] = frameID

	return pageID, p
}

// FetchPage returns the page for pageID, pinning it. If not resident, a
// frame is secured and the page is read in from disk. Returns nil if
// every frame is currently pinned.
func (m *Manager) FetchPage(pageID int32) *page.Page {
	m.mu.Lock()
	defer m.mu.Unlock()

	if frameID, ok := m.pageTable[pageID]; ok {
		p := &m.pages[frameID]
		p.PinCount++
		m.replacer.RecordAccess(frameID)
		m.replacer.SetEvictable(frameID, false)
		return p
	}

	frameID, ok := m.secureFrame()
	if !ok {
		return nil
	}

	p := &m.pages[frameID]
	p.Reset()
	m.readIn(p, pageID)
	p.ID = pageID
	p.PinCount = 1

	m.replacer.RecordAccess(frameID)
	m.replacer.SetEvictable(frameID, false)
	m.pageTable[pageID] = frameID

	return p
}

// UnpinPage decrements pageID's pin count and ORs isDirty into its dirty
// flag. Once the pin count reaches zero the frame becomes evictable.
// Returns false if pageID isn't resident or is already unpinned.
func (m *Manager) UnpinPage(pageID int32, isDirty bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	frameID, ok := m.pageTable[pageID]
	if !ok {
		return false
	}
	p := &m.pages[frameID]
	if p.PinCount == 0 {
		return false
	}

	p.PinCount--
	if isDirty {
		p.IsDirty = true
	}
	if p.PinCount == 0 {
		m.replacer.SetEvictable(frameID, true)
	}
	return true
}

// FlushPage writes pageID's current contents through the scheduler
// unconditionally and clears its dirty flag. Does not evict or
// deallocate the page — deliberately non-destructive, correcting a design
// note (b), correcting the source's conflation of flush with removal.
// Returns false if pageID isn't resident.
func (m *Manager) FlushPage(pageID int32) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	frameID, ok := m.pageTable[pageID]
	if !ok {
		return false
	}
	m.writeBack(&m.pages[frameID])
	return true
}

// FlushAllPages flushes every resident page.
func (m *Manager) FlushAllPages() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, frameID := range m.pageTable {
		m.writeBack(&m.pages[frameID])
	}
}

// DeletePage evicts pageID from the pool outright: writes it back if
// dirty, removes it from the replacer and page table, zeroes the frame,
// and returns the frame to the free list. Returns true if pageID was
// already non-resident. Returns false if pageID is pinned.
func (m *Manager) DeletePage(pageID int32) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	frameID, ok := m.pageTable[pageID]
	if !ok {
		return true
	}

	p := &m.pages[frameID]
	if p.PinCount > 0 {
		return false
	}

	if p.IsDirty {
		m.writeBack(p)
	}

	m.replacer.Remove(frameID)
	delete(m.pageTable, pageID)
	p.Reset()
	m.freeList.PushBack(frameID)
	m.deallocatePage(pageID)

	return true
}

// AllocatePage returns a reclaimed id if one is available, else bumps the
// monotonic counter.
func (m *Manager) AllocatePage() int32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.allocatePage()
}

// allocatePage is AllocatePage's body; must be called with m.mu held.
func (m *Manager) allocatePage() int32 {
	if n := len(m.freedPageIDs); n > 0 {
		id := m.freedPageIDs[0]
		m.freedPageIDs = m.freedPageIDs[1:]
		return id
	}
	id := m.nextPageID
	m.nextPageID++
	return id
}

// DeallocatePage pushes pageID onto the reclaimed-id pool for future reuse
// by AllocatePage.
func (m *Manager) DeallocatePage(pageID int32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deallocatePage(pageID)
}

// deallocatePage is DeallocatePage's body; must be called with m.mu held.
func (m *Manager) deallocatePage(pageID int32) {
	m.freedPageIDs = append(m.freedPageIDs, pageID)
}

// pinCountFor is a test/debug helper exposing the invariant that the
// sum over frames of pin_count == sum over live guards.
func (m *Manager) pinCountFor(pageID int32) (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	frameID, ok := m.pageTable[pageID]
	if !ok {
		return 0, false
	}
	return m.pages[frameID].PinCount, true
}

func (m *Manager) String() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fmt.Sprintf("buffer.Manager{frames=%d resident=%d evictable=%d}", len(m.pages), len(m.pageTable), m.replacer.Size())
}
