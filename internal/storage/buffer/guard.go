package buffer

import "storagecore/internal/storage/page"

// BasicPageGuard pins a page for the duration of its scope and unpins it
// on Drop, recording whatever dirty state the caller set along the way.
// It models linear ownership: exactly one Drop per FetchPageBasic. A
// guard that has already been dropped, or was never holding a page (the
// zero value, or the source of a move), is "empty" and Drop on it is a
// no-op.
type BasicPageGuard struct {
	pool    *Manager
	page    *page.Page
	isDirty bool
}

// newBasicGuard wraps an already-pinned page. Internal: callers go
// through Manager.FetchPageBasic/NewPageGuarded.
func newBasicGuard(pool *Manager, p *page.Page) BasicPageGuard {
	return BasicPageGuard{pool: pool, page: p}
}

// PageID returns the guarded page's id. Panics if the guard is empty.
func (g *BasicPageGuard) PageID() int32 {
	return g.page.ID
}

// Data exposes the guarded page's raw bytes. The caller must hold the
// appropriate latch (see ReadPageGuard/WritePageGuard) before touching
// these concurrently with other pins on the same page.
func (g *BasicPageGuard) Data() *[page.Size]byte {
	return &g.page.Data
}

// SetDirty marks the page dirty for when this guard is dropped.
func (g *BasicPageGuard) SetDirty(dirty bool) {
	g.isDirty = dirty
}

// Drop unpins the page if the guard is non-empty, then empties the
// guard. Idempotent.
func (g *BasicPageGuard) Drop() {
	if g.page == nil || g.pool == nil {
		return
	}
	g.pool.UnpinPage(g.page.ID, g.isDirty)
	g.page = nil
	g.pool = nil
}

// take empties g and returns what it held, used when a guard's ownership
// moves into a Read/WritePageGuard.
func (g *BasicPageGuard) take() (*Manager, *page.Page, bool) {
	pool, p, dirty := g.pool, g.page, g.isDirty
	g.pool, g.page, g.isDirty = nil, nil, false
	return pool, p, dirty
}

// UpgradeRead re-latches the guarded page for shared reading and
// transfers ownership: the receiver becomes empty.
func (g *BasicPageGuard) UpgradeRead() ReadPageGuard {
	pool, p, _ := g.take()
	p.Latch.RLock()
	return ReadPageGuard{inner: newBasicGuard(pool, p)}
}

// UpgradeWrite re-latches the guarded page exclusively and transfers
// ownership: the receiver becomes empty.
func (g *BasicPageGuard) UpgradeWrite() WritePageGuard {
	pool, p, _ := g.take()
	p.Latch.Lock()
	return WritePageGuard{inner: newBasicGuard(pool, p)}
}

// ReadPageGuard holds a page pinned and its latch RLocked for the
// guard's lifetime.
type ReadPageGuard struct {
	inner BasicPageGuard
}

func (g *ReadPageGuard) PageID() int32 { return g.inner.PageID() }

// Data exposes the page's bytes for reading under the held RLock.
func (g *ReadPageGuard) Data() *[page.Size]byte { return g.inner.Data() }

// Drop releases the read latch and unpins the page. Idempotent.
func (g *ReadPageGuard) Drop() {
	if g.inner.page == nil {
		return
	}
	g.inner.page.Latch.RUnlock()
	g.inner.Drop()
}

// WritePageGuard holds a page pinned and its latch exclusively locked for
// the guard's lifetime. Releasing it always marks the page dirty, since
// holding a write latch is the only way to have mutated the page.
type WritePageGuard struct {
	inner BasicPageGuard
}

func (g *WritePageGuard) PageID() int32 { return g.inner.PageID() }

// Data exposes the page's bytes for mutation under the held write lock.
func (g *WritePageGuard) Data() *[page.Size]byte { return g.inner.Data() }

// Drop marks the page dirty, releases the write latch, and unpins the
// page. Idempotent.
func (g *WritePageGuard) Drop() {
	if g.inner.page == nil {
		return
	}
	g.inner.SetDirty(true)
	g.inner.page.Latch.Unlock()
	g.inner.Drop()
}

// FetchPageBasic fetches pageID and wraps it in a BasicPageGuard. The
// zero-value guard (pool nil) is returned if the pool is exhausted.
func (m *Manager) FetchPageBasic(pageID int32) BasicPageGuard {
	p := m.FetchPage(pageID)
	if p == nil {
		return BasicPageGuard{}
	}
	return newBasicGuard(m, p)
}

// FetchPageRead fetches pageID and returns it RLocked under a
// ReadPageGuard.
func (m *Manager) FetchPageRead(pageID int32) ReadPageGuard {
	p := m.FetchPage(pageID)
	if p == nil {
		return ReadPageGuard{}
	}
	p.Latch.RLock()
	return ReadPageGuard{inner: newBasicGuard(m, p)}
}

// FetchPageWrite fetches pageID and returns it exclusively locked under a
// WritePageGuard.
func (m *Manager) FetchPageWrite(pageID int32) WritePageGuard {
	p := m.FetchPage(pageID)
	if p == nil {
		return WritePageGuard{}
	}
	p.Latch.Lock()
	return WritePageGuard{inner: newBasicGuard(m, p)}
}

// NewPageGuarded allocates a fresh page and wraps it in a BasicPageGuard.
func (m *Manager) NewPageGuarded() (int32, BasicPageGuard) {
	id, p := m.NewPage()
	if p == nil {
		return page.InvalidID, BasicPageGuard{}
	}
	return id, newBasicGuard(m, p)
}
