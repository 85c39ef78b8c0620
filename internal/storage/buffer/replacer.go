package buffer

import (
	"container/list"
	"fmt"
	"sync"
)

// replacerNode tracks one frame's bounded access history. history is kept
// newest-first; once it holds k entries the oldest is dropped on the next
// access.
type replacerNode struct {
	history []int64
}

// kDistance is the timestamp an Evict comparison should rank this frame
// by: the oldest recorded access once there are k of them, or +infinity
// (represented by ok=false) if the frame has fewer than k accesses yet.
func (n *replacerNode) kDistance(k int) (int64, bool) {
	if len(n.history) < k {
		return 0, false
	}
	return n.history[len(n.history)-1], true
}

func (n *replacerNode) earliestAccess() int64 {
	return n.history[len(n.history)-1]
}

// LRUKReplacer selects an eviction victim among frames marked evictable,
// using the LRU-K policy: frames with fewer than k recorded accesses are
// always preferred for eviction over frames with k or more, and within
// each group the one with the oldest relevant timestamp wins.
type LRUKReplacer struct {
	mu sync.Mutex

	replacerSize int
	k            int
	currentTS    int64

	nodes map[int]*replacerNode

	// evictable preserves insertion order so the infinite-k-distance tie
	// break ("earliest recorded access is smallest, ties by insertion
	// order") has a well-defined answer without re-deriving it.
	evictable    *list.List
	evictableEls map[int]*list.Element
}

// NewLRUKReplacer builds a replacer for numFrames frames, each needing k
// accesses before its k-distance becomes finite.
func NewLRUKReplacer(numFrames, k int) *LRUKReplacer {
	if numFrames <= 0 || k <= 0 {
		panic("buffer: replacer size and k must be positive")
	}
	return &LRUKReplacer{
		replacerSize: numFrames,
		k:            k,
		nodes:        make(map[int]*replacerNode),
		evictable:    list.New(),
		evictableEls: make(map[int]*list.Element),
	}
}

func (r *LRUKReplacer) checkFrame(frameID int) {
	if frameID < 0 || frameID >= r.replacerSize {
		panic(fmt.Sprintf("buffer: invalid frame id %d", frameID))
	}
}

// RecordAccess appends the current logical timestamp to frameID's history,
// evicting the oldest entry once the history exceeds k.
func (r *LRUKReplacer) RecordAccess(frameID int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checkFrame(frameID)

	node, ok := r.nodes[frameID]
	if !ok {
		node = &replacerNode{}
		r.nodes[frameID] = node
	}

	ts := r.currentTS
	r.currentTS++

	node.history = append([]int64{ts}, node.history...)
	if len(node.history) > r.k {
		node.history = node.history[:r.k]
	}
}

// SetEvictable toggles frameID's evictable bit. A no-op if the state is
// already what was requested.
func (r *LRUKReplacer) SetEvictable(frameID int, evictable bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checkFrame(frameID)

	_, isEvictable := r.evictableEls[frameID]
	if evictable == isEvictable {
		return
	}

	if evictable {
		el := r.evictable.PushBack(frameID)
		r.evictableEls[frameID] = el
	} else {
		r.evictable.Remove(r.evictableEls[frameID])
		delete(r.evictableEls, frameID)
	}
}

// Remove drops frameID's history and evictable membership. frameID must
// currently be evictable; removing an untracked or pinned frame is a
// programmer error.
func (r *LRUKReplacer) Remove(frameID int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checkFrame(frameID)

	el, ok := r.evictableEls[frameID]
	if !ok {
		panic(fmt.Sprintf("buffer: Remove of non-evictable or absent frame %d", frameID))
	}

	r.evictable.Remove(el)
	delete(r.evictableEls, frameID)
	delete(r.nodes, frameID)
}

// Evict picks a victim among evictable frames and removes its tracking
// state. The second return value is false if no frame is evictable.
func (r *LRUKReplacer) Evict() (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.evictable.Len() == 0 {
		return 0, false
	}

	var (
		infVictim      int
		haveInf        bool
		infEarliest    int64
		infEl          *list.Element
		finiteVictim   int
		haveFinite     bool
		finiteDistance int64
		finiteEl       *list.Element
	)

	for el := r.evictable.Front(); el != nil; el = el.Next() {
		frameID := el.Value.(int)
		node := r.nodes[frameID]
		dist, finite := node.kDistance(r.k)
		if !finite {
			earliest := node.earliestAccess()
			if !haveInf || earliest < infEarliest {
				haveInf = true
				infEarliest = earliest
				infVictim = frameID
				infEl = el
			}
			continue
		}
		if !haveFinite || dist < finiteDistance {
			haveFinite = true
			finiteDistance = dist
			finiteVictim = frameID
			finiteEl = el
		}
	}

	var victim int
	var el *list.Element
	if haveInf {
		victim, el = infVictim, infEl
	} else {
		victim, el = finiteVictim, finiteEl
	}

	r.evictable.Remove(el)
	delete(r.evictableEls, victim)
	delete(r.nodes, victim)
	return victim, true
}

// Size reports how many frames are currently evictable.
func (r *LRUKReplacer) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.evictable.Len()
}
