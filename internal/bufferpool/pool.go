// Package bufferpool implements the fixed-size, disk-backed page cache
// that mediates all I/O for the table heap: Pool.FetchPage pins a
// page into memory (loading it, or evicting an LRU victim, as needed),
// and UnpinPage/FlushPage release and persist it.
package bufferpool

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/pagedb/engine/internal/pin"
	"github.com/pagedb/engine/internal/replacer"
	"github.com/pagedb/engine/internal/storage"
)

// ErrNoFreeFrame is BufferPoolExhausted: every frame is pinned and there
// is no free or evictable frame to satisfy a miss. Callers may retry.
var ErrNoFreeFrame = errors.New("bufferpool: no free frame available (all pinned)")

// Frame holds one resident page plus its metadata. All fields below are
// guarded by the frame's own embedded RWMutex: callers take a read lock
// for concurrent page-byte reads, a write lock to mutate page bytes or
// to let the pool install/evict a page.
type Frame struct {
	sync.RWMutex

	PageID uint32
	Page   storage.Page
	Dirty  bool
	Pin    pin.Count
}

// Pool is a bounded set of frames bound to a single Pager. Page
// residency, the free list, and LRU eviction order are all protected by
// a single metadata mutex; pool operations take that mutex first, then
// (if needed) a frame's own lock, and always release the frame lock
// before releasing the metadata mutex — never the other way around.
type Pool struct {
	pager *storage.Pager

	mu          sync.Mutex
	frames      []*Frame
	pageTable   map[uint32]int // page_id -> frame index
	frameToPage map[int]uint32 // frame index -> page_id, only while resident
	freeList    []int

	replacer *replacer.LRU
}

// New creates a pool of poolSize frames over pager. poolSize must be >= 1.
func New(pager *storage.Pager, poolSize int) (*Pool, error) {
	if poolSize < 1 {
		return nil, fmt.Errorf("bufferpool: pool size must be >= 1, got %d", poolSize)
	}

	frames := make([]*Frame, poolSize)
	freeList := make([]int, poolSize)
	for i := range frames {
		frames[i] = &Frame{}
		freeList[i] = poolSize - 1 - i // pop from the back == frame 0 first
	}

	return &Pool{
		pager:       pager,
		frames:      frames,
		pageTable:   make(map[uint32]int),
		frameToPage: make(map[int]uint32),
		freeList:    freeList,
		replacer:    replacer.New(),
	}, nil
}

// FetchPage pins pageID into memory and returns its frame. Every
// successful call increments the frame's pin count by one; callers must
// call UnpinPage exactly once per successful FetchPage.
func (p *Pool) FetchPage(pageID uint32) (*Frame, error) {
	p.mu.Lock()

	if frameIdx, ok := p.pageTable[pageID]; ok {
		frame := p.frames[frameIdx]
		frame.Lock()
		frame.Pin.Inc()
		frame.Unlock()
		p.replacer.Pin(frameIdx)
		p.mu.Unlock()

		slog.Debug("bufferpool: fetch hit", "pageID", pageID, "frameIdx", frameIdx)
		return frame, nil
	}

	frameIdx, err := p.acquireFrameLocked()
	if err != nil {
		p.mu.Unlock()
		slog.Debug("bufferpool: fetch exhausted", "pageID", pageID)
		return nil, err
	}

	frame := p.frames[frameIdx]
	frame.Lock()

	if oldPageID, resident := p.frameToPage[frameIdx]; resident {
		if frame.Dirty {
			if werr := p.pager.WritePage(frame.Page); werr != nil {
				frame.Unlock()
				p.mu.Unlock()
				return nil, fmt.Errorf("bufferpool: write back victim page %d: %w", oldPageID, werr)
			}
			frame.Dirty = false
			slog.Debug("bufferpool: wrote back dirty victim", "pageID", oldPageID, "frameIdx", frameIdx)
		}
		delete(p.pageTable, oldPageID)
		delete(p.frameToPage, frameIdx)
	}

	page, err := p.pager.ReadPage(pageID)
	if errors.Is(err, storage.ErrPageOutOfRange) {
		buf := make([]byte, storage.PageSize)
		page, _ = storage.NewPage(buf) // zero-filled: the heap's Init call gives it real content
		slog.Debug("bufferpool: materialized zero-filled page", "pageID", pageID, "frameIdx", frameIdx)
	} else if err != nil {
		frame.Unlock()
		p.mu.Unlock()
		return nil, fmt.Errorf("bufferpool: read page %d: %w", pageID, err)
	}

	frame.PageID = pageID
	frame.Page = page
	frame.Dirty = false
	frame.Pin.Reset(1)
	frame.Unlock()

	p.pageTable[pageID] = frameIdx
	p.frameToPage[frameIdx] = pageID
	p.replacer.Pin(frameIdx)
	p.mu.Unlock()

	slog.Debug("bufferpool: fetch miss installed", "pageID", pageID, "frameIdx", frameIdx)
	return frame, nil
}

// acquireFrameLocked must be called with p.mu held. It returns a frame
// index ready for reuse: a never-used frame from the free list, or an
// LRU victim. Returns ErrNoFreeFrame if neither exists.
func (p *Pool) acquireFrameLocked() (int, error) {
	if n := len(p.freeList); n > 0 {
		idx := p.freeList[n-1]
		p.freeList = p.freeList[:n-1]
		return idx, nil
	}
	if idx, ok := p.replacer.Victim(); ok {
		return idx, nil
	}
	return 0, ErrNoFreeFrame
}

// UnpinPage releases one pin on pageID. dirty, if true, marks the frame
// dirty (the dirty flag never clears via unpin, only via flush). It
// reports false if pageID is not resident or was already fully unpinned
// — these two cases are fused, matching spec: no caller branches on the
// distinction.
func (p *Pool) UnpinPage(pageID uint32, dirty bool) bool {
	p.mu.Lock()

	frameIdx, ok := p.pageTable[pageID]
	if !ok {
		p.mu.Unlock()
		return false
	}

	frame := p.frames[frameIdx]
	frame.Lock()
	nowZero, ok := frame.Pin.Dec()
	if !ok {
		frame.Unlock()
		p.mu.Unlock()
		slog.Debug("bufferpool: double unpin", "pageID", pageID)
		return false
	}
	if dirty {
		frame.Dirty = true
	}
	frame.Unlock()

	if nowZero {
		p.replacer.Unpin(frameIdx)
	}
	p.mu.Unlock()
	return true
}

// FlushPage writes pageID back through the Pager if it is resident and
// dirty, clearing the dirty bit only once the write succeeds. No-op if
// pageID is not resident.
func (p *Pool) FlushPage(pageID uint32) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	frameIdx, ok := p.pageTable[pageID]
	if !ok {
		return nil
	}

	frame := p.frames[frameIdx]
	frame.Lock()
	defer frame.Unlock()

	if !frame.Dirty {
		return nil
	}
	if err := p.pager.WritePage(frame.Page); err != nil {
		return fmt.Errorf("bufferpool: flush page %d: %w", pageID, err)
	}
	frame.Dirty = false
	return nil
}

// FlushAll writes every resident dirty frame back through the Pager.
func (p *Pool) FlushAll() error {
	p.mu.Lock()
	pageIDs := make([]uint32, 0, len(p.pageTable))
	for id := range p.pageTable {
		pageIDs = append(pageIDs, id)
	}
	p.mu.Unlock()

	for _, id := range pageIDs {
		if err := p.FlushPage(id); err != nil {
			return err
		}
	}
	return nil
}
