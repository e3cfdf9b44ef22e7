package heap

import (
	"errors"
	"fmt"
	"sync"

	"github.com/pagedb/engine/internal/bufferpool"
	"github.com/pagedb/engine/internal/storage"
)

// maxTupleSize is the largest tuple that can ever fit on a freshly
// initialized page: the whole body minus the one slot it would need.
const maxTupleSize = storage.PageSize - storage.HeaderSize - storage.SlotSize

// Table is an append-only heap: a singly linked list of slotted pages,
// chained through each page's next_page_id. Pages are never deleted or
// compacted; Insert only ever appends to the last page, extending the
// chain when that page runs out of room.
type Table struct {
	pool *bufferpool.Pool

	// mu guards lastPageID and serializes the page-full-then-extend
	// branch of Insert. Inserts that fit on the current last page hold
	// mu only long enough to read lastPageID; the tuple write itself
	// relies on the target frame's own lock.
	mu          sync.Mutex
	firstPageID uint32
	lastPageID  uint32
}

// Open attaches a Table to pool, bootstrapping page 0 if pager reports
// an empty file, or walking the existing chain to find the last page
// otherwise.
func Open(pool *bufferpool.Pool, pager *storage.Pager) (*Table, error) {
	isNew := pager.PageCount() == 0

	frame, err := pool.FetchPage(0)
	if err != nil {
		return nil, fmt.Errorf("heap: bootstrap page 0: %w", err)
	}
	if isNew {
		frame.Lock()
		frame.Page.Init(0, storage.NoPrevPage)
		frame.Unlock()
		pool.UnpinPage(0, true)
	} else {
		pool.UnpinPage(0, false)
	}

	t := &Table{pool: pool, firstPageID: 0}

	last, err := t.findLastPageID()
	if err != nil {
		return nil, err
	}
	t.lastPageID = last
	return t, nil
}

func (t *Table) findLastPageID() (uint32, error) {
	cur := t.firstPageID
	for {
		frame, err := t.pool.FetchPage(cur)
		if err != nil {
			return 0, fmt.Errorf("heap: walk chain at page %d: %w", cur, err)
		}
		frame.RLock()
		next, has := frame.Page.NextPageID()
		frame.RUnlock()
		t.pool.UnpinPage(cur, false)

		if !has {
			return cur, nil
		}
		cur = next
	}
}

// FirstPageID returns the heap's head page, fixed for the table's
// lifetime.
func (t *Table) FirstPageID() uint32 {
	return t.firstPageID
}

// Insert appends tuple to the heap, extending the chain with a new page
// if the current last page has no room. It returns the RID identifying
// the tuple's location.
func (t *Table) Insert(tuple []byte) (RID, error) {
	if len(tuple) > maxTupleSize {
		return RID{}, ErrTupleTooLarge
	}

	for {
		t.mu.Lock()
		lastID := t.lastPageID
		t.mu.Unlock()

		frame, err := t.pool.FetchPage(lastID)
		if err != nil {
			return RID{}, fmt.Errorf("heap: fetch last page %d: %w", lastID, err)
		}

		frame.Lock()
		slot, ierr := frame.Page.InsertTuple(tuple)
		frame.Unlock()

		if ierr == nil {
			t.pool.UnpinPage(lastID, true)
			return RID{PageID: lastID, SlotID: uint16(slot)}, nil
		}

		t.pool.UnpinPage(lastID, false)

		if !errors.Is(ierr, storage.ErrNoSpace) {
			return RID{}, ierr
		}

		if err := t.extendPast(lastID); err != nil {
			return RID{}, err
		}
	}
}

// extendPast allocates and links a new page after lastID, unless
// another goroutine has already done so. The whole decision is
// serialized by mu so exactly one new page is appended per full page.
func (t *Table) extendPast(lastID uint32) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if lastID != t.lastPageID {
		return nil // another inserter already extended the chain
	}

	newID := lastID + 1
	newFrame, err := t.pool.FetchPage(newID)
	if err != nil {
		return fmt.Errorf("heap: allocate page %d: %w", newID, err)
	}
	newFrame.Lock()
	newFrame.Page.Init(newID, lastID)
	newFrame.Unlock()
	t.pool.UnpinPage(newID, true)

	oldFrame, err := t.pool.FetchPage(lastID)
	if err != nil {
		return fmt.Errorf("heap: link page %d to %d: %w", lastID, newID, err)
	}
	oldFrame.Lock()
	oldFrame.Page.SetNextPageID(newID)
	oldFrame.Unlock()
	t.pool.UnpinPage(lastID, true)

	t.lastPageID = newID
	return nil
}

// GetTuple reads back the tuple at rid.
func (t *Table) GetTuple(rid RID) ([]byte, error) {
	frame, err := t.pool.FetchPage(rid.PageID)
	if err != nil {
		return nil, fmt.Errorf("heap: fetch page %d: %w", rid.PageID, err)
	}

	frame.RLock()
	tuple, err := frame.Page.ReadTuple(int(rid.SlotID))
	frame.RUnlock()

	t.pool.UnpinPage(rid.PageID, false)
	if err != nil {
		return nil, fmt.Errorf("heap: read tuple %s: %w", rid, err)
	}
	return tuple, nil
}
