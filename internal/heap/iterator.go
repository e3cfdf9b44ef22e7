package heap

// Iterator walks every tuple in a Table in RID order: page by page
// following next_page_id, slot by slot within each page. It is
// forward-only and holds no more than one page pinned at a time.
type Iterator struct {
	table *Table

	curPageID uint32
	curSlot   int
	slotCount int
	exhausted bool
}

// NewIterator returns an Iterator positioned before the heap's first
// tuple.
func NewIterator(table *Table) (*Iterator, error) {
	it := &Iterator{table: table, curPageID: table.FirstPageID()}
	if err := it.loadPage(it.curPageID); err != nil {
		return nil, err
	}
	return it, nil
}

func (it *Iterator) loadPage(pageID uint32) error {
	frame, err := it.table.pool.FetchPage(pageID)
	if err != nil {
		return err
	}
	frame.RLock()
	it.slotCount = frame.Page.SlotCount()
	frame.RUnlock()
	it.table.pool.UnpinPage(pageID, false)

	it.curPageID = pageID
	it.curSlot = 0
	return nil
}

// Next returns the next tuple and its RID, or ok=false once every page
// in the chain has been exhausted.
func (it *Iterator) Next() (tuple []byte, rid RID, ok bool, err error) {
	for {
		if it.exhausted {
			return nil, RID{}, false, nil
		}

		if it.curSlot >= it.slotCount {
			frame, ferr := it.table.pool.FetchPage(it.curPageID)
			if ferr != nil {
				return nil, RID{}, false, ferr
			}
			frame.RLock()
			next, has := frame.Page.NextPageID()
			frame.RUnlock()
			it.table.pool.UnpinPage(it.curPageID, false)

			if !has {
				it.exhausted = true
				return nil, RID{}, false, nil
			}
			if err := it.loadPage(next); err != nil {
				return nil, RID{}, false, err
			}
			continue
		}

		rid = RID{PageID: it.curPageID, SlotID: uint16(it.curSlot)}
		tuple, err = it.table.GetTuple(rid)
		it.curSlot++
		if err != nil {
			return nil, RID{}, false, err
		}
		return tuple, rid, true, nil
	}
}
