package storage

import (
	"fmt"

	"github.com/pagedb/engine/pkg/bx"
)

// PageSize is the fixed width of every on-disk and in-memory page.
const PageSize = 4096

// HeaderSize is the fixed-offset page header: page_id, prev_page_id,
// next_page_id, free_space_ptr, slot_count — five little-endian u32 fields.
const HeaderSize = 20

// SlotSize is the width of one slot directory entry: (offset, length).
const SlotSize = 8

// NoNextPage is the next_page_id sentinel meaning "tail of the chain".
const NoNextPage uint32 = 0

// NoPrevPage is the prev_page_id sentinel written into the first page of
// a heap (there is no page before it).
const NoPrevPage uint32 = 0xFFFFFFFF

const (
	offPageID    = 0
	offPrevPage  = 4
	offNextPage  = 8
	offFreeSpace = 12
	offSlotCount = 16
)

// Page is a short-lived view over a PageSize-byte buffer. It does not
// own the bytes: callers supply a buffer (typically on loan from a
// buffer pool frame) and Page mutates it in place.
//
// +----------------+----------------+------------------+----------------+
// | header (20B)   | slots (grow ->)|   free space     | <- tuples      |
// +----------------+----------------+------------------+----------------+
type Page struct {
	Buf []byte
}

// NewPage wraps buf, which must be exactly PageSize bytes, as a Page
// view. It does not initialize the header — call Init for that.
func NewPage(buf []byte) (Page, error) {
	if len(buf) != PageSize {
		return Page{}, fmt.Errorf("storage: page buffer must be %d bytes, got %d", PageSize, len(buf))
	}
	return Page{Buf: buf}, nil
}

// Init writes a fresh header: the page's own id, its predecessor in the
// heap chain (NoPrevPage for the first page), no successor yet, an
// empty slot directory, and a free-space pointer at the end of the page.
func (p Page) Init(pageID, prevID uint32) {
	bx.PutU32At(p.Buf, offPageID, pageID)
	bx.PutU32At(p.Buf, offPrevPage, prevID)
	bx.PutU32At(p.Buf, offNextPage, NoNextPage)
	bx.PutU32At(p.Buf, offFreeSpace, PageSize)
	bx.PutU32At(p.Buf, offSlotCount, 0)
}

func (p Page) PageID() uint32 { return bx.U32At(p.Buf, offPageID) }

func (p Page) PrevPageID() uint32 { return bx.U32At(p.Buf, offPrevPage) }

// NextPageID reports the next page in the chain, or (0, false) at the tail.
func (p Page) NextPageID() (uint32, bool) {
	id := bx.U32At(p.Buf, offNextPage)
	if id == NoNextPage {
		return 0, false
	}
	return id, true
}

func (p Page) SetNextPageID(id uint32) {
	bx.PutU32At(p.Buf, offNextPage, id)
}

func (p Page) freeSpacePtr() int { return int(bx.U32At(p.Buf, offFreeSpace)) }

func (p Page) setFreeSpacePtr(v int) { bx.PutU32At(p.Buf, offFreeSpace, uint32(v)) }

func (p Page) SlotCount() int { return int(bx.U32At(p.Buf, offSlotCount)) }

func (p Page) setSlotCount(v int) { bx.PutU32At(p.Buf, offSlotCount, uint32(v)) }

func (p Page) slotOffset(slot int) int { return HeaderSize + slot*SlotSize }

// InsertTuple appends tuple bytes to the page and allocates the next
// slot id for them. Slots are append-only: once assigned, a slot's
// offset/length never change and the bytes are never relocated.
//
// Returns ErrNoSpace if the tuple, plus its 8-byte slot entry, does not
// fit in the gap between the slot directory and the tuple data region.
func (p Page) InsertTuple(tuple []byte) (slot int, err error) {
	slotCount := p.SlotCount()
	slotsEnd := p.slotOffset(slotCount)
	available := p.freeSpacePtr() - slotsEnd

	if len(tuple)+SlotSize > available {
		return 0, ErrNoSpace
	}

	newFreeSpacePtr := p.freeSpacePtr() - len(tuple)
	copy(p.Buf[newFreeSpacePtr:newFreeSpacePtr+len(tuple)], tuple)

	bx.PutU32At(p.Buf, slotsEnd, uint32(newFreeSpacePtr))
	bx.PutU32At(p.Buf, slotsEnd+4, uint32(len(tuple)))

	p.setFreeSpacePtr(newFreeSpacePtr)
	p.setSlotCount(slotCount + 1)

	return slotCount, nil
}

// ReadTuple copies out the bytes stored at slot. Returns ErrBadSlot if
// slot has never been assigned.
func (p Page) ReadTuple(slot int) ([]byte, error) {
	if slot < 0 || slot >= p.SlotCount() {
		return nil, ErrBadSlot
	}

	so := p.slotOffset(slot)
	offset := int(bx.U32At(p.Buf, so))
	length := int(bx.U32At(p.Buf, so+4))

	if offset < 0 || length < 0 || offset+length > PageSize {
		panic(fmt.Sprintf("storage: corrupt page %d: slot %d offset=%d length=%d out of bounds", p.PageID(), slot, offset, length))
	}

	out := make([]byte, length)
	copy(out, p.Buf[offset:offset+length])
	return out, nil
}
