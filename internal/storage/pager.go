package storage

import (
	"fmt"
	"io"
	"os"
	"sync"
)

const fileMode0664 = 0o664

// Pager manages the heap's backing file and provides direct,
// PageSize-aligned random access to it. Each method holds the Pager's
// own mutex for its duration; the buffer pool additionally calls it only
// while holding its metadata mutex.
type Pager struct {
	file      *os.File
	pageCount int

	mu sync.Mutex
}

// Open opens (creating if absent) the database file at path for
// read/write access.
func Open(path string) (*Pager, error) {
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, fileMode0664)
	if err != nil {
		return nil, fmt.Errorf("storage: open database file: %w", err)
	}

	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("storage: stat database file: %w", err)
	}

	return &Pager{
		file:      file,
		pageCount: int(info.Size() / PageSize),
	}, nil
}

// PageCount reports how many whole pages have been written to the file.
func (p *Pager) PageCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pageCount
}

// ReadPage reads exactly PageSize bytes for pageID. Returns
// ErrPageOutOfRange if pageID is at or beyond the current page count.
func (p *Pager) ReadPage(pageID uint32) (Page, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if int(pageID) >= p.pageCount {
		return Page{}, ErrPageOutOfRange
	}

	buf := make([]byte, PageSize)
	offset := int64(pageID) * PageSize
	if _, err := p.file.Seek(offset, io.SeekStart); err != nil {
		return Page{}, fmt.Errorf("storage: seek page %d: %w", pageID, err)
	}
	if _, err := io.ReadFull(p.file, buf); err != nil {
		return Page{}, fmt.Errorf("storage: read page %d: %w", pageID, err)
	}

	return Page{Buf: buf}, nil
}

// WritePage writes pg back to its own offset, extending the file if
// pg's id falls beyond the current page count.
func (p *Pager) WritePage(pg Page) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(pg.Buf) != PageSize {
		return fmt.Errorf("storage: write page: buffer is %d bytes, want %d", len(pg.Buf), PageSize)
	}

	pageID := pg.PageID()
	offset := int64(pageID) * PageSize
	if _, err := p.file.Seek(offset, io.SeekStart); err != nil {
		return fmt.Errorf("storage: seek page %d: %w", pageID, err)
	}
	if _, err := p.file.Write(pg.Buf); err != nil {
		return fmt.Errorf("storage: write page %d: %w", pageID, err)
	}

	if int(pageID) >= p.pageCount {
		p.pageCount = int(pageID) + 1
	}
	return nil
}

// Close closes the underlying file.
func (p *Pager) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.file.Close()
}
