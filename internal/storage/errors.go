package storage

import "errors"

var (
	// ErrPageOutOfRange is returned by the Pager when asked to read a page
	// id at or beyond the current page count.
	ErrPageOutOfRange = errors.New("storage: page out of range")

	// ErrBadSlot is returned when a slot id does not address a live tuple
	// on the page (out of range; append-only pages never free a slot once
	// assigned, so this only ever means "never written").
	ErrBadSlot = errors.New("storage: bad slot id")

	// ErrNoSpace is returned by InsertTuple when the tuple plus its slot
	// entry do not fit in the remaining free region of the page.
	ErrNoSpace = errors.New("storage: page has no space for tuple")
)
