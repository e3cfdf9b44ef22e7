package heap

import "errors"

// ErrTupleTooLarge is returned by Insert when a tuple can never fit on
// any page, regardless of how much free space that page currently has.
var ErrTupleTooLarge = errors.New("heap: tuple too large to fit on any page")
