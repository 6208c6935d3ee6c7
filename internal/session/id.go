package session

import (
	"strconv"
	"sync/atomic"
)

var nextID uint64

// ID is an opaque, process-unique subscriber identifier (spec.md §3), used
// in logs and as a script-visible handle.
type ID string

// NewID allocates the next process-unique subscriber ID.
func NewID() ID {
	n := atomic.AddUint64(&nextID, 1)
	return ID("sub-" + strconv.FormatUint(n, 10))
}
