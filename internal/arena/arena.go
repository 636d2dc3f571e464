// Package arena provides a fixed-size scratch region for tensor storage.
// One arena is shared by all model runners; exactly one runner owns it at a
// time, and claiming it invalidates every view handed out to the previous
// owner.
package arena

import (
	"errors"
	"fmt"
	"unsafe"
)

// Alignment in bytes for tensor views carved from the arena.
const tensorAlign = 16

// ErrExhausted is returned when an allocation does not fit in the remaining
// capacity.
var ErrExhausted = errors.New("arena exhausted")

// Arena is a fixed-size byte region from which float32 tensor views are
// bump-allocated. It is never grown; Claim resets the allocation cursor
// without zeroing memory.
type Arena struct {
	buf   []byte
	off   int
	owner string
}

// New creates an arena of the given size in bytes.
func New(size int) (*Arena, error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid arena size %d", size)
	}
	return &Arena{buf: make([]byte, size)}, nil
}

// Size returns the total capacity in bytes.
func (a *Arena) Size() int { return len(a.buf) }

// Remaining returns the number of unallocated bytes.
func (a *Arena) Remaining() int { return len(a.buf) - a.off }

// Owner returns the name of the runner currently holding the arena, or the
// empty string if it has never been claimed.
func (a *Arena) Owner() string { return a.owner }

// Claim hands exclusive ownership of the arena to the named runner and
// resets the allocation cursor. Views allocated by the previous owner must
// not be used afterwards.
func (a *Arena) Claim(owner string) {
	a.owner = owner
	a.off = 0
}

// AllocFloat32 carves an aligned view of n float32 values out of the arena.
// The view aliases arena memory and stays valid only until the next Claim.
func (a *Arena) AllocFloat32(n int) ([]float32, error) {
	if n <= 0 {
		return nil, fmt.Errorf("invalid allocation length %d", n)
	}
	off := alignUp(a.off, tensorAlign)
	need := n * 4
	if off+need > len(a.buf) {
		return nil, fmt.Errorf("%w: need %d bytes, %d remaining", ErrExhausted, need, len(a.buf)-off)
	}
	a.off = off + need
	return unsafe.Slice((*float32)(unsafe.Pointer(&a.buf[off])), n), nil
}

func alignUp(v, align int) int {
	return (v + align - 1) &^ (align - 1)
}
