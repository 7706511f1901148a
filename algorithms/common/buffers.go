package common

import (
	"fmt"
)

// Arena hands out float64 slices carved from one preallocated slab so hot
// loops can reuse scratch space without per-frame heap allocation.
// An Arena is not safe for concurrent use.
type Arena struct {
	slab []float64
	used int
}

// NewArena creates an arena able to serve capacity float64s between resets.
func NewArena(capacity int) *Arena {
	return &Arena{
		slab: make([]float64, max(capacity, 0)),
	}
}

// Take returns a zeroed slice of length n from the arena.
func (a *Arena) Take(n int) ([]float64, error) {
	if n < 0 {
		return nil, fmt.Errorf("negative arena request: %d", n)
	}
	if a.used+n > len(a.slab) {
		return nil, fmt.Errorf("arena exhausted: requested %d, available %d", n, len(a.slab)-a.used)
	}

	buf := a.slab[a.used : a.used+n : a.used+n]
	clear(buf)
	a.used += n
	return buf, nil
}

// Reset makes the whole slab available again. Slices handed out earlier
// must no longer be used.
func (a *Arena) Reset() {
	a.used = 0
}

// Release drops the slab. The arena serves nothing afterwards.
func (a *Arena) Release() {
	a.slab = nil
	a.used = 0
}

// ComplexArena is the complex128 counterpart of Arena, used by FFT work.
type ComplexArena struct {
	slab []complex128
	used int
}

// NewComplexArena creates a complex arena with the given capacity.
func NewComplexArena(capacity int) *ComplexArena {
	return &ComplexArena{
		slab: make([]complex128, max(capacity, 0)),
	}
}

// Take returns a zeroed complex slice of length n.
func (a *ComplexArena) Take(n int) ([]complex128, error) {
	if n < 0 {
		return nil, fmt.Errorf("negative arena request: %d", n)
	}
	if a.used+n > len(a.slab) {
		return nil, fmt.Errorf("arena exhausted: requested %d, available %d", n, len(a.slab)-a.used)
	}

	buf := a.slab[a.used : a.used+n : a.used+n]
	clear(buf)
	a.used += n
	return buf, nil
}

// Reset makes the whole slab available again.
func (a *ComplexArena) Reset() {
	a.used = 0
}

// Release drops the slab.
func (a *ComplexArena) Release() {
	a.slab = nil
	a.used = 0
}
