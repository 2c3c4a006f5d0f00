package containers

import "math"

// InvalidIndex is the sentinel slot index carried by invalid handles.
const InvalidIndex = uint32(math.MaxUint32)

// Handle identifies a pool slot without granting ownership of it. The
// generation must match the slot's live generation for the handle to be
// usable; a handle held across a Free of its slot goes stale and every
// accessor treats it as "not found".
type Handle struct {
	Index      uint32
	Generation uint32
}

// InvalidHandle returns the sentinel handle that never validates.
func InvalidHandle() Handle {
	return Handle{Index: InvalidIndex}
}

// IsValid reports whether the handle carries a real slot index. It says
// nothing about whether the slot is still alive; ask the owning pool.
func (h Handle) IsValid() bool {
	return h.Index != InvalidIndex
}

const (
	slotFree     uint8 = 0
	slotOccupied uint8 = 1
)

// Pool is a growable slot arena with per-slot generation counters. It is
// the sole allocator of resource storage: registries hand out Handles and
// every access re-validates index and generation, so a stale handle can
// never observe a reused slot.
//
// Generations start at 1 and are bumped on every Free, which means a
// zero-valued Handle is always invalid.
type Pool[T any] struct {
	items       []T
	generations []uint32
	states      []uint8
	freeList    []uint32
	count       uint32
}

// NewPool creates a pool with the given initial capacity. All slots start
// free with generation 1.
func NewPool[T any](initialCapacity uint32) *Pool[T] {
	p := &Pool[T]{}
	if initialCapacity > 0 {
		p.grow(initialCapacity)
	}
	return p
}

func (p *Pool[T]) grow(newCapacity uint32) {
	old := uint32(len(p.items))

	items := make([]T, newCapacity)
	copy(items, p.items)
	p.items = items

	generations := make([]uint32, newCapacity)
	copy(generations, p.generations)
	states := make([]uint8, newCapacity)
	copy(states, p.states)

	for i := old; i < newCapacity; i++ {
		generations[i] = 1
	}
	p.generations = generations
	p.states = states

	for i := old; i < newCapacity; i++ {
		p.freeList = append(p.freeList, i)
	}
}

// Alloc takes a slot from the free list (growing by doubling when empty),
// zeroes it and returns a handle carrying its current generation.
func (p *Pool[T]) Alloc() Handle {
	if len(p.freeList) == 0 {
		newCapacity := uint32(len(p.items)) * 2
		if newCapacity == 0 {
			newCapacity = 16
		}
		p.grow(newCapacity)
	}

	index := p.freeList[len(p.freeList)-1]
	p.freeList = p.freeList[:len(p.freeList)-1]
	p.states[index] = slotOccupied
	p.count++

	var zero T
	p.items[index] = zero

	return Handle{Index: index, Generation: p.generations[index]}
}

// Free returns the slot behind h to the free list and bumps its
// generation, invalidating every outstanding handle to it. Stale or
// out-of-range handles are a no-op returning false.
func (p *Pool[T]) Free(h Handle) bool {
	if !p.IsValid(h) {
		return false
	}

	p.states[h.Index] = slotFree
	p.generations[h.Index]++
	p.count--
	p.freeList = append(p.freeList, h.Index)
	return true
}

// IsValid reports whether h refers to a live slot with a matching
// generation.
func (p *Pool[T]) IsValid(h Handle) bool {
	if h.Index >= uint32(len(p.items)) {
		return false
	}
	if p.states[h.Index] != slotOccupied {
		return false
	}
	return p.generations[h.Index] == h.Generation
}

// Get returns the slot behind h, or nil when the handle is stale or
// invalid. The pointer must not be held across calls that may grow the
// pool; re-fetch by handle instead.
func (p *Pool[T]) Get(h Handle) *T {
	if !p.IsValid(h) {
		return nil
	}
	return &p.items[h.Index]
}

// At returns the slot at index when it is occupied, bypassing generation
// checks. Used by registries for scans that already know the occupancy.
func (p *Pool[T]) At(index uint32) *T {
	if index >= uint32(len(p.items)) || p.states[index] != slotOccupied {
		return nil
	}
	return &p.items[index]
}

// HandleAt rebuilds the live handle for an occupied slot index.
func (p *Pool[T]) HandleAt(index uint32) Handle {
	if index >= uint32(len(p.items)) || p.states[index] != slotOccupied {
		return InvalidHandle()
	}
	return Handle{Index: index, Generation: p.generations[index]}
}

// Count returns the number of occupied slots.
func (p *Pool[T]) Count() int {
	return int(p.count)
}

// Capacity returns the total number of slots, occupied or free.
func (p *Pool[T]) Capacity() uint32 {
	return uint32(len(p.items))
}

// ForEach visits every occupied slot in index order. Returning false from
// the visitor stops the iteration.
func (p *Pool[T]) ForEach(visit func(index uint32, item *T) bool) {
	for i := range p.items {
		if p.states[i] == slotOccupied {
			if !visit(uint32(i), &p.items[i]) {
				return
			}
		}
	}
}

// Clear frees every occupied slot, bumping each generation so outstanding
// handles cannot validate against reused slots.
func (p *Pool[T]) Clear() {
	for i := range p.items {
		if p.states[i] == slotOccupied {
			p.generations[i]++
			p.states[i] = slotFree
		}
	}
	p.freeList = p.freeList[:0]
	for i := range p.items {
		p.freeList = append(p.freeList, uint32(i))
	}
	p.count = 0
}
