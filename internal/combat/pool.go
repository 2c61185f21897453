package combat

import "iter"

// Handle addresses a pool slot at a specific generation. A handle goes stale
// once the slot is released, so it never aliases a later occupant.
type Handle struct {
	Slot int
	Gen  uint32
}

// Pool is a fixed-capacity arena of reusable slots.
type Pool[T any] struct {
	items   []T
	active  []bool
	gen     []uint32
	count   int
	dropped uint64
}

// NewPool allocates every slot up front.
func NewPool[T any](capacity int) *Pool[T] {
	return &Pool[T]{
		items:  make([]T, capacity),
		active: make([]bool, capacity),
		gen:    make([]uint32, capacity),
	}
}

// Spawn claims the lowest free slot, zeroes it and returns it. When the pool is
// full the request is dropped and ok is false.
func (p *Pool[T]) Spawn() (h Handle, item *T, ok bool) {
	if p.count == len(p.items) {
		p.dropped++
		return Handle{}, nil, false
	}
	for i := range p.items {
		if p.active[i] {
			continue
		}
		var zero T
		p.items[i] = zero
		p.active[i] = true
		p.gen[i]++
		p.count++
		return Handle{Slot: i, Gen: p.gen[i]}, &p.items[i], true
	}
	return Handle{}, nil, false
}

// Release frees a slot. Releasing a free slot is a no-op.
func (p *Pool[T]) Release(slot int) {
	if slot < 0 || slot >= len(p.items) || !p.active[slot] {
		return
	}
	p.active[slot] = false
	p.count--
}

// Active reports whether a slot is occupied.
func (p *Pool[T]) Active(slot int) bool {
	return slot >= 0 && slot < len(p.items) && p.active[slot]
}

// At returns the slot's storage regardless of activity.
func (p *Pool[T]) At(slot int) *T {
	return &p.items[slot]
}

// Handle returns the current handle of a slot.
func (p *Pool[T]) Handle(slot int) Handle {
	return Handle{Slot: slot, Gen: p.gen[slot]}
}

// Resolve dereferences a handle if it is still live.
func (p *Pool[T]) Resolve(h Handle) (*T, bool) {
	if !p.Active(h.Slot) || p.gen[h.Slot] != h.Gen {
		return nil, false
	}
	return &p.items[h.Slot], true
}

// All yields every active slot in slot order.
func (p *Pool[T]) All() iter.Seq2[int, *T] {
	return func(yield func(int, *T) bool) {
		for i := range p.items {
			if !p.active[i] {
				continue
			}
			if !yield(i, &p.items[i]) {
				return
			}
		}
	}
}

// Len is the number of active slots.
func (p *Pool[T]) Len() int { return p.count }

// Cap is the fixed capacity.
func (p *Pool[T]) Cap() int { return len(p.items) }

// Dropped counts spawn requests refused because the pool was full.
func (p *Pool[T]) Dropped() uint64 { return p.dropped }

// Reset frees every slot. Generations keep counting.
func (p *Pool[T]) Reset() {
	for i := range p.active {
		p.active[i] = false
	}
	p.count = 0
}
