package ecs

// Table is a sparse component table indexed directly by entity handle.
// Slots exist for every handle below Len; unassigned slots hold the zero value, which
// component types treat as invalid.
//
// Tables are single-writer and not safe for concurrent use.
type Table[T any] struct {
	slots []T
}

// NewTable creates a table with room for capacity handles before it needs to grow.
func NewTable[T any](capacity int) *Table[T] {
	return &Table[T]{slots: make([]T, 0, capacity)}
}

// Get returns the component slot for h, growing the table so that h is addressable.
// The pointer is valid until the next call that grows the table.
func (t *Table[T]) Get(h Handle) *T {
	if int(h) >= len(t.slots) {
		t.grow(int(h) + 1)
	}
	return &t.slots[h]
}

// Peek returns the component slot for h without growing the table, or nil if h is
// beyond the table.
func (t *Table[T]) Peek(h Handle) *T {
	if int(h) >= len(t.slots) {
		return nil
	}
	return &t.slots[h]
}

// Set stores c in the slot for h.
func (t *Table[T]) Set(h Handle, c T) {
	*t.Get(h) = c
}

// Len returns the number of addressable slots.
func (t *Table[T]) Len() int {
	return len(t.slots)
}

// Each calls fn for every slot in handle order, starting at handle 1. The callback must
// not grow the table.
func (t *Table[T]) Each(fn func(h Handle, c *T)) {
	for i := 1; i < len(t.slots); i++ {
		fn(Handle(i), &t.slots[i])
	}
}

// Reset drops every slot but keeps the backing storage.
func (t *Table[T]) Reset() {
	clear(t.slots)
	t.slots = t.slots[:0]
}

func (t *Table[T]) grow(n int) {
	if n <= cap(t.slots) {
		t.slots = t.slots[:n]
		return
	}
	next := make([]T, n, max(n, 2*cap(t.slots)))
	copy(next, t.slots)
	t.slots = next
}
