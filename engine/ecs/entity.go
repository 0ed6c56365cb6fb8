package ecs

import "errors"

// Handle identifies an entity. Every per-entity component lives in a Table keyed by Handle.
// Handles are allocated in increasing order and never reused within a run; 0 means "no entity".
type Handle uint32

// None is the reserved handle that never names an entity.
const None Handle = 0

// ErrBoundaryAlreadyMarked is returned when the internal/user boundary is recorded twice.
var ErrBoundaryAlreadyMarked = errors.New("ecs: user entity boundary already marked")

// Registry allocates entity handles.
//
// Entities created before MarkUserBoundary are engine-internal (cameras, default lights);
// entities created afterwards come from scene data.
type Registry struct {
	next     Handle
	boundary Handle
	marked   bool
}

// NewRegistry creates an empty registry whose first allocated handle is 1.
func NewRegistry() *Registry {
	return &Registry{next: 1}
}

// Allocate returns the next unused handle, skipping the reserved 0.
func (r *Registry) Allocate() Handle {
	if r.next == None {
		r.next = 1
	}
	h := r.next
	r.next++
	return h
}

// MarkUserBoundary records that every handle allocated from now on belongs to user content.
// It may be called once per registry lifetime (until Reset).
func (r *Registry) MarkUserBoundary() error {
	if r.marked {
		return ErrBoundaryAlreadyMarked
	}
	r.boundary = r.next
	r.marked = true
	return nil
}

// UserBoundary returns the first user handle and whether the boundary has been marked.
func (r *Registry) UserBoundary() (Handle, bool) {
	return r.boundary, r.marked
}

// IsInternal reports whether h was allocated before the user boundary.
// Before the boundary is marked every allocated handle counts as internal.
func (r *Registry) IsInternal(h Handle) bool {
	if h == None || h >= r.next {
		return false
	}
	return !r.marked || h < r.boundary
}

// IsUser reports whether h was allocated after the user boundary.
func (r *Registry) IsUser(h Handle) bool {
	return r.marked && h >= r.boundary && h < r.next
}

// Count returns how many handles have been allocated.
func (r *Registry) Count() int {
	return int(r.next) - 1
}

// Reset forgets every allocated handle and the boundary. Tables keyed by the old handles
// must be reset alongside.
func (r *Registry) Reset() {
	r.next = 1
	r.boundary = 0
	r.marked = false
}
