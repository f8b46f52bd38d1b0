// Package arena implements a generational slot arena. Objects are addressed
// by a Handle that stays valid until the object is removed; a removed slot
// is recycled under a new generation so stale handles resolve to nothing.
package arena

// Handle addresses a slot. The zero Handle never refers to a live object.
type Handle struct {
	Index uint32
	Gen   uint32
}

// IsNil reports whether h is the zero handle.
func (h Handle) IsNil() bool { return h.Index == 0 }

type slot[T any] struct {
	value T
	gen   uint32
	used  bool
}

// Arena stores values of type T in reusable slots.
type Arena[T any] struct {
	slots []slot[T]
	free  []uint32
	live  int
}

// New returns an empty arena. Slot 0 is reserved for the zero handle.
func New[T any]() *Arena[T] {
	return &Arena[T]{slots: make([]slot[T], 1, 16)}
}

// Insert stores v and returns its handle.
func (a *Arena[T]) Insert(v T) Handle {
	var idx uint32
	if n := len(a.free); n > 0 {
		idx = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		a.slots = append(a.slots, slot[T]{gen: 1})
		idx = uint32(len(a.slots) - 1)
	}
	s := &a.slots[idx]
	s.value = v
	s.used = true
	a.live++
	return Handle{Index: idx, Gen: s.gen}
}

// Get returns the value behind h. ok is false for stale or zero handles.
func (a *Arena[T]) Get(h Handle) (v T, ok bool) {
	if h.Index == 0 || int(h.Index) >= len(a.slots) {
		return v, false
	}
	s := &a.slots[h.Index]
	if !s.used || s.gen != h.Gen {
		return v, false
	}
	return s.value, true
}

// Contains reports whether h refers to a live value.
func (a *Arena[T]) Contains(h Handle) bool {
	_, ok := a.Get(h)
	return ok
}

// Remove frees the slot behind h and bumps its generation. It reports
// whether h was live.
func (a *Arena[T]) Remove(h Handle) bool {
	if !a.Contains(h) {
		return false
	}
	s := &a.slots[h.Index]
	var zero T
	s.value = zero
	s.used = false
	s.gen++
	a.free = append(a.free, h.Index)
	a.live--
	return true
}

// Len returns the number of live values.
func (a *Arena[T]) Len() int { return a.live }

// Each calls fn for live values in slot order until fn returns false.
// Values removed during the walk are skipped; values inserted during the
// walk may or may not be visited.
func (a *Arena[T]) Each(fn func(Handle, T) bool) {
	for i := 1; i < len(a.slots); i++ {
		s := &a.slots[i]
		if !s.used {
			continue
		}
		if !fn(Handle{Index: uint32(i), Gen: s.gen}, s.value) {
			return
		}
	}
}
