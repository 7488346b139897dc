package state

// BoundedSet is an insertion-ordered string set with a fixed capacity.
// Adding beyond capacity evicts the oldest entries. Membership of an id
// that has been evicted is forgotten, which bounds memory across runs.
type BoundedSet struct {
	capacity int
	order    []string
	index    map[string]struct{}
}

// NewBoundedSet builds an empty set; capacity values below 1 fall back to 1.
func NewBoundedSet(capacity int) *BoundedSet {
	if capacity < 1 {
		capacity = 1
	}
	return &BoundedSet{
		capacity: capacity,
		index:    map[string]struct{}{},
	}
}

// Contains reports membership.
func (s *BoundedSet) Contains(id string) bool {
	_, ok := s.index[id]
	return ok
}

// Add inserts id, evicting the oldest entries once capacity is exceeded.
// Re-adding a present id is a no-op and does not refresh its position.
func (s *BoundedSet) Add(id string) {
	if s.Contains(id) {
		return
	}
	s.order = append(s.order, id)
	s.index[id] = struct{}{}

	for len(s.order) > s.capacity {
		evicted := s.order[0]
		s.order = s.order[1:]
		delete(s.index, evicted)
	}
}

// Len returns the current number of entries.
func (s *BoundedSet) Len() int {
	return len(s.order)
}

// Values returns the entries oldest first. The slice is a copy.
func (s *BoundedSet) Values() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}
