package ecs

// Removable is implemented by every component store so the World can drop
// an entity's data everywhere when it is destroyed.
type Removable interface {
	Remove(id EntityID)
}

// Store maps entities to one component type.
type Store[T any] struct {
	data map[EntityID]*T
}

func NewStore[T any]() *Store[T] {
	return &Store[T]{data: make(map[EntityID]*T, 256)}
}

func (s *Store[T]) Set(id EntityID, c *T) { s.data[id] = c }

func (s *Store[T]) Get(id EntityID) (*T, bool) {
	c, ok := s.data[id]
	return c, ok
}

// Must returns the component or nil; for callers that already checked
// the entity's kind.
func (s *Store[T]) Must(id EntityID) *T { return s.data[id] }

func (s *Store[T]) Remove(id EntityID) { delete(s.data, id) }

func (s *Store[T]) Has(id EntityID) bool {
	_, ok := s.data[id]
	return ok
}

func (s *Store[T]) Len() int { return len(s.data) }

// Each visits components in unspecified order. fn must not add to or
// remove from s.
func (s *Store[T]) Each(fn func(EntityID, *T)) {
	for id, c := range s.data {
		fn(id, c)
	}
}
