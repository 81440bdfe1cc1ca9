package ecs

// World owns the entity pool, the component stores attached to it, and the
// deferred destruction queue drained once per tick by the cleanup phase.
type World struct {
	pool   *EntityPool
	stores []Removable

	queue  []EntityID
	queued map[EntityID]struct{}
}

func NewWorld() *World {
	return &World{
		pool:   NewEntityPool(),
		stores: make([]Removable, 0, 8),
		queue:  make([]EntityID, 0, 64),
		queued: make(map[EntityID]struct{}, 64),
	}
}

// Attach registers a store so Destroy clears it.
func (w *World) Attach(store Removable) {
	w.stores = append(w.stores, store)
}

func (w *World) Create() EntityID       { return w.pool.Create() }
func (w *World) Alive(id EntityID) bool { return w.pool.Alive(id) }
func (w *World) Live() int              { return w.pool.Live() }

// Destroy removes id from every store and retires it immediately.
func (w *World) Destroy(id EntityID) bool {
	if !w.pool.Alive(id) {
		return false
	}
	for _, s := range w.stores {
		s.Remove(id)
	}
	return w.pool.Destroy(id)
}

// Queue schedules id for the next FlushDestroyQueue. Queuing twice is a no-op.
func (w *World) Queue(id EntityID) {
	if _, dup := w.queued[id]; dup {
		return
	}
	w.queued[id] = struct{}{}
	w.queue = append(w.queue, id)
}

// Pending returns the number of queued ids.
func (w *World) Pending() int { return len(w.queue) }

// FlushDestroyQueue destroys queued entities unless keep vetoes them.
// keep may queue further entities; those are processed in the same flush.
// Returns how many entities were destroyed.
func (w *World) FlushDestroyQueue(keep func(EntityID) bool) int {
	destroyed := 0
	for i := 0; i < len(w.queue); i++ {
		id := w.queue[i]
		delete(w.queued, id)
		if !w.pool.Alive(id) {
			continue
		}
		if keep != nil && keep(id) {
			continue
		}
		if w.Destroy(id) {
			destroyed++
		}
	}
	w.queue = w.queue[:0]
	return destroyed
}
