package ecs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolRecyclesWithNewGeneration(t *testing.T) {
	p := NewEntityPool()
	a := p.Create()
	require.False(t, a.IsZero())
	assert.True(t, p.Alive(a))

	assert.True(t, p.Destroy(a))
	assert.False(t, p.Alive(a))
	assert.False(t, p.Destroy(a), "second destroy is ignored")

	b := p.Create()
	assert.Equal(t, a.Index(), b.Index())
	assert.Equal(t, a.Generation()+1, b.Generation())
	assert.False(t, p.Alive(a))
	assert.True(t, p.Alive(b))
	assert.Equal(t, 1, p.Live())
}

func TestPoolZeroIDNeverAlive(t *testing.T) {
	p := NewEntityPool()
	p.Create()
	assert.False(t, p.Alive(None))
}

func TestWorldDestroyClearsStores(t *testing.T) {
	w := NewWorld()
	names := NewStore[string]()
	w.Attach(names)

	id := w.Create()
	n := "door"
	names.Set(id, &n)
	require.True(t, names.Has(id))

	assert.True(t, w.Destroy(id))
	assert.False(t, names.Has(id))
	assert.Equal(t, 0, w.Live())
}

func TestFlushDestroyQueue(t *testing.T) {
	w := NewWorld()
	a, b, c := w.Create(), w.Create(), w.Create()

	w.Queue(a)
	w.Queue(a)
	w.Queue(b)
	assert.Equal(t, 2, w.Pending())

	// b is kept but queues c, which must go in the same flush.
	n := w.FlushDestroyQueue(func(id EntityID) bool {
		if id == b {
			w.Queue(c)
			return true
		}
		return false
	})
	assert.Equal(t, 2, n)
	assert.False(t, w.Alive(a))
	assert.True(t, w.Alive(b))
	assert.False(t, w.Alive(c))
	assert.Equal(t, 0, w.Pending())
}
