package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBusDeliversNextTickInOrder(t *testing.T) {
	b := NewBus()
	var got []string
	Subscribe(b, func(e MagicEffectShown) { got = append(got, "effect") })
	Subscribe(b, func(e CreatureRelocated) { got = append(got, "move") })

	Emit(b, MagicEffectShown{Effect: 3})
	Emit(b, CreatureRelocated{CreatureID: 1})
	Emit(b, MagicEffectShown{Effect: 4})

	assert.Equal(t, 0, b.DispatchAll(), "nothing deliverable before swap")
	assert.Empty(t, got)

	b.SwapBuffers()
	assert.Equal(t, 3, b.DispatchAll())
	assert.Equal(t, []string{"effect", "move", "effect"}, got)

	b.SwapBuffers()
	assert.Equal(t, 0, b.DispatchAll())
}

func TestBusHandlerEmitGoesToNextTick(t *testing.T) {
	b := NewBus()
	calls := 0
	Subscribe(b, func(e MagicEffectShown) {
		calls++
		if e.Effect == 1 {
			Emit(b, MagicEffectShown{Effect: 2})
		}
	})
	Emit(b, MagicEffectShown{Effect: 1})
	b.SwapBuffers()
	b.DispatchAll()
	assert.Equal(t, 1, calls)

	b.SwapBuffers()
	b.DispatchAll()
	assert.Equal(t, 2, calls)
}
