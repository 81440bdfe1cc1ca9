package system

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type recorder struct {
	name  string
	phase Phase
	log   *[]string
}

func (r recorder) Phase() Phase { return r.phase }
func (r recorder) Update(time.Duration) {
	*r.log = append(*r.log, r.name)
}

func TestRunnerOrdersByPhaseThenRegistration(t *testing.T) {
	var log []string
	r := NewRunner()
	r.Register(recorder{"cleanup", PhaseCleanup, &log})
	r.Register(recorder{"input-a", PhaseInput, &log})
	r.Register(recorder{"update", PhaseUpdate, &log})
	r.Register(recorder{"input-b", PhaseInput, &log})

	r.Tick(time.Millisecond)
	assert.Equal(t, []string{"input-a", "input-b", "update", "cleanup"}, log)

	log = nil
	r.TickPhase(PhaseInput, time.Millisecond)
	assert.Equal(t, []string{"input-a", "input-b"}, log)
}

func TestEvery(t *testing.T) {
	e := NewEvery(100 * time.Millisecond)
	assert.False(t, e.Step(60*time.Millisecond))
	assert.True(t, e.Step(60*time.Millisecond))
	assert.False(t, e.Step(60*time.Millisecond))
	assert.True(t, e.Step(60*time.Millisecond))

	// A long stall fires once, not three times.
	assert.True(t, e.Step(time.Second))
	assert.False(t, e.Step(10*time.Millisecond))

	never := NewEvery(0)
	assert.False(t, never.Step(time.Hour))
}
