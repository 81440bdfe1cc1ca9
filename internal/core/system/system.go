package system

import "time"

// Phase orders systems within a tick.
type Phase int

const (
	PhaseInput      Phase = iota // drain session queues, dispatch packets
	PhasePreUpdate               // deliver last tick's events
	PhaseUpdate                  // rent and other periodic rules
	PhasePostUpdate              // reserved
	PhaseOutput                  // flush outbound messages
	PhasePersist                 // save dirty houses
	PhaseCleanup                 // drain the containment destroy queue
)

func (p Phase) String() string {
	switch p {
	case PhaseInput:
		return "input"
	case PhasePreUpdate:
		return "pre-update"
	case PhaseUpdate:
		return "update"
	case PhasePostUpdate:
		return "post-update"
	case PhaseOutput:
		return "output"
	case PhasePersist:
		return "persist"
	case PhaseCleanup:
		return "cleanup"
	}
	return "unknown"
}

// System is run once per tick by the Runner.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}

// Every accumulates tick durations and reports when interval has elapsed.
// A zero or negative interval never fires.
type Every struct {
	interval time.Duration
	acc      time.Duration
}

func NewEvery(interval time.Duration) Every {
	return Every{interval: interval}
}

// Step adds dt and reports whether the interval was crossed.
func (e *Every) Step(dt time.Duration) bool {
	if e.interval <= 0 {
		return false
	}
	e.acc += dt
	if e.acc < e.interval {
		return false
	}
	e.acc -= e.interval
	if e.acc >= e.interval {
		// Skip intervals missed during a stall rather than firing repeatedly.
		e.acc = 0
	}
	return true
}
