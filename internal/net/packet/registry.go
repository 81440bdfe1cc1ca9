package packet

import (
	"fmt"

	"go.uber.org/zap"
)

// SessionState is the protocol phase of a connection.
type SessionState int

const (
	StateHandshake     SessionState = iota // awaiting the RSA login block
	StateInWorld                           // character placed on the map
	StateDisconnecting
)

func (s SessionState) String() string {
	switch s {
	case StateHandshake:
		return "Handshake"
	case StateInWorld:
		return "InWorld"
	case StateDisconnecting:
		return "Disconnecting"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// HandlerFunc handles one inbound message. The opcode has already been
// consumed from m. sess is the *net.Session, passed opaquely to avoid an
// import cycle.
type HandlerFunc func(sess any, m *NetworkMessage)

type handlerEntry struct {
	fn            HandlerFunc
	allowedStates map[SessionState]bool
}

// Registry maps opcodes to handlers with state-based access control.
type Registry struct {
	handlers map[byte]*handlerEntry
	log      *zap.Logger
}

func NewRegistry(log *zap.Logger) *Registry {
	return &Registry{
		handlers: make(map[byte]*handlerEntry),
		log:      log,
	}
}

// Register maps an opcode to a handler, restricted to the given states.
func (reg *Registry) Register(opcode byte, states []SessionState, fn HandlerFunc) {
	allowed := make(map[SessionState]bool, len(states))
	for _, s := range states {
		allowed[s] = true
	}
	reg.handlers[opcode] = &handlerEntry{fn: fn, allowedStates: allowed}
}

// Dispatch reads the opcode at the cursor and runs its handler. Unknown
// opcodes are ignored; an opcode not allowed in state is an error.
func (reg *Registry) Dispatch(sess any, state SessionState, m *NetworkMessage) error {
	if m.Remaining() == 0 {
		return fmt.Errorf("empty message")
	}
	opcode := m.GetByte()
	reg.log.Debug("message received",
		zap.Uint8("opcode", opcode),
		zap.Int("size", m.Len()),
		zap.Stringer("state", state),
	)

	entry, ok := reg.handlers[opcode]
	if !ok {
		reg.log.Debug("unknown opcode", zap.Uint8("opcode", opcode), zap.Stringer("state", state))
		return nil
	}
	if !entry.allowedStates[state] {
		reg.log.Warn("opcode not allowed in state",
			zap.Uint8("opcode", opcode),
			zap.Stringer("state", state),
		)
		return fmt.Errorf("opcode 0x%02X not allowed in state %s", opcode, state)
	}
	return reg.safeCall(entry.fn, sess, m, opcode)
}

// safeCall keeps one malformed message from taking down the game loop.
func (reg *Registry) safeCall(fn HandlerFunc, sess any, m *NetworkMessage, opcode byte) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			reg.log.Error("handler panic recovered",
				zap.Uint8("opcode", opcode),
				zap.Any("panic", rec),
			)
			err = fmt.Errorf("handler panic for opcode 0x%02X: %v", opcode, rec)
		}
	}()
	fn(sess, m)
	return nil
}
