package system

import (
	"context"
	"time"

	"go.uber.org/zap"

	coresys "github.com/otgo/server/internal/core/system"
	"github.com/otgo/server/internal/handler"
	"github.com/otgo/server/internal/net"
	"github.com/otgo/server/internal/net/packet"
	"github.com/otgo/server/internal/world"
)

// SessionSource hands new and dead sessions to the game loop.
type SessionSource interface {
	NewSessions() <-chan *net.Session
	DeadSessions() <-chan uint64
	NotifyDead(sessionID uint64)
}

// InputSystem drains packet queues from all sessions and dispatches them
// through the packet registry. Phase 0 (Input).
type InputSystem struct {
	source     SessionSource
	registry   *packet.Registry
	store      *net.SessionStore
	maxPerTick int
	world      *world.State
	players    handler.PlayerStore
	log        *zap.Logger
}

func NewInputSystem(
	source SessionSource,
	registry *packet.Registry,
	store *net.SessionStore,
	maxPerTick int,
	ws *world.State,
	players handler.PlayerStore,
	log *zap.Logger,
) *InputSystem {
	return &InputSystem{
		source:     source,
		registry:   registry,
		store:      store,
		maxPerTick: maxPerTick,
		world:      ws,
		players:    players,
		log:        log,
	}
}

func (s *InputSystem) Phase() coresys.Phase { return coresys.PhaseInput }

func (s *InputSystem) Update(_ time.Duration) {
newConns:
	for {
		select {
		case sess := <-s.source.NewSessions():
			s.store.Add(sess)
		default:
			break newConns
		}
	}

deadConns:
	for {
		select {
		case id := <-s.source.DeadSessions():
			s.store.Remove(id)
		default:
			break deadConns
		}
	}

	for id, sess := range s.store.Raw() {
		if sess.IsClosed() {
			// Packets that arrived before the close still run, under the
			// last known state.
			s.drain(sess)
			sess.FlushOutput()
			s.handleDisconnect(sess)
			s.source.NotifyDead(id)
			s.store.Remove(id)
			continue
		}
		s.drain(sess)
	}

	// Early flush: replies produced here start writing while later phases run.
	s.store.ForEach(func(sess *net.Session) {
		sess.FlushOutput()
	})
}

func (s *InputSystem) drain(sess *net.Session) {
	for i := 0; i < s.maxPerTick; i++ {
		select {
		case m := <-sess.InQueue:
			if err := s.registry.Dispatch(sess, sess.State(), m); err != nil {
				s.log.Debug("dispatch failed", zap.Uint64("session", sess.ID), zap.Error(err))
			}
		default:
			return
		}
	}
}

// handleDisconnect takes the player out of the world, tells spectators and
// saves the character.
func (s *InputSystem) handleDisconnect(sess *net.Session) {
	p := s.world.GetBySession(sess.ID)
	if p == nil {
		return
	}
	row := handler.PlayerRow(s.world, p)
	pos, placed := s.world.Graph.PositionOf(p.Thing)
	stack := s.world.Graph.IndexOf(p.Thing)

	s.world.RemovePlayer(sess.ID)

	if placed && stack >= 0 {
		m := packet.NewMessage()
		m.AddByte(packet.S_REMOVE_THING)
		m.AddPosition(pos)
		m.AddByte(uint8(stack))
		for _, viewer := range s.world.Spectators(pos) {
			viewer.Known.Forget(p.Creature.ID())
			viewer.Session.Send(m)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.players.Save(ctx, row); err != nil {
		s.log.Error("save player on disconnect failed", zap.String("name", row.Name), zap.Error(err))
		return
	}
	s.log.Info("player left", zap.String("name", row.Name), zap.Uint64("session", sess.ID))
}
