package world

import (
	"errors"
	"strings"

	"github.com/otgo/server/internal/core/event"
	"github.com/otgo/server/internal/data"
)

var (
	ErrNoTile    = errors.New("world: no tile at destination")
	ErrNotPlaced = errors.New("world: thing is not on the map")
)

// EffectTeleport is the magic effect shown where a relocated creature lands.
const EffectTeleport uint8 = 10

// State tracks the map, the containment graph and all in-world players.
// Single-goroutine access only (game loop).
type State struct {
	Graph *Graph
	Map   *Map
	Dir   *Directory

	bus *event.Bus
	aoi *AOIGrid

	bySession map[uint64]*Player
	byName    map[string]*Player // lowercased
	byThing   map[ThingID]*Player

	aoiBuf []uint64
}

func NewState(dir *Directory, bus *event.Bus) *State {
	g := NewGraph()
	return &State{
		Graph:     g,
		Map:       NewMap(g),
		Dir:       dir,
		bus:       bus,
		aoi:       NewAOIGrid(),
		bySession: make(map[uint64]*Player),
		byName:    make(map[string]*Player),
		byThing:   make(map[ThingID]*Player),
	}
}

// AddPlayer places p's creature on the tile at pos and registers it.
// The player holds a reference to its own creature until RemovePlayer.
func (s *State) AddPlayer(p *Player, pos data.Position) error {
	tile, ok := s.Map.TileAt(pos)
	if !ok {
		return ErrNoTile
	}
	if err := s.Graph.Attach(tile, p.Thing); err != nil {
		return err
	}
	p.Hold(s.Graph, p.Thing)
	s.bySession[p.SessionID] = p
	s.byName[strings.ToLower(p.Creature.Name())] = p
	s.byThing[p.Thing] = p
	s.aoi.Add(p.SessionID, pos)
	if guid := p.Creature.GUID(); guid != 0 {
		s.Dir.AddPlayer(guid, p.Creature.Name())
	}
	return nil
}

// RemovePlayer takes the player out of the world and releases every
// reference the connection held.
func (s *State) RemovePlayer(sessionID uint64) *Player {
	p, ok := s.bySession[sessionID]
	if !ok {
		return nil
	}
	if pos, ok := s.Graph.PositionOf(p.Thing); ok {
		s.aoi.Remove(sessionID, pos)
	}
	s.Graph.Detach(p.Thing)
	delete(s.bySession, sessionID)
	delete(s.byName, strings.ToLower(p.Creature.Name()))
	delete(s.byThing, p.Thing)
	p.ReleaseAll(s.Graph)
	return p
}

func (s *State) GetBySession(sessionID uint64) *Player {
	return s.bySession[sessionID]
}

// GetByName is case-insensitive.
func (s *State) GetByName(name string) *Player {
	return s.byName[strings.ToLower(name)]
}

func (s *State) PlayerCount() int { return len(s.bySession) }

// AllPlayers iterates all in-world players.
func (s *State) AllPlayers(fn func(*Player)) {
	for _, p := range s.bySession {
		fn(p)
	}
}

// Spectators returns the players whose viewport includes pos.
func (s *State) Spectators(pos data.Position) []*Player {
	s.aoiBuf = s.aoi.Nearby(pos, s.aoiBuf)
	out := make([]*Player, 0, len(s.aoiBuf))
	for _, sid := range s.aoiBuf {
		p := s.bySession[sid]
		if p == nil {
			continue
		}
		if at, ok := s.Graph.PositionOf(p.Thing); ok && InView(at, pos) {
			out = append(out, p)
		}
	}
	return out
}

// PlayerByName returns the creature of an online player.
func (s *State) PlayerByName(name string) (ThingID, bool) {
	p := s.GetByName(name)
	if p == nil {
		return 0, false
	}
	return p.Thing, true
}

func (s *State) Creature(id ThingID) *Creature { return s.Graph.Creature(id) }

func (s *State) OwningTile(id ThingID) (ThingID, bool) { return s.Graph.OwningTile(id) }

// CreaturesOn lists the creatures standing directly on tile.
func (s *State) CreaturesOn(tile ThingID) []ThingID {
	var out []ThingID
	for _, c := range s.Graph.Children(tile) {
		if s.Graph.Kind(c) == KindCreature {
			out = append(out, c)
		}
	}
	return out
}

// Teleport moves a thing from its current tile to the tile at to.
func (s *State) Teleport(id ThingID, to data.Position) error {
	dest, ok := s.Map.TileAt(to)
	if !ok {
		return ErrNoTile
	}
	from, ok := s.Graph.OwningTile(id)
	if !ok || s.Graph.Parent(id) != from {
		return ErrNotPlaced
	}
	fromPos := s.Graph.Tile(from).Pos
	stack := s.Graph.IndexOf(id)

	// Hold across the move so a zero-count thing is not swept in between.
	s.Graph.Retain(id)
	s.Graph.Detach(id)
	if err := s.Graph.Attach(dest, id); err != nil {
		s.Graph.Attach(from, id)
		s.Graph.Release(id)
		return err
	}
	s.Graph.Release(id)

	if p := s.byThing[id]; p != nil {
		s.aoi.Move(p.SessionID, fromPos, to)
	}
	ev := event.CreatureRelocated{
		Creature:     id,
		From:         fromPos,
		FromStackPos: uint8(stack),
		To:           to,
	}
	if c := s.Graph.Creature(id); c != nil {
		ev.CreatureID = c.ID()
	}
	event.Emit(s.bus, ev)
	return nil
}

// MagicEffect plays an effect animation on pos for everyone in view.
func (s *State) MagicEffect(pos data.Position, effect uint8) {
	event.Emit(s.bus, event.MagicEffectShown{Pos: pos, Effect: effect})
}
