package world

import (
	"github.com/otgo/server/internal/data"
	"github.com/otgo/server/internal/net"
)

// Player is a logged-in character. Accessed only from the game loop goroutine.
type Player struct {
	SessionID uint64
	Session   *net.Session
	AccountID int32

	Thing    ThingID // the player's creature in the Graph
	Creature *Creature
	Known    *KnownCreatures
	TownID   uint32

	// Open house list window: which house and list the next window answer edits.
	EditHouseID uint32
	EditListID  uint32
	EditOpen    bool

	held []ThingID
}

// NewPlayer wraps an already-spawned creature.
func NewPlayer(sessionID uint64, sess *net.Session, thing ThingID, c *Creature) *Player {
	return &Player{
		SessionID: sessionID,
		Session:   sess,
		Thing:     thing,
		Creature:  c,
		Known:     NewKnownCreatures(),
	}
}

// Hold retains id on behalf of this connection. Everything held is released
// when the player leaves the world.
func (p *Player) Hold(g *Graph, id ThingID) {
	g.Retain(id)
	p.held = append(p.held, id)
}

// ReleaseAll drops every hold. Returns how many things were destroyed.
func (p *Player) ReleaseAll(g *Graph) int {
	n := 0
	for i := len(p.held) - 1; i >= 0; i-- {
		if g.Release(p.held[i]) {
			n++
		}
	}
	p.held = p.held[:0]
	return n
}

// OpenEditWindow records which access list a house window was opened for.
func (p *Player) OpenEditWindow(houseID, listID uint32) {
	p.EditHouseID, p.EditListID, p.EditOpen = houseID, listID, true
}

// CloseEditWindow forgets the open house window.
func (p *Player) CloseEditWindow() {
	p.EditHouseID, p.EditListID, p.EditOpen = 0, 0, false
}

// Facing returns the position in front of pos in direction dir.
func Facing(pos data.Position, dir uint8) data.Position {
	switch dir {
	case DirNorth:
		pos.Y--
	case DirEast:
		pos.X++
	case DirSouth:
		pos.Y++
	case DirWest:
		pos.X--
	}
	return pos
}

// Directions.
const (
	DirNorth uint8 = iota
	DirEast
	DirSouth
	DirWest
)
