package world

import (
	"sync/atomic"

	"github.com/otgo/server/internal/net/packet"
)

// Client-visible creature ids are allocated from this range so they never
// collide with item ids sent in the same stack.
var nextCreatureID atomic.Uint32

func init() { nextCreatureID.Store(0x10000000) }

// Creature is anything that walks: players, monsters, npcs. Its inventory
// is the set of things attached to it in the Graph.
type Creature struct {
	id      uint32
	name    string
	guid    uint32 // persisted player id, 0 for non-players
	guildID uint32
	access  uint8

	Health    int32
	MaxHealth int32
	Direction uint8
	Outfit    packet.Outfit
	LightLvl  uint8
	LightClr  uint8
	Speed     uint16
	Skull     uint8
	Shield    uint8
}

// NewCreature allocates a creature with a fresh client id.
func NewCreature(name string, guid, guildID uint32, access uint8) *Creature {
	return &Creature{
		id:        nextCreatureID.Add(1),
		name:      name,
		guid:      guid,
		guildID:   guildID,
		access:    access,
		Health:    100,
		MaxHealth: 100,
		Speed:     220,
	}
}

func (c *Creature) ID() uint32      { return c.id }
func (c *Creature) Name() string    { return c.name }
func (c *Creature) GUID() uint32    { return c.guid }
func (c *Creature) GuildID() uint32 { return c.guildID }
func (c *Creature) Access() uint8   { return c.access }

// HealthPercent is the health bar value sent to clients.
func (c *Creature) HealthPercent() uint8 {
	if c.MaxHealth <= 0 || c.Health <= 0 {
		return 0
	}
	p := c.Health * 100 / c.MaxHealth
	if p > 100 {
		p = 100
	}
	return uint8(p)
}

// Describe returns the wire view of c.
func (c *Creature) Describe() packet.CreatureInfo {
	return packet.CreatureInfo{
		ID:         c.id,
		Name:       c.name,
		Health:     c.HealthPercent(),
		Direction:  c.Direction,
		Outfit:     c.Outfit,
		LightLevel: c.LightLvl,
		LightColor: c.LightClr,
		Speed:      c.Speed,
		Skull:      c.Skull,
		Shield:     c.Shield,
	}
}
