package handler

import (
	"github.com/otgo/server/internal/core/event"
	"github.com/otgo/server/internal/data"
	"github.com/otgo/server/internal/net/packet"
	"github.com/otgo/server/internal/world"
)

// tileEnd closes a tile description: skip marker 0x00 then 0xFF.
const tileEnd uint16 = 0xFF00

func sendText(p *world.Player, class byte, text string) {
	m := packet.NewMessage()
	m.AddByte(packet.S_TEXT_MESSAGE)
	m.AddByte(class)
	m.AddString(text)
	p.Session.Send(m)
}

func sendCancel(p *world.Player) {
	sendText(p, packet.MsgStatusSmall, "Sorry, not possible.")
}

// addCreature writes c as viewer's client should see it, updating the
// viewer's known-creature cache.
func addCreature(m *packet.NetworkMessage, viewer *world.Player, c *world.Creature) {
	known, evict := viewer.Known.Check(c.ID(), nil)
	m.AddCreature(c.Describe(), known, evict)
}

// addTile writes the position and contents of one tile.
func addTile(m *packet.NetworkMessage, st *world.State, viewer *world.Player, tile world.ThingID) {
	t := st.Graph.Tile(tile)
	m.AddPosition(t.Pos)
	for _, id := range st.Graph.Children(tile) {
		switch st.Graph.Kind(id) {
		case world.KindItem:
			it := st.Graph.Item(id)
			m.AddItem(it.Type, it.Count)
		case world.KindCreature:
			addCreature(m, viewer, st.Graph.Creature(id))
		}
	}
	m.AddU16(tileEnd)
}

func sendMapDescription(st *world.State, p *world.Player) {
	tile, ok := st.Graph.OwningTile(p.Thing)
	if !ok {
		return
	}
	m := packet.NewMessage()
	m.AddByte(packet.S_MAP_DESCRIPTION)
	addTile(m, st, p, tile)
	p.Session.Send(m)
}

func sendAddCreature(viewer *world.Player, pos data.Position, c *world.Creature) {
	m := packet.NewMessage()
	m.AddByte(packet.S_ADD_THING)
	m.AddPosition(pos)
	addCreature(m, viewer, c)
	viewer.Session.Send(m)
}

func removeThingMessage(pos data.Position, stackPos uint8) *packet.NetworkMessage {
	m := packet.NewMessage()
	m.AddByte(packet.S_REMOVE_THING)
	m.AddPosition(pos)
	m.AddByte(stackPos)
	return m
}

// Subscribe wires world events to client updates.
func Subscribe(bus *event.Bus, deps *Deps) {
	st := deps.World

	event.Subscribe(bus, func(ev event.CreatureRelocated) {
		if !st.Graph.Alive(ev.Creature) {
			return
		}
		c := st.Graph.Creature(ev.Creature)
		if c == nil {
			return
		}
		remove := removeThingMessage(ev.From, ev.FromStackPos)
		for _, viewer := range st.Spectators(ev.From) {
			if viewer.Thing != ev.Creature {
				viewer.Session.Send(remove)
			}
		}
		for _, viewer := range st.Spectators(ev.To) {
			if viewer.Thing == ev.Creature {
				sendMapDescription(st, viewer)
				continue
			}
			sendAddCreature(viewer, ev.To, c)
		}
	})

	event.Subscribe(bus, func(ev event.MagicEffectShown) {
		m := packet.NewMessage()
		m.AddByte(packet.S_MAGIC_EFFECT)
		m.AddPosition(ev.Pos)
		m.AddByte(ev.Effect)
		for _, viewer := range st.Spectators(ev.Pos) {
			viewer.Session.Send(m)
		}
	})
}
