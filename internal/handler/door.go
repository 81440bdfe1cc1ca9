package handler

import (
	"github.com/otgo/server/internal/data"
	"github.com/otgo/server/internal/net"
	"github.com/otgo/server/internal/net/packet"
	"github.com/otgo/server/internal/world"
)

// HandleUseItem processes C_USE_ITEM: [pos][H item id][C stack pos][C index].
// Only house doors react: invited players open or close them.
func HandleUseItem(sess *net.Session, m *packet.NetworkMessage, deps *Deps) {
	p := deps.World.GetBySession(sess.ID)
	if p == nil {
		return
	}
	pos := m.GetPosition()
	m.GetU16() // client item id
	m.GetByte() // stack pos
	m.GetByte() // index

	d := deps.Houses.DoorAt(pos)
	if d == nil {
		return
	}
	if !d.CanPass(p.Creature) {
		sendText(p, packet.MsgInfoDesc, "It is locked.")
		return
	}
	it := d.Item()
	if it == nil || it.Type == nil || it.Type.TransformTo == 0 {
		return
	}
	next := deps.Items.Get(it.Type.TransformTo)
	if next == nil {
		return
	}
	it.Type = next
	stackPos := deps.World.Graph.IndexOf(d.Thing)
	if stackPos < 0 {
		return
	}

	out := packet.NewMessage()
	out.AddByte(packet.S_TRANSFORM_THING)
	out.AddPosition(pos)
	out.AddByte(uint8(stackPos))
	out.AddItem(next, it.Count)
	broadcast(deps.World, pos, out)
}

func broadcast(st *world.State, pos data.Position, m *packet.NetworkMessage) {
	for _, viewer := range st.Spectators(pos) {
		viewer.Session.Send(m)
	}
}
