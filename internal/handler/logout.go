package handler

import (
	"go.uber.org/zap"

	"github.com/otgo/server/internal/net"
	"github.com/otgo/server/internal/net/packet"
	"github.com/otgo/server/internal/world"
)

// HandleLogout processes C_LOGOUT. Players in combat-free zones may always
// leave; tiles flagged no-logout refuse.
func HandleLogout(sess *net.Session, _ *packet.NetworkMessage, deps *Deps) {
	p := deps.World.GetBySession(sess.ID)
	if p == nil {
		sess.Close()
		return
	}
	if tile, ok := deps.World.Graph.OwningTile(p.Thing); ok {
		if deps.World.Graph.Tile(tile).Has(world.TileNoLogout) {
			sendText(p, packet.MsgStatusSmall, "You can not logout here.")
			return
		}
	}
	deps.Log.Info("player logout", zap.Uint64("session", sess.ID), zap.String("name", p.Creature.Name()))
	// InputSystem removes the player and saves it once the session is closed.
	sess.Disconnect()
}

// HandlePing answers a keep-alive.
func HandlePing(sess *net.Session, _ *packet.NetworkMessage, _ *Deps) {
	m := packet.NewMessage()
	m.AddByte(packet.S_PING)
	sess.Send(m)
}
