package handler

import (
	"go.uber.org/zap"

	"github.com/otgo/server/internal/net"
	"github.com/otgo/server/internal/net/packet"
)

// HandleHouseWindow processes the answer to S_HOUSE_WINDOW:
// [C window id][D list id][S text]. Only the list the window was opened for
// may be written, and edit rights are checked again.
func HandleHouseWindow(sess *net.Session, m *packet.NetworkMessage, deps *Deps) {
	p := deps.World.GetBySession(sess.ID)
	if p == nil {
		return
	}
	m.GetByte() // window id
	listID := m.GetU32()
	text := m.GetString()

	if !p.EditOpen || p.EditListID != listID {
		deps.Log.Debug("house window without open list",
			zap.String("name", p.Creature.Name()), zap.Uint32("list", listID))
		return
	}
	houseID := p.EditHouseID
	p.CloseEditWindow()

	h := deps.Houses.Get(houseID)
	if h == nil || !h.CanEditAccessList(listID, p.Creature) {
		sendCancel(p)
		return
	}
	h.SetAccessList(listID, text)
}
