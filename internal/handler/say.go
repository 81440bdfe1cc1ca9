package handler

import (
	"strings"

	"go.uber.org/zap"

	"github.com/otgo/server/internal/house"
	"github.com/otgo/server/internal/net"
	"github.com/otgo/server/internal/net/packet"
	"github.com/otgo/server/internal/world"
)

// House spells.
const (
	spellEditGuests    = "aleta sio"
	spellEditSubOwners = "aleta som"
	spellEditDoor      = "aleta grav"
	spellKick          = "alana sio"
)

// HandleSay processes C_SAY: [C speak type][S text]. Only house spells are
// acted on.
func HandleSay(sess *net.Session, m *packet.NetworkMessage, deps *Deps) {
	p := deps.World.GetBySession(sess.ID)
	if p == nil {
		return
	}
	m.GetByte() // speak type
	text := strings.TrimSpace(m.GetString())
	if text == "" {
		return
	}

	words := strings.ToLower(text)
	switch {
	case words == spellEditGuests:
		openListWindow(p, deps, house.GuestList)
	case words == spellEditSubOwners:
		openListWindow(p, deps, house.SubOwnerList)
	case words == spellEditDoor:
		openDoorWindow(p, deps)
	case strings.HasPrefix(words, spellKick):
		kick(p, deps, text[len(spellKick):])
	default:
		deps.Log.Debug("say", zap.String("name", p.Creature.Name()), zap.String("text", text))
	}
}

// houseUnder returns the house whose tile thing stands on.
func houseUnder(deps *Deps, thing world.ThingID) *house.House {
	tile, ok := deps.World.Graph.OwningTile(thing)
	if !ok {
		return nil
	}
	t := deps.World.Graph.Tile(tile)
	if t == nil || t.HouseID == 0 {
		return nil
	}
	return deps.Houses.Get(t.HouseID)
}

func openListWindow(p *world.Player, deps *Deps, listID uint32) {
	h := houseUnder(deps, p.Thing)
	if h == nil || !h.CanEditAccessList(listID, p.Creature) {
		sendCancel(p)
		return
	}
	sendHouseWindow(p, h, listID)
}

// openDoorWindow edits the list of the house door the player is facing.
func openDoorWindow(p *world.Player, deps *Deps) {
	pos, ok := deps.World.Graph.PositionOf(p.Thing)
	if !ok {
		return
	}
	d := deps.Houses.DoorAt(world.Facing(pos, p.Creature.Direction))
	if d == nil || d.House() == nil {
		sendCancel(p)
		return
	}
	listID := uint32(d.ID())
	if !d.House().CanEditAccessList(listID, p.Creature) {
		sendCancel(p)
		return
	}
	sendHouseWindow(p, d.House(), listID)
}

func sendHouseWindow(p *world.Player, h *house.House, listID uint32) {
	text, ok := h.AccessList(listID)
	if !ok {
		sendCancel(p)
		return
	}
	m := packet.NewMessage()
	m.AddByte(packet.S_HOUSE_WINDOW)
	m.AddByte(0)
	m.AddU32(listID)
	m.AddString(text)
	p.Session.Send(m)
	p.OpenEditWindow(h.ID(), listID)
}

// kick parses `alana sio "name`. Without a name the caster leaves the house.
// The caster must stand in the house; KickPlayer checks the target's tile.
func kick(p *world.Player, deps *Deps, param string) {
	h := houseUnder(deps, p.Thing)
	if h == nil {
		sendCancel(p)
		return
	}
	name := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(param), "\""))
	if name == "" {
		name = p.Creature.Name()
	}
	if !h.KickPlayer(p.Creature, name) {
		sendCancel(p)
	}
}
