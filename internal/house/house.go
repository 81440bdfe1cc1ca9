package house

import (
	"github.com/otgo/server/internal/data"
	"github.com/otgo/server/internal/persist"
	"github.com/otgo/server/internal/world"
	"go.uber.org/zap"
)

// List ids understood by SetAccessList and friends. Values below 0x100 name
// a door of the house.
const (
	GuestList    uint32 = 0x100
	SubOwnerList uint32 = 0x101
)

// AdminAccess is the lowest creature access level that owns every house.
const AdminAccess uint8 = 3

// AccessLevel is an actor's standing in one house. Levels are ordered.
type AccessLevel int

const (
	NotInvited AccessLevel = iota
	Guest
	SubOwner
	Owner
)

func (l AccessLevel) String() string {
	switch l {
	case Guest:
		return "guest"
	case SubOwner:
		return "subowner"
	case Owner:
		return "owner"
	default:
		return "not invited"
	}
}

// Actor is whoever is asking: a player creature, usually.
type Actor interface {
	Name() string
	GUID() uint32
	GuildID() uint32
	Access() uint8
}

// Identities resolves names and ids of offline players and guilds.
type Identities interface {
	GUIDByName(name string) (uint32, bool)
	NameByGUID(guid uint32) (string, bool)
	GuildIDByName(name string) (uint32, bool)
}

// World is the slice of game state a house acts on.
type World interface {
	PlayerByName(name string) (world.ThingID, bool)
	Creature(id world.ThingID) *world.Creature
	CreaturesOn(tile world.ThingID) []world.ThingID
	OwningTile(id world.ThingID) (world.ThingID, bool)
	Teleport(id world.ThingID, to data.Position) error
	MagicEffect(pos data.Position, effect uint8)
}

const defaultName = "OTServ headquarter (Flat 1, Area 42)"

// House is a piece of real estate: tiles, doors and two access lists.
// Only the game loop touches a House.
type House struct {
	id        uint32
	name      string
	owner     uint32
	entry     data.Position
	rent      uint32
	paidUntil int64
	townID    uint32

	tiles   []world.ThingID
	tileSet map[world.ThingID]struct{}
	doors   []*Door

	guests    *AccessList
	subOwners *AccessList

	ids   Identities
	world World
	log   *zap.Logger

	dirty bool
}

func newHouse(id uint32, ids Identities, w World, log *zap.Logger) *House {
	return &House{
		id:        id,
		name:      defaultName,
		tileSet:   make(map[world.ThingID]struct{}),
		guests:    NewAccessList(ids),
		subOwners: NewAccessList(ids),
		ids:       ids,
		world:     w,
		log:       log.With(zap.Uint32("house", id)),
	}
}

func (h *House) ID() uint32             { return h.id }
func (h *House) Name() string           { return h.name }
func (h *House) Owner() uint32          { return h.owner }
func (h *House) Entry() data.Position   { return h.entry }
func (h *House) Rent() uint32           { return h.rent }
func (h *House) PaidUntil() int64       { return h.paidUntil }
func (h *House) TownID() uint32         { return h.townID }
func (h *House) Tiles() []world.ThingID { return h.tiles }
func (h *House) Doors() []*Door         { return h.doors }

func (h *House) SetName(name string)      { h.name = name }
func (h *House) SetEntry(p data.Position) { h.entry = p }
func (h *House) SetRent(rent uint32)      { h.rent = rent }
func (h *House) SetTownID(id uint32)      { h.townID = id }

func (h *House) SetPaidUntil(t int64) {
	h.paidUntil = t
	h.dirty = true
}

func (h *House) HasTile(t world.ThingID) bool {
	_, ok := h.tileSet[t]
	return ok
}

// Dirty reports unsaved ownership or list changes.
func (h *House) Dirty() bool { return h.dirty }
func (h *House) ClearDirty() { h.dirty = false }

// AddTile makes tile part of the house. House tiles are protection zones.
func (h *House) AddTile(id world.ThingID, t *world.Tile) {
	if h.HasTile(id) {
		return
	}
	t.Flags |= world.TileProtectionZone | world.TileHouse
	t.HouseID = h.id
	h.tiles = append(h.tiles, id)
	h.tileSet[id] = struct{}{}
}

// AddDoor binds d to the house. A door already bound elsewhere is refused.
func (h *House) AddDoor(d *Door) bool {
	if !d.Bind(h) {
		h.log.Debug("door already bound", zap.Uint8("door", d.id))
		return false
	}
	h.doors = append(h.doors, d)
	return true
}

func (h *House) DoorByID(id uint8) *Door {
	for _, d := range h.doors {
		if d.id == id {
			return d
		}
	}
	return nil
}

func (h *House) DoorByPosition(p data.Position) *Door {
	for _, d := range h.doors {
		if d.pos == p {
			return d
		}
	}
	return nil
}

// AccessLevel ranks a in this house.
func (h *House) AccessLevel(a Actor) AccessLevel {
	switch {
	case a.Access() >= AdminAccess:
		return Owner
	case h.owner != 0 && a.GUID() == h.owner:
		return Owner
	case h.subOwners.IsInList(a):
		return SubOwner
	case h.guests.IsInList(a):
		return Guest
	}
	return NotInvited
}

func (h *House) IsInvited(a Actor) bool { return h.AccessLevel(a) != NotInvited }

// SetOwner transfers the house. Any change of hands wipes every list and the
// paid period; an unresolvable guid leaves the house unowned.
func (h *House) SetOwner(guid uint32) {
	if h.owner == guid {
		return
	}
	if h.owner != 0 {
		h.guests.Parse("")
		h.subOwners.Parse("")
		for _, d := range h.doors {
			d.SetAccessList("")
		}
		h.owner = 0
		h.paidUntil = 0
	}

	var ownerName string
	if guid != 0 {
		if name, ok := h.ids.NameByGUID(guid); ok {
			h.owner = guid
			ownerName = name
		}
	}
	h.describeDoors(ownerName)
	h.dirty = true
}

// describeDoors writes the ownership line on every door.
func (h *House) describeDoors(ownerName string) {
	if ownerName == "" {
		ownerName = "Nobody"
	}
	text := "It belongs to house '" + h.name + "'. \n" + ownerName + " owns this house.\n"
	for _, d := range h.doors {
		d.item.Description = text
	}
}

func (h *House) ownerName() string {
	if h.owner == 0 {
		return ""
	}
	name, _ := h.ids.NameByGUID(h.owner)
	return name
}

// SetAccessList replaces the guest list, the sub-owner list or one door's
// list. Changing the guest or sub-owner list throws out everyone who is no
// longer invited.
func (h *House) SetAccessList(listID uint32, text string) {
	switch listID {
	case GuestList:
		h.guests.Parse(text)
	case SubOwnerList:
		h.subOwners.Parse(text)
	default:
		d := h.doorByListID(listID)
		if d == nil {
			h.log.Debug("no door for access list", zap.Uint32("list", listID))
			return
		}
		d.SetAccessList(text)
		h.dirty = true
		return
	}
	h.dirty = true
	h.kickUninvited()
}

// AccessList returns the text of a list. ok is false for an unknown door.
func (h *House) AccessList(listID uint32) (string, bool) {
	switch listID {
	case GuestList:
		return h.guests.Text(), true
	case SubOwnerList:
		return h.subOwners.Text(), true
	}
	d := h.doorByListID(listID)
	if d == nil {
		return "", false
	}
	return d.AccessList()
}

func (h *House) doorByListID(listID uint32) *Door {
	if listID > 0xFF {
		return nil
	}
	return h.DoorByID(uint8(listID))
}

// CanEditAccessList: owners edit everything, sub-owners only the guest list.
func (h *House) CanEditAccessList(listID uint32, a Actor) bool {
	switch h.AccessLevel(a) {
	case Owner:
		return true
	case SubOwner:
		return listID == GuestList
	}
	return false
}

// KickPlayer sends the named player standing in this house to its entry.
// The actor must rank at least as high as the target. A failed relocation
// still counts as a kick.
func (h *House) KickPlayer(actor Actor, name string) bool {
	target, ok := h.world.PlayerByName(name)
	if !ok {
		return false
	}
	tile, ok := h.world.OwningTile(target)
	if !ok || !h.HasTile(tile) {
		return false
	}
	c := h.world.Creature(target)
	if c == nil || h.AccessLevel(actor) < h.AccessLevel(c) {
		return false
	}
	h.relocate(target)
	return true
}

func (h *House) kickUninvited() {
	var out []world.ThingID
	for _, tile := range h.tiles {
		for _, id := range h.world.CreaturesOn(tile) {
			c := h.world.Creature(id)
			if c == nil || c.GUID() == 0 {
				continue
			}
			if !h.IsInvited(c) {
				out = append(out, id)
			}
		}
	}
	for _, id := range out {
		h.relocate(id)
	}
}

func (h *House) relocate(id world.ThingID) {
	if err := h.world.Teleport(id, h.entry); err != nil {
		h.log.Debug("relocate failed", zap.Stringer("thing", id), zap.Error(err))
		return
	}
	h.world.MagicEffect(h.entry, world.EffectTeleport)
}

// Snapshot captures the persistent part of the house.
func (h *House) Snapshot() persist.HouseRow {
	row := persist.HouseRow{
		HouseID:      int32(h.id),
		Owner:        int32(h.owner),
		PaidUntil:    h.paidUntil,
		GuestList:    h.guests.Text(),
		SubOwnerList: h.subOwners.Text(),
	}
	for _, d := range h.doors {
		if text, ok := d.AccessList(); ok && text != "" {
			row.Doors = append(row.Doors, persist.HouseDoorRow{DoorID: int16(d.id), AccessList: text})
		}
	}
	return row
}

// restore applies a saved row without the reset SetOwner performs.
func (h *House) restore(row persist.HouseRow) {
	h.owner = uint32(row.Owner)
	if h.owner != 0 && h.ownerName() == "" {
		h.log.Warn("saved owner no longer exists", zap.Int32("owner", row.Owner))
		h.owner = 0
	}
	h.paidUntil = row.PaidUntil
	h.guests.Parse(row.GuestList)
	h.subOwners.Parse(row.SubOwnerList)
	for _, dr := range row.Doors {
		if d := h.DoorByID(uint8(dr.DoorID)); d != nil {
			d.SetAccessList(dr.AccessList)
		}
	}
	h.describeDoors(h.ownerName())
}
