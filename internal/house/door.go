package house

import (
	"github.com/otgo/server/internal/data"
	"github.com/otgo/server/internal/world"
)

// Door is a door item on a house wall. It belongs to at most one house and
// carries its own access list once bound.
type Door struct {
	Thing world.ThingID

	item  *world.Item
	id    uint8
	pos   data.Position
	house *House
	list  *AccessList
}

func NewDoor(thing world.ThingID, item *world.Item, doorID uint8, pos data.Position) *Door {
	return &Door{Thing: thing, item: item, id: doorID, pos: pos}
}

func (d *Door) ID() uint8               { return d.id }
func (d *Door) Position() data.Position { return d.pos }
func (d *Door) House() *House           { return d.house }
func (d *Door) Item() *world.Item       { return d.item }

// Bind attaches the door to h. A door is bound once and never rebound.
func (d *Door) Bind(h *House) bool {
	if d.house != nil {
		return false
	}
	d.house = h
	d.list = NewAccessList(h.ids)
	return true
}

// CanPass reports whether a may open the door. Unbound doors are public.
func (d *Door) CanPass(a Actor) bool {
	if d.house == nil {
		return true
	}
	if d.house.AccessLevel(a) == Owner {
		return true
	}
	return d.list.IsInList(a)
}

func (d *Door) SetAccessList(text string) bool {
	if d.house == nil {
		return false
	}
	return d.list.Parse(text)
}

func (d *Door) AccessList() (string, bool) {
	if d.house == nil {
		return "", false
	}
	return d.list.Text(), true
}
