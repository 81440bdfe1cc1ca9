package world

import "github.com/otgo/server/internal/data"

// TileFlags mark map cell properties.
type TileFlags uint32

const (
	TileProtectionZone TileFlags = 1 << iota
	TileNoLogout
	TileHouse
)

// Tile is a map cell. Tiles are containment roots.
type Tile struct {
	Pos     data.Position
	Flags   TileFlags
	HouseID uint32 // 0 when the tile belongs to no house
}

func (t *Tile) Has(f TileFlags) bool { return t.Flags&f != 0 }

// Item is one instance of an item type. Count is the stack size for
// stackables and the fluid kind for fluid containers and splashes.
type Item struct {
	Type        *data.ItemType
	Count       uint8
	Description string
}

func (it *Item) TypeID() uint16 {
	if it.Type == nil {
		return 0
	}
	return it.Type.ID
}
