package world

import "github.com/otgo/server/internal/data"

// Map indexes tiles by position.
type Map struct {
	graph *Graph
	tiles map[data.Position]ThingID
}

func NewMap(g *Graph) *Map {
	return &Map{graph: g, tiles: make(map[data.Position]ThingID, 1024)}
}

// TileAt returns the tile at pos.
func (m *Map) TileAt(pos data.Position) (ThingID, bool) {
	id, ok := m.tiles[pos]
	return id, ok
}

// EnsureTile returns the tile at pos, creating it if needed.
func (m *Map) EnsureTile(pos data.Position) ThingID {
	if id, ok := m.tiles[pos]; ok {
		return id
	}
	id := m.graph.NewTile(pos)
	m.tiles[pos] = id
	return id
}

func (m *Map) TileCount() int { return len(m.tiles) }

// FillArea lays ground tiles over a and applies its zone flags. Existing
// tiles keep their flags and gain the area's. Returns the number of tiles
// created.
func (m *Map) FillArea(a data.MapArea) int {
	var flags TileFlags
	if a.ProtectionZone {
		flags |= TileProtectionZone
	}
	if a.NoLogout {
		flags |= TileNoLogout
	}
	created := 0
	a.Each(func(pos data.Position) {
		if _, ok := m.tiles[pos]; !ok {
			created++
		}
		m.graph.Tile(m.EnsureTile(pos)).Flags |= flags
	})
	return created
}
