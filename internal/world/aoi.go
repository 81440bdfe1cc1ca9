package world

import "github.com/otgo/server/internal/data"

// Viewport half-extents of the client map window.
const (
	ViewRangeX = 9
	ViewRangeY = 7
)

// cellSize is larger than both view ranges, so a 3x3 block of cells always
// covers the viewport.
const cellSize = 16

type cellKey struct {
	z      uint8
	cx, cy uint16
}

func cellOf(p data.Position) cellKey {
	return cellKey{z: p.Z, cx: p.X / cellSize, cy: p.Y / cellSize}
}

// AOIGrid buckets in-world sessions by map cell.
// Accessed only from the game loop goroutine.
type AOIGrid struct {
	cells map[cellKey]map[uint64]struct{}
}

func NewAOIGrid() *AOIGrid {
	return &AOIGrid{cells: make(map[cellKey]map[uint64]struct{})}
}

func (g *AOIGrid) Add(sessionID uint64, p data.Position) {
	k := cellOf(p)
	cell := g.cells[k]
	if cell == nil {
		cell = make(map[uint64]struct{})
		g.cells[k] = cell
	}
	cell[sessionID] = struct{}{}
}

func (g *AOIGrid) Remove(sessionID uint64, p data.Position) {
	k := cellOf(p)
	if cell := g.cells[k]; cell != nil {
		delete(cell, sessionID)
		if len(cell) == 0 {
			delete(g.cells, k)
		}
	}
}

func (g *AOIGrid) Move(sessionID uint64, from, to data.Position) {
	if cellOf(from) == cellOf(to) {
		return
	}
	g.Remove(sessionID, from)
	g.Add(sessionID, to)
}

// Nearby appends to buf the sessions in the 3x3 cells around p. Callers do
// the exact range check.
func (g *AOIGrid) Nearby(p data.Position, buf []uint64) []uint64 {
	buf = buf[:0]
	c := cellOf(p)
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			x, y := int(c.cx)+dx, int(c.cy)+dy
			if x < 0 || y < 0 {
				continue
			}
			for sid := range g.cells[cellKey{z: c.z, cx: uint16(x), cy: uint16(y)}] {
				buf = append(buf, sid)
			}
		}
	}
	return buf
}

// InView reports whether b is visible from a.
func InView(a, b data.Position) bool {
	if a.Z != b.Z {
		return false
	}
	return absDiff(a.X, b.X) <= ViewRangeX && absDiff(a.Y, b.Y) <= ViewRangeY
}

func absDiff(a, b uint16) uint16 {
	if a > b {
		return a - b
	}
	return b - a
}
