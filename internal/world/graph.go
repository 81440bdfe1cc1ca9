package world

import (
	"errors"

	"github.com/otgo/server/internal/core/ecs"
	"github.com/otgo/server/internal/data"
)

// ThingID identifies a placeable entity (tile, item or creature).
type ThingID = ecs.EntityID

// Kind discriminates the variants a ThingID can refer to.
type Kind uint8

const (
	KindNone Kind = iota
	KindTile
	KindItem
	KindCreature
)

func (k Kind) String() string {
	switch k {
	case KindTile:
		return "tile"
	case KindItem:
		return "item"
	case KindCreature:
		return "creature"
	}
	return "none"
}

var (
	ErrStaleThing      = errors.New("world: stale thing id")
	ErrNotCylinder     = errors.New("world: container cannot hold things")
	ErrAlreadyAttached = errors.New("world: thing already has a container")
	ErrRootThing       = errors.New("world: tiles cannot be contained")
)

// node is the containment record every thing carries. parent is the weak
// edge (an id, checked for liveness on use); children is the strong edge.
type node struct {
	kind     Kind
	parent   ThingID
	children []ThingID
	useCount int32
}

// Graph is the contained-in relation over all things in the world.
// Accessed only from the game loop goroutine.
type Graph struct {
	world     *ecs.World
	nodes     *ecs.Store[node]
	tiles     *ecs.Store[Tile]
	items     *ecs.Store[Item]
	creatures *ecs.Store[Creature]
}

func NewGraph() *Graph {
	g := &Graph{
		world:     ecs.NewWorld(),
		nodes:     ecs.NewStore[node](),
		tiles:     ecs.NewStore[Tile](),
		items:     ecs.NewStore[Item](),
		creatures: ecs.NewStore[Creature](),
	}
	g.world.Attach(g.nodes)
	g.world.Attach(g.tiles)
	g.world.Attach(g.items)
	g.world.Attach(g.creatures)
	return g
}

func (g *Graph) spawn(k Kind) ThingID {
	id := g.world.Create()
	g.nodes.Set(id, &node{kind: k})
	return id
}

// NewTile creates a root tile at pos.
func (g *Graph) NewTile(pos data.Position) ThingID {
	id := g.spawn(KindTile)
	g.tiles.Set(id, &Tile{Pos: pos})
	return id
}

// NewItem creates a free-standing item of type t.
func (g *Graph) NewItem(t *data.ItemType, count uint8) ThingID {
	id := g.spawn(KindItem)
	g.items.Set(id, &Item{Type: t, Count: count})
	return id
}

// NewCreature registers c as a free-standing creature.
func (g *Graph) NewCreature(c *Creature) ThingID {
	id := g.spawn(KindCreature)
	g.creatures.Set(id, c)
	return id
}

func (g *Graph) Alive(id ThingID) bool { return g.world.Alive(id) }

// Live returns the number of things not yet destroyed.
func (g *Graph) Live() int { return g.world.Live() }

func (g *Graph) Kind(id ThingID) Kind {
	if n, ok := g.nodes.Get(id); ok {
		return n.kind
	}
	return KindNone
}

func (g *Graph) Tile(id ThingID) *Tile         { return g.tiles.Must(id) }
func (g *Graph) Item(id ThingID) *Item         { return g.items.Must(id) }
func (g *Graph) Creature(id ThingID) *Creature { return g.creatures.Must(id) }

// IsCylinder reports whether id can contain other things: tiles, creature
// inventories, and items whose type is a container.
func (g *Graph) IsCylinder(id ThingID) bool {
	switch g.Kind(id) {
	case KindTile, KindCreature:
		return true
	case KindItem:
		it := g.items.Must(id)
		return it.Type != nil && it.Type.Container
	}
	return false
}

// Attach makes container the parent of thing. thing must not already have
// a container; there is no implicit detach.
func (g *Graph) Attach(container, thing ThingID) error {
	c, ok := g.nodes.Get(container)
	if !ok {
		return ErrStaleThing
	}
	n, ok := g.nodes.Get(thing)
	if !ok {
		return ErrStaleThing
	}
	if n.kind == KindTile {
		return ErrRootThing
	}
	if !g.IsCylinder(container) {
		return ErrNotCylinder
	}
	if !n.parent.IsZero() {
		return ErrAlreadyAttached
	}
	n.parent = container
	c.children = append(c.children, thing)
	return nil
}

// Detach clears thing's container link. It never destroys: a thing left with
// no holders is queued and swept by FlushDestroyQueue unless it is retained
// or re-attached first. Reports whether thing had a container.
func (g *Graph) Detach(thing ThingID) bool {
	n, ok := g.nodes.Get(thing)
	if !ok || n.parent.IsZero() {
		return false
	}
	g.unlink(thing, n)
	if n.useCount <= 0 {
		g.world.Queue(thing)
	}
	return true
}

func (g *Graph) unlink(id ThingID, n *node) {
	if p, ok := g.nodes.Get(n.parent); ok {
		for i, c := range p.children {
			if c == id {
				p.children = append(p.children[:i], p.children[i+1:]...)
				break
			}
		}
	}
	n.parent = ecs.None
}

// Parent returns thing's container, or ecs.None.
func (g *Graph) Parent(id ThingID) ThingID {
	if n, ok := g.nodes.Get(id); ok {
		return n.parent
	}
	return ecs.None
}

// Children returns the things directly inside id, bottom of the stack
// first. The slice is owned by the graph; do not modify it.
func (g *Graph) Children(id ThingID) []ThingID {
	if n, ok := g.nodes.Get(id); ok {
		return n.children
	}
	return nil
}

// IndexOf returns thing's stack position inside its container, or -1.
func (g *Graph) IndexOf(thing ThingID) int {
	p := g.Parent(thing)
	for i, c := range g.Children(p) {
		if c == thing {
			return i
		}
	}
	return -1
}

// Retain adds a holder to id.
func (g *Graph) Retain(id ThingID) {
	if n, ok := g.nodes.Get(id); ok {
		n.useCount++
	}
}

// Release drops a holder. The thing is destroyed when no holders remain and
// it is no longer in the world. Reports whether it was destroyed.
func (g *Graph) Release(id ThingID) bool {
	n, ok := g.nodes.Get(id)
	if !ok {
		return false
	}
	n.useCount--
	if n.useCount > 0 || !g.IsRemoved(id) {
		return false
	}
	g.orphan(id, n)
	return g.world.Destroy(id)
}

func (g *Graph) UseCount(id ThingID) int32 {
	if n, ok := g.nodes.Get(id); ok {
		return n.useCount
	}
	return 0
}

// orphan unlinks id from its container and cuts its children loose. Children
// with no holders are queued for the next sweep.
func (g *Graph) orphan(id ThingID, n *node) {
	if !n.parent.IsZero() {
		g.unlink(id, n)
	}
	for _, c := range n.children {
		cn, ok := g.nodes.Get(c)
		if !ok {
			continue
		}
		cn.parent = ecs.None
		if cn.useCount <= 0 {
			g.world.Queue(c)
		}
	}
	n.children = nil
}

// TopParent walks container links to the root. A thing with no container is
// its own root.
func (g *Graph) TopParent(id ThingID) ThingID {
	for {
		n, ok := g.nodes.Get(id)
		if !ok || n.parent.IsZero() {
			return id
		}
		id = n.parent
	}
}

// OwningTile returns the tile id ultimately rests on.
func (g *Graph) OwningTile(id ThingID) (ThingID, bool) {
	root := g.TopParent(id)
	if p := g.Parent(root); !p.IsZero() {
		root = p
	}
	if g.Kind(root) != KindTile {
		return ecs.None, false
	}
	return root, true
}

// IsRemoved reports whether id has been taken out of the world: it has no
// container, or some container above it has none. Tiles are never removed.
func (g *Graph) IsRemoved(id ThingID) bool {
	for {
		n, ok := g.nodes.Get(id)
		if !ok {
			return true
		}
		if n.kind == KindTile {
			return false
		}
		if n.parent.IsZero() {
			return true
		}
		id = n.parent
	}
}

// PositionOf returns the map position of the tile id rests on.
func (g *Graph) PositionOf(id ThingID) (data.Position, bool) {
	tile, ok := g.OwningTile(id)
	if !ok {
		return data.Position{}, false
	}
	return g.tiles.Must(tile).Pos, true
}

// FlushDestroyQueue destroys detached things that still have no holders.
// Called once per tick by the cleanup phase.
func (g *Graph) FlushDestroyQueue() int {
	return g.world.FlushDestroyQueue(func(id ThingID) bool {
		n, ok := g.nodes.Get(id)
		if !ok {
			return true
		}
		if n.useCount > 0 || !g.IsRemoved(id) {
			return true
		}
		g.orphan(id, n)
		return false
	})
}
