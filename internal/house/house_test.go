package house

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/otgo/server/internal/core/event"
	"github.com/otgo/server/internal/data"
	"github.com/otgo/server/internal/persist"
	"github.com/otgo/server/internal/world"
)

var (
	doorType = &data.ItemType{ID: 1209, ClientID: 1209, Name: "closed door", Door: true, TransformTo: 1211}
	entry    = data.Position{X: 100, Y: 100, Z: 7}
	inside   = data.Position{X: 102, Y: 101, Z: 7}
	outside  = data.Position{X: 108, Y: 108, Z: 7}
)

type fixture struct {
	st    *world.State
	bus   *event.Bus
	reg   *Registry
	house *House
	door  *Door
}

// newFixture builds house 5: three tiles, one door, entry on the corner.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := testDirectory()
	bus := event.NewBus()
	st := world.NewState(dir, bus)
	for x := uint16(100); x < 110; x++ {
		for y := uint16(100); y < 110; y++ {
			st.Map.EnsureTile(data.Position{X: x, Y: y, Z: 7})
		}
	}
	reg := NewRegistry(dir, st, zap.NewNop())
	items := data.NewItemTable(doorType)
	require.NoError(t, reg.LoadMap(st, items, []data.HouseMapEntry{{
		HouseID: 5,
		Tiles: []data.Position{
			{X: 101, Y: 101, Z: 7},
			{X: 102, Y: 101, Z: 7},
			{X: 103, Y: 101, Z: 7},
		},
		Doors: []data.HouseDoorSpawn{{DoorID: 1, ItemID: doorType.ID, Pos: data.Position{X: 104, Y: 101, Z: 7}}},
	}}))
	h := reg.Get(5)
	require.NotNil(t, h)
	h.SetEntry(entry)
	return &fixture{st: st, bus: bus, reg: reg, house: h, door: h.DoorByID(1)}
}

func (f *fixture) spawn(t *testing.T, sid uint64, name string, guid uint32, pos data.Position) *world.Player {
	t.Helper()
	c := world.NewCreature(name, guid, 0, 0)
	p := world.NewPlayer(sid, nil, f.st.Graph.NewCreature(c), c)
	require.NoError(t, f.st.AddPlayer(p, pos))
	return p
}

func (f *fixture) posOf(p *world.Player) data.Position {
	pos, _ := f.st.Graph.PositionOf(p.Thing)
	return pos
}

// effects drains the bus and returns the magic effects emitted since the
// last call.
func (f *fixture) effects() []event.MagicEffectShown {
	var out []event.MagicEffectShown
	event.Subscribe(f.bus, func(e event.MagicEffectShown) { out = append(out, e) })
	f.bus.SwapBuffers()
	f.bus.DispatchAll()
	return out
}

func TestHouseTilesAreProtected(t *testing.T) {
	f := newFixture(t)
	require.Len(t, f.house.Tiles(), 3)
	for _, id := range f.house.Tiles() {
		tile := f.st.Graph.Tile(id)
		assert.True(t, tile.Has(world.TileProtectionZone))
		assert.True(t, tile.Has(world.TileHouse))
		assert.Equal(t, uint32(5), tile.HouseID)
	}
	assert.Equal(t, "It belongs to house '"+defaultName+"'. \nNobody owns this house.\n", f.door.Item().Description)
}

func TestAccessLevels(t *testing.T) {
	f := newFixture(t)
	f.house.SetOwner(1)
	f.house.SetAccessList(SubOwnerList, "sub")
	f.house.SetAccessList(GuestList, "guest\nsub")

	tests := []struct {
		who  actor
		want AccessLevel
	}{
		{actor{name: "Owner", guid: 1}, Owner},
		{actor{name: "Sub", guid: 2}, SubOwner},
		{actor{name: "Guest", guid: 3}, Guest},
		{actor{name: "Stranger", guid: 4}, NotInvited},
		{actor{name: "Stranger", guid: 4, access: AdminAccess}, Owner},
	}
	for _, tt := range tests {
		t.Run(tt.who.name+" "+tt.want.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, f.house.AccessLevel(tt.who))
			assert.Equal(t, tt.want != NotInvited, f.house.IsInvited(tt.who))
		})
	}
}

func TestUnownedHouseHasNoOwnerMatch(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, NotInvited, f.house.AccessLevel(actor{name: "Nobody", guid: 0}))
}

func TestInvitationIsMonotonic(t *testing.T) {
	f := newFixture(t)
	f.house.SetOwner(1)
	guest := actor{name: "Guest", guid: 3}

	f.house.SetAccessList(GuestList, "guest")
	require.True(t, f.house.IsInvited(guest))

	f.house.SetAccessList(SubOwnerList, "guest")
	assert.True(t, f.house.IsInvited(guest))
	assert.Equal(t, SubOwner, f.house.AccessLevel(guest))
}

func TestSetOwnerResetsLists(t *testing.T) {
	f := newFixture(t)
	f.house.SetOwner(1)
	assert.Equal(t, uint32(1), f.house.Owner())
	assert.Equal(t, "It belongs to house '"+defaultName+"'. \nOwner owns this house.\n", f.door.Item().Description)

	f.house.SetAccessList(GuestList, "guest")
	f.house.SetAccessList(SubOwnerList, "sub")
	f.house.SetAccessList(1, "stranger")
	f.house.SetPaidUntil(1000)

	f.house.SetOwner(1)
	text, _ := f.house.AccessList(GuestList)
	assert.Equal(t, "guest", text, "same owner is a no-op")

	f.house.SetOwner(2)
	assert.Equal(t, uint32(2), f.house.Owner())
	assert.Equal(t, int64(0), f.house.PaidUntil())
	for _, id := range []uint32{GuestList, SubOwnerList, 1} {
		text, ok := f.house.AccessList(id)
		assert.True(t, ok)
		assert.Empty(t, text)
	}
	assert.Equal(t, NotInvited, f.house.AccessLevel(actor{name: "Guest", guid: 3}))
	assert.False(t, f.door.CanPass(actor{name: "Stranger", guid: 4}))
	assert.Contains(t, f.door.Item().Description, "Sub owns this house.")
	assert.True(t, f.house.Dirty())
}

func TestSetOwnerUnresolvable(t *testing.T) {
	f := newFixture(t)
	f.house.SetOwner(1)
	f.house.SetOwner(999)
	assert.Equal(t, uint32(0), f.house.Owner())
	assert.Contains(t, f.door.Item().Description, "Nobody owns this house.")

	f.house.SetOwner(0)
	assert.Equal(t, uint32(0), f.house.Owner())
}

func TestCanEditAccessList(t *testing.T) {
	f := newFixture(t)
	f.house.SetOwner(1)
	f.house.SetAccessList(SubOwnerList, "sub")
	f.house.SetAccessList(GuestList, "guest")

	owner := actor{name: "Owner", guid: 1}
	sub := actor{name: "Sub", guid: 2}
	guest := actor{name: "Guest", guid: 3}
	stranger := actor{name: "Stranger", guid: 4}

	tests := []struct {
		name string
		who  actor
		list uint32
		want bool
	}{
		{"owner guest", owner, GuestList, true},
		{"owner subowner", owner, SubOwnerList, true},
		{"owner door", owner, 1, true},
		{"sub guest", sub, GuestList, true},
		{"sub subowner", sub, SubOwnerList, false},
		{"sub door", sub, 1, false},
		{"guest guest", guest, GuestList, false},
		{"stranger guest", stranger, GuestList, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, f.house.CanEditAccessList(tt.list, tt.who))
		})
	}
}

func TestDoorAccess(t *testing.T) {
	f := newFixture(t)
	f.house.SetOwner(1)
	f.house.SetAccessList(1, "guest")

	assert.True(t, f.door.CanPass(actor{name: "Owner", guid: 1}))
	assert.True(t, f.door.CanPass(actor{name: "Guest", guid: 3}))
	assert.False(t, f.door.CanPass(actor{name: "Stranger", guid: 4}))
	assert.True(t, f.door.CanPass(actor{name: "Stranger", guid: 4, access: AdminAccess}))

	text, ok := f.house.AccessList(1)
	assert.True(t, ok)
	assert.Equal(t, "guest", text)
	_, ok = f.house.AccessList(7)
	assert.False(t, ok, "unknown door")
	_, ok = f.house.AccessList(0x1FF)
	assert.False(t, ok)

	// Door lists never affect house invitation.
	assert.False(t, f.house.IsInvited(actor{name: "Guest", guid: 3}))
}

func TestUnboundDoor(t *testing.T) {
	f := newFixture(t)
	d := NewDoor(0, &world.Item{Type: doorType}, 9, outside)

	assert.True(t, d.CanPass(actor{name: "Stranger", guid: 4}))
	assert.False(t, d.SetAccessList("guest"))
	_, ok := d.AccessList()
	assert.False(t, ok)

	require.True(t, d.Bind(f.house))
	other := f.reg.Create(6)
	assert.False(t, other.AddDoor(d), "bound once")
	assert.Same(t, f.house, d.House())
	assert.True(t, d.SetAccessList("guest"))
}

func TestSetGuestListKicksUninvited(t *testing.T) {
	f := newFixture(t)
	f.house.SetOwner(1)
	f.house.SetAccessList(GuestList, "guest\nstranger")
	f.effects()

	guest := f.spawn(t, 1, "Guest", 3, inside)
	stranger := f.spawn(t, 2, "Stranger", 4, inside)
	walker := f.spawn(t, 3, "Johnny", 6, outside)

	f.house.SetAccessList(GuestList, "guest")

	assert.Equal(t, inside, f.posOf(guest))
	assert.Equal(t, entry, f.posOf(stranger))
	assert.Equal(t, outside, f.posOf(walker), "only house tiles are cleared")
	assert.Equal(t, []event.MagicEffectShown{{Pos: entry, Effect: world.EffectTeleport}}, f.effects())
}

func TestDoorListKicksNobody(t *testing.T) {
	f := newFixture(t)
	f.house.SetOwner(1)
	stranger := f.spawn(t, 1, "Stranger", 4, inside)

	f.house.SetAccessList(1, "guest")
	f.house.SetAccessList(42, "guest")
	assert.Equal(t, inside, f.posOf(stranger))
}

func TestKickPlayer(t *testing.T) {
	f := newFixture(t)
	f.house.SetOwner(1)
	f.house.SetAccessList(GuestList, "guest\nstranger")
	f.house.SetAccessList(SubOwnerList, "sub")

	owner := f.spawn(t, 1, "Owner", 1, inside)
	guest := f.spawn(t, 2, "Guest", 3, inside)
	sub := f.spawn(t, 3, "Sub", 2, inside)
	out := f.spawn(t, 4, "Stranger", 4, outside)

	assert.False(t, f.house.KickPlayer(guest.Creature, "Sub"), "guest ranks below sub-owner")
	assert.Equal(t, inside, f.posOf(sub))

	assert.True(t, f.house.KickPlayer(sub.Creature, "guest"))
	assert.Equal(t, entry, f.posOf(guest))

	assert.False(t, f.house.KickPlayer(owner.Creature, "Stranger"), "not in the house")
	assert.Equal(t, outside, f.posOf(out))
	assert.False(t, f.house.KickPlayer(owner.Creature, "Offline"))

	assert.True(t, f.house.KickPlayer(sub.Creature, "Sub"), "equal rank may kick")
}

func TestKickSucceedsWhenRelocationFails(t *testing.T) {
	f := newFixture(t)
	f.house.SetOwner(1)
	f.house.SetEntry(data.Position{X: 1, Y: 1, Z: 1})
	f.effects()
	owner := f.spawn(t, 1, "Owner", 1, inside)
	guest := f.spawn(t, 2, "Stranger", 4, inside)

	assert.True(t, f.house.KickPlayer(owner.Creature, "stranger"))
	assert.Equal(t, inside, f.posOf(guest))
	assert.Empty(t, f.effects(), "no effect without a relocation")
}

func TestSnapshotRestore(t *testing.T) {
	f := newFixture(t)
	f.house.SetOwner(1)
	f.house.SetAccessList(GuestList, "guest")
	f.house.SetAccessList(SubOwnerList, "sub")
	f.house.SetAccessList(1, "stranger")
	f.house.SetPaidUntil(777)
	row := f.house.Snapshot()

	g := newFixture(t)
	assert.Equal(t, 1, g.reg.Restore([]persist.HouseRow{row}))
	h := g.house
	assert.Equal(t, uint32(1), h.Owner())
	assert.Equal(t, int64(777), h.PaidUntil())
	assert.Equal(t, Guest, h.AccessLevel(actor{name: "Guest", guid: 3}))
	assert.Equal(t, SubOwner, h.AccessLevel(actor{name: "Sub", guid: 2}))
	assert.True(t, g.door.CanPass(actor{name: "Stranger", guid: 4}))
	assert.Contains(t, g.door.Item().Description, "Owner owns this house.")
	assert.False(t, h.Dirty())
}
