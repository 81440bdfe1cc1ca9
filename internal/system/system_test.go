package system

import (
	"context"
	"errors"
	gonet "net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/otgo/server/internal/core/event"
	coresys "github.com/otgo/server/internal/core/system"
	"github.com/otgo/server/internal/data"
	"github.com/otgo/server/internal/house"
	"github.com/otgo/server/internal/net"
	"github.com/otgo/server/internal/net/packet"
	"github.com/otgo/server/internal/persist"
	"github.com/otgo/server/internal/world"
)

type fakeSource struct {
	newCh  chan *net.Session
	deadCh chan uint64
	dead   []uint64
}

func newFakeSource() *fakeSource {
	return &fakeSource{newCh: make(chan *net.Session, 4), deadCh: make(chan uint64, 4)}
}

func (f *fakeSource) NewSessions() <-chan *net.Session { return f.newCh }
func (f *fakeSource) DeadSessions() <-chan uint64      { return f.deadCh }
func (f *fakeSource) NotifyDead(id uint64)             { f.dead = append(f.dead, id) }

type fakePlayers struct {
	saved []*persist.PlayerRow
}

func (f *fakePlayers) LoadByAccount(context.Context, int32, string) (*persist.PlayerRow, error) {
	return nil, nil
}

func (f *fakePlayers) Save(_ context.Context, row *persist.PlayerRow) error {
	f.saved = append(f.saved, row)
	return nil
}

func (f *fakePlayers) TouchLogin(context.Context, int32) error { return nil }

func newSession(t *testing.T, id uint64) *net.Session {
	t.Helper()
	client, server := gonet.Pipe()
	t.Cleanup(func() {
		client.Close()
		server.Close()
	})
	return net.NewSession(server, id, nil, net.SessionConfig{InQueueSize: 8, OutQueueSize: 8}, zap.NewNop())
}

func newState() *world.State {
	st := world.NewState(world.NewDirectory(), event.NewBus())
	for x := uint16(100); x < 110; x++ {
		for y := uint16(100); y < 110; y++ {
			st.Map.EnsureTile(data.Position{X: x, Y: y, Z: 7})
		}
	}
	return st
}

func spawn(t *testing.T, st *world.State, sess *net.Session, name string, guid uint32, pos data.Position) *world.Player {
	t.Helper()
	c := world.NewCreature(name, guid, 0, 0)
	p := world.NewPlayer(sess.ID, sess, st.Graph.NewCreature(c), c)
	require.NoError(t, st.AddPlayer(p, pos))
	sess.SetState(packet.StateInWorld)
	return p
}

func TestInputDispatchesQueuedPackets(t *testing.T) {
	src := newFakeSource()
	reg := packet.NewRegistry(zap.NewNop())
	var got []uint32
	reg.Register(packet.C_PING, []packet.SessionState{packet.StateHandshake}, func(_ any, m *packet.NetworkMessage) {
		got = append(got, m.GetU32())
	})
	store := net.NewSessionStore()
	in := NewInputSystem(src, reg, store, 2, newState(), &fakePlayers{}, zap.NewNop())

	sess := newSession(t, 1)
	src.newCh <- sess
	for i := uint32(1); i <= 3; i++ {
		m := packet.NewMessage()
		m.AddByte(packet.C_PING)
		m.AddU32(i)
		m.Rewind()
		sess.InQueue <- m
	}

	in.Update(time.Millisecond)
	assert.Equal(t, 1, store.Count())
	assert.Equal(t, []uint32{1, 2}, got, "at most maxPerTick per session")

	in.Update(time.Millisecond)
	assert.Equal(t, []uint32{1, 2, 3}, got)

	src.deadCh <- 1
	in.Update(time.Millisecond)
	assert.Zero(t, store.Count())
}

func TestInputHandlesDisconnect(t *testing.T) {
	src := newFakeSource()
	st := newState()
	players := &fakePlayers{}
	store := net.NewSessionStore()
	in := NewInputSystem(src, packet.NewRegistry(zap.NewNop()), store, 4, st, players, zap.NewNop())

	leaving := newSession(t, 1)
	watching := newSession(t, 2)
	store.Add(leaving)
	store.Add(watching)
	leaver := spawn(t, st, leaving, "Alice", 7, data.Position{X: 104, Y: 104, Z: 7})
	spawn(t, st, watching, "Bob", 8, data.Position{X: 105, Y: 105, Z: 7})
	leaver.AccountID = 3

	leaving.Close()
	in.Update(time.Millisecond)

	assert.Nil(t, st.GetBySession(1))
	assert.Equal(t, []uint64{1}, src.dead)
	assert.Equal(t, 1, store.Count())
	require.Len(t, players.saved, 1)
	assert.Equal(t, "Alice", players.saved[0].Name)
	assert.Equal(t, int32(3), players.saved[0].AccountID)
	assert.Equal(t, int32(104), players.saved[0].X)

	select {
	case m := <-watching.OutQueue:
		m.Rewind()
		assert.Equal(t, packet.S_REMOVE_THING, m.GetByte())
		assert.Equal(t, data.Position{X: 104, Y: 104, Z: 7}, m.GetPosition())
		assert.Equal(t, uint8(0), m.GetByte())
	default:
		t.Fatal("spectator was not told")
	}
}

type fakeLedger struct {
	debits []int64
}

func (l *fakeLedger) LoadPlayer(_ context.Context, name string) (*persist.PlayerRow, error) {
	return &persist.PlayerRow{ID: 1, Name: name}, nil
}

func (l *fakeLedger) SavePlayer(context.Context, *persist.PlayerRow) error { return nil }

func (l *fakeLedger) DebitGold(_ context.Context, _, _ int32, amount int64, _ int32) error {
	l.debits = append(l.debits, amount)
	return nil
}

func newHouses(t *testing.T) (*house.Registry, *house.House) {
	t.Helper()
	st := newState()
	st.Dir.AddPlayer(1, "Owner")
	reg := house.NewRegistry(st.Dir, st, zap.NewNop())
	h := reg.Create(5)
	h.SetOwner(1)
	h.SetRent(100)
	h.SetTownID(1)
	return reg, h
}

func TestRentSystemRunsOnInterval(t *testing.T) {
	reg, h := newHouses(t)
	ledger := &fakeLedger{}
	reg.ConfigureRent(house.RentConfig{
		Ledger: ledger,
		Towns:  data.NewTownTable(&data.Town{ID: 1, Name: "Thais"}),
		Period: 30,
	})
	rent := NewRentSystem(reg, time.Minute, zap.NewNop())
	rent.now = func() time.Time { return time.Unix(50, 0) }
	assert.Equal(t, coresys.PhaseUpdate, rent.Phase())

	rent.Update(30 * time.Second)
	assert.Empty(t, ledger.debits)

	rent.Update(30 * time.Second)
	assert.Equal(t, []int64{100}, ledger.debits)
	assert.Equal(t, int64(80), h.PaidUntil())

	// Paid up: the next pass charges nothing.
	assert.Zero(t, rent.Collect())
	assert.Len(t, ledger.debits, 1)
}

type fakeHouseStore struct {
	rows []persist.HouseRow
	fail bool
}

func (f *fakeHouseStore) Save(_ context.Context, h persist.HouseRow) error {
	if f.fail {
		return errors.New("db down")
	}
	f.rows = append(f.rows, h)
	return nil
}

func TestPersistenceSavesDirtyHouses(t *testing.T) {
	reg, h := newHouses(t)
	reg.Create(6)
	require.True(t, h.Dirty())

	store := &fakeHouseStore{fail: true}
	ps := NewPersistenceSystem(reg, store, time.Second, zap.NewNop())

	ps.Update(time.Second)
	assert.True(t, h.Dirty(), "failed save stays dirty")

	store.fail = false
	ps.Update(time.Second)
	require.Len(t, store.rows, 1)
	assert.Equal(t, int32(5), store.rows[0].HouseID)
	assert.Equal(t, int32(1), store.rows[0].Owner)
	assert.False(t, h.Dirty())

	ps.Update(time.Second)
	assert.Len(t, store.rows, 1, "nothing changed")

	assert.Equal(t, 2, ps.SaveAll())
}

func TestEventSystemDeliversLastTick(t *testing.T) {
	bus := event.NewBus()
	var seen []uint8
	event.Subscribe(bus, func(e event.MagicEffectShown) { seen = append(seen, e.Effect) })
	es := NewEventSystem(bus)

	event.Emit(bus, event.MagicEffectShown{Effect: 3})
	es.Update(time.Millisecond)
	assert.Equal(t, []uint8{3}, seen)

	es.Update(time.Millisecond)
	assert.Equal(t, []uint8{3}, seen)
}

func TestOutputFlushesEverySession(t *testing.T) {
	store := net.NewSessionStore()
	a, b := newSession(t, 1), newSession(t, 2)
	store.Add(a)
	store.Add(b)
	for _, s := range []*net.Session{a, b} {
		m := packet.NewMessage()
		m.AddByte(packet.S_PING)
		s.Send(m)
	}
	NewOutputSystem(store).Update(time.Millisecond)
	assert.Len(t, a.OutQueue, 1)
	assert.Len(t, b.OutQueue, 1)
}

func TestCleanupDestroysReleasedThings(t *testing.T) {
	st := newState()
	tile, ok := st.Map.TileAt(data.Position{X: 100, Y: 100, Z: 7})
	require.True(t, ok)
	item := st.Graph.NewItem(&data.ItemType{ID: 1}, 1)
	require.NoError(t, st.Graph.Attach(tile, item))
	st.Graph.Detach(item)
	require.True(t, st.Graph.Alive(item))

	NewCleanupSystem(st.Graph).Update(time.Millisecond)
	assert.False(t, st.Graph.Alive(item))
}
