package house

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/otgo/server/internal/data"
	"github.com/otgo/server/internal/persist"
	"github.com/otgo/server/internal/world"
)

// Ledger is the persistence the rent collector needs.
type Ledger interface {
	LoadPlayer(ctx context.Context, name string) (*persist.PlayerRow, error)
	SavePlayer(ctx context.Context, row *persist.PlayerRow) error
	DebitGold(ctx context.Context, playerID, townID int32, amount int64, houseID int32) error
}

// Towns resolves the town a house pays rent in.
type Towns interface {
	Get(id uint32) *data.Town
}

// Unpaid reasons passed to RentConfig.OnUnpaid.
const (
	UnpaidNoOwner = "owner not found"
	UnpaidNoFunds = "insufficient funds"
)

// RentConfig wires rent collection. Modifier and OnUnpaid are optional.
type RentConfig struct {
	Ledger Ledger
	Towns  Towns
	Period int64 // seconds bought by one payment

	Modifier func(houseID, rent uint32) uint32
	OnUnpaid func(h *House, reason string)
}

// Registry owns every house in the world.
type Registry struct {
	houses map[uint32]*House
	doorAt map[data.Position]*Door
	ids    Identities
	world  World
	rent   RentConfig
	log    *zap.Logger
}

func NewRegistry(ids Identities, w World, log *zap.Logger) *Registry {
	return &Registry{
		houses: make(map[uint32]*House),
		doorAt: make(map[data.Position]*Door),
		ids:    ids,
		world:  w,
		log:    log,
	}
}

// Create returns the house with id, making an unowned one if needed.
func (r *Registry) Create(id uint32) *House {
	if h, ok := r.houses[id]; ok {
		return h
	}
	h := newHouse(id, r.ids, r.world, r.log)
	r.houses[id] = h
	return h
}

func (r *Registry) Get(id uint32) *House { return r.houses[id] }

// DoorAt returns the house door standing on pos, if any.
func (r *Registry) DoorAt(pos data.Position) *Door { return r.doorAt[pos] }

func (r *Registry) Count() int { return len(r.houses) }

// Each visits houses in ascending id order.
func (r *Registry) Each(fn func(*House)) {
	ids := make([]uint32, 0, len(r.houses))
	for id := range r.houses {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		fn(r.houses[id])
	}
}

// ApplyConfig overlays configured attributes onto houses that already exist
// on the map. An entry for an unknown house is an error.
func (r *Registry) ApplyConfig(entries []data.HouseEntry) error {
	for _, e := range entries {
		if e.HouseID == nil {
			return errors.New("house config: missing house id")
		}
		h := r.houses[*e.HouseID]
		if h == nil {
			return fmt.Errorf("house config: unknown house %d", *e.HouseID)
		}
		if e.Name != nil {
			h.name = *e.Name
		}
		if e.EntryX != nil {
			h.entry.X = *e.EntryX
		}
		if e.EntryY != nil {
			h.entry.Y = *e.EntryY
		}
		if e.EntryZ != nil {
			h.entry.Z = *e.EntryZ
		}
		if e.Rent != nil {
			h.rent = *e.Rent
		}
		if e.TownID != nil {
			h.townID = *e.TownID
		}
		h.describeDoors(h.ownerName())
	}
	return nil
}

// Restore loads saved ownership and lists. Rows for houses no longer on the
// map are skipped.
func (r *Registry) Restore(rows []persist.HouseRow) int {
	n := 0
	for _, row := range rows {
		h := r.houses[uint32(row.HouseID)]
		if h == nil {
			r.log.Warn("saved house not on map", zap.Int32("house", row.HouseID))
			continue
		}
		h.restore(row)
		n++
	}
	return n
}

// Dirty returns houses with unsaved changes, in id order.
func (r *Registry) Dirty() []*House {
	var out []*House
	r.Each(func(h *House) {
		if h.dirty {
			out = append(out, h)
		}
	})
	return out
}

func (r *Registry) ConfigureRent(cfg RentConfig) { r.rent = cfg }

// CollectRent charges every owned house whose paid period ended before now.
// A house that cannot be paid for keeps its owner; OnUnpaid is told why.
// Returns the number of houses paid.
func (r *Registry) CollectRent(ctx context.Context, now int64) int {
	if r.rent.Ledger == nil || r.rent.Towns == nil {
		return 0
	}
	paid := 0
	r.Each(func(h *House) {
		if ctx.Err() != nil {
			return
		}
		if h.owner == 0 || h.rent == 0 || h.paidUntil >= now {
			return
		}
		if r.collect(ctx, h, now) {
			paid++
		}
	})
	return paid
}

func (r *Registry) collect(ctx context.Context, h *House, now int64) bool {
	town := r.rent.Towns.Get(h.townID)
	if town == nil {
		h.log.Warn("rent: unknown town", zap.Uint32("town", h.townID))
		return false
	}
	name, ok := r.ids.NameByGUID(h.owner)
	if !ok {
		r.unpaid(h, UnpaidNoOwner)
		return false
	}
	row, err := r.rent.Ledger.LoadPlayer(ctx, name)
	if err != nil {
		h.log.Error("rent: load owner", zap.String("owner", name), zap.Error(err))
		return false
	}
	if row == nil {
		r.unpaid(h, UnpaidNoOwner)
		return false
	}

	amount := h.rent
	if r.rent.Modifier != nil {
		amount = r.rent.Modifier(h.id, h.rent)
	}
	if amount == 0 {
		h.SetPaidUntil(now + r.rent.Period)
		return true
	}

	done := false
	err = r.rent.Ledger.DebitGold(ctx, row.ID, int32(town.ID), int64(amount), int32(h.id))
	switch {
	case errors.Is(err, persist.ErrInsufficientGold):
		r.unpaid(h, UnpaidNoFunds)
	case err != nil:
		h.log.Error("rent: debit", zap.String("owner", name), zap.Error(err))
	default:
		h.SetPaidUntil(now + r.rent.Period)
		h.log.Info("rent paid",
			zap.String("owner", name),
			zap.Uint32("amount", amount),
			zap.Int64("paid_until", h.paidUntil),
		)
		done = true
	}

	if err := r.rent.Ledger.SavePlayer(ctx, row); err != nil {
		h.log.Error("rent: save owner", zap.String("owner", name), zap.Error(err))
	}
	return done
}

func (r *Registry) unpaid(h *House, reason string) {
	h.log.Info("rent not paid", zap.String("reason", reason))
	if r.rent.OnUnpaid != nil {
		r.rent.OnUnpaid(h, reason)
	}
}

// LoadMap creates the house tiles and door items listed in entries and
// registers a house for each. Door items must exist in items.
func (r *Registry) LoadMap(st *world.State, items *data.ItemTable, entries []data.HouseMapEntry) error {
	for _, e := range entries {
		h := r.Create(e.HouseID)
		for _, pos := range e.Tiles {
			id := st.Map.EnsureTile(pos)
			h.AddTile(id, st.Graph.Tile(id))
		}
		for _, ds := range e.Doors {
			t := items.Get(ds.ItemID)
			if t == nil {
				return fmt.Errorf("house %d door %d: unknown item %d", e.HouseID, ds.DoorID, ds.ItemID)
			}
			tile := st.Map.EnsureTile(ds.Pos)
			thing := st.Graph.NewItem(t, 1)
			if err := st.Graph.Attach(tile, thing); err != nil {
				return fmt.Errorf("house %d door %d: %w", e.HouseID, ds.DoorID, err)
			}
			d := NewDoor(thing, st.Graph.Item(thing), ds.DoorID, ds.Pos)
			if h.AddDoor(d) {
				r.doorAt[ds.Pos] = d
			}
		}
		h.describeDoors(h.ownerName())
	}
	return nil
}
