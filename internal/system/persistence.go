package system

import (
	"context"
	"time"

	"go.uber.org/zap"

	coresys "github.com/otgo/server/internal/core/system"
	"github.com/otgo/server/internal/house"
	"github.com/otgo/server/internal/persist"
)

// HouseStore persists house snapshots.
type HouseStore interface {
	Save(ctx context.Context, h persist.HouseRow) error
}

// PersistenceSystem periodically saves houses whose owner, lists or rent
// state changed. Phase 5 (Persist).
type PersistenceSystem struct {
	houses *house.Registry
	store  HouseStore
	every  coresys.Every
	log    *zap.Logger
}

func NewPersistenceSystem(houses *house.Registry, store HouseStore, interval time.Duration, log *zap.Logger) *PersistenceSystem {
	return &PersistenceSystem{
		houses: houses,
		store:  store,
		every:  coresys.NewEvery(interval),
		log:    log,
	}
}

func (s *PersistenceSystem) Phase() coresys.Phase { return coresys.PhasePersist }

func (s *PersistenceSystem) Update(dt time.Duration) {
	if !s.every.Step(dt) {
		return
	}
	s.save(s.houses.Dirty())
}

// SaveAll persists every house regardless of dirty flags.
// Called for graceful shutdown.
func (s *PersistenceSystem) SaveAll() int {
	var all []*house.House
	s.houses.Each(func(h *house.House) { all = append(all, h) })
	return s.save(all)
}

// save writes each house and clears its dirty flag on success. A failed
// house stays dirty and is retried next interval.
func (s *PersistenceSystem) save(hs []*house.House) int {
	saved := 0
	for _, h := range hs {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := s.store.Save(ctx, h.Snapshot())
		cancel()
		if err != nil {
			s.log.Error("save house failed", zap.Uint32("house", h.ID()), zap.Error(err))
			continue
		}
		h.ClearDirty()
		saved++
	}
	if saved > 0 {
		s.log.Debug("houses saved", zap.Int("count", saved))
	}
	return saved
}
