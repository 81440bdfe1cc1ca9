package system

import (
	"context"
	"time"

	"go.uber.org/zap"

	coresys "github.com/otgo/server/internal/core/system"
	"github.com/otgo/server/internal/house"
)

// RentSystem charges house rent on a fixed interval. Phase 2 (Update).
type RentSystem struct {
	houses *house.Registry
	every  coresys.Every
	now    func() time.Time
	log    *zap.Logger
}

func NewRentSystem(houses *house.Registry, interval time.Duration, log *zap.Logger) *RentSystem {
	return &RentSystem{
		houses: houses,
		every:  coresys.NewEvery(interval),
		now:    time.Now,
		log:    log,
	}
}

func (s *RentSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (s *RentSystem) Update(dt time.Duration) {
	if !s.every.Step(dt) {
		return
	}
	s.Collect()
}

// Collect runs one rent pass immediately.
func (s *RentSystem) Collect() int {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	paid := s.houses.CollectRent(ctx, s.now().Unix())
	if paid > 0 {
		s.log.Info("rent collected", zap.Int("houses", paid))
	}
	return paid
}
