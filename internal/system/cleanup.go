package system

import (
	"time"

	coresys "github.com/otgo/server/internal/core/system"
	"github.com/otgo/server/internal/world"
)

// CleanupSystem destroys things whose last holder let go this tick.
// Phase 6 (Cleanup).
type CleanupSystem struct {
	graph *world.Graph
}

func NewCleanupSystem(g *world.Graph) *CleanupSystem {
	return &CleanupSystem{graph: g}
}

func (s *CleanupSystem) Phase() coresys.Phase { return coresys.PhaseCleanup }

func (s *CleanupSystem) Update(_ time.Duration) {
	s.graph.FlushDestroyQueue()
}
