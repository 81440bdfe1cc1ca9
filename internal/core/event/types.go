package event

import (
	"github.com/otgo/server/internal/core/ecs"
	"github.com/otgo/server/internal/data"
)

// CreatureRelocated is emitted when a creature is moved between tiles
// without walking (teleport, house kick).
type CreatureRelocated struct {
	Creature     ecs.EntityID
	CreatureID   uint32
	From         data.Position
	FromStackPos uint8
	To           data.Position
}

// MagicEffectShown is emitted when an effect animation plays on a tile.
type MagicEffectShown struct {
	Pos    data.Position
	Effect uint8
}
