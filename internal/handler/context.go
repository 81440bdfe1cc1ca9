package handler

import (
	"context"

	"go.uber.org/zap"

	"github.com/otgo/server/internal/config"
	"github.com/otgo/server/internal/data"
	"github.com/otgo/server/internal/house"
	"github.com/otgo/server/internal/net"
	"github.com/otgo/server/internal/net/packet"
	"github.com/otgo/server/internal/persist"
	"github.com/otgo/server/internal/world"
)

// AccountStore loads accounts for login.
type AccountStore interface {
	Load(ctx context.Context, id int32) (*persist.AccountRow, error)
}

// PlayerStore loads and saves characters.
type PlayerStore interface {
	LoadByAccount(ctx context.Context, accountID int32, name string) (*persist.PlayerRow, error)
	Save(ctx context.Context, row *persist.PlayerRow) error
	TouchLogin(ctx context.Context, id int32) error
}

// Deps holds shared dependencies injected into all packet handlers.
type Deps struct {
	Accounts AccountStore
	Players  PlayerStore
	Config   *config.Config
	Log      *zap.Logger
	World    *world.State
	Houses   *house.Registry
	Items    *data.ItemTable
	Towns    *data.TownTable
}

// RegisterAll registers all packet handlers into the registry.
func RegisterAll(reg *packet.Registry, deps *Deps) {
	reg.Register(packet.C_LOGIN,
		[]packet.SessionState{packet.StateHandshake},
		func(sess any, m *packet.NetworkMessage) {
			HandleLogin(sess.(*net.Session), m, deps)
		},
	)

	inWorld := []packet.SessionState{packet.StateInWorld}

	reg.Register(packet.C_LOGOUT, inWorld,
		func(sess any, m *packet.NetworkMessage) {
			HandleLogout(sess.(*net.Session), m, deps)
		},
	)
	reg.Register(packet.C_PING, inWorld,
		func(sess any, m *packet.NetworkMessage) {
			HandlePing(sess.(*net.Session), m, deps)
		},
	)
	reg.Register(packet.C_SAY, inWorld,
		func(sess any, m *packet.NetworkMessage) {
			HandleSay(sess.(*net.Session), m, deps)
		},
	)
	reg.Register(packet.C_HOUSE_WINDOW, inWorld,
		func(sess any, m *packet.NetworkMessage) {
			HandleHouseWindow(sess.(*net.Session), m, deps)
		},
	)
	reg.Register(packet.C_USE_ITEM, inWorld,
		func(sess any, m *packet.NetworkMessage) {
			HandleUseItem(sess.(*net.Session), m, deps)
		},
	)
}
