package handler

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/otgo/server/internal/data"
	"github.com/otgo/server/internal/net"
	"github.com/otgo/server/internal/net/packet"
	"github.com/otgo/server/internal/persist"
	"github.com/otgo/server/internal/world"
)

// MinClientVersion is the oldest protocol version accepted at login.
const MinClientVersion = 760

// serverBeat is the client's movement beat advertised in S_SELF_APPEAR.
const serverBeat = 0x32

// HandleLogin processes the first message of a connection. The session has
// already taken the XTEA key from the RSA block.
// Layout: [H os][H version][C 0][D key x4][C gm][D account][S name][S password]
func HandleLogin(sess *net.Session, m *packet.NetworkMessage, deps *Deps) {
	m.GetU16() // client os
	version := m.GetU16()
	m.SkipBytes(1 + 16)
	m.GetByte() // gm client
	accountID := int32(m.GetU32())
	name := m.GetString()
	password := m.GetString()

	if version < MinClientVersion {
		loginError(sess, "Only clients with protocol 7.6 or newer are allowed.")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	account, err := deps.Accounts.Load(ctx, accountID)
	if err != nil {
		deps.Log.Error("load account", zap.Int32("account", accountID), zap.Error(err))
		loginError(sess, "Internal error, please try again later.")
		return
	}
	if account == nil || !persist.ValidatePassword(account.PasswordHash, password) {
		loginError(sess, "Account number or password is not correct.")
		return
	}

	row, err := deps.Players.LoadByAccount(ctx, accountID, name)
	if err != nil {
		deps.Log.Error("load player", zap.String("name", name), zap.Error(err))
		loginError(sess, "Internal error, please try again later.")
		return
	}
	if row == nil {
		loginError(sess, "Character could not be loaded.")
		return
	}
	if deps.World.GetByName(row.Name) != nil {
		loginError(sess, "You are already logged in.")
		return
	}

	p, err := spawnPlayer(sess, account.ID, row, deps)
	if err != nil {
		deps.Log.Warn("place player", zap.String("name", row.Name), zap.Error(err))
		loginError(sess, "There is no free place for your character.")
		return
	}
	sess.SetState(packet.StateInWorld)
	if err := deps.Players.TouchLogin(ctx, row.ID); err != nil {
		deps.Log.Warn("touch login", zap.String("name", row.Name), zap.Error(err))
	}

	sendSelfAppear(p)
	sendMapDescription(deps.World, p)
	sendText(p, packet.MsgLogin, deps.Config.Server.MOTD)

	pos, _ := deps.World.Graph.PositionOf(p.Thing)
	for _, viewer := range deps.World.Spectators(pos) {
		if viewer != p {
			sendAddCreature(viewer, pos, p.Creature)
		}
	}

	deps.Log.Info("player logged in",
		zap.Uint64("session", sess.ID),
		zap.String("name", row.Name),
		zap.String("ip", sess.IP),
		zap.Stringer("pos", pos),
	)
}

// spawnPlayer creates the creature for row and places it at the saved
// position, or at the town temple when that tile does not exist.
func spawnPlayer(sess *net.Session, accountID int32, row *persist.PlayerRow, deps *Deps) (*world.Player, error) {
	st := deps.World
	c := world.NewCreature(row.Name, uint32(row.ID), uint32(row.GuildID), uint8(row.Access))
	c.Health = row.Health
	c.MaxHealth = row.MaxHealth
	c.Direction = uint8(row.Direction)
	c.Speed = uint16(row.Speed)
	c.Outfit = packet.Outfit{
		LookType: uint16(row.LookType),
		Head:     uint8(row.Head),
		Body:     uint8(row.Body),
		Legs:     uint8(row.Legs),
		Feet:     uint8(row.Feet),
	}

	thing := st.Graph.NewCreature(c)
	p := world.NewPlayer(sess.ID, sess, thing, c)
	p.AccountID = accountID
	p.TownID = uint32(row.TownID)

	pos := data.Position{X: uint16(row.X), Y: uint16(row.Y), Z: uint8(row.Z)}
	err := st.AddPlayer(p, pos)
	if errors.Is(err, world.ErrNoTile) {
		if town := deps.Towns.Get(p.TownID); town != nil {
			err = st.AddPlayer(p, town.Temple)
		}
	}
	if err != nil {
		// Unplaced and unreferenced: one retain/release pair destroys it.
		st.Graph.Retain(thing)
		st.Graph.Release(thing)
		return nil, err
	}
	return p, nil
}

func sendSelfAppear(p *world.Player) {
	m := packet.NewMessage()
	m.AddByte(packet.S_SELF_APPEAR)
	m.AddU32(p.Creature.ID())
	m.AddU16(serverBeat)
	m.AddByte(0) // can report bugs
	p.Session.Send(m)
}

func loginError(sess *net.Session, reason string) {
	m := packet.NewMessage()
	m.AddByte(packet.S_LOGIN_ERROR)
	m.AddString(reason)
	sess.Send(m)
	sess.Disconnect()
}

// PlayerRow captures the saveable state of an online player.
func PlayerRow(st *world.State, p *world.Player) *persist.PlayerRow {
	c := p.Creature
	row := &persist.PlayerRow{
		ID:        int32(c.GUID()),
		AccountID: p.AccountID,
		Name:      c.Name(),
		GuildID:   int32(c.GuildID()),
		Access:    int16(c.Access()),
		TownID:    int32(p.TownID),
		Direction: int16(c.Direction),
		LookType:  int16(c.Outfit.LookType),
		Head:      int16(c.Outfit.Head),
		Body:      int16(c.Outfit.Body),
		Legs:      int16(c.Outfit.Legs),
		Feet:      int16(c.Outfit.Feet),
		Health:    c.Health,
		MaxHealth: c.MaxHealth,
		Speed:     int32(c.Speed),
	}
	if pos, ok := st.Graph.PositionOf(p.Thing); ok {
		row.X, row.Y, row.Z = int32(pos.X), int32(pos.Y), int16(pos.Z)
	}
	now := time.Now()
	row.LastLogin = &now
	return row
}
