package persist

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
)

type PlayerRow struct {
	ID        int32
	AccountID int32
	Name      string
	GuildID   int32
	Access    int16
	TownID    int32
	X         int32
	Y         int32
	Z         int16
	Direction int16
	LookType  int16
	Head      int16
	Body      int16
	Legs      int16
	Feet      int16
	Health    int32
	MaxHealth int32
	Speed     int32
	LastLogin *time.Time
}

// PlayerName is the identity part of a player row, used to fill the
// name directory at boot.
type PlayerName struct {
	ID   int32
	Name string
}

type PlayerRepo struct {
	db *DB
}

func NewPlayerRepo(db *DB) *PlayerRepo {
	return &PlayerRepo{db: db}
}

const playerColumns = `id, account_id, name, guild_id, access, town_id,
		        pos_x, pos_y, pos_z, direction,
		        look_type, head, body, legs, feet,
		        health, max_health, speed, last_login`

func scanPlayer(row pgx.Row) (*PlayerRow, error) {
	p := &PlayerRow{}
	err := row.Scan(
		&p.ID, &p.AccountID, &p.Name, &p.GuildID, &p.Access, &p.TownID,
		&p.X, &p.Y, &p.Z, &p.Direction,
		&p.LookType, &p.Head, &p.Body, &p.Legs, &p.Feet,
		&p.Health, &p.MaxHealth, &p.Speed, &p.LastLogin,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Load looks a player up by name, case-insensitively.
func (r *PlayerRepo) Load(ctx context.Context, name string) (*PlayerRow, error) {
	return scanPlayer(r.db.Pool.QueryRow(ctx,
		`SELECT `+playerColumns+` FROM players WHERE LOWER(name) = LOWER($1)`, name,
	))
}

func (r *PlayerRepo) LoadByAccount(ctx context.Context, accountID int32, name string) (*PlayerRow, error) {
	return scanPlayer(r.db.Pool.QueryRow(ctx,
		`SELECT `+playerColumns+` FROM players
		 WHERE account_id = $1 AND LOWER(name) = LOWER($2)`, accountID, name,
	))
}

// LoadNames returns every player's id and name.
func (r *PlayerRepo) LoadNames(ctx context.Context) ([]PlayerName, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT id, name FROM players ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []PlayerName
	for rows.Next() {
		var n PlayerName
		if err := rows.Scan(&n.ID, &n.Name); err != nil {
			return nil, err
		}
		result = append(result, n)
	}
	return result, rows.Err()
}

func (r *PlayerRepo) Create(ctx context.Context, p *PlayerRow) error {
	return r.db.Pool.QueryRow(ctx,
		`INSERT INTO players (
			account_id, name, guild_id, access, town_id,
			pos_x, pos_y, pos_z, direction,
			look_type, head, body, legs, feet,
			health, max_health, speed
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
		RETURNING id`,
		p.AccountID, p.Name, p.GuildID, p.Access, p.TownID,
		p.X, p.Y, p.Z, p.Direction,
		p.LookType, p.Head, p.Body, p.Legs, p.Feet,
		p.Health, p.MaxHealth, p.Speed,
	).Scan(&p.ID)
}

// Save updates all mutable player fields.
func (r *PlayerRepo) Save(ctx context.Context, p *PlayerRow) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE players SET
			guild_id = $1, access = $2, town_id = $3,
			pos_x = $4, pos_y = $5, pos_z = $6, direction = $7,
			look_type = $8, head = $9, body = $10, legs = $11, feet = $12,
			health = $13, max_health = $14, speed = $15, last_login = $16
		WHERE id = $17`,
		p.GuildID, p.Access, p.TownID,
		p.X, p.Y, p.Z, p.Direction,
		p.LookType, p.Head, p.Body, p.Legs, p.Feet,
		p.Health, p.MaxHealth, p.Speed, p.LastLogin,
		p.ID,
	)
	return err
}

func (r *PlayerRepo) TouchLogin(ctx context.Context, id int32) error {
	_, err := r.db.Pool.Exec(ctx, `UPDATE players SET last_login = NOW() WHERE id = $1`, id)
	return err
}
