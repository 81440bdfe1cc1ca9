package persist

import "context"

type GuildRow struct {
	ID   int32
	Name string
}

type GuildRepo struct {
	db *DB
}

func NewGuildRepo(db *DB) *GuildRepo {
	return &GuildRepo{db: db}
}

func (r *GuildRepo) LoadAll(ctx context.Context) ([]GuildRow, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT id, name FROM guilds ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []GuildRow
	for rows.Next() {
		var g GuildRow
		if err := rows.Scan(&g.ID, &g.Name); err != nil {
			return nil, err
		}
		result = append(result, g)
	}
	return result, rows.Err()
}

func (r *GuildRepo) Create(ctx context.Context, name string) (int32, error) {
	var id int32
	err := r.db.Pool.QueryRow(ctx,
		`INSERT INTO guilds (name) VALUES ($1) RETURNING id`, name,
	).Scan(&id)
	return id, err
}
