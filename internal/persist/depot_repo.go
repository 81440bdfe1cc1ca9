package persist

import (
	"context"
	"errors"
	"fmt"
)

// GoldCoinID is the item id depots keep money under.
const GoldCoinID = 2148

var ErrInsufficientGold = errors.New("persist: insufficient gold in depot")

type DepotItem struct {
	PlayerID int32
	TownID   int32
	ItemID   int32
	Count    int64
}

type DepotRepo struct {
	db *DB
}

func NewDepotRepo(db *DB) *DepotRepo {
	return &DepotRepo{db: db}
}

// Load returns a player's depot contents in one town.
func (r *DepotRepo) Load(ctx context.Context, playerID, townID int32) ([]DepotItem, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT player_id, town_id, item_id, count
		 FROM depot_items WHERE player_id = $1 AND town_id = $2 ORDER BY item_id`,
		playerID, townID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []DepotItem
	for rows.Next() {
		var it DepotItem
		if err := rows.Scan(&it.PlayerID, &it.TownID, &it.ItemID, &it.Count); err != nil {
			return nil, err
		}
		result = append(result, it)
	}
	return result, rows.Err()
}

// Deposit adds count of an item, stacking onto what is already there.
func (r *DepotRepo) Deposit(ctx context.Context, playerID, townID, itemID int32, count int64) error {
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO depot_items (player_id, town_id, item_id, count)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (player_id, town_id, item_id) DO UPDATE SET count = depot_items.count + EXCLUDED.count`,
		playerID, townID, itemID, count,
	)
	return err
}

// DebitGold takes amount gold coins from a town depot and logs a rent entry
// in the same transaction. ErrInsufficientGold leaves the depot untouched.
func (r *DepotRepo) DebitGold(ctx context.Context, playerID, townID int32, amount int64, houseID int32) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("debit begin: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE depot_items SET count = count - $1
		 WHERE player_id = $2 AND town_id = $3 AND item_id = $4 AND count >= $1`,
		amount, playerID, townID, GoldCoinID,
	)
	if err != nil {
		return fmt.Errorf("debit gold: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrInsufficientGold
	}

	if err := insertWAL(ctx, tx, WALEntry{
		TxType:     WALRent,
		FromPlayer: playerID,
		HouseID:    houseID,
		Amount:     amount,
	}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
