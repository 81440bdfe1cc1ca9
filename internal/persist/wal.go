package persist

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// WAL transaction types.
const (
	WALRent    = "rent"
	WALDeposit = "deposit"
)

// WALEntry represents one economic write-ahead log entry.
type WALEntry struct {
	TxType     string
	FromPlayer int32
	HouseID    int32
	Amount     int64
}

type WALRepo struct {
	db *DB
}

func NewWALRepo(db *DB) *WALRepo {
	return &WALRepo{db: db}
}

func insertWAL(ctx context.Context, tx pgx.Tx, e WALEntry) error {
	if _, err := tx.Exec(ctx,
		`INSERT INTO economic_wal (tx_type, from_player, house_id, amount)
		 VALUES ($1, $2, $3, $4)`,
		e.TxType, e.FromPlayer, e.HouseID, e.Amount,
	); err != nil {
		return fmt.Errorf("wal insert: %w", err)
	}
	return nil
}

// WriteWAL atomically writes a batch of WAL entries in a single transaction.
func (r *WALRepo) WriteWAL(ctx context.Context, entries []WALEntry) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("wal begin: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, e := range entries {
		if err := insertWAL(ctx, tx, e); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// Unprocessed counts entries not yet marked processed.
func (r *WALRepo) Unprocessed(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM economic_wal WHERE processed = FALSE`,
	).Scan(&n)
	return n, err
}

// MarkProcessed marks all WAL entries as processed (called during batch flush).
func (r *WALRepo) MarkProcessed(ctx context.Context) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE economic_wal SET processed = TRUE WHERE processed = FALSE`,
	)
	return err
}
