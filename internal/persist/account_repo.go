package persist

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"
)

type AccountRow struct {
	ID           int32
	PasswordHash string
	PremiumDays  int32
	CreatedAt    time.Time
}

type AccountRepo struct {
	db *DB
}

func NewAccountRepo(db *DB) *AccountRepo {
	return &AccountRepo{db: db}
}

func (r *AccountRepo) Load(ctx context.Context, id int32) (*AccountRow, error) {
	row := &AccountRow{}
	err := r.db.Pool.QueryRow(ctx,
		`SELECT id, password_hash, premium_days, created_at
		 FROM accounts WHERE id = $1`, id,
	).Scan(&row.ID, &row.PasswordHash, &row.PremiumDays, &row.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return row, nil
}

func (r *AccountRepo) Create(ctx context.Context, id int32, rawPassword string) (*AccountRow, error) {
	hash, err := HashPassword(rawPassword)
	if err != nil {
		return nil, err
	}
	row := &AccountRow{ID: id, PasswordHash: hash}
	err = r.db.Pool.QueryRow(ctx,
		`INSERT INTO accounts (id, password_hash) VALUES ($1, $2) RETURNING created_at`,
		row.ID, row.PasswordHash,
	).Scan(&row.CreatedAt)
	if err != nil {
		return nil, err
	}
	return row, nil
}

func HashPassword(raw string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (r *AccountRepo) ValidatePassword(hash string, rawPassword string) bool {
	return ValidatePassword(hash, rawPassword)
}

func ValidatePassword(hash, rawPassword string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(rawPassword)) == nil
}
