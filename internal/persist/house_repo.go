package persist

import (
	"context"
	"fmt"
)

type HouseDoorRow struct {
	DoorID     int16
	AccessList string
}

// HouseRow is the saved state of one house. Static attributes (name, rent,
// tiles) come from the data files and are not stored.
type HouseRow struct {
	HouseID      int32
	Owner        int32
	PaidUntil    int64
	GuestList    string
	SubOwnerList string
	Doors        []HouseDoorRow
}

type HouseRepo struct {
	db *DB
}

func NewHouseRepo(db *DB) *HouseRepo {
	return &HouseRepo{db: db}
}

func (r *HouseRepo) LoadAll(ctx context.Context) ([]HouseRow, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT house_id, owner, paid_until, guest_list, subowner_list
		 FROM houses ORDER BY house_id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []HouseRow
	index := make(map[int32]int)
	for rows.Next() {
		var h HouseRow
		if err := rows.Scan(&h.HouseID, &h.Owner, &h.PaidUntil, &h.GuestList, &h.SubOwnerList); err != nil {
			return nil, err
		}
		index[h.HouseID] = len(result)
		result = append(result, h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	doors, err := r.db.Pool.Query(ctx,
		`SELECT house_id, door_id, access_list FROM house_doors ORDER BY house_id, door_id`,
	)
	if err != nil {
		return nil, err
	}
	defer doors.Close()
	for doors.Next() {
		var houseID int32
		var d HouseDoorRow
		if err := doors.Scan(&houseID, &d.DoorID, &d.AccessList); err != nil {
			return nil, err
		}
		if i, ok := index[houseID]; ok {
			result[i].Doors = append(result[i].Doors, d)
		}
	}
	return result, doors.Err()
}

// Save upserts the house and replaces its door lists.
func (r *HouseRepo) Save(ctx context.Context, h HouseRow) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("house begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`INSERT INTO houses (house_id, owner, paid_until, guest_list, subowner_list)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (house_id) DO UPDATE SET
			owner = EXCLUDED.owner, paid_until = EXCLUDED.paid_until,
			guest_list = EXCLUDED.guest_list, subowner_list = EXCLUDED.subowner_list`,
		h.HouseID, h.Owner, h.PaidUntil, h.GuestList, h.SubOwnerList,
	); err != nil {
		return fmt.Errorf("house upsert: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM house_doors WHERE house_id = $1`, h.HouseID); err != nil {
		return fmt.Errorf("house doors clear: %w", err)
	}
	for _, d := range h.Doors {
		if _, err := tx.Exec(ctx,
			`INSERT INTO house_doors (house_id, door_id, access_list) VALUES ($1, $2, $3)`,
			h.HouseID, d.DoorID, d.AccessList,
		); err != nil {
			return fmt.Errorf("house door insert: %w", err)
		}
	}
	return tx.Commit(ctx)
}
