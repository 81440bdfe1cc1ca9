package persist

import "context"

// Ledger bundles the repos rent collection needs.
type Ledger struct {
	Players *PlayerRepo
	Depots  *DepotRepo
}

func (l Ledger) LoadPlayer(ctx context.Context, name string) (*PlayerRow, error) {
	return l.Players.Load(ctx, name)
}

func (l Ledger) SavePlayer(ctx context.Context, row *PlayerRow) error {
	return l.Players.Save(ctx, row)
}

func (l Ledger) DebitGold(ctx context.Context, playerID, townID int32, amount int64, houseID int32) error {
	return l.Depots.DebitGold(ctx, playerID, townID, amount, houseID)
}
