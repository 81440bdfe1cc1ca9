// otadmin seeds and inspects the game database.
//
// Usage:
//
//	go run ./cmd/otadmin <command> [flags]
//
// Commands: account, player, guild, deposit, depot, houses, wal
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/otgo/server/internal/config"
	"github.com/otgo/server/internal/persist"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	cmd, args := os.Args[1], os.Args[2:]

	cfg, err := config.Load(config.Path())
	if err != nil {
		fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	db, err := persist.NewDB(ctx, cfg.Database, zap.NewNop())
	if err != nil {
		fatal(err)
	}
	defer db.Close()
	if err := persist.RunMigrations(ctx, db.Pool, zap.NewNop()); err != nil {
		fatal(err)
	}

	switch cmd {
	case "account":
		err = createAccount(ctx, db, args)
	case "player":
		err = createPlayer(ctx, db, args)
	case "guild":
		err = createGuild(ctx, db, args)
	case "deposit":
		err = deposit(ctx, db, args)
	case "depot":
		err = showDepot(ctx, db, args)
	case "houses":
		err = listHouses(ctx, db)
	case "wal":
		err = ackWAL(ctx, db, args)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fatal(err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: otadmin <account|player|guild|deposit|depot|houses|wal> [flags]")
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "otadmin: %v\n", err)
	os.Exit(1)
}

func createAccount(ctx context.Context, db *persist.DB, args []string) error {
	fs := flag.NewFlagSet("account", flag.ExitOnError)
	id := fs.Int("id", 0, "account number")
	password := fs.String("password", "", "plain password")
	fs.Parse(args)
	if *id <= 0 || *password == "" {
		return fmt.Errorf("account: -id and -password are required")
	}
	row, err := persist.NewAccountRepo(db).Create(ctx, int32(*id), *password)
	if err != nil {
		return err
	}
	fmt.Printf("account %d created at %s\n", row.ID, row.CreatedAt.Format(time.RFC3339))
	return nil
}

func createPlayer(ctx context.Context, db *persist.DB, args []string) error {
	fs := flag.NewFlagSet("player", flag.ExitOnError)
	account := fs.Int("account", 0, "owning account number")
	name := fs.String("name", "", "character name")
	town := fs.Int("town", 1, "home town id")
	x := fs.Int("x", 0, "spawn x")
	y := fs.Int("y", 0, "spawn y")
	z := fs.Int("z", 7, "spawn floor")
	guild := fs.Int("guild", 0, "guild id")
	access := fs.Int("access", 0, "access level, 3 for admin")
	fs.Parse(args)
	if *account <= 0 || *name == "" {
		return fmt.Errorf("player: -account and -name are required")
	}
	row := &persist.PlayerRow{
		AccountID: int32(*account),
		Name:      *name,
		GuildID:   int32(*guild),
		Access:    int16(*access),
		TownID:    int32(*town),
		X:         int32(*x),
		Y:         int32(*y),
		Z:         int16(*z),
		Direction: 2,
		LookType:  128,
		Health:    150,
		MaxHealth: 150,
		Speed:     220,
	}
	if err := persist.NewPlayerRepo(db).Create(ctx, row); err != nil {
		return err
	}
	fmt.Printf("player %q created with id %d\n", row.Name, row.ID)
	return nil
}

func createGuild(ctx context.Context, db *persist.DB, args []string) error {
	fs := flag.NewFlagSet("guild", flag.ExitOnError)
	name := fs.String("name", "", "guild name")
	fs.Parse(args)
	if *name == "" {
		return fmt.Errorf("guild: -name is required")
	}
	id, err := persist.NewGuildRepo(db).Create(ctx, *name)
	if err != nil {
		return err
	}
	fmt.Printf("guild %q created with id %d\n", *name, id)
	return nil
}

// deposit puts gold into a town depot and records it in the economic log.
func deposit(ctx context.Context, db *persist.DB, args []string) error {
	fs := flag.NewFlagSet("deposit", flag.ExitOnError)
	player := fs.Int("player", 0, "player id")
	town := fs.Int("town", 1, "town id")
	amount := fs.Int64("amount", 0, "gold coins")
	fs.Parse(args)
	if *player <= 0 || *amount <= 0 {
		return fmt.Errorf("deposit: -player and a positive -amount are required")
	}
	if err := persist.NewDepotRepo(db).Deposit(ctx, int32(*player), int32(*town), persist.GoldCoinID, *amount); err != nil {
		return err
	}
	return persist.NewWALRepo(db).WriteWAL(ctx, []persist.WALEntry{{
		TxType:     persist.WALDeposit,
		FromPlayer: int32(*player),
		Amount:     *amount,
	}})
}

func showDepot(ctx context.Context, db *persist.DB, args []string) error {
	fs := flag.NewFlagSet("depot", flag.ExitOnError)
	player := fs.Int("player", 0, "player id")
	town := fs.Int("town", 1, "town id")
	fs.Parse(args)
	items, err := persist.NewDepotRepo(db).Load(ctx, int32(*player), int32(*town))
	if err != nil {
		return err
	}
	for _, it := range items {
		fmt.Printf("item %-6d x%d\n", it.ItemID, it.Count)
	}
	return nil
}

func listHouses(ctx context.Context, db *persist.DB) error {
	rows, err := persist.NewHouseRepo(db).LoadAll(ctx)
	if err != nil {
		return err
	}
	for _, h := range rows {
		paid := "-"
		if h.PaidUntil > 0 {
			paid = time.Unix(h.PaidUntil, 0).Format(time.RFC3339)
		}
		fmt.Printf("house %-5d owner %-6d paid until %s doors %d\n", h.HouseID, h.Owner, paid, len(h.Doors))
	}
	return nil
}

// ackWAL reports unprocessed economic log entries and, with -ack, marks them processed.
func ackWAL(ctx context.Context, db *persist.DB, args []string) error {
	fs := flag.NewFlagSet("wal", flag.ExitOnError)
	ack := fs.Bool("ack", false, "mark all entries processed")
	fs.Parse(args)
	repo := persist.NewWALRepo(db)
	n, err := repo.Unprocessed(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("%d unprocessed entries\n", n)
	if *ack && n > 0 {
		return repo.MarkProcessed(ctx)
	}
	return nil
}
