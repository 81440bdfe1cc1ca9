package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/otgo/server/internal/config"
	"github.com/otgo/server/internal/core/event"
	coresys "github.com/otgo/server/internal/core/system"
	"github.com/otgo/server/internal/data"
	"github.com/otgo/server/internal/handler"
	"github.com/otgo/server/internal/house"
	gonet "github.com/otgo/server/internal/net"
	"github.com/otgo/server/internal/net/packet"
	"github.com/otgo/server/internal/persist"
	"github.com/otgo/server/internal/scripting"
	"github.com/otgo/server/internal/system"
	"github.com/otgo/server/internal/world"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner(serverName, worldName string) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m               OTGo  v0.1.0                \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1mServer:\033[0m %s \033[90m(world: %s)\033[0m\n\n", serverName, worldName)
}

func printSection(title string) {
	lineLen := 46 - len(title) - 1
	if lineLen < 3 {
		lineLen = 3
	}
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	dotsLen := 42 - len(label) - len(numStr)
	if dotsLen < 3 {
		dotsLen = 3
	}
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Main server logic ─────────────────────────────────────────────

func run() error {
	// 1. Load config
	cfg, err := config.Load(config.Path())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	printBanner(cfg.Server.Name, cfg.Server.WorldName)

	rsaKey, err := gonet.LoadRSAKey(cfg.Crypto.RSAKeyPath)
	if err != nil {
		return fmt.Errorf("rsa key: %w", err)
	}

	// 3. Connect to PostgreSQL and run migrations
	printSection("Database")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := persist.NewDB(ctx, cfg.Database, log)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer db.Close()
	printOK("PostgreSQL connected")

	if err := persist.RunMigrations(ctx, db.Pool, log); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	printOK("Migrations applied")

	accountRepo := persist.NewAccountRepo(db)
	playerRepo := persist.NewPlayerRepo(db)
	guildRepo := persist.NewGuildRepo(db)
	depotRepo := persist.NewDepotRepo(db)
	houseRepo := persist.NewHouseRepo(db)
	walRepo := persist.NewWALRepo(db)

	pending, err := walRepo.Unprocessed(ctx)
	if err != nil {
		return fmt.Errorf("wal: %w", err)
	}
	printStat("Unprocessed ledger entries", int(pending))
	fmt.Println()

	// 4. Static data
	printSection("Data")

	items, err := data.LoadItemTable(cfg.Data.Items)
	if err != nil {
		return fmt.Errorf("load items: %w", err)
	}
	printStat("Item types", items.Count())

	towns, err := data.LoadTownTable(cfg.Data.Towns)
	if err != nil {
		return fmt.Errorf("load towns: %w", err)
	}
	printStat("Towns", towns.Count())

	houseMap, err := data.LoadHouseMap(cfg.Data.HouseMap)
	if err != nil {
		return fmt.Errorf("load house map: %w", err)
	}
	houseCfg, err := data.LoadHouseConfig(cfg.Data.Houses)
	if err != nil {
		return fmt.Errorf("load house config: %w", err)
	}

	// 5. Name directory, world and houses
	dir, err := loadDirectory(ctx, playerRepo, guildRepo)
	if err != nil {
		return err
	}
	printStat("Known players", dir.PlayerCount())

	bus := event.NewBus()
	ws := world.NewState(dir, bus)

	areas, err := data.LoadMapAreas(cfg.Data.Map)
	if err != nil {
		return fmt.Errorf("load map: %w", err)
	}
	for _, a := range areas {
		ws.Map.FillArea(a)
	}

	houses := house.NewRegistry(dir, ws, log.Named("house"))
	if err := houses.LoadMap(ws, items, houseMap); err != nil {
		return fmt.Errorf("house map: %w", err)
	}
	if err := houses.ApplyConfig(houseCfg); err != nil {
		return err
	}
	rows, err := houseRepo.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("load houses: %w", err)
	}
	houses.Restore(rows)

	// Temples and house entries must be walkable or logins and kicks fail.
	towns.Each(func(t *data.Town) {
		if _, ok := ws.Map.TileAt(t.Temple); !ok {
			log.Warn("town temple has no tile", zap.String("town", t.Name), zap.Stringer("pos", t.Temple))
		}
	})
	houses.Each(func(h *house.House) {
		if _, ok := ws.Map.TileAt(h.Entry()); !ok {
			log.Warn("house entry has no tile", zap.Uint32("house", h.ID()), zap.Stringer("pos", h.Entry()))
		}
	})
	printStat("Houses", houses.Count())
	printStat("Map tiles", ws.Map.TileCount())

	// 6. Scripting
	engine, err := scripting.NewEngine(cfg.Data.ScriptsDir, log.Named("lua"))
	if err != nil {
		return fmt.Errorf("scripting: %w", err)
	}
	defer engine.Close()
	printOK("Lua scripts loaded")
	fmt.Println()

	houses.ConfigureRent(house.RentConfig{
		Ledger:   persist.Ledger{Players: playerRepo, Depots: depotRepo},
		Towns:    towns,
		Period:   int64(cfg.Houses.RentPeriod / time.Second),
		Modifier: engine.RentModifier,
		OnUnpaid: func(h *house.House, reason string) {
			engine.OnRentUnpaid(h.ID(), h.Owner(), reason)
		},
	})

	// 7. Packet handlers
	pktReg := packet.NewRegistry(log)
	deps := &handler.Deps{
		Accounts: accountRepo,
		Players:  playerRepo,
		Config:   cfg,
		Log:      log,
		World:    ws,
		Houses:   houses,
		Items:    items,
		Towns:    towns,
	}
	handler.RegisterAll(pktReg, deps)
	handler.Subscribe(bus, deps)

	// 8. Network server
	sessCfg := gonet.SessionConfig{
		InQueueSize:  cfg.Network.InQueueSize,
		OutQueueSize: cfg.Network.OutQueueSize,
		WriteTimeout: cfg.Network.WriteTimeout,
		ReadTimeout:  cfg.Network.ReadTimeout,
	}
	if cfg.RateLimit.Enabled {
		sessCfg.PktPerSec = cfg.RateLimit.PacketsPerSecond
	}
	netServer, err := gonet.NewServer(cfg.Network.BindAddress, rsaKey, sessCfg, log)
	if err != nil {
		return fmt.Errorf("net server: %w", err)
	}

	// 9. Systems
	store := gonet.NewSessionStore()
	persistSys := system.NewPersistenceSystem(houses, houseRepo, cfg.Houses.SaveInterval, log)
	runner := coresys.NewRunner()
	runner.Register(system.NewInputSystem(netServer, pktReg, store, cfg.Network.MaxPacketsPerTick, ws, playerRepo, log))
	runner.Register(system.NewEventSystem(bus))
	runner.Register(system.NewRentSystem(houses, cfg.Houses.RentInterval, log))
	runner.Register(system.NewOutputSystem(store))
	runner.Register(persistSys)
	runner.Register(system.NewCleanupSystem(ws.Graph))

	printSection("Ready")
	printReady(fmt.Sprintf("Listening on %s", netServer.Addr().String()))
	printReady(fmt.Sprintf("Game loop started (tick: %s)", cfg.Network.TickRate))
	fmt.Println()

	// 10. Run until signalled
	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(sigCtx)

	g.Go(func() error {
		return netServer.Serve(gctx)
	})
	g.Go(func() error {
		ticker := time.NewTicker(cfg.Network.TickRate)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				runner.Tick(cfg.Network.TickRate)
			case <-gctx.Done():
				log.Info("shutting down", zap.Error(context.Cause(gctx)))
				savePlayers(ws, playerRepo, log)
				n := persistSys.SaveAll()
				log.Info("houses saved", zap.Int("count", n))
				netServer.Shutdown()
				return nil
			}
		}
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("server stopped")
	return nil
}

// loadDirectory fills the name directory with every character and guild.
func loadDirectory(ctx context.Context, players *persist.PlayerRepo, guilds *persist.GuildRepo) (*world.Directory, error) {
	dir := world.NewDirectory()
	names, err := players.LoadNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("load player names: %w", err)
	}
	for _, n := range names {
		dir.AddPlayer(uint32(n.ID), n.Name)
	}
	gs, err := guilds.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load guilds: %w", err)
	}
	for _, g := range gs {
		dir.AddGuild(uint32(g.ID), g.Name)
	}
	return dir, nil
}

// savePlayers persists every online player. Used at shutdown.
func savePlayers(ws *world.State, repo *persist.PlayerRepo, log *zap.Logger) {
	ws.AllPlayers(func(p *world.Player) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		row := handler.PlayerRow(ws, p)
		if err := repo.Save(ctx, row); err != nil {
			log.Error("save player failed", zap.String("name", row.Name), zap.Error(err))
		}
	})
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
