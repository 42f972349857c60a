package main

import (
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"arena-server/internal/admin"
	"arena-server/internal/config"
	"arena-server/internal/game"
	"arena-server/internal/ratelimit"
	"arena-server/internal/server"
	"arena-server/internal/store"
)

func main() {
	appCfg := config.Load()

	port := appCfg.Server.Port
	if len(os.Args) > 1 {
		p, err := strconv.Atoi(os.Args[1])
		if err != nil || p <= 0 || p > 65535 {
			log.Printf("invalid port argument %q", os.Args[1])
			os.Exit(1)
		}
		port = p
	}

	log.Println("================================")
	log.Println(" ARENA SERVER")
	log.Println("================================")

	st, err := store.Open(appCfg.Store.Path)
	if err != nil {
		log.Printf("failed to open account store at %s: %v", appCfg.Store.Path, err)
		os.Exit(1)
	}
	defer st.Close()
	log.Printf("account store: %s", appCfg.Store.Path)

	worlds := builtinWorlds()
	log.Printf("loaded %d built-in arenas", len(worlds))

	instanceCfg := game.InstanceConfig{
		ProjectileTickMs:    appCfg.Instance.ProjectileTickMs,
		ItemSpawnIntervalMs: appCfg.Instance.ItemSpawnIntervalMs,
		TimeSyncIntervalS:   appCfg.Instance.TimeSyncIntervalS,
		RespawnDelayMs:      appCfg.Instance.RespawnDelayMs,
		DurationMin:         appCfg.Instance.DefaultDurationMin,
		ClientTimeoutMs:     appCfg.Instance.ClientTimeoutMs,
		HeartbeatIntervalMs: appCfg.Instance.HeartbeatIntervalMs,
		MoveRateLimitMs:     float64(appCfg.Instance.MoveRateLimitMs),
	}

	rlCfg := ratelimit.Config{
		ShortWindow:     appCfg.RateLimit.ShortWindow,
		ShortLimit:      appCfg.RateLimit.ReliableLimit,
		LongWindow:      appCfg.RateLimit.LongWindow,
		LongLimit:       appCfg.RateLimit.LongLimit,
		AuthBackoffBase: appCfg.RateLimit.AuthBackoffBase,
		AuthBackoffMax:  appCfg.RateLimit.AuthBackoffMax,
		StaleAfter:      appCfg.RateLimit.StaleAfter,
	}

	core := server.New(server.Config{
		Worlds:        worlds,
		Chars:         game.DefaultCharacterTable(),
		Defs:          game.DefaultProjectileTable(),
		InstanceCfg:   instanceCfg,
		RateLimit:     rlCfg,
		ConnPerMinute: appCfg.RateLimit.ConnectionsPerSourcePerMin,
		Logger:        log.Default(),
	}, st, log.Default())

	adminCfg := admin.Config{Enabled: appCfg.Admin.Enabled, ListenAddr: appCfg.Admin.ListenAddr}

	if err := core.Start(port, adminCfg); err != nil {
		log.Printf("failed to start server on port %d: %v", port, err)
		os.Exit(1)
	}
	defer core.Stop()

	log.Printf("listening on tcp/udp :%d", port)
	if adminCfg.Enabled {
		log.Printf("admin surface on %s", adminCfg.ListenAddr)
	}
	log.Println("server ready, press Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")
}

// builtinWorlds returns the small set of authored arenas shipped with the
// server. A file-based map loader is an external collaborator this
// in-process seam is ready to plug into; none exists yet.
func builtinWorlds() map[int]*game.World {
	var arenaSolid []game.Position
	for x := 0; x < 32; x++ {
		arenaSolid = append(arenaSolid, game.Position{X: x, Y: 0}, game.Position{X: x, Y: 31})
	}
	for y := 0; y < 32; y++ {
		arenaSolid = append(arenaSolid, game.Position{X: 0, Y: y}, game.Position{X: 31, Y: y})
	}
	arenaSpawns := []game.Position{
		{X: 4, Y: 4}, {X: 27, Y: 4}, {X: 4, Y: 27}, {X: 27, Y: 27},
		{X: 16, Y: 4}, {X: 16, Y: 27}, {X: 4, Y: 16}, {X: 27, Y: 16},
	}

	var crossSolid []game.Position
	for x := 0; x < 48; x++ {
		crossSolid = append(crossSolid, game.Position{X: x, Y: 0}, game.Position{X: x, Y: 47})
	}
	for y := 0; y < 48; y++ {
		crossSolid = append(crossSolid, game.Position{X: 0, Y: y}, game.Position{X: 47, Y: y})
	}
	crossSpawns := []game.Position{
		{X: 6, Y: 6}, {X: 41, Y: 6}, {X: 6, Y: 41}, {X: 41, Y: 41},
		{X: 23, Y: 6}, {X: 23, Y: 41}, {X: 6, Y: 23}, {X: 41, Y: 23},
		{X: 23, Y: 23}, {X: 14, Y: 14}, {X: 33, Y: 33}, {X: 14, Y: 33},
	}

	return map[int]*game.World{
		0: game.NewWorld("Proving Grounds", 32, 32, arenaSolid, arenaSpawns),
		1: game.NewWorld("Crossfire", 48, 48, crossSolid, crossSpawns),
	}
}
