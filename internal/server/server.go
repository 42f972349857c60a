// Package server is the top-level coordinator: it owns the transport
// endpoint, credential store, rate limiter, lobby manager, and ranked
// matchmaker, and routes incoming packets between global state and
// active game instances (§4.14).
package server

import (
	"context"
	"fmt"
	"log"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"arena-server/internal/admin"
	"arena-server/internal/game"
	"arena-server/internal/lobby"
	"arena-server/internal/matchmaker"
	"arena-server/internal/ratelimit"
	"arena-server/internal/store"
	"arena-server/internal/transport"
	"arena-server/internal/wire"
)

// Config aggregates everything the core needs at construction.
type Config struct {
	Worlds        map[int]*game.World
	Chars         *game.CharacterTable
	Defs          *game.ProjectileTable
	InstanceCfg   game.InstanceConfig
	RateLimit     ratelimit.Config
	ConnPerMinute float64
	Logger        *log.Logger
}

// Core is the server's top-level coordinator and transport.Dispatcher.
type Core struct {
	cfg    Config
	store  *store.Store
	limiter *ratelimit.Limiter
	connLimiter *ratelimit.ConnectionLimiter
	lobbies *lobby.Manager
	queue   *matchmaker.Queue
	endpoint *transport.Endpoint
	logger  *log.Logger

	identityByConn sync.Map // net.Conn -> game.PlayerID
	connByIdentity sync.Map // game.PlayerID -> net.Conn
	addrByIdentity sync.Map // game.PlayerID -> net.Addr
	nameByIdentity sync.Map // game.PlayerID -> string (username)

	seq atomic.Uint32
}

// New constructs a Core wired to a credential store. The lobby manager
// and matchmaker are constructed internally so their broadcasters can
// close over this Core.
func New(cfg Config, st *store.Store, logger *log.Logger) *Core {
	if logger == nil {
		logger = log.Default()
	}
	c := &Core{
		cfg:         cfg,
		store:       st,
		limiter:     ratelimit.New(cfg.RateLimit),
		connLimiter: ratelimit.NewConnectionLimiter(cfg.ConnPerMinute/60.0, 5),
		logger:      logger,
	}
	c.lobbies = lobby.NewManager(func(mapIdx int) bool {
		_, ok := cfg.Worlds[mapIdx]
		return ok
	}, c.globalBroadcaster(), logger, c.onLobbyStarted)
	c.queue = matchmaker.New(c.onMatchFormed, c.onQueueStatus, logger)
	return c
}

// Start launches the transport endpoint, matchmaker, and admin surface.
func (c *Core) Start(port int, adminCfg admin.Config) error {
	c.endpoint = transport.New(port, c, c.logger)
	if err := c.endpoint.Start(); err != nil {
		return err
	}
	c.queue.Start()

	adm := admin.New(adminCfg, c.snapshot)
	return adm.Start()
}

// Stop tears down the transport endpoint and background schedulers.
func (c *Core) Stop() {
	if c.endpoint != nil {
		c.endpoint.Stop()
	}
	c.queue.Stop()
	c.limiter.Stop()
}

func (c *Core) nextSeq() uint32 { return c.seq.Add(1) }

func (c *Core) snapshot() interface{} {
	return map[string]interface{}{
		"lobbies":    len(c.lobbies.List()),
		"queue_size": c.queue.Len(),
	}
}

// globalBroadcaster resolves Target{} to every identity with a known
// transport binding, for lobby-scoped messages where no instance
// registry exists yet.
func (c *Core) globalBroadcaster() game.Broadcaster {
	return broadcasterFunc(func(t game.Target, e game.OutboundEvent) {
		ids := t.IDs
		if len(ids) == 0 {
			c.identityByConn.Range(func(_, v any) bool {
				ids = append(ids, v.(game.PlayerID))
				return true
			})
		}
		c.deliver(ids, e)
	})
}

// instanceBroadcaster scopes Target{} resolution to one instance's own
// registry rather than every connected client.
func (c *Core) instanceBroadcaster(reg *game.PlayerRegistry) game.Broadcaster {
	return broadcasterFunc(func(t game.Target, e game.OutboundEvent) {
		ids := t.IDs
		if len(ids) == 0 {
			for _, p := range reg.GetAll() {
				ids = append(ids, p.ID)
			}
		}
		c.deliver(ids, e)
	})
}

type broadcasterFunc func(game.Target, game.OutboundEvent)

func (f broadcasterFunc) Publish(t game.Target, e game.OutboundEvent) { f(t, e) }

// deliver encodes e once per target identity and sends it on the
// correct transport for the resolved packet type.
func (c *Core) deliver(ids []game.PlayerID, e game.OutboundEvent) {
	for _, id := range ids {
		c.sendEvent(id, e)
	}
}

func (c *Core) sendEvent(id game.PlayerID, e game.OutboundEvent) {
	seq := c.nextSeq()
	var p wire.Packet
	switch ev := e.(type) {
	case game.PlayerJoinEvent:
		p = EncodePlayerJoin(seq, ev)
	case game.PlayerLeaveEvent:
		p = EncodePlayerLeave(seq, ev)
	case game.PlayerUpdateEvent:
		p = EncodePlayerUpdate(seq, ev)
	case game.SnapshotEvent:
		p = EncodeSnapshot(seq, ev)
	case game.ProjectileUpdateEvent:
		p = EncodeProjectileUpdate(seq, ev)
	case game.ItemUpdateEvent:
		p = EncodeItemUpdate(seq, ev)
	case game.TileUpdateEvent:
		p = EncodeTileUpdate(seq, ev)
	case game.GameEventMessage:
		p = EncodeGameEvent(seq, ev)
	default:
		return
	}
	c.sendToIdentity(id, p)
}

func (c *Core) sendToIdentity(id game.PlayerID, p wire.Packet) {
	affinity, ok := wire.TypeAffinity(p.Type)
	if !ok {
		return
	}
	if affinity == wire.Reliable {
		if v, ok := c.connByIdentity.Load(id); ok {
			_ = transport.SendReliable(v.(net.Conn), p)
		}
		return
	}
	if v, ok := c.addrByIdentity.Load(id); ok && c.endpoint != nil {
		_ = c.endpoint.SendUnreliable(v.(net.Addr), p)
	}
}

// OnReliablePacket implements transport.Dispatcher.
func (c *Core) OnReliablePacket(conn net.Conn, p wire.Packet) {
	key := connKey(conn)
	identity, bound := c.identityFor(conn)

	if !bound {
		if !c.limiter.Allow("pre-auth:" + key) {
			return
		}
	} else if !c.limiter.Allow(identity.String()) {
		return
	}

	switch p.Type {
	case wire.TypeAuthRequest:
		c.handleAuth(conn, p)
	case wire.TypePlayerJoin:
		c.handlePlayerJoin(conn, p, identity, bound)
	case wire.TypeLobbyAction:
		c.handleLobbyAction(identity, bound, p)
	case wire.TypeRankedQueue:
		c.handleRankedQueue(identity, bound, p)
	case wire.TypeMatchHistory:
		c.handleMatchHistory(conn, identity, bound)
	case wire.TypeLeaderboard:
		c.handleLeaderboard(conn)
	default:
		if bound {
			c.forwardToInstance(identity, p)
		}
	}
}

// OnUnreliablePacket implements transport.Dispatcher.
func (c *Core) OnUnreliablePacket(addr net.Addr, p wire.Packet) {
	// Identity is resolved from the source address through the reverse
	// map; the packet's sender field is not read. A datagram from an
	// address with no binding is dropped.
	identity, ok := c.identityByAddr(addr)
	if !ok {
		return
	}
	if !c.limiter.Allow(identity.String()) {
		return
	}
	c.addrByIdentity.Store(identity, addr)

	switch p.Type {
	case wire.TypeHeartbeat:
		c.handleHeartbeat(identity, addr)
	default:
		c.forwardToInstance(identity, p)
	}
}

func (c *Core) identityByAddr(addr net.Addr) (game.PlayerID, bool) {
	var found game.PlayerID
	ok := false
	c.addrByIdentity.Range(func(k, v any) bool {
		if v.(net.Addr).String() == addr.String() {
			found = k.(game.PlayerID)
			ok = true
			return false
		}
		return true
	})
	return found, ok
}

// OnDisconnect implements transport.Dispatcher.
func (c *Core) OnDisconnect(conn net.Conn) {
	identity, ok := c.identityFor(conn)
	if !ok {
		return
	}
	c.identityByConn.Delete(conn)
	c.connByIdentity.Delete(identity)
	c.addrByIdentity.Delete(identity)
	c.nameByIdentity.Delete(identity)

	c.queue.Dequeue(identity)
	if l, inLobby := c.lobbies.LobbyOf(identity); inLobby {
		if snap := l.Snapshot(); snap.Status == lobby.StatusInGame && l.Instance != nil {
			l.Instance.RemovePlayer(identity)
		}
		c.lobbies.Leave(identity)
	}
}

func (c *Core) identityFor(conn net.Conn) (game.PlayerID, bool) {
	v, ok := c.identityByConn.Load(conn)
	if !ok {
		return game.PlayerID{}, false
	}
	return v.(game.PlayerID), true
}

func connKey(conn net.Conn) string {
	return conn.RemoteAddr().String()
}

func (c *Core) handleAuth(conn net.Conn, p wire.Packet) {
	req := DecodeAuthRequest(p)
	key := connKey(conn)
	ctx := context.Background()

	var err error
	if req.Action == AuthRegister {
		err = c.store.Register(ctx, req.Username, req.Password)
	} else {
		err = c.store.Authenticate(ctx, req.Username, req.Password)
	}

	if err != nil {
		c.limiter.RecordAuthFailure(key)
		_ = transport.SendReliable(conn, EncodeAuthResponse(c.nextSeq(), false, game.ZeroPlayerID, err.Error()))
		return
	}
	c.limiter.RecordAuthSuccess(key)

	id := game.DeriveIdentity(req.Username)
	c.identityByConn.Store(conn, id)
	c.connByIdentity.Store(id, conn)
	c.nameByIdentity.Store(id, req.Username)
	_ = transport.SendReliable(conn, EncodeAuthResponse(c.nextSeq(), true, id, "ok"))
}

// handlePlayerJoin re-admits an identity that already has a running
// instance (e.g. after a reconnect): it rebinds the player's reliable
// transport handle and resends a full snapshot so the client can rebuild
// its view without replaying every PLAYER_JOIN since match start.
func (c *Core) handlePlayerJoin(conn net.Conn, p wire.Packet, identity game.PlayerID, bound bool) {
	if !bound {
		return // PLAYER_JOIN before AUTH_RESPONSE is unauthorized
	}
	_ = p
	l, inLobby := c.lobbies.LobbyOf(identity)
	if !inLobby {
		return
	}
	if snap := l.Snapshot(); snap.Status != lobby.StatusInGame || l.Instance == nil {
		return
	}
	player, ok := l.Instance.Registry().Get(identity)
	if !ok {
		return
	}
	player.RebindReliable(conn)

	joins := make([]game.PlayerJoinEvent, 0, l.Instance.Registry().Len())
	for _, pl := range l.Instance.Registry().GetAll() {
		pos := pl.Position()
		joins = append(joins, game.PlayerJoinEvent{
			PlayerID: pl.ID, Name: pl.Name, Color: pl.ColorRGB, X: pos.X, Y: pos.Y,
			Health: pl.Health(), Character: pl.Character, TeamID: pl.TeamID,
		})
	}
	c.sendEvent(identity, game.SnapshotEvent{Players: joins})
}

func (c *Core) handleHeartbeat(identity game.PlayerID, addr net.Addr) {
	if l, inLobby := c.lobbies.LobbyOf(identity); inLobby {
		if snap := l.Snapshot(); snap.Status == lobby.StatusInGame && l.Instance != nil {
			l.Instance.Registry().UpdateHeartbeat(identity)
			if player, ok := l.Instance.Registry().Get(identity); ok {
				player.RebindUnreliable(addr)
			}
		}
	}
}

// forwardToInstance routes a packet from an in-game identity's instance;
// the instance decides whether/how to rebroadcast. Movement claims,
// primary-fire requests and item use are handled; any other packet type
// (such as an ability cast) is dropped silently, matching the
// malformed-packet error policy.
func (c *Core) forwardToInstance(identity game.PlayerID, p wire.Packet) {
	l, inLobby := c.lobbies.LobbyOf(identity)
	if !inLobby {
		return
	}
	if snap := l.Snapshot(); snap.Status != lobby.StatusInGame || l.Instance == nil {
		return
	}
	inst := l.Instance

	switch p.Type {
	case wire.TypePlayerUpdate:
		c.handleClientMove(inst, identity, p)
	case wire.TypeProjectileUpdate:
		c.handleProjectileSpawn(inst, identity, p)
	case wire.TypeItemUpdate:
		c.handleItemUse(inst, identity, p)
	}
}

func (c *Core) handleClientMove(inst *game.GameInstance, identity game.PlayerID, p wire.Packet) {
	player, ok := inst.Registry().Get(identity)
	if !ok {
		return
	}
	claim := DecodeClientMove(p)
	claimed := game.Position{X: claim.X, Y: claim.Y}

	if err := inst.Validator().ValidateMove(player, claimed, game.NowMillis()); err != nil {
		admin.PacketsRejected.WithLabelValues(err.Error()).Inc()
		return
	}
	player.SetPosition(claimed)

	if item, ok := inst.Items().TryPickup(claimed, player.Inventory); ok {
		c.deliver(c.instanceMemberIDs(inst), game.ItemUpdateEvent{Action: "PICKUP", Tile: claimed, Kind: item.Kind, ItemID: item.ID})
	}

	c.deliver(c.instanceMemberIDs(inst), game.PlayerUpdateEvent{
		PlayerID: identity, X: claimed.X, Y: claimed.Y, Color: player.ColorRGB,
		Health: player.Health(), EffectFlags: player.EffectFlags(), Character: player.Character,
	})
}

// handleProjectileSpawn validates and executes a client's fire request.
// Only primary fire is wired here; ability-cast variants (Q/E) need their
// own per-character cooldown tracking and are a natural follow-on once
// the client payload for ability casts is finalized.
func (c *Core) handleProjectileSpawn(inst *game.GameInstance, identity game.PlayerID, p wire.Packet) {
	player, ok := inst.Registry().Get(identity)
	if !ok {
		return
	}
	def, ok := c.cfg.Chars.Get(player.Character)
	if !ok {
		return
	}
	req := DecodeProjectileSpawn(p)
	vel := game.Vector{DX: req.DX, DY: req.DY}
	now := game.NowMillis()

	if err := inst.Validator().ValidateProjectileSpawn(player, req.PX, req.PY, vel, now, true, def.ShootCooldownMs); err != nil {
		admin.PacketsRejected.WithLabelValues(err.Error()).Inc()
		return
	}
	player.MarkShot(now)

	proj := inst.Engine().SpawnProjectile(identity, req.PX, req.PY, req.DX, req.DY, player.ColorRGB, req.Charge, def.PrimaryProjectile)
	c.deliver(c.instanceMemberIDs(inst), game.ProjectileUpdateEvent{
		Action: "SPAWN", Projectile: proj.ID, X: proj.X, Y: proj.Y, DX: proj.DX, DY: proj.DY,
		Color: proj.ColorRGB, Charge: proj.ChargeLevel, Type: proj.Type,
	})
}

// handleItemUse consumes one inventory item and applies its effect
// (§4.7). The inventory slot is decremented first; a Fence placement
// that doesn't land any tile restores the slot and tells the client via
// an INVENTORY rollback packet.
func (c *Core) handleItemUse(inst *game.GameInstance, identity game.PlayerID, p wire.Packet) {
	player, ok := inst.Registry().Get(identity)
	if !ok {
		return
	}
	req := DecodeItemUse(p)
	if !player.Inventory.RemoveOne(req.Kind) {
		return
	}
	now := game.NowMillis()

	switch req.Kind {
	case game.ItemHeart:
		player.ResetHealth()
	case game.ItemShield:
		player.SetShieldUntil(now + game.ShieldDurationMs)
	case game.ItemGem:
		player.SetGemBoostUntil(now + game.GemBoostDurationMs)
	case game.ItemStar:
		world := inst.World()
		if req.Target.X < 0 || req.Target.X >= world.Width || req.Target.Y < 0 || req.Target.Y >= world.Height || !world.IsWalkable(req.Target.X, req.Target.Y) {
			player.Inventory.Add(req.Kind)
			c.deliver([]game.PlayerID{identity}, game.ItemUpdateEvent{Action: "INVENTORY", Kind: req.Kind})
			return
		}
		player.SetPosition(req.Target)
		player.GrantSpeedWaiver(now + game.StarWaiverGraceMs)
	case game.ItemFence:
		if inst.Items().PlaceFence(req.Target, player.Facing()) == 0 {
			player.Inventory.Add(req.Kind)
			c.deliver([]game.PlayerID{identity}, game.ItemUpdateEvent{Action: "INVENTORY", Kind: req.Kind})
			return
		}
	}

	c.deliver(c.instanceMemberIDs(inst), game.ItemUpdateEvent{Action: "USE", Tile: req.Target, Kind: req.Kind})
	c.deliver(c.instanceMemberIDs(inst), game.PlayerUpdateEvent{
		PlayerID: identity, X: player.Position().X, Y: player.Position().Y, Color: player.ColorRGB,
		Health: player.Health(), EffectFlags: player.EffectFlags(), Character: player.Character,
	})
}

func (c *Core) instanceMemberIDs(inst *game.GameInstance) []game.PlayerID {
	players := inst.Registry().GetAll()
	ids := make([]game.PlayerID, len(players))
	for i, pl := range players {
		ids[i] = pl.ID
	}
	return ids
}

func (c *Core) onLobbyStarted(l *lobby.Lobby) {
	admin.ActiveInstances.Inc()
}

// rankedLobbySize is the target participant count for a ranked match;
// each match the queue forms has fewer humans than this and is padded
// with bots up to this size rather than starting short-handed.
const rankedLobbySize = 8

func (c *Core) onMatchFormed(m matchmaker.MatchFormed) {
	if len(m.Players) == 0 {
		return
	}
	host := m.Players[0]
	l, err := c.lobbies.Create(host.ID, host.Username, "ranked", 0, c.cfg.InstanceCfg.DurationMin, rankedLobbySize, game.ModeFFA, 0, true)
	if err != nil {
		c.logger.Printf("server: ranked match creation failed: %v", err)
		return
	}
	for _, p := range m.Players[1:] {
		if err := c.lobbies.Join(l, p.ID, p.Username); err != nil {
			c.logger.Printf("server: ranked join failed for %s: %v", p.Username, err)
		}
	}
	for i := len(m.Players); i < rankedLobbySize; i++ {
		if _, err := c.lobbies.AddBot(l, fmt.Sprintf("Bot-%d", i+1)); err != nil {
			c.logger.Printf("server: ranked bot fill failed: %v", err)
			break
		}
	}
	world := c.cfg.Worlds[l.MapIndex]
	_ = c.lobbies.Start(l, host.ID, lobby.StartParams{
		World: world, Chars: c.cfg.Chars, Defs: c.cfg.Defs, Config: c.cfg.InstanceCfg,
		EndHandler: c.endOfGameHandler(), Logger: c.logger,
		NewBroadcaster: c.instanceBroadcaster,
	})
}

func (c *Core) onQueueStatus(waiting []matchmaker.QueuedPlayer) {
	now := time.Now()
	for i, p := range waiting {
		seq := c.nextSeq()
		c.sendToIdentity(p.ID, EncodeQueueStatus(seq, len(waiting)-i, p.Elo, int(now.Sub(p.QueuedAt).Seconds())))
	}
}

func (c *Core) handleRankedQueue(identity game.PlayerID, bound bool, p wire.Packet) {
	if !bound {
		return
	}
	req := DecodeRankedQueue(p)
	name, _ := c.nameByIdentity.Load(identity)
	username, _ := name.(string)
	switch req.Action {
	case QueueJoin:
		elo, err := c.store.Elo(context.Background(), username)
		if err != nil {
			elo = 1000
		}
		c.queue.Enqueue(identity, username, elo)
	case QueueLeave:
		c.queue.Dequeue(identity)
	}
}

func (c *Core) handleLobbyAction(identity game.PlayerID, bound bool, p wire.Packet) {
	if !bound {
		return
	}
	req := DecodeLobbyAction(p)
	name, _ := c.nameByIdentity.Load(identity)
	username, _ := name.(string)

	switch req.Action {
	case LobbyCreate:
		mode := game.ModeFFA
		if req.Mode == 1 {
			mode = game.ModeTeams
		}
		_, err := c.lobbies.Create(identity, username, req.Name, int(req.MapIndex), int(req.DurationMin), int(req.MaxPlayers), mode, int(req.TeamSize), false)
		if err != nil {
			c.logger.Printf("server: lobby create rejected for %s: %v", username, err)
		}
	case LobbyJoin:
		l, ok := c.lobbies.Get(int64(req.LobbyID))
		if !ok {
			return
		}
		if err := c.lobbies.Join(l, identity, username); err != nil {
			c.logger.Printf("server: lobby join rejected for %s: %v", username, err)
		}
	case LobbyLeave:
		c.lobbies.Leave(identity)
	case LobbyStart:
		l, inLobby := c.lobbies.LobbyOf(identity)
		if !inLobby {
			return
		}
		world := c.cfg.Worlds[l.MapIndex]
		if world == nil {
			return
		}
		if err := c.lobbies.Start(l, identity, lobby.StartParams{
			World: world, Chars: c.cfg.Chars, Defs: c.cfg.Defs, Config: c.cfg.InstanceCfg,
			EndHandler: c.endOfGameHandler(), Logger: c.logger,
			NewBroadcaster: c.instanceBroadcaster,
		}); err != nil {
			c.logger.Printf("server: lobby start rejected for %s: %v", username, err)
		}
	case LobbyConfigUpdate:
		l, inLobby := c.lobbies.LobbyOf(identity)
		if !inLobby {
			return
		}
		_ = c.lobbies.UpdateConfig(l, identity, int(req.DurationMin), int(req.MaxPlayers), int(req.TeamSize))
	}
}

func (c *Core) handleMatchHistory(conn net.Conn, identity game.PlayerID, bound bool) {
	if !bound {
		return
	}
	name, _ := c.nameByIdentity.Load(identity)
	username, _ := name.(string)
	rows, err := c.store.MatchHistory(context.Background(), username, 0, 20)
	if err != nil {
		_ = transport.SendReliable(conn, EncodeMatchHistoryEnd(c.nextSeq()))
		return
	}
	for _, r := range rows {
		_ = transport.SendReliable(conn, EncodeMatchHistoryEntry(c.nextSeq(), r.MapIndex, r.Kills, r.Deaths, r.Rank, r.EloDelta))
	}
	_ = transport.SendReliable(conn, EncodeMatchHistoryEnd(c.nextSeq()))
}

func (c *Core) handleLeaderboard(conn net.Conn) {
	rows, err := c.store.Leaderboard(context.Background(), 50)
	if err != nil {
		_ = transport.SendReliable(conn, EncodeLeaderboardEnd(c.nextSeq()))
		return
	}
	for _, r := range rows {
		_ = transport.SendReliable(conn, EncodeLeaderboardEntry(c.nextSeq(), r.Rank, r.Elo, r.Username))
	}
	_ = transport.SendReliable(conn, EncodeLeaderboardEnd(c.nextSeq()))
}

// endOfGameHandler adapts Core into a game.EndOfGameHandler, persisting
// the match and, for ranked lobbies, applying the ELO update.
func (c *Core) endOfGameHandler() game.EndOfGameHandler {
	return endOfGameFunc(func(result game.MatchResult) {
		admin.MatchesCompleted.Inc()
		ctx := context.Background()

		usernames := make([]string, 0, len(result.Rows))
		rows := make([]store.MatchResultRow, 0, len(result.Rows))
		for _, row := range result.Rows {
			name, _ := c.nameByIdentity.Load(row.ID)
			username, _ := name.(string)
			if username == "" {
				continue
			}
			usernames = append(usernames, username)
			rows = append(rows, store.MatchResultRow{Username: username, Kills: row.Kills, Deaths: row.Deaths, Rank: row.Rank})
		}

		if result.Ranked && len(usernames) >= 2 {
			elos := make([]int, len(usernames))
			ranks := make([]int, len(usernames))
			for i, u := range usernames {
				e, _ := c.store.Elo(ctx, u)
				elos[i] = e
				ranks[i] = rows[i].Rank
			}
			deltas := matchmaker.ApplyElo(usernames, elos, ranks)
			for i, d := range deltas {
				rows[i].EloDelta = d.Delta
				_ = c.store.UpdateElo(ctx, d.Username, d.NewElo)
			}
		}

		mode := "FFA"
		if result.Mode == game.ModeTeams {
			mode = "TEAMS"
		}
		if _, err := c.store.SaveMatch(ctx, result.MapIndex, mode, result.Ranked, result.DurationMin*60, rows); err != nil {
			c.logger.Printf("server: save match failed: %v", err)
		}
	})
}

type endOfGameFunc func(game.MatchResult)

func (f endOfGameFunc) HandleMatchEnd(r game.MatchResult) { f(r) }
