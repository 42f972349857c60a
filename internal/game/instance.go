package game

import (
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// GameMode selects FFA vs. Teams friendly-fire and scoreboard semantics.
type GameMode uint8

const (
	ModeFFA GameMode = iota
	ModeTeams
)

// InstanceConfig carries every tunable period/limit the instance's three
// scheduled tasks and its validators need (§4.10, §5).
type InstanceConfig struct {
	ProjectileTickMs    int64
	ItemSpawnIntervalMs int64
	TimeSyncIntervalS   int64
	RespawnDelayMs      int64
	DurationMin         int
	ClientTimeoutMs     int64
	HeartbeatIntervalMs int64
	MoveRateLimitMs     float64
}

// MatchResultRow is one participant's final tally, handed to the
// end-of-game hook.
type MatchResultRow struct {
	ID     PlayerID
	Kills  int
	Deaths int
	Rank   int
}

// MatchResult is the complete end-of-game summary passed to the
// end-of-game handler, which owns persistence and (if ranked) the ELO
// update — kept out of this package so the instance never needs to import
// the credential store or the matchmaker's ELO formula.
type MatchResult struct {
	MapIndex    int
	DurationMin int
	Ranked      bool
	Mode        GameMode
	Rows        []MatchResultRow
}

// EndOfGameHandler reacts to a finished match.
type EndOfGameHandler interface {
	HandleMatchEnd(MatchResult)
}

// GameInstance is one live match: a world, registry, projectile engine,
// item manager, kill tracker, and three independent periodic schedulers
// (§4.10). One instance exists per in-game lobby (§3 invariant).
type GameInstance struct {
	ID       int64
	world    *World
	chars    *CharacterTable
	defs     *ProjectileTable
	registry *PlayerRegistry
	engine   *Engine
	items    *ItemManager
	kills    *KillTracker
	validator *MovementValidator

	cfg   InstanceConfig
	mode  GameMode
	mapIdx int
	ranked bool

	broadcaster Broadcaster
	endHandler  EndOfGameHandler
	logger      *log.Logger
	eventLog    *EventLog // audit trail; nil-safe, see emitAudit

	teamOf   sync.Map // PlayerID -> int
	startedAt int64

	stopOnce sync.Once
	stopCh   chan struct{}
	tasksWg  sync.WaitGroup
	running  atomic.Bool

	respawnMu sync.Mutex // serializes spawn-point allocation on concurrent respawns

	// pendingRespawns tags each scheduled respawn with an opaque token so a
	// stale timer from a player's earlier death can't fire after a newer
	// one was scheduled for the same id (e.g. a second, faster kill while
	// the first respawn timer is still pending).
	pendingRespawns sync.Map // PlayerID -> uuid.UUID
}

// NewGameInstance builds an instance bound to world and ready to Start.
func NewGameInstance(id int64, world *World, chars *CharacterTable, defs *ProjectileTable, cfg InstanceConfig, mode GameMode, mapIdx int, ranked bool, broadcaster Broadcaster, endHandler EndOfGameHandler, logger *log.Logger) *GameInstance {
	registry := NewPlayerRegistry()
	inst := &GameInstance{
		ID:          id,
		world:       world,
		chars:       chars,
		defs:        defs,
		registry:    registry,
		items:       NewItemManager(world),
		kills:       NewKillTracker(),
		cfg:         cfg,
		mode:        mode,
		mapIdx:      mapIdx,
		ranked:      ranked,
		broadcaster: broadcaster,
		endHandler:  endHandler,
		logger:      logger,
		stopCh:      make(chan struct{}),
	}
	inst.validator = NewMovementValidator(world, chars, cfg.MoveRateLimitMs)
	inst.engine = NewEngine(world, defs, registry, inst.isTeammate)
	return inst
}

// SetBroadcaster rebinds the instance's outbound broadcaster. Safe to
// call before Start; the instance does not publish anything during
// construction or AddPlayer.
func (g *GameInstance) SetBroadcaster(b Broadcaster) {
	g.broadcaster = b
}

// WithEventLog attaches an audit event log; nil disables audit emission.
func (g *GameInstance) WithEventLog(el *EventLog) *GameInstance {
	g.eventLog = el
	return g
}

// emitAudit is a nil-safe convenience wrapper around EventLog.EmitSimple.
func (g *GameInstance) emitAudit(t EventType, playerID PlayerID, payload interface{}) {
	if g.eventLog == nil {
		return
	}
	g.eventLog.EmitSimple(t, 0, playerID.String(), payload)
}

// AddPlayer registers p in the instance, assigns its team, and emits a
// join audit record. It publishes no broadcast.
func (g *GameInstance) AddPlayer(p *Player, teamID int) {
	g.registry.Add(p)
	g.AssignTeam(p.ID, teamID)
	pos := p.Position()
	g.emitAudit(EventTypePlayerJoin, p.ID, PlayerJoinPayload{
		PlayerID: p.ID.String(), PlayerName: p.Name, SpawnX: float64(pos.X), SpawnY: float64(pos.Y),
	})
}

// RemovePlayer deregisters id and emits a leave audit record.
func (g *GameInstance) RemovePlayer(id PlayerID) {
	g.registry.Remove(id)
	g.emitAudit(EventTypePlayerLeave, id, nil)
}

// Registry exposes the instance's player registry (read path for routing,
// e.g. "is sender in this instance").
func (g *GameInstance) Registry() *PlayerRegistry { return g.registry }

// Validator exposes the movement validator for the routing layer.
func (g *GameInstance) Validator() *MovementValidator { return g.validator }

// Items exposes the item manager.
func (g *GameInstance) Items() *ItemManager { return g.items }

// World exposes the instance's world, e.g. for validating a Star
// teleport's target tile against bounds and walkability.
func (g *GameInstance) World() *World { return g.world }

// Kills exposes the kill tracker.
func (g *GameInstance) Kills() *KillTracker { return g.kills }

// Engine exposes the projectile engine, e.g. for spawning a fired shot.
func (g *GameInstance) Engine() *Engine { return g.engine }

// AssignTeam records a's team id, used by isTeammate and the scoreboard.
func (g *GameInstance) AssignTeam(id PlayerID, teamID int) {
	g.teamOf.Store(id, teamID)
	g.kills.Register(id, teamID)
}

// isTeammate implements TeammateChecker: always false in FFA; same
// nonzero team id in Teams mode.
func (g *GameInstance) isTeammate(a, b PlayerID) bool {
	if g.mode != ModeTeams {
		return false
	}
	ta, aok := g.teamOf.Load(a)
	tb, bok := g.teamOf.Load(b)
	if !aok || !bok {
		return false
	}
	tai, tbi := ta.(int), tb.(int)
	return tai != 0 && tai == tbi
}

// Start launches the three scheduled tasks.
func (g *GameInstance) Start() {
	g.startedAt = NowMillis()
	g.running.Store(true)

	g.tasksWg.Add(3)
	go g.runPeriodic(time.Duration(g.cfg.ProjectileTickMs)*time.Millisecond, g.projectileTick)
	go g.runPeriodic(time.Duration(g.cfg.ItemSpawnIntervalMs)*time.Millisecond, g.itemSpawnTick)
	go g.runPeriodic(time.Duration(g.cfg.TimeSyncIntervalS)*time.Second, g.timeSyncTick)
}

// runPeriodic runs fn every period until Stop, recovering from any panic
// inside fn so one bad tick cannot take the whole scheduler down (§10.2).
func (g *GameInstance) runPeriodic(period time.Duration, fn func()) {
	defer g.tasksWg.Done()
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-g.stopCh:
			return
		case <-ticker.C:
			g.safeCall(fn)
		}
	}
}

func (g *GameInstance) safeCall(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			g.logger.Printf("instance %d: recovered panic in scheduled task: %v", g.ID, r)
		}
	}()
	fn()
}

// Stop shuts down all three schedulers. The act of shutdown may race with
// an in-flight tick; the end-of-game path (called separately) always runs
// after Stop returns, so the interrupt cannot reach the credential-store
// write (§5 "clear the interrupt flag before the credential store
// writes" — expressed here simply as sequencing: Stop first, persist
// after).
func (g *GameInstance) Stop() {
	g.stopOnce.Do(func() {
		g.running.Store(false)
		close(g.stopCh)
	})
	g.tasksWg.Wait()
}

// projectileTick is the first scheduled task: step the engine, translate
// events into broadcasts, apply status-effect hooks, schedule respawns.
func (g *GameInstance) projectileTick() {
	events := g.engine.Tick(g.registry.Get)
	for _, ev := range events {
		switch e := ev.(type) {
		case MovedEvent:
			g.broadcaster.Publish(Target{}, ProjectileUpdateEvent{Action: "MOVE", Projectile: e.ProjectileID, X: e.X, Y: e.Y})
		case HitEvent:
			g.broadcaster.Publish(Target{}, ProjectileUpdateEvent{Action: "HIT", Projectile: e.ProjectileID, TargetID: e.TargetID})
			g.applyOnHitEffects(e.OwnerID, e.TargetID, e.Type, e.Damage)
		case KillEvent:
			g.handleKill(e.KillerID, e.TargetID)
		case AreaEffectEvent:
			g.broadcaster.Publish(Target{}, ProjectileUpdateEvent{Action: "DESPAWN", Projectile: e.ProjectileID, X: e.CenterX, Y: e.CenterY})
		case AreaEffectHitEvent:
			// already reflected in target health; no dedicated broadcast type
			// beyond the PLAYER_UPDATE the instance emits on its own cadence.
		case AreaEffectKillEvent:
			g.handleKill(e.OwnerID, e.TargetID)
		case DespawnedEvent:
			g.broadcaster.Publish(Target{}, ProjectileUpdateEvent{Action: "DESPAWN", Projectile: e.ProjectileID})
		}
	}
}

// applyOnHitEffects resolves a hit's OnHitEffect variant against the
// target (and, for owner-identity effects, the owner if still connected —
// a disconnected owner makes these no-ops, §4.5 edge case).
func (g *GameInstance) applyOnHitEffects(ownerID, targetID PlayerID, projType ProjectileTypeID, damage int) {
	target, ok := g.registry.Get(targetID)
	if !ok {
		return
	}
	def, ok := g.defs.Get(projType)
	if !ok {
		return
	}
	now := NowMillis()

	switch def.OnHit {
	case OnHitFreeze:
		target.SetFrozenUntil(now + int64(def.OnHitParam))
	case OnHitPush:
		dx, dy := 0, 0
		pos := target.Position()
		owner, ok := g.registry.Get(ownerID)
		if ok {
			opos := owner.Position()
			dx, dy = sign(pos.X-opos.X), sign(pos.Y-opos.Y)
		}
		pushed := Position{X: clamp(pos.X+dx*int(def.OnHitParam), 0, g.world.Width-1), Y: clamp(pos.Y+dy*int(def.OnHitParam), 0, g.world.Height-1)}
		if g.world.IsWalkable(pushed.X, pushed.Y) {
			target.SetPosition(pushed)
		}
	case OnHitLifeSteal:
		owner, ok := g.registry.Get(ownerID)
		if ok {
			owner.Heal(int(float64(damage) * def.OnHitParam / 100))
		}
	case OnHitPullToOwner:
		owner, ok := g.registry.Get(ownerID)
		if ok {
			opos := owner.Position()
			tpos := target.Position()
			dx, dy := sign(opos.X-tpos.X), sign(opos.Y-tpos.Y)
			pulled := Position{X: clamp(tpos.X+dx, 0, g.world.Width-1), Y: clamp(tpos.Y+dy, 0, g.world.Height-1)}
			if g.world.IsWalkable(pulled.X, pulled.Y) {
				target.SetPosition(pulled)
			}
		}
	case OnHitTeleportOwnerBehind:
		owner, ok := g.registry.Get(ownerID)
		if ok {
			opos := owner.Position()
			tpos := target.Position()
			dx, dy := sign(tpos.X-opos.X), sign(tpos.Y-opos.Y)
			behind := Position{X: clamp(tpos.X+dx*int(def.OnHitParam), 0, g.world.Width-1), Y: clamp(tpos.Y+dy*int(def.OnHitParam), 0, g.world.Height-1)}
			if g.world.IsWalkable(behind.X, behind.Y) {
				owner.SetPosition(behind)
				owner.SetServerTeleportedUntil(now + def.OnHitFreezeMs)
			}
			target.SetFrozenUntil(now + def.OnHitFreezeMs)
		}
	}
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// handleKill records the kill, schedules the respawn, and broadcasts the
// KILL event.
func (g *GameInstance) handleKill(killer, victim PlayerID) {
	g.kills.RecordKill(killer, victim)
	row := g.findScoreRow(killer)
	g.emitAudit(EventTypeKill, killer, KillPayload{KillerID: killer.String(), VictimID: victim.String(), KillerKills: row.Kills, VictimDeaths: g.findScoreRow(victim).Deaths})
	g.broadcaster.Publish(Target{}, GameEventMessage{Kind: GameEventKill, TargetID: victim})
	g.scheduleRespawn(victim)
}

// findScoreRow is a small linear lookup against the current scoreboard;
// the scoreboard is small (match-sized) so this isn't worth indexing.
func (g *GameInstance) findScoreRow(id PlayerID) ScoreRow {
	for _, row := range g.kills.Scoreboard() {
		if row.ID == id {
			return row
		}
	}
	return ScoreRow{ID: id}
}

// scheduleRespawn runs a one-shot respawn respawnDelayMs later. The
// allocator (spawn-point pick) is scoped to this call and serialized by
// respawnMu so two simultaneous respawns cannot collide on the same tile
// (§5, design note "Respawn scheduling").
func (g *GameInstance) scheduleRespawn(id PlayerID) {
	token := uuid.New()
	g.pendingRespawns.Store(id, token)

	time.AfterFunc(time.Duration(g.cfg.RespawnDelayMs)*time.Millisecond, func() {
		if !g.running.Load() {
			return
		}
		if current, ok := g.pendingRespawns.Load(id); !ok || current.(uuid.UUID) != token {
			return // superseded by a later death's respawn timer
		}
		g.pendingRespawns.Delete(id)

		p, ok := g.registry.Get(id)
		if !ok {
			return
		}
		g.respawnMu.Lock()
		occupied := make([]Position, 0, g.registry.Len())
		for _, other := range g.registry.GetAll() {
			if other.ID != id && other.IsAlive() {
				occupied = append(occupied, other.Position())
			}
		}
		spawn := g.world.PickSpawnPoint(occupied)
		p.Respawn(spawn)
		g.respawnMu.Unlock()

		g.emitAudit(EventTypeRespawn, id, RespawnPayload{PlayerID: id.String(), SpawnX: float64(spawn.X), SpawnY: float64(spawn.Y)})
		g.broadcaster.Publish(Target{}, GameEventMessage{Kind: GameEventRespawn, TargetID: id, SpawnX: spawn.X, SpawnY: spawn.Y})
		g.broadcaster.Publish(Target{}, PlayerUpdateEvent{
			PlayerID: id, X: spawn.X, Y: spawn.Y, Color: p.ColorRGB,
			Health: p.Health(), EffectFlags: p.EffectFlags(), Character: p.Character,
		})
	})
}

// itemSpawnTick is the second scheduled task.
func (g *GameInstance) itemSpawnTick() {
	target := ItemSpawnCount(g.world.Area())
	for g.items.Count() < target {
		kind := ItemKind((len(g.registry.GetAll()) + g.items.Count()) % 5) // rotate variety; deterministic is not required here
		item := g.items.SpawnRandom(kind)
		if item == nil {
			break
		}
		g.broadcaster.Publish(Target{}, ItemUpdateEvent{Action: "SPAWN", Tile: item.Position, Kind: item.Kind, ItemID: item.ID})
	}
}

// timeSyncTick is the third scheduled task.
func (g *GameInstance) timeSyncTick() {
	elapsedS := (NowMillis() - g.startedAt) / 1000
	totalS := int64(g.cfg.DurationMin) * 60
	remaining := totalS - elapsedS
	g.broadcaster.Publish(Target{}, GameEventMessage{Kind: GameEventTimeSync, RemainingS: int(remaining)})
	if remaining <= 0 {
		// End() calls Stop(), which waits on tasksWg — including this very
		// goroutine's slot. Running it inline would deadlock the scheduler
		// against its own shutdown, so hand it off.
		go g.End()
	}
}

// End runs the end-of-game sequence (§4.10): stop schedulers, broadcast
// GAME_OVER / SCORE_ENTRY / SCORE_END, then hand off the final result for
// persistence and (if ranked) ELO update.
func (g *GameInstance) End() {
	g.Stop()

	g.broadcaster.Publish(Target{}, GameEventMessage{Kind: GameEventGameOver})

	var rows []MatchResultRow
	if g.mode == ModeTeams {
		for _, t := range g.kills.TeamScoreboard() {
			g.broadcaster.Publish(Target{}, GameEventMessage{Kind: GameEventScoreEntry, TeamID: t.TeamID, Kills: t.Kills, Deaths: t.Deaths, Rank: t.Rank})
		}
	}
	for _, s := range g.kills.Scoreboard() {
		if !s.ID.IsBot() {
			rows = append(rows, MatchResultRow{ID: s.ID, Kills: s.Kills, Deaths: s.Deaths, Rank: s.Rank})
		}
		g.broadcaster.Publish(Target{}, GameEventMessage{Kind: GameEventScoreEntry, TargetID: s.ID, Kills: s.Kills, Deaths: s.Deaths, Rank: s.Rank})
	}
	g.broadcaster.Publish(Target{}, GameEventMessage{Kind: GameEventScoreEnd})

	if g.endHandler != nil {
		g.endHandler.HandleMatchEnd(MatchResult{
			MapIndex:    g.mapIdx,
			DurationMin: g.cfg.DurationMin,
			Ranked:      g.ranked,
			Mode:        g.mode,
			Rows:        rows,
		})
	}
}
