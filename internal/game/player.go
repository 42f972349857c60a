package game

import (
	"net"
	"sync"
	"sync/atomic"
	"time"
)

// effectDeadlines holds the monotonic-millisecond deadlines for every
// status effect. Deadlines are plain int64s accessed via atomic
// load/store: readers compare against now() with no lock (design note:
// "Status-effect timers as deadlines").
type effectDeadlines struct {
	shieldUntil          atomic.Int64
	gemBoostUntil        atomic.Int64
	frozenUntil          atomic.Int64
	phasedUntil          atomic.Int64
	burningUntil         atomic.Int64
	speedBoostUntil      atomic.Int64
	rootedUntil          atomic.Int64
	slowedUntil          atomic.Int64
	serverTeleportedUntil atomic.Int64
}

// NowMillis is the monotonic clock the whole status-effect system reads
// against. Exposed as a var (not a call to time.Now directly everywhere)
// so tests can pin it.
var NowMillis = func() int64 {
	return time.Now().UnixMilli()
}

// TransportBindings is the pair of handles a player owns on the wire: a
// reliable stream handle and an unreliable peer address. Snapshotted once
// per outbound send (design note: "Ownership of transport bindings") so a
// broadcast never races a rebind onto a half-closed handle.
type TransportBindings struct {
	Reliable   net.Conn
	Unreliable net.Addr
}

// Player is the mutable, authoritative state of one match participant.
type Player struct {
	ID          PlayerID
	Name        string
	ColorRGB    [3]byte
	Character   CharacterID
	TeamID      int

	mu       sync.RWMutex // serializes position/health/facing mutation (per-player monitor)
	position Position
	facing   Vector
	health   int
	maxHealth int

	lastHeartbeat atomic.Int64 // unix millis
	effects       effectDeadlines

	bindingsMu sync.RWMutex
	bindings   TransportBindings

	lastMoveAt      atomic.Int64 // unix millis, for movement validator speed check
	lastShotAt      atomic.Int64 // unix millis, for fire-rate gate
	speedWaiveUntil atomic.Int64 // one-shot waiver granted by a Star teleport

	isBot bool

	Inventory *Inventory
}

// NewPlayer constructs a fresh player at spawn with full health.
func NewPlayer(id PlayerID, name string, color [3]byte, character CharacterID, maxHealth int, spawn Position) *Player {
	p := &Player{
		ID:        id,
		Name:      name,
		ColorRGB:  color,
		Character: character,
		position:  spawn,
		health:    maxHealth,
		maxHealth: maxHealth,
		Inventory: NewInventory(DefaultInventoryCap),
	}
	p.lastHeartbeat.Store(NowMillis())
	return p
}

// Position returns the authoritative position.
func (p *Player) Position() Position {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.position
}

// SetPosition overwrites the authoritative position. Callers must have
// already validated it against the movement validator.
func (p *Player) SetPosition(pos Position) {
	p.mu.Lock()
	p.position = pos
	p.mu.Unlock()
}

// Facing returns the last-known facing vector, used to orient fence
// placement.
func (p *Player) Facing() Vector {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.facing
}

// SetFacing updates the facing vector.
func (p *Player) SetFacing(v Vector) {
	p.mu.Lock()
	p.facing = v
	p.mu.Unlock()
}

// Health returns current health.
func (p *Player) Health() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.health
}

// MaxHealth returns the character's max health.
func (p *Player) MaxHealth() int {
	return p.maxHealth
}

// IsAlive reports health > 0.
func (p *Player) IsAlive() bool {
	return p.Health() > 0
}

// ApplyDamage atomically decrements health by amount (clamped at 0) and
// returns (newHealth, killed). Serialized per-target so two concurrent
// hits on the same player never race (§5 "Health mutations on hit are
// serialized per target").
func (p *Player) ApplyDamage(amount int) (newHealth int, killed bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	wasAlive := p.health > 0
	p.health -= amount
	if p.health < 0 {
		p.health = 0
	}
	if wasAlive && p.health == 0 {
		killed = true
	}
	return p.health, killed
}

// Heal restores health up to maxHealth and returns the new value.
func (p *Player) Heal(amount int) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.health += amount
	if p.health > p.maxHealth {
		p.health = p.maxHealth
	}
	return p.health
}

// ResetHealth sets health to max, used by respawn and Heart pickups.
func (p *Player) ResetHealth() {
	p.mu.Lock()
	p.health = p.maxHealth
	p.mu.Unlock()
}

// --- status effects: branch-free deadline comparisons, no lock ---

func (p *Player) active(d *atomic.Int64) bool { return d.Load() > NowMillis() }

func (p *Player) IsShielded() bool         { return p.active(&p.effects.shieldUntil) }
func (p *Player) IsGemBoosted() bool       { return p.active(&p.effects.gemBoostUntil) }
func (p *Player) IsFrozen() bool           { return p.active(&p.effects.frozenUntil) }
func (p *Player) IsPhased() bool           { return p.active(&p.effects.phasedUntil) }
func (p *Player) IsBurning() bool          { return p.active(&p.effects.burningUntil) }
func (p *Player) IsSpeedBoosted() bool     { return p.active(&p.effects.speedBoostUntil) }
func (p *Player) IsRooted() bool           { return p.active(&p.effects.rootedUntil) }
func (p *Player) IsSlowed() bool           { return p.active(&p.effects.slowedUntil) }
func (p *Player) IsServerTeleported() bool { return p.active(&p.effects.serverTeleportedUntil) }

func (p *Player) SetShieldUntil(ms int64)          { p.effects.shieldUntil.Store(ms) }
func (p *Player) SetGemBoostUntil(ms int64)        { p.effects.gemBoostUntil.Store(ms) }
func (p *Player) SetFrozenUntil(ms int64)          { p.effects.frozenUntil.Store(ms) }
func (p *Player) SetPhasedUntil(ms int64)          { p.effects.phasedUntil.Store(ms) }
func (p *Player) SetBurningUntil(ms int64)         { p.effects.burningUntil.Store(ms) }
func (p *Player) SetSpeedBoostUntil(ms int64)      { p.effects.speedBoostUntil.Store(ms) }
func (p *Player) SetRootedUntil(ms int64)          { p.effects.rootedUntil.Store(ms) }
func (p *Player) SetSlowedUntil(ms int64)          { p.effects.slowedUntil.Store(ms) }
func (p *Player) SetServerTeleportedUntil(ms int64) { p.effects.serverTeleportedUntil.Store(ms) }

// IsHittable is the projectile engine's candidate predicate: alive, not
// shielded, not phased.
func (p *Player) IsHittable() bool {
	return p.IsAlive() && !p.IsShielded() && !p.IsPhased()
}

// EffectFlags packs the active effects into the wire bitmask (§6).
func (p *Player) EffectFlags() byte {
	var f byte
	if p.IsShielded() {
		f |= 0x01
	}
	if p.IsGemBoosted() {
		f |= 0x02
	}
	if p.IsFrozen() {
		f |= 0x04
	}
	if p.IsPhased() {
		f |= 0x08
	}
	if p.IsBurning() {
		f |= 0x10
	}
	if p.IsSpeedBoosted() {
		f |= 0x20
	}
	if p.IsRooted() {
		f |= 0x40
	}
	if p.IsSlowed() {
		f |= 0x80
	}
	return f
}

// Die clears transient status effects on death, per §3 ("Dead clears most
// status effects"). Shield/phased/frozen/etc. are all reset; team id and
// identity survive.
func (p *Player) Die() {
	p.effects.shieldUntil.Store(0)
	p.effects.gemBoostUntil.Store(0)
	p.effects.frozenUntil.Store(0)
	p.effects.phasedUntil.Store(0)
	p.effects.burningUntil.Store(0)
	p.effects.speedBoostUntil.Store(0)
	p.effects.rootedUntil.Store(0)
	p.effects.slowedUntil.Store(0)
}

// Respawn restores health and moves the player to spawn, clearing
// transient state. Called by the instance's one-shot respawn task.
func (p *Player) Respawn(spawn Position) {
	p.mu.Lock()
	p.position = spawn
	p.health = p.maxHealth
	p.mu.Unlock()
	p.Die()
}

// Heartbeat records the last-seen time for timeout detection.
func (p *Player) Heartbeat() {
	p.lastHeartbeat.Store(NowMillis())
}

// LastHeartbeat returns the last recorded heartbeat time, unix millis.
func (p *Player) LastHeartbeat() int64 {
	return p.lastHeartbeat.Load()
}

// Bindings returns a snapshot of the transport bindings.
func (p *Player) Bindings() TransportBindings {
	p.bindingsMu.RLock()
	defer p.bindingsMu.RUnlock()
	return p.bindings
}

// RebindReliable atomically sets the reliable stream handle (on
// (re)connect).
func (p *Player) RebindReliable(c net.Conn) {
	p.bindingsMu.Lock()
	p.bindings.Reliable = c
	p.bindingsMu.Unlock()
}

// RebindUnreliable atomically sets the unreliable peer address (on
// HEARTBEAT or any unreliable packet, since UDP "connections" float).
func (p *Player) RebindUnreliable(addr net.Addr) {
	p.bindingsMu.Lock()
	p.bindings.Unreliable = addr
	p.bindingsMu.Unlock()
}

// LastMoveAt / MarkMoved support the movement validator's speed check.
func (p *Player) LastMoveAt() int64  { return p.lastMoveAt.Load() }
func (p *Player) MarkMoved(now int64) { p.lastMoveAt.Store(now) }

// LastShotAt / MarkShot support the fire-rate gate.
func (p *Player) LastShotAt() int64  { return p.lastShotAt.Load() }
func (p *Player) MarkShot(now int64) { p.lastShotAt.Store(now) }

// GrantSpeedWaiver allows the next position update to bypass the speed
// check even if it implies an impossible distance — used after a Star
// item's server-side teleport so the client's follow-up update isn't
// rejected as a speed hack (§4.7).
func (p *Player) GrantSpeedWaiver(untilMs int64) {
	p.speedWaiveUntil.Store(untilMs)
}

// ConsumeSpeedWaiver reports whether a waiver is active right now, and
// clears it (one-shot).
func (p *Player) ConsumeSpeedWaiver(now int64) bool {
	until := p.speedWaiveUntil.Load()
	if until == 0 || now > until {
		return false
	}
	p.speedWaiveUntil.Store(0)
	return true
}

// MarkBot flags this player as a bot-controlled participant.
func (p *Player) MarkBot() { p.isBot = true }

// IsBotControlled reports whether this player is server-controlled.
func (p *Player) IsBotControlled() bool { return p.isBot }
