package game

import (
	"math"
	"sync"

	"arena-server/internal/game/spatial"
)

// Projectile is one live, in-flight projectile. Continuous position and
// velocity; everything else is bookkeeping the engine needs to resolve
// pierce, ricochet, and boomerang behavior tick to tick.
type Projectile struct {
	ID              uint32
	OwnerID         PlayerID
	Type            ProjectileTypeID
	X, Y            float64
	DX, DY          float64
	ColorRGB        [3]byte
	ChargeLevel     int
	SpeedMultiplier float64
	Distance        float64
	RemainingBounces int
	Returning       bool
	hitSet          map[PlayerID]struct{}
}

func (q *Projectile) recordHit(id PlayerID) {
	if q.hitSet == nil {
		q.hitSet = make(map[PlayerID]struct{}, 4)
	}
	q.hitSet[id] = struct{}{}
}

// TeammateChecker reports whether a and b are on the same team. In FFA it
// always returns false; in Teams mode it compares nonzero team ids.
type TeammateChecker func(a, b PlayerID) bool

// OwnerLookup resolves a projectile's owner identity back to a live
// Player, or ok=false if they have disconnected. Disconnected-owner
// projectiles keep flying; owner-identity effects (life-steal,
// pull-to-owner) become no-ops.
type OwnerLookup func(id PlayerID) (*Player, bool)

// Engine owns every live projectile in one game instance and steps them
// once per scheduled tick (§4.5).
type Engine struct {
	world    *World
	defs     *ProjectileTable
	registry *PlayerRegistry
	grid     *spatial.HashGrid
	isTeammate TeammateChecker

	mu          sync.Mutex
	projectiles map[uint32]*Projectile
	nextID      uint32 // monotonic, kept inside the positive 31-bit range

	hittable []*Player // rebuilt each tick, reused buffer
}

// NewEngine constructs a projectile engine bound to world, the projectile
// definition table, the instance's player registry, and its teammate
// predicate.
func NewEngine(world *World, defs *ProjectileTable, registry *PlayerRegistry, isTeammate TeammateChecker) *Engine {
	return &Engine{
		world:       world,
		defs:        defs,
		registry:    registry,
		grid:        spatial.NewHashGrid(spatial.CellTiles),
		isTeammate:  isTeammate,
		projectiles: make(map[uint32]*Projectile, 64),
		hittable:    make([]*Player, 0, 64),
	}
}

// SpawnProjectile creates a new projectile owned by owner, positioned one
// cell ahead of (x, y) along (dx, dy) to prevent an immediate self-hit.
func (e *Engine) SpawnProjectile(owner PlayerID, x, y, dx, dy float64, color [3]byte, chargeLevel int, typ ProjectileTypeID) *Projectile {
	def, _ := e.defs.Get(typ)

	mag := math.Sqrt(dx*dx + dy*dy)
	ox, oy := x, y
	if mag > 0 {
		ox += dx / mag
		oy += dy / mag
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextID++
	if e.nextID == 0 || e.nextID > 0x7FFFFFFF {
		e.nextID = 1
	}
	q := &Projectile{
		ID:               e.nextID,
		OwnerID:          owner,
		Type:             typ,
		X:                ox,
		Y:                oy,
		DX:               dx,
		DY:               dy,
		ColorRGB:         color,
		ChargeLevel:      chargeLevel,
		SpeedMultiplier:  def.SpeedMultiplier,
		RemainingBounces: def.RicochetBounces,
	}
	e.projectiles[q.ID] = q
	return q
}

// Count returns the number of live projectiles.
func (e *Engine) Count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.projectiles)
}

// rebuildGrid repopulates the spatial index from every hittable player
// (alive, not shielded, not phased), reusing the prior tick's buffers.
func (e *Engine) rebuildGrid() {
	e.grid.Clear()
	e.hittable = e.hittable[:0]
	for _, p := range e.registry.GetAll() {
		if !p.IsHittable() {
			continue
		}
		idx := uint32(len(e.hittable))
		e.hittable = append(e.hittable, p)
		pos := p.Position()
		e.grid.Insert(idx, float64(pos.X), float64(pos.Y))
	}
}

// findHit returns the first hittable player within tile-overlap distance
// of (x, y) that is not a teammate of owner and is not already in hitSet.
func (e *Engine) findHit(x, y float64, owner PlayerID, hitSet map[PlayerID]struct{}) (*Player, bool) {
	var found *Player
	e.grid.ForEachNearby(x, y, func(idx uint32) {
		if found != nil {
			return
		}
		p := e.hittable[idx]
		if _, already := hitSet[p.ID]; already {
			return
		}
		if e.isTeammate(owner, p.ID) {
			return
		}
		pos := p.Position()
		if math.Abs(float64(pos.X)-x) < 1.0 && math.Abs(float64(pos.Y)-y) < 1.0 {
			found = p
		}
	})
	if found == nil {
		return nil, false
	}
	return found, true
}

// Tick advances every live projectile by one scheduled tick and returns
// the ordered list of events produced (§4.5). ownerLookup resolves a
// projectile's owner for gem-boost (double stepping); a disconnected owner
// simply yields ok=false and the projectile steps once per tick.
func (e *Engine) Tick(ownerLookup OwnerLookup) []ProjectileEvent {
	e.rebuildGrid()

	e.mu.Lock()
	ids := make([]uint32, 0, len(e.projectiles))
	for id := range e.projectiles {
		ids = append(ids, id)
	}
	e.mu.Unlock()

	var events []ProjectileEvent
	var toRemove []uint32

	for _, id := range ids {
		e.mu.Lock()
		q, ok := e.projectiles[id]
		e.mu.Unlock()
		if !ok {
			continue
		}
		def, ok := e.defs.Get(q.Type)
		if !ok {
			toRemove = append(toRemove, id)
			continue
		}

		steps := 1
		if owner, ok := ownerLookup(q.OwnerID); ok && owner.IsGemBoosted() {
			steps = 2
		}

		movePerTick := math.Sqrt(q.DX*q.DX+q.DY*q.DY) * q.SpeedMultiplier
		subSteps := int(math.Ceil(movePerTick / 0.5))
		if subSteps < 1 {
			subSteps = 1
		}
		fraction := 1.0 / float64(subSteps)

		removed := false
	stepLoop:
		for s := 0; s < steps; s++ {
			for sub := 0; sub < subSteps; sub++ {
				q.X += fraction * q.DX
				q.Y += fraction * q.DY
				q.Distance += fraction * math.Sqrt(q.DX*q.DX+q.DY*q.DY)

				events = append(events, MovedEvent{ProjectileID: q.ID, X: q.X, Y: q.Y})

				if q.Distance >= def.MaxRange {
					if def.Boomerang() && !q.Returning {
						q.DX, q.DY = -q.DX, -q.DY
						q.Returning = true
						q.Distance = 0
						q.hitSet = nil
						continue
					}
					events = append(events, e.terminalEvent(q, def)...)
					removed = true
					break stepLoop
				}

				tx, ty := int(math.Floor(q.X)), int(math.Floor(q.Y))
				if tx < 0 || tx >= e.world.Width || ty < 0 || ty >= e.world.Height {
					events = append(events, e.terminalEvent(q, def)...)
					removed = true
					break stepLoop
				}

				tile := e.world.TileAt(tx, ty)
				if !e.world.IsWalkable(tx, ty) {
					if def.PassesThroughWalls && tile != TileFence {
						// continue unimpeded
					} else if q.RemainingBounces > 0 && tile != TileFence {
						q.DX, q.DY = reflect(q.DX, q.DY)
						q.RemainingBounces--
					} else {
						events = append(events, e.terminalEvent(q, def)...)
						removed = true
						break stepLoop
					}
				}

				if target, hit := e.findHit(q.X, q.Y, q.OwnerID, q.hitSet); hit {
					if def.ExplodesOnPlayerHit {
						events = append(events, e.areaEffectAt(q, def, target.ID)...)
						removed = true
						break stepLoop
					}

					damage := def.EffectiveDamage(q.ChargeLevel, q.Distance)
					newHP, killed := target.ApplyDamage(damage)
					q.recordHit(target.ID)

					if killed {
						events = append(events, HitEvent{ProjectileID: q.ID, OwnerID: q.OwnerID, TargetID: target.ID, Damage: damage, TargetHP: newHP, Type: q.Type})
						events = append(events, KillEvent{ProjectileID: q.ID, KillerID: q.OwnerID, TargetID: target.ID})
					} else {
						events = append(events, HitEvent{ProjectileID: q.ID, OwnerID: q.OwnerID, TargetID: target.ID, Damage: damage, TargetHP: newHP, Type: q.Type})
					}

					if def.PierceCount > 0 && len(q.hitSet) < def.PierceCount {
						if def.AreaOfEffect != nil && def.AreaOfEffect.Trigger == AreaTriggerOnHit {
							events = append(events, e.areaOfEffectDamage(q.OwnerID, target.ID, q.X, q.Y, *def.AreaOfEffect)...)
						}
						continue
					}

					if def.AreaOfEffect != nil && def.AreaOfEffect.Trigger == AreaTriggerOnHit {
						events = append(events, e.areaOfEffectDamage(q.OwnerID, target.ID, q.X, q.Y, *def.AreaOfEffect)...)
					}
					removed = true
					break stepLoop
				}
			}
		}

		if removed {
			toRemove = append(toRemove, q.ID)
		}
	}

	if len(toRemove) > 0 {
		e.mu.Lock()
		for _, id := range toRemove {
			delete(e.projectiles, id)
		}
		e.mu.Unlock()
	}

	return events
}

// terminalEvent emits either an AreaEffect (plus its damage events) or a
// plain Despawned, depending on the definition's explosion/AoE config.
func (e *Engine) terminalEvent(q *Projectile, def ProjectileDefinition) []ProjectileEvent {
	if def.Explosion != nil || (def.AreaOfEffect != nil && def.AreaOfEffect.Trigger == AreaTriggerOnMaxRange) {
		return e.areaEffectAt(q, def, ZeroPlayerID)
	}
	return []ProjectileEvent{DespawnedEvent{ProjectileID: q.ID}}
}

// areaEffectAt emits the AreaEffectEvent marker plus per-victim hit/kill
// events, excluding the owner and (if set) excludeID.
func (e *Engine) areaEffectAt(q *Projectile, def ProjectileDefinition, excludeID PlayerID) []ProjectileEvent {
	radius := 0.0
	switch {
	case def.Explosion != nil:
		radius = def.Explosion.BlastRadius
	case def.AreaOfEffect != nil:
		radius = def.AreaOfEffect.Radius
	}
	events := []ProjectileEvent{AreaEffectEvent{ProjectileID: q.ID, CenterX: q.X, CenterY: q.Y, Radius: radius}}
	events = append(events, e.areaOfEffectDamageExplosion(q, def, excludeID)...)
	return events
}

// areaOfEffectDamageExplosion applies either the explosion falloff config
// or the flat AoE damage config, whichever is present, radiating from the
// projectile's current position.
func (e *Engine) areaOfEffectDamageExplosion(q *Projectile, def ProjectileDefinition, excludeID PlayerID) []ProjectileEvent {
	var events []ProjectileEvent
	for _, p := range e.hittable {
		if p.ID == q.OwnerID || p.ID == excludeID {
			continue
		}
		if e.isTeammate(q.OwnerID, p.ID) {
			continue
		}
		pos := p.Position()
		dist := math.Hypot(float64(pos.X)-q.X, float64(pos.Y)-q.Y)

		var damage int
		var radius float64
		switch {
		case def.Explosion != nil:
			radius = def.Explosion.BlastRadius
			if dist > radius {
				continue
			}
			frac := 1.0
			if radius > 0 {
				frac = 1.0 - dist/radius
			}
			damage = def.Explosion.EdgeDamage + int(float64(def.Explosion.CenterDamage-def.Explosion.EdgeDamage)*frac)
		case def.AreaOfEffect != nil:
			radius = def.AreaOfEffect.Radius
			if dist > radius {
				continue
			}
			damage = def.AreaOfEffect.Damage
		default:
			continue
		}

		newHP, killed := p.ApplyDamage(damage)
		if killed {
			events = append(events, AreaEffectKillEvent{OwnerID: q.OwnerID, TargetID: p.ID})
		} else {
			events = append(events, AreaEffectHitEvent{TargetID: p.ID, Damage: damage, TargetHP: newHP})
		}
	}
	return events
}

// areaOfEffectDamage applies a pierce-path AoE config (the hit target is
// excluded so it is not double-damaged by its own AoE, §4.5).
func (e *Engine) areaOfEffectDamage(owner, excludeID PlayerID, cx, cy float64, cfg AreaOfEffectConfig) []ProjectileEvent {
	var events []ProjectileEvent
	for _, p := range e.hittable {
		if p.ID == owner || p.ID == excludeID {
			continue
		}
		if e.isTeammate(owner, p.ID) {
			continue
		}
		pos := p.Position()
		dist := math.Hypot(float64(pos.X)-cx, float64(pos.Y)-cy)
		if dist > cfg.Radius {
			continue
		}
		newHP, killed := p.ApplyDamage(cfg.Damage)
		if killed {
			events = append(events, AreaEffectKillEvent{OwnerID: owner, TargetID: p.ID})
		} else {
			events = append(events, AreaEffectHitEvent{TargetID: p.ID, Damage: cfg.Damage, TargetHP: newHP})
		}
	}
	return events
}

// reflect reverses the velocity axis whose motion dominated the step that
// carried the projectile into the non-walkable tile (tile-normal
// reflection for an axis-aligned grid): the larger-magnitude axis is
// taken to be the one that crossed the tile boundary.
func reflect(dx, dy float64) (float64, float64) {
	if math.Abs(dx) > math.Abs(dy) {
		return -dx, dy
	}
	return dx, -dy
}
