package game

// ProjectileTypeID indexes the immutable projectile definition table.
type ProjectileTypeID uint8

const (
	ProjectileBolt ProjectileTypeID = iota
	ProjectileHeavyBolt
	ProjectileArrow
	ProjectileBoomerang
	ProjectileFireball
)

// OnHitEffect is the tagged variant of what a projectile does to the
// player it hits, beyond raw damage.
type OnHitEffect uint8

const (
	OnHitNone OnHitEffect = iota
	OnHitPullToOwner
	OnHitFreeze
	OnHitTeleportOwnerBehind
	OnHitPush
	OnHitLifeSteal
)

// AreaTrigger selects when a projectile's area-of-effect fires.
type AreaTrigger uint8

const (
	AreaTriggerNone AreaTrigger = iota
	AreaTriggerOnHit
	AreaTriggerOnMaxRange
)

// ExplosionConfig describes blast falloff for an explosive projectile.
type ExplosionConfig struct {
	CenterDamage int
	EdgeDamage   int
	BlastRadius  float64
}

// AreaOfEffectConfig describes a secondary area effect layered on a hit or
// max-range event, independent of whether the projectile is "explosive".
type AreaOfEffectConfig struct {
	Trigger  AreaTrigger
	Radius   float64
	Damage   int
	FreezeMs int64
	RootMs   int64
	Boomerang bool
}

// ProjectileDefinition is an immutable row of the projectile table.
type ProjectileDefinition struct {
	ID                  ProjectileTypeID
	BaseDamage          int
	MaxRange            float64
	SpeedMultiplier     float64
	OnHit               OnHitEffect
	OnHitParam          float64 // freeze-ms / push-distance / life-steal-percent / teleport distance, per OnHit
	OnHitFreezeMs       int64   // OnHitTeleportOwnerBehind's companion freeze
	PierceCount         int
	RicochetBounces     int
	PassesThroughWalls  bool
	Explosion           *ExplosionConfig
	AreaOfEffect        *AreaOfEffectConfig
	ExplodesOnPlayerHit bool
}

// Boomerang reports whether this type reverses at max range instead of
// despawning (§4.5 step 2).
func (d ProjectileDefinition) Boomerang() bool {
	return d.AreaOfEffect != nil && d.AreaOfEffect.Boomerang
}

// EffectiveDamage applies charge level (0..100) and distance-traveled
// falloff to the base damage. Charge linearly scales damage up to +50% at
// full charge; distance beyond half max range linearly falls off to 60%
// of that charged value at max range, modeling arcade-shooter feel
// without a physically exact drag model.
func (d ProjectileDefinition) EffectiveDamage(chargeLevel int, distanceTraveled float64) int {
	if chargeLevel < 0 {
		chargeLevel = 0
	}
	if chargeLevel > 100 {
		chargeLevel = 100
	}
	charged := float64(d.BaseDamage) * (1.0 + 0.5*float64(chargeLevel)/100.0)
	if d.MaxRange <= 0 {
		return int(charged)
	}
	half := d.MaxRange / 2
	if distanceTraveled <= half {
		return int(charged)
	}
	falloffFrac := (distanceTraveled - half) / (d.MaxRange - half)
	if falloffFrac > 1 {
		falloffFrac = 1
	}
	scaled := charged * (1.0 - 0.4*falloffFrac)
	return int(scaled)
}

// ProjectileTable is the immutable, process-lifetime projectile registry.
type ProjectileTable struct {
	byID map[ProjectileTypeID]ProjectileDefinition
}

// Get returns the definition for id and whether it exists.
func (t *ProjectileTable) Get(id ProjectileTypeID) (ProjectileDefinition, bool) {
	d, ok := t.byID[id]
	return d, ok
}

// DefaultProjectileTable builds the stock projectile roster.
func DefaultProjectileTable() *ProjectileTable {
	rows := []ProjectileDefinition{
		{
			ID: ProjectileBolt, BaseDamage: 12, MaxRange: 14, SpeedMultiplier: 1.0,
			OnHit: OnHitNone, PierceCount: 0, RicochetBounces: 0,
		},
		{
			ID: ProjectileHeavyBolt, BaseDamage: 28, MaxRange: 10, SpeedMultiplier: 0.8,
			OnHit: OnHitPush, OnHitParam: 2.0, PierceCount: 1, RicochetBounces: 0,
			AreaOfEffect: &AreaOfEffectConfig{Trigger: AreaTriggerOnHit, Radius: 2, Damage: 8},
		},
		{
			ID: ProjectileArrow, BaseDamage: 10, MaxRange: 18, SpeedMultiplier: 1.3,
			OnHit: OnHitNone, PierceCount: 2, RicochetBounces: 0, PassesThroughWalls: false,
		},
		{
			ID: ProjectileBoomerang, BaseDamage: 16, MaxRange: 8, SpeedMultiplier: 0.9,
			OnHit: OnHitPullToOwner,
			AreaOfEffect: &AreaOfEffectConfig{Trigger: AreaTriggerOnMaxRange, Boomerang: true},
		},
		{
			ID: ProjectileFireball, BaseDamage: 20, MaxRange: 12, SpeedMultiplier: 0.7,
			OnHit: OnHitFreeze, OnHitParam: 1500,
			ExplodesOnPlayerHit: true,
			Explosion:           &ExplosionConfig{CenterDamage: 35, EdgeDamage: 10, BlastRadius: 3},
			AreaOfEffect:        &AreaOfEffectConfig{Trigger: AreaTriggerOnHit, Radius: 3, Damage: 20, FreezeMs: 1000},
		},
	}
	byID := make(map[ProjectileTypeID]ProjectileDefinition, len(rows))
	for _, r := range rows {
		byID[r.ID] = r
	}
	return &ProjectileTable{byID: byID}
}
