package game

import "fmt"

// Position is an integer tile coordinate. The invariant 0<=x<width,
// 0<=y<height is enforced at construction via NewPosition; callers that
// already know a position is in-bounds (e.g. reading it back off a Player)
// may build the struct literal directly.
type Position struct {
	X, Y int
}

// NewPosition validates (x, y) against world bounds and returns an error
// if it falls outside them.
func NewPosition(x, y, width, height int) (Position, error) {
	if x < 0 || x >= width || y < 0 || y >= height {
		return Position{}, fmt.Errorf("position (%d,%d) out of bounds [%d,%d)", x, y, width, height)
	}
	return Position{X: x, Y: y}, nil
}

// Vector is a continuous 2D velocity or displacement.
type Vector struct {
	DX, DY float64
}

// SqMagnitude returns dx^2+dy^2, avoiding a sqrt for the common
// magnitude-squared bound checks (§4.6: |v|^2 <= 2).
func (v Vector) SqMagnitude() float64 {
	return v.DX*v.DX + v.DY*v.DY
}

// CastVariant enumerates ability cast behaviors (§3 Character definition).
type CastVariant uint8

const (
	CastStandardProjectile CastVariant = iota
	CastFan
	CastGroundSlam
	CastPhaseShiftBuff
	CastDashBuff
	CastTeleportCast
)

// Ability describes one of a character's Q/E abilities.
type Ability struct {
	CooldownMs      int64
	Variant         CastVariant
	ProjectileType  ProjectileTypeID
	Range           float64
	FanCount        int     // CastFan
	FanAngleDeg     float64 // CastFan
	SlamRadius      float64 // CastGroundSlam
	BuffDurationMs  int64   // CastPhaseShiftBuff, CastDashBuff
	MaxDistance     float64 // CastDashBuff, CastTeleportCast
}

// CharacterID indexes the immutable character table.
type CharacterID uint8

// CharacterDefinition is an immutable row of the character table, built
// once at process start (see DefaultCharacterTable). New characters are
// added by appending a row, never by subclassing.
type CharacterDefinition struct {
	ID                   CharacterID
	Name                 string
	MaxHealth            int
	PrimaryProjectile    ProjectileTypeID
	ShootCooldownMs      int64
	Q, E                 Ability
}

// CharacterTable is the immutable, process-lifetime character registry.
type CharacterTable struct {
	byID map[CharacterID]CharacterDefinition
}

// Get returns the definition for id and whether it exists — server core
// rejects any character id not in the table (§7 Unauthorized action).
func (t *CharacterTable) Get(id CharacterID) (CharacterDefinition, bool) {
	d, ok := t.byID[id]
	return d, ok
}

// DefaultCharacterTable builds the stock roster. Projectile type ids refer
// to DefaultProjectileTable.
func DefaultCharacterTable() *CharacterTable {
	rows := []CharacterDefinition{
		{
			ID: 0, Name: "Warden", MaxHealth: 100,
			PrimaryProjectile: ProjectileBolt, ShootCooldownMs: 400,
			Q: Ability{CooldownMs: 6000, Variant: CastStandardProjectile, ProjectileType: ProjectileHeavyBolt, Range: 12},
			E: Ability{CooldownMs: 10000, Variant: CastPhaseShiftBuff, BuffDurationMs: 2000},
		},
		{
			ID: 1, Name: "Ranger", MaxHealth: 80,
			PrimaryProjectile: ProjectileArrow, ShootCooldownMs: 300,
			Q: Ability{CooldownMs: 5000, Variant: CastFan, ProjectileType: ProjectileArrow, FanCount: 3, FanAngleDeg: 30, Range: 14},
			E: Ability{CooldownMs: 14000, Variant: CastTeleportCast, MaxDistance: 6},
		},
		{
			ID: 2, Name: "Brute", MaxHealth: 140,
			PrimaryProjectile: ProjectileBolt, ShootCooldownMs: 500,
			Q: Ability{CooldownMs: 8000, Variant: CastGroundSlam, SlamRadius: 3},
			E: Ability{CooldownMs: 12000, Variant: CastDashBuff, MaxDistance: 5, BuffDurationMs: 600},
		},
		{
			ID: 3, Name: "Phantom", MaxHealth: 70,
			PrimaryProjectile: ProjectileBoomerang, ShootCooldownMs: 700,
			Q: Ability{CooldownMs: 9000, Variant: CastStandardProjectile, ProjectileType: ProjectileBoomerang, Range: 10},
			E: Ability{CooldownMs: 16000, Variant: CastPhaseShiftBuff, BuffDurationMs: 3000},
		},
	}
	byID := make(map[CharacterID]CharacterDefinition, len(rows))
	for _, r := range rows {
		byID[r.ID] = r
	}
	return &CharacterTable{byID: byID}
}
