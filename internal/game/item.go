package game

import (
	"sync"
)

// ItemKind is the variant of a spawned/held item.
type ItemKind uint8

const (
	ItemHeart ItemKind = iota
	ItemShield
	ItemGem
	ItemStar
	ItemFence
)

const (
	ShieldDurationMs   = 8_000
	GemBoostDurationMs = 10_000
	DefaultInventoryCap = 3
	ItemPickupRadius    = 0 // Chebyshev radius; same-tile only
	FenceTileCount      = 3
	// StarWaiverGraceMs bounds how long a Star teleport's one-shot speed
	// waiver stays claimable before the follow-up position update is
	// treated as an ordinary (and likely rejected) move.
	StarWaiverGraceMs = 2_000
)

// Item is a world-placed pickup.
type Item struct {
	ID       uint64
	Position Position
	Kind     ItemKind
}

// Inventory is a per-player, size-capped slot list.
type Inventory struct {
	mu    sync.Mutex
	cap   int
	items []ItemKind
}

// NewInventory builds an empty inventory with the given slot cap.
func NewInventory(capSize int) *Inventory {
	return &Inventory{cap: capSize, items: make([]ItemKind, 0, capSize)}
}

// Add appends kind if under cap; returns false (no-op) if full (§3
// invariant: size <= inventory-cap).
func (inv *Inventory) Add(kind ItemKind) bool {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	if len(inv.items) >= inv.cap {
		return false
	}
	inv.items = append(inv.items, kind)
	return true
}

// RemoveOne removes the first occurrence of kind; returns false if absent.
func (inv *Inventory) RemoveOne(kind ItemKind) bool {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	for i, k := range inv.items {
		if k == kind {
			inv.items = append(inv.items[:i], inv.items[i+1:]...)
			return true
		}
	}
	return false
}

// Size returns the current slot count.
func (inv *Inventory) Size() int {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return len(inv.items)
}

// Snapshot returns a copy of the held items, for the INVENTORY packet.
func (inv *Inventory) Snapshot() []ItemKind {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	out := make([]ItemKind, len(inv.items))
	copy(out, inv.items)
	return out
}

// ItemManager owns the world's live item spawns and arbitrates pickup and
// use. One instance per game instance.
type ItemManager struct {
	world *World

	mu     sync.Mutex
	items  map[uint64]*Item     // id -> item
	byTile map[Position]uint64  // tile -> item id, for O(1) pickup lookup
	nextID uint64
}

// NewItemManager constructs a manager bound to world.
func NewItemManager(world *World) *ItemManager {
	return &ItemManager{
		world:  world,
		items:  make(map[uint64]*Item),
		byTile: make(map[Position]uint64),
	}
}

// SpawnRandom places one item of kind on a uniformly random walkable tile,
// retrying up to 100 times (§4.7). Returns nil if no tile was found.
func (m *ItemManager) SpawnRandom(kind ItemKind) *Item {
	pos, ok := m.world.RandomWalkableTile(100)
	if !ok {
		return nil
	}
	return m.spawnAt(pos, kind)
}

func (m *ItemManager) spawnAt(pos Position, kind ItemKind) *Item {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, occupied := m.byTile[pos]; occupied {
		return nil
	}
	m.nextID++
	it := &Item{ID: m.nextID, Position: pos, Kind: kind}
	m.items[it.ID] = it
	m.byTile[pos] = it.ID
	return it
}

// TryPickup attempts to pick up any item on pos into inv. Returns the
// picked item and true on success; false if nothing there or inv is full.
func (m *ItemManager) TryPickup(pos Position, inv *Inventory) (Item, bool) {
	m.mu.Lock()
	id, ok := m.byTile[pos]
	if !ok {
		m.mu.Unlock()
		return Item{}, false
	}
	item := *m.items[id]
	m.mu.Unlock()

	if !inv.Add(item.Kind) {
		return Item{}, false
	}

	m.mu.Lock()
	delete(m.items, id)
	delete(m.byTile, pos)
	m.mu.Unlock()
	return item, true
}

// ReturnToWorld re-places an item at pos after a failed USE (e.g. fence
// placement rolled back). Used to restore world state so the transaction
// looks atomic to the client.
func (m *ItemManager) ReturnToWorld(pos Position, kind ItemKind) {
	m.spawnAt(pos, kind)
}

// PlaceFence places up to FenceTileCount tiles centered on target,
// perpendicular to facing, only on walkable tiles. Returns the number of
// tiles actually placed; the caller treats >0 as success (§4.7).
func (m *ItemManager) PlaceFence(target Position, facing Vector) int {
	perp := Position{X: -int(facing.DY), Y: int(facing.DX)}
	if perp.X == 0 && perp.Y == 0 {
		perp = Position{X: 1, Y: 0}
	}
	placed := 0
	for i := -1; i <= 1; i++ {
		tx := target.X + perp.X*i
		ty := target.Y + perp.Y*i
		if m.world.PlaceFence(tx, ty) {
			placed++
		}
	}
	return placed
}

// Count returns the number of live items, for the item-spawn tick's
// target-count bookkeeping.
func (m *ItemManager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// ItemSpawnCount clamps the target item count to [3, 20] scaled by world
// area (§4.10: itemCount = clamp(area/2000, 3, 20)).
func ItemSpawnCount(area int) int {
	n := area / 2000
	if n < 3 {
		n = 3
	}
	if n > 20 {
		n = 20
	}
	return n
}
