// Package spatial provides cache-efficient spatial data structures for
// broad-phase collision detection and neighbor queries.
//
// The grid favors preallocated, reused buffers over per-query allocation to
// minimize GC pressure on the hot projectile tick path.
package spatial

import "math"

// CellTiles is the edge length of one grid cell, in world tiles.
const CellTiles = 4.0

// HashGrid is a fixed-cell spatial hash keyed by a packed 64-bit cell
// coordinate. Unlike a dense 2D array, it only allocates buckets for cells
// that actually contain an entity, which matters when the world is large
// and sparsely populated (a 500x500 tile map with eight players).
//
// Rebuilt once per projectile tick from the live hittable-player set; never
// mutated outside that tick, so it needs no internal locking.
type HashGrid struct {
	cellEdge    float64
	invCellEdge float64
	cells       map[uint64][]uint32 // cellKey -> entity indices
	touched     []uint64            // keys written since the last Clear, for O(touched) reset
	scratch     []uint32            // reusable buffer for ForEachNearby / QueryNearby results
}

// NewHashGrid creates a spatial hash with the given cell edge length in
// tiles. cellEdge should equal CellTiles for the projectile broad-phase;
// callers needing a different granularity may pass their own.
func NewHashGrid(cellEdge float64) *HashGrid {
	if cellEdge <= 0 {
		cellEdge = CellTiles
	}
	return &HashGrid{
		cellEdge:    cellEdge,
		invCellEdge: 1.0 / cellEdge,
		cells:       make(map[uint64][]uint32, 256),
		touched:     make([]uint64, 0, 256),
		scratch:     make([]uint32, 0, 64),
	}
}

// cellCoord maps a continuous or tile coordinate to its cell index.
func (g *HashGrid) cellCoord(v float64) int32 {
	return int32(math.Floor(v * g.invCellEdge))
}

// cellKey packs (cx, cy) into the 64-bit key: (cx << 32) | (cy & 0xFFFFFFFF).
func cellKey(cx, cy int32) uint64 {
	return (uint64(uint32(cx)) << 32) | uint64(uint32(cy))
}

// Clear empties every touched bucket without discarding its backing array,
// and forgets which keys were touched. O(touched cells), not O(world size).
func (g *HashGrid) Clear() {
	for _, k := range g.touched {
		if bucket, ok := g.cells[k]; ok {
			g.cells[k] = bucket[:0]
		}
	}
	g.touched = g.touched[:0]
}

// Insert adds entityID at world position (x, y). O(1) amortized.
func (g *HashGrid) Insert(entityID uint32, x, y float64) {
	key := cellKey(g.cellCoord(x), g.cellCoord(y))
	bucket := g.cells[key]
	if len(bucket) == 0 {
		g.touched = append(g.touched, key)
	}
	g.cells[key] = append(bucket, entityID)
}

// ForEachNearby invokes fn once per entity index in the 3x3 cell
// neighborhood centered on (x, y). fn may be called with duplicate IDs if
// an entity was inserted more than once; callers needing set semantics
// should dedupe on the IDs they recognize (the engine's hit-set already
// does this per projectile).
//
// No allocation: the neighborhood is walked directly against the map.
func (g *HashGrid) ForEachNearby(x, y float64, fn func(entityID uint32)) {
	ccx, ccy := g.cellCoord(x), g.cellCoord(y)
	for dy := int32(-1); dy <= 1; dy++ {
		for dx := int32(-1); dx <= 1; dx++ {
			bucket, ok := g.cells[cellKey(ccx+dx, ccy+dy)]
			if !ok {
				continue
			}
			for _, id := range bucket {
				fn(id)
			}
		}
	}
}

// QueryNearby returns the 3x3 neighborhood candidates around (x, y) using
// the grid's reusable scratch buffer. The slice is invalidated by the next
// call to QueryNearby or Clear; copy it if it must outlive that.
func (g *HashGrid) QueryNearby(x, y float64) []uint32 {
	g.scratch = g.scratch[:0]
	g.ForEachNearby(x, y, func(id uint32) {
		g.scratch = append(g.scratch, id)
	})
	return g.scratch
}

// Stats reports grid occupancy for diagnostics.
type Stats struct {
	TouchedCells   int
	TotalEntities  int
	MaxInCell      int
	AvgPerNonEmpty float64
}

// Stats returns current occupancy statistics over the touched cells.
func (g *HashGrid) Stats() Stats {
	var total, max int
	for _, k := range g.touched {
		n := len(g.cells[k])
		total += n
		if n > max {
			max = n
		}
	}
	avg := 0.0
	if len(g.touched) > 0 {
		avg = float64(total) / float64(len(g.touched))
	}
	return Stats{
		TouchedCells:   len(g.touched),
		TotalEntities:  total,
		MaxInCell:      max,
		AvgPerNonEmpty: avg,
	}
}
