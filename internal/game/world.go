package game

import (
	"math/rand"
)

// Tile is the terrain id of one grid cell. TileFence is a placed structure,
// distinct from map-authored solid tiles, because it is the one tile kind
// a projectile's passesThroughWalls flag must still respect (§4.5 step 4).
type Tile uint8

const (
	TileFloor Tile = iota
	TileSolid
	TileFence
)

// World is the immutable-size, mutable-content tile grid a game instance
// simulates against. Width/height never change after construction; the
// tile contents do, via placed structures (fences).
type World struct {
	Name   string
	Width  int
	Height int
	tiles  []Tile // row-major, len == Width*Height

	spawnPoints []Position
}

// NewWorld builds an all-floor world of the given size, optionally seeded
// with solid tiles at the given positions (walls, obstacles) and a spawn
// point list. A loader that reads an authored map file is an explicit
// external collaborator (§1) — this constructor is the in-process seam it
// plugs into.
func NewWorld(name string, width, height int, solid []Position, spawnPoints []Position) *World {
	w := &World{
		Name:        name,
		Width:       width,
		Height:      height,
		tiles:       make([]Tile, width*height),
		spawnPoints: spawnPoints,
	}
	for _, p := range solid {
		if w.inBounds(p.X, p.Y) {
			w.tiles[w.index(p.X, p.Y)] = TileSolid
		}
	}
	if len(w.spawnPoints) == 0 {
		w.spawnPoints = []Position{{X: width / 2, Y: height / 2}}
	}
	return w
}

func (w *World) index(x, y int) int { return y*w.Width + x }

func (w *World) inBounds(x, y int) bool {
	return x >= 0 && x < w.Width && y >= 0 && y < w.Height
}

// IsWalkable returns false for out-of-bounds or solid tiles (including
// fences).
func (w *World) IsWalkable(x, y int) bool {
	if !w.inBounds(x, y) {
		return false
	}
	t := w.tiles[w.index(x, y)]
	return t != TileSolid && t != TileFence
}

// TileAt returns the tile at (x, y), or TileSolid if out of bounds.
func (w *World) TileAt(x, y int) Tile {
	if !w.inBounds(x, y) {
		return TileSolid
	}
	return w.tiles[w.index(x, y)]
}

// SetTile overwrites a single tile, e.g. to place or remove a fence.
// Returns false (no-op) if out of bounds.
func (w *World) SetTile(x, y int, t Tile) bool {
	if !w.inBounds(x, y) {
		return false
	}
	w.tiles[w.index(x, y)] = t
	return true
}

// PlaceFence attempts to place a fence tile at (x, y); it only succeeds on
// a currently-walkable tile, so a fence can never overwrite a wall or
// another fence.
func (w *World) PlaceFence(x, y int) bool {
	if !w.IsWalkable(x, y) {
		return false
	}
	return w.SetTile(x, y, TileFence)
}

// RandomWalkableTile returns a uniformly random walkable tile, retrying up
// to maxAttempts times before giving up (empty Position, false).
func (w *World) RandomWalkableTile(maxAttempts int) (Position, bool) {
	for i := 0; i < maxAttempts; i++ {
		x := rand.Intn(w.Width)
		y := rand.Intn(w.Height)
		if w.IsWalkable(x, y) {
			return Position{X: x, Y: y}, true
		}
	}
	return Position{}, false
}

// PickSpawnPoint returns a spawn point not currently occupied by any
// position in occupied, falling back to the first authored spawn point if
// every one is occupied.
func (w *World) PickSpawnPoint(occupied []Position) Position {
	for _, sp := range w.spawnPoints {
		taken := false
		for _, o := range occupied {
			if o == sp {
				taken = true
				break
			}
		}
		if !taken {
			return sp
		}
	}
	return w.spawnPoints[0]
}

// Area returns width*height, used to scale item-spawn counts (§4.10).
func (w *World) Area() int {
	return w.Width * w.Height
}
