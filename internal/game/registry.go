package game

import (
	"net"
	"sync"
)

// PlayerRegistry is the concurrent, in-memory directory of players active
// in an instance (or connected globally, pre-instance), keyed by stable
// identity. Point mutations are lock-free (sync.Map); range-like queries
// (getByTransport, getTimedOut) take a consistent snapshot.
type PlayerRegistry struct {
	players sync.Map // PlayerID -> *Player
}

// NewPlayerRegistry constructs an empty registry.
func NewPlayerRegistry() *PlayerRegistry {
	return &PlayerRegistry{}
}

// Add registers p, replacing any existing entry for the same identity
// (rejoin case).
func (r *PlayerRegistry) Add(p *Player) {
	r.players.Store(p.ID, p)
}

// Remove deregisters id.
func (r *PlayerRegistry) Remove(id PlayerID) {
	r.players.Delete(id)
}

// Get returns the player for id, if present.
func (r *PlayerRegistry) Get(id PlayerID) (*Player, bool) {
	v, ok := r.players.Load(id)
	if !ok {
		return nil, false
	}
	return v.(*Player), true
}

// GetAll returns a snapshot slice of all registered players.
func (r *PlayerRegistry) GetAll() []*Player {
	var out []*Player
	r.players.Range(func(_, v any) bool {
		out = append(out, v.(*Player))
		return true
	})
	return out
}

// Len reports the current participant count.
func (r *PlayerRegistry) Len() int {
	n := 0
	r.players.Range(func(_, _ any) bool { n++; return true })
	return n
}

// GetByTransport finds the player currently bound to the given reliable
// connection, used to resolve a disconnect event back to an identity.
func (r *PlayerRegistry) GetByTransport(c net.Conn) (*Player, bool) {
	var found *Player
	r.players.Range(func(_, v any) bool {
		p := v.(*Player)
		if p.Bindings().Reliable == c {
			found = p
			return false
		}
		return true
	})
	return found, found != nil
}

// GetTimedOut returns players whose last heartbeat predates nowMs -
// clientTimeoutMs.
func (r *PlayerRegistry) GetTimedOut(nowMs, clientTimeoutMs int64) []*Player {
	var out []*Player
	cutoff := nowMs - clientTimeoutMs
	r.players.Range(func(_, v any) bool {
		p := v.(*Player)
		if p.LastHeartbeat() < cutoff {
			out = append(out, p)
		}
		return true
	})
	return out
}

// UpdateHeartbeat records a heartbeat for id if it is registered.
func (r *PlayerRegistry) UpdateHeartbeat(id PlayerID) {
	if p, ok := r.Get(id); ok {
		p.Heartbeat()
	}
}

// Positions returns the current authoritative positions of every
// registered player, used by the spawn picker to avoid overlapping a
// respawn with a live player.
func (r *PlayerRegistry) Positions() []Position {
	var out []Position
	r.players.Range(func(_, v any) bool {
		out = append(out, v.(*Player).Position())
		return true
	})
	return out
}
