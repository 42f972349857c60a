package matchmaker

import (
	"testing"
	"time"

	"arena-server/internal/game"
)

func idFor(n byte) game.PlayerID {
	var id game.PlayerID
	id[15] = n
	return id
}

func TestTickFormsCloseEloPairs(t *testing.T) {
	var formed []MatchFormed
	q := New(func(m MatchFormed) { formed = append(formed, m) }, nil, nil)
	now := time.Unix(0, 0)
	q.nowFn = func() time.Time { return now }

	q.Enqueue(idFor(1), "near-a", 1000)
	q.Enqueue(idFor(2), "near-b", 1020)
	q.Enqueue(idFor(3), "far", 2000)

	q.tick()

	if len(formed) != 1 {
		t.Fatalf("expected 1 match formed, got %d", len(formed))
	}
	names := map[string]bool{formed[0].Players[0].Username: true, formed[0].Players[1].Username: true}
	if !names["near-a"] || !names["near-b"] {
		t.Errorf("expected the two close-ELO players to match, got %+v", formed[0].Players)
	}
	if q.Len() != 1 {
		t.Errorf("the unmatched far player should remain queued, got %d waiting", q.Len())
	}
}

func TestTickWidensToleranceWithWait(t *testing.T) {
	var formed []MatchFormed
	q := New(func(m MatchFormed) { formed = append(formed, m) }, nil, nil)
	now := time.Unix(0, 0)
	q.nowFn = func() time.Time { return now }

	q.Enqueue(idFor(1), "patient", 1000)
	q.Enqueue(idFor(2), "distant", 1400)

	q.tick()
	if len(formed) != 0 {
		t.Fatalf("players 400 apart should not match immediately, got %d matches", len(formed))
	}

	now = now.Add(6 * TickInterval) // tolerance has widened to 100 + 6*50 = 400
	q.tick()
	if len(formed) != 1 {
		t.Fatalf("after enough aging the pair should match, got %d matches", len(formed))
	}
}

func TestEnqueueReplacesPriorEntry(t *testing.T) {
	q := New(nil, nil, nil)
	id := idFor(1)
	q.Enqueue(id, "player", 1000)
	q.Enqueue(id, "player", 1500)

	if q.Len() != 1 {
		t.Fatalf("re-enqueue should replace, not duplicate: got %d entries", q.Len())
	}
	if q.waiting[0].Elo != 1500 {
		t.Errorf("re-enqueue should carry the latest ELO, got %d", q.waiting[0].Elo)
	}
}

func TestDequeueRemovesPlayer(t *testing.T) {
	q := New(nil, nil, nil)
	id := idFor(1)
	q.Enqueue(id, "player", 1000)
	q.Dequeue(id)
	if q.Len() != 0 {
		t.Errorf("expected queue to be empty after dequeue, got %d", q.Len())
	}
}
