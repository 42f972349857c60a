package store_test

import (
	"context"
	"path/filepath"
	"testing"

	"arena-server/internal/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRegisterAndAuthenticate(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Register(ctx, "alice", "hunter2"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := s.Authenticate(ctx, "alice", "hunter2"); err != nil {
		t.Errorf("Authenticate with correct password: %v", err)
	}
	if err := s.Authenticate(ctx, "alice", "wrong"); err != store.ErrInvalidCredentials {
		t.Errorf("got %v, want ErrInvalidCredentials", err)
	}
	if err := s.Authenticate(ctx, "nobody", "whatever"); err != store.ErrInvalidCredentials {
		t.Errorf("unknown username: got %v, want ErrInvalidCredentials (indistinguishable from a wrong password)", err)
	}
}

func TestRegisterRejectsDuplicateUsername(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Register(ctx, "bob", "pw1"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := s.Register(ctx, "bob", "pw2"); err != store.ErrAccountExists {
		t.Errorf("got %v, want ErrAccountExists", err)
	}
}

func TestNewAccountDefaultsToEloOneThousand(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Register(ctx, "newbie", "pw"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	elo, err := s.Elo(ctx, "newbie")
	if err != nil {
		t.Fatalf("Elo: %v", err)
	}
	if elo != 1000 {
		t.Errorf("got %d, want 1000", elo)
	}
}

func TestEloForUnknownUsernameDefaultsToOneThousand(t *testing.T) {
	s := openTestStore(t)
	elo, err := s.Elo(context.Background(), "ghost")
	if err != nil {
		t.Fatalf("Elo: %v", err)
	}
	if elo != 1000 {
		t.Errorf("got %d, want 1000 for an unknown account", elo)
	}
}

func TestUpdateEloPersists(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Register(ctx, "climber", "pw"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := s.UpdateElo(ctx, "climber", 1250); err != nil {
		t.Fatalf("UpdateElo: %v", err)
	}
	elo, err := s.Elo(ctx, "climber")
	if err != nil {
		t.Fatalf("Elo: %v", err)
	}
	if elo != 1250 {
		t.Errorf("got %d, want 1250", elo)
	}
}

func TestSaveMatchAndMatchHistory(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Register(ctx, "winner", "pw"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := s.Register(ctx, "loser", "pw"); err != nil {
		t.Fatalf("Register: %v", err)
	}

	rows := []store.MatchResultRow{
		{Username: "winner", Kills: 5, Deaths: 1, Rank: 1, EloDelta: 16},
		{Username: "loser", Kills: 1, Deaths: 5, Rank: 2, EloDelta: -16},
	}
	matchID, err := s.SaveMatch(ctx, 0, "ffa", true, 300, rows)
	if err != nil {
		t.Fatalf("SaveMatch: %v", err)
	}
	if matchID <= 0 {
		t.Fatalf("expected a positive match id, got %d", matchID)
	}

	history, err := s.MatchHistory(ctx, "winner", 0, 10)
	if err != nil {
		t.Fatalf("MatchHistory: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("expected 1 history entry, got %d", len(history))
	}
	entry := history[0]
	if entry.MatchID != matchID || entry.Kills != 5 || entry.Deaths != 1 || entry.Rank != 1 || !entry.Ranked {
		t.Errorf("unexpected history entry: %+v", entry)
	}
}

func TestMatchHistoryIsEmptyForUnknownUsername(t *testing.T) {
	s := openTestStore(t)
	history, err := s.MatchHistory(context.Background(), "nobody", 0, 10)
	if err != nil {
		t.Fatalf("MatchHistory: %v", err)
	}
	if len(history) != 0 {
		t.Errorf("expected no history rows, got %d", len(history))
	}
}

func TestLeaderboardOrdersByEloDescending(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for name, elo := range map[string]int{"low": 900, "high": 1600, "mid": 1200} {
		if err := s.Register(ctx, name, "pw"); err != nil {
			t.Fatalf("Register(%s): %v", name, err)
		}
		if err := s.UpdateElo(ctx, name, elo); err != nil {
			t.Fatalf("UpdateElo(%s): %v", name, err)
		}
	}

	board, err := s.Leaderboard(ctx, 10)
	if err != nil {
		t.Fatalf("Leaderboard: %v", err)
	}
	if len(board) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(board))
	}
	if board[0].Username != "high" || board[1].Username != "mid" || board[2].Username != "low" {
		t.Errorf("expected descending elo order, got %+v", board)
	}
	if board[0].Rank != 1 || board[1].Rank != 2 || board[2].Rank != 3 {
		t.Errorf("expected 1-based sequential ranks, got %+v", board)
	}
}

func TestLeaderboardRespectsLimit(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for i, name := range []string{"a", "b", "c"} {
		if err := s.Register(ctx, name, "pw"); err != nil {
			t.Fatalf("Register(%s): %v", name, err)
		}
		if err := s.UpdateElo(ctx, name, 1000+i); err != nil {
			t.Fatalf("UpdateElo(%s): %v", name, err)
		}
	}

	board, err := s.Leaderboard(ctx, 2)
	if err != nil {
		t.Fatalf("Leaderboard: %v", err)
	}
	if len(board) != 2 {
		t.Errorf("expected limit to cap results at 2, got %d", len(board))
	}
}
