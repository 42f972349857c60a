package lobby_test

import (
	"log"
	"testing"

	"arena-server/internal/game"
	"arena-server/internal/lobby"
)

func idFor(n byte) game.PlayerID {
	var id game.PlayerID
	id[15] = n
	return id
}

func testManager() *lobby.Manager {
	validateMap := func(idx int) bool { return idx == 0 }
	return lobby.NewManager(validateMap, nil, log.Default(), nil)
}

func TestCreateRejectsUnknownMap(t *testing.T) {
	m := testManager()
	_, err := m.Create(idFor(1), "host", "room", 99, 5, 8, game.ModeFFA, 0, false)
	if err != lobby.ErrInvalidMap {
		t.Errorf("got %v, want ErrInvalidMap", err)
	}
}

func TestCreateRejectsEmptyName(t *testing.T) {
	m := testManager()
	_, err := m.Create(idFor(1), "host", "   ", 0, 5, 8, game.ModeFFA, 0, false)
	if err != lobby.ErrNameRequired {
		t.Errorf("got %v, want ErrNameRequired", err)
	}
}

func TestCreateClampsDurationAndMaxPlayers(t *testing.T) {
	m := testManager()
	l, err := m.Create(idFor(1), "host", "room", 0, 999, 999, game.ModeFFA, 0, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	snap := l.Snapshot()
	if snap.DurationMin != 30 {
		t.Errorf("duration should clamp to 30, got %d", snap.DurationMin)
	}
	if snap.MaxPlayers != 16 {
		t.Errorf("maxPlayers should clamp to 16, got %d", snap.MaxPlayers)
	}
}

func TestCreateTeamsModeDerivesMaxPlayersFromTeamSize(t *testing.T) {
	m := testManager()
	l, err := m.Create(idFor(1), "host", "room", 0, 5, 99, game.ModeTeams, 3, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if l.MaxPlayers != 6 {
		t.Errorf("Teams mode should set maxPlayers to 2*teamSize=6, got %d", l.MaxPlayers)
	}
}

func TestCreateRejectsWhileAlreadyInALobby(t *testing.T) {
	m := testManager()
	host := idFor(1)
	if _, err := m.Create(host, "host", "room-1", 0, 5, 8, game.ModeFFA, 0, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := m.Create(host, "host", "room-2", 0, 5, 8, game.ModeFFA, 0, false); err != lobby.ErrAlreadyInLobby {
		t.Errorf("got %v, want ErrAlreadyInLobby", err)
	}
}

func TestJoinRejectsWhenFull(t *testing.T) {
	m := testManager()
	host := idFor(1)
	l, err := m.Create(host, "host", "room", 0, 5, 2, game.ModeFFA, 0, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := m.Join(l, idFor(2), "second"); err != nil {
		t.Fatalf("second join should fit within maxPlayers=2: %v", err)
	}
	if err := m.Join(l, idFor(3), "third"); err != lobby.ErrLobbyFull {
		t.Errorf("got %v, want ErrLobbyFull", err)
	}
}

func TestJoinRejectsDuplicateMembership(t *testing.T) {
	m := testManager()
	host := idFor(1)
	l, err := m.Create(host, "host", "room", 0, 5, 8, game.ModeFFA, 0, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := m.Join(l, host, "host"); err != lobby.ErrAlreadyInLobby {
		t.Errorf("got %v, want ErrAlreadyInLobby", err)
	}
}

func TestLeaveByHostClosesLobby(t *testing.T) {
	m := testManager()
	host := idFor(1)
	guest := idFor(2)
	l, err := m.Create(host, "host", "room", 0, 5, 8, game.ModeFFA, 0, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := m.Join(l, guest, "guest"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	m.Leave(host)

	if _, ok := m.Get(l.ID); ok {
		t.Error("lobby should be gone after host leaves")
	}
	if _, ok := m.LobbyOf(guest); ok {
		t.Error("guest should also be freed once the host-owned lobby closes")
	}
}

func TestLeaveByGuestKeepsLobbyOpen(t *testing.T) {
	m := testManager()
	host := idFor(1)
	guest := idFor(2)
	l, err := m.Create(host, "host", "room", 0, 5, 8, game.ModeFFA, 0, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := m.Join(l, guest, "guest"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	m.Leave(guest)

	if _, ok := m.Get(l.ID); !ok {
		t.Error("lobby should survive a non-host leaving")
	}
	if len(l.Members()) != 1 {
		t.Errorf("expected 1 remaining member, got %d", len(l.Members()))
	}
}

func TestUpdateConfigRequiresHost(t *testing.T) {
	m := testManager()
	host := idFor(1)
	guest := idFor(2)
	l, err := m.Create(host, "host", "room", 0, 5, 8, game.ModeFFA, 0, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := m.Join(l, guest, "guest"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := m.UpdateConfig(l, guest, 10, 10, 0); err != lobby.ErrNotHost {
		t.Errorf("got %v, want ErrNotHost", err)
	}
}

func TestStartRequiresHost(t *testing.T) {
	m := testManager()
	host := idFor(1)
	guest := idFor(2)
	l, err := m.Create(host, "host", "room", 0, 5, 8, game.ModeFFA, 0, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	world := game.NewWorld("test", 16, 16, nil, []game.Position{{X: 1, Y: 1}, {X: 2, Y: 2}})
	params := lobby.StartParams{
		World: world, Chars: game.DefaultCharacterTable(), Defs: game.DefaultProjectileTable(),
	}
	if err := m.Start(l, guest, params); err != lobby.ErrNotHost {
		t.Errorf("got %v, want ErrNotHost", err)
	}
}

func TestStartIsIdempotent(t *testing.T) {
	m := testManager()
	host := idFor(1)
	l, err := m.Create(host, "host", "room", 0, 5, 8, game.ModeFFA, 0, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	world := game.NewWorld("test", 16, 16, nil, []game.Position{{X: 1, Y: 1}, {X: 2, Y: 2}})
	params := lobby.StartParams{
		World: world, Chars: game.DefaultCharacterTable(), Defs: game.DefaultProjectileTable(),
		Config: game.InstanceConfig{ProjectileTickMs: 50, ItemSpawnIntervalMs: 15000, TimeSyncIntervalS: 5, RespawnDelayMs: 3000, DurationMin: 5},
	}
	if err := m.Start(l, host, params); err != nil {
		t.Fatalf("first start should succeed: %v", err)
	}
	if err := m.Start(l, host, params); err != nil {
		t.Errorf("a second start call should be a harmless no-op, got error: %v", err)
	}
	if l.Instance == nil {
		t.Error("expected a game instance to be assigned after starting")
	}
}
