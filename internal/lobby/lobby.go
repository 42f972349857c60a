// Package lobby implements pre-game lobby lifecycle: creation, joining,
// configuration, and promotion to a running game instance (§4.11).
package lobby

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode"

	"arena-server/internal/game"
)

// Status is a Lobby's place in its lifecycle.
type Status int

const (
	StatusWaiting Status = iota
	StatusInGame
	StatusFinished
)

const (
	hostCooldown    = 5 * time.Second
	minDurationMin  = 1
	maxDurationMin  = 30
	minMaxPlayers   = 2
	maxMaxPlayers   = 16
)

var (
	ErrNameRequired    = errors.New("lobby: name required")
	ErrInvalidMap      = errors.New("lobby: invalid map index")
	ErrHostCooldown    = errors.New("lobby: host is creating lobbies too fast")
	ErrLobbyFull       = errors.New("lobby: lobby is full")
	ErrNotWaiting      = errors.New("lobby: lobby is not waiting")
	ErrNotHost         = errors.New("lobby: action requires host")
	ErrAlreadyInLobby  = errors.New("lobby: identity already in a lobby")
	ErrNoHumans        = errors.New("lobby: at least one connected human is required to start")
	ErrUnknownLobby    = errors.New("lobby: unknown lobby id")
	ErrUnknownMember   = errors.New("lobby: unknown member")
)

// Member is one participant's lobby-scoped state.
type Member struct {
	ID        game.PlayerID
	Name      string
	Character game.CharacterID
	IsBot     bool
}

// Mode mirrors game.GameMode for the lobby's own config (Teams requires a
// team size, which game.GameMode alone doesn't carry).
type Mode = game.GameMode

// Lobby is one pre-game room.
type Lobby struct {
	mu sync.Mutex

	ID          int64
	HostID      game.PlayerID
	Name        string
	MapIndex    int
	DurationMin int
	MaxPlayers  int
	Mode        Mode
	TeamSize    int
	Ranked      bool
	Status      Status

	members   []*Member
	startOnce sync.Once
	started   bool

	Instance *game.GameInstance
}

// Snapshot is a read-only copy of a lobby's listable fields, safe to hand
// to a LOBBY_ACTION LIST_ENTRY encoder.
type Snapshot struct {
	ID          int64
	HostID      game.PlayerID
	Name        string
	MapIndex    int
	DurationMin int
	MaxPlayers  int
	MemberCount int
	Mode        Mode
	Status      Status
	Ranked      bool
}

func (l *Lobby) snapshotLocked() Snapshot {
	return Snapshot{
		ID: l.ID, HostID: l.HostID, Name: l.Name, MapIndex: l.MapIndex,
		DurationMin: l.DurationMin, MaxPlayers: l.MaxPlayers,
		MemberCount: len(l.members), Mode: l.Mode, Status: l.Status, Ranked: l.Ranked,
	}
}

// Snapshot returns a read-only copy of the lobby's current state.
func (l *Lobby) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshotLocked()
}

// Members returns a copy of the member list.
func (l *Lobby) Members() []Member {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Member, len(l.members))
	for i, m := range l.members {
		out[i] = *m
	}
	return out
}

// sanitizeName strips control, RTL-override, and zero-width characters,
// trims surrounding whitespace, and rejects an empty result.
func sanitizeName(raw string) (string, error) {
	var b strings.Builder
	for _, r := range raw {
		switch {
		case unicode.IsControl(r):
			continue
		case r == '​' || r == '‌' || r == '‍' || r == '﻿':
			continue
		case r == '‪' || r == '‫' || r == '‬' || r == '‭' || r == '‮':
			continue
		default:
			b.WriteRune(r)
		}
	}
	name := strings.TrimSpace(b.String())
	if name == "" {
		return "", ErrNameRequired
	}
	return name, nil
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// MapValidator reports whether a map index is known to the world registry.
type MapValidator func(mapIdx int) bool

// Manager owns the global set of lobbies.
type Manager struct {
	mu         sync.Mutex
	lobbies    map[int64]*Lobby
	memberOf   map[game.PlayerID]int64
	lastCreate map[game.PlayerID]time.Time
	nextID     atomic.Int64

	validateMap MapValidator
	broadcaster game.Broadcaster
	logger      *log.Logger
	nowFn       func() time.Time

	onStart func(l *Lobby)
}

// NewManager constructs an empty lobby manager. onStart is invoked
// (synchronously, after bookkeeping) once a lobby transitions to InGame,
// so the caller can wire the instance into the running server.
func NewManager(validateMap MapValidator, broadcaster game.Broadcaster, logger *log.Logger, onStart func(l *Lobby)) *Manager {
	return &Manager{
		lobbies:    make(map[int64]*Lobby),
		memberOf:   make(map[game.PlayerID]int64),
		lastCreate: make(map[game.PlayerID]time.Time),
		validateMap: validateMap,
		broadcaster: broadcaster,
		logger:      logger,
		nowFn:       time.Now,
		onStart:     onStart,
	}
}

// Create makes a new Waiting lobby hosted by host.
func (m *Manager) Create(host game.PlayerID, hostName string, name string, mapIdx, durationMin, maxPlayers int, mode Mode, teamSize int, ranked bool) (*Lobby, error) {
	cleanName, err := sanitizeName(name)
	if err != nil {
		return nil, err
	}
	if m.validateMap != nil && !m.validateMap(mapIdx) {
		return nil, ErrInvalidMap
	}

	m.mu.Lock()
	if _, busy := m.memberOf[host]; busy {
		m.mu.Unlock()
		return nil, ErrAlreadyInLobby
	}
	if last, ok := m.lastCreate[host]; ok && m.nowFn().Sub(last) < hostCooldown {
		m.mu.Unlock()
		return nil, ErrHostCooldown
	}
	m.lastCreate[host] = m.nowFn()

	durationMin = clampInt(durationMin, minDurationMin, maxDurationMin)
	maxPlayers = clampInt(maxPlayers, minMaxPlayers, maxMaxPlayers)
	if mode == game.ModeTeams {
		maxPlayers = 2 * teamSize
	}

	l := &Lobby{
		ID: m.nextID.Add(1), HostID: host, Name: cleanName, MapIndex: mapIdx,
		DurationMin: durationMin, MaxPlayers: maxPlayers, Mode: mode, TeamSize: teamSize,
		Ranked: ranked, Status: StatusWaiting,
	}
	l.members = append(l.members, &Member{ID: host, Name: hostName})
	m.lobbies[l.ID] = l
	m.memberOf[host] = l.ID
	m.mu.Unlock()

	return l, nil
}

// Get returns a lobby by id.
func (m *Manager) Get(id int64) (*Lobby, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.lobbies[id]
	return l, ok
}

// List returns snapshots of every lobby, for LIST_ENTRY enumeration.
func (m *Manager) List() []Snapshot {
	m.mu.Lock()
	ls := make([]*Lobby, 0, len(m.lobbies))
	for _, l := range m.lobbies {
		ls = append(ls, l)
	}
	m.mu.Unlock()

	out := make([]Snapshot, 0, len(ls))
	for _, l := range ls {
		out = append(out, l.Snapshot())
	}
	return out
}

// LobbyOf returns the lobby an identity currently belongs to, if any.
func (m *Manager) LobbyOf(id game.PlayerID) (*Lobby, bool) {
	m.mu.Lock()
	lobbyID, ok := m.memberOf[id]
	m.mu.Unlock()
	if !ok {
		return nil, false
	}
	return m.Get(lobbyID)
}

// Join adds id to lobby l, atomically updating the reverse map.
func (m *Manager) Join(l *Lobby, id game.PlayerID, name string) error {
	m.mu.Lock()
	if _, busy := m.memberOf[id]; busy {
		m.mu.Unlock()
		return ErrAlreadyInLobby
	}
	l.mu.Lock()
	if l.Status != StatusWaiting {
		l.mu.Unlock()
		m.mu.Unlock()
		return ErrNotWaiting
	}
	if len(l.members) >= l.MaxPlayers {
		l.mu.Unlock()
		m.mu.Unlock()
		return ErrLobbyFull
	}
	l.members = append(l.members, &Member{ID: id, Name: name})
	members := append([]*Member(nil), l.members...)
	l.mu.Unlock()
	m.memberOf[id] = l.ID
	m.mu.Unlock()

	if m.broadcaster != nil {
		ids := make([]game.PlayerID, len(members))
		for i, mem := range members {
			ids[i] = mem.ID
		}
		m.broadcaster.Publish(game.Target{IDs: ids}, game.GameEventMessage{Kind: game.GameEventKind("PLAYER_JOINED")})
	}
	return nil
}

// AddBot fills one open slot in a Waiting lobby with a server-controlled
// bot, allocating it a fresh identity from the reserved bot subrange.
// Used to pad a ranked match formed from fewer humans than the lobby's
// target size (§4.12).
func (m *Manager) AddBot(l *Lobby, name string) (game.PlayerID, error) {
	id := game.NewBotIdentity()

	l.mu.Lock()
	if l.Status != StatusWaiting {
		l.mu.Unlock()
		return game.PlayerID{}, ErrNotWaiting
	}
	if len(l.members) >= l.MaxPlayers {
		l.mu.Unlock()
		return game.PlayerID{}, ErrLobbyFull
	}
	l.members = append(l.members, &Member{ID: id, Name: name, IsBot: true})
	l.mu.Unlock()

	m.mu.Lock()
	m.memberOf[id] = l.ID
	m.mu.Unlock()
	return id, nil
}

// Leave removes id from whatever lobby it is in. If id is the host, the
// lobby is closed and every remaining member is notified.
func (m *Manager) Leave(id game.PlayerID) {
	m.mu.Lock()
	lobbyID, ok := m.memberOf[id]
	if !ok {
		m.mu.Unlock()
		return
	}
	l := m.lobbies[lobbyID]
	delete(m.memberOf, id)
	m.mu.Unlock()
	if l == nil {
		return
	}

	l.mu.Lock()
	isHost := l.HostID == id
	for i, mem := range l.members {
		if mem.ID == id {
			l.members = append(l.members[:i], l.members[i+1:]...)
			break
		}
	}
	remaining := append([]*Member(nil), l.members...)
	l.mu.Unlock()

	if isHost {
		m.mu.Lock()
		delete(m.lobbies, lobbyID)
		for _, mem := range remaining {
			delete(m.memberOf, mem.ID)
		}
		m.mu.Unlock()
		if m.broadcaster != nil {
			ids := make([]game.PlayerID, len(remaining))
			for i, mem := range remaining {
				ids[i] = mem.ID
			}
			m.broadcaster.Publish(game.Target{IDs: ids}, game.GameEventMessage{Kind: game.GameEventKind("LOBBY_CLOSED")})
		}
	}
}

// UpdateConfig applies a host-only config change to a Waiting lobby.
func (m *Manager) UpdateConfig(l *Lobby, requester game.PlayerID, durationMin, maxPlayers int, teamSize int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.HostID != requester {
		return ErrNotHost
	}
	if l.Status != StatusWaiting {
		return ErrNotWaiting
	}
	l.DurationMin = clampInt(durationMin, minDurationMin, maxDurationMin)
	if l.Mode == game.ModeTeams {
		l.TeamSize = teamSize
		l.MaxPlayers = 2 * teamSize
		var kept []*Member
		evicted := 0
		for _, mem := range l.members {
			if mem.IsBot && len(kept) >= l.MaxPlayers {
				evicted++
				continue
			}
			kept = append(kept, mem)
		}
		l.members = kept
		if evicted > 0 && m.broadcaster != nil {
			ids := make([]game.PlayerID, len(kept))
			for i, mem := range kept {
				ids[i] = mem.ID
			}
			m.broadcaster.Publish(game.Target{IDs: ids}, game.GameEventMessage{Kind: game.GameEventKind("PLAYER_LEFT")})
		}
	} else {
		l.MaxPlayers = clampInt(maxPlayers, minMaxPlayers, maxMaxPlayers)
	}
	return nil
}

// humanCount reports how many non-bot members a lobby has.
func humanCount(members []*Member) int {
	n := 0
	for _, m := range members {
		if !m.IsBot {
			n++
		}
	}
	return n
}

// StartParams carries everything the manager needs to build the game
// instance world and character table without importing the higher-level
// server package (keeping lobby a dependency leaf below server).
type StartParams struct {
	World      *game.World
	Chars      *game.CharacterTable
	Defs       *game.ProjectileTable
	Config     game.InstanceConfig
	EndHandler game.EndOfGameHandler
	Logger     *log.Logger
	// NewBroadcaster scopes a Broadcaster to one instance's own registry, so
	// Target{} (the instance's internal "everyone" shorthand) resolves to
	// exactly that instance's live participants rather than every connected
	// client server-wide.
	NewBroadcaster func(reg *game.PlayerRegistry) game.Broadcaster
}

// Start promotes a Waiting lobby to InGame: assigns spawn points and
// teams, constructs and starts the game instance, and broadcasts the
// starting sequence. Idempotent per lobby via a sync.Once.
func (m *Manager) Start(l *Lobby, requester game.PlayerID, params StartParams) error {
	l.mu.Lock()
	if l.HostID != requester {
		l.mu.Unlock()
		return ErrNotHost
	}
	if humanCount(l.members) == 0 {
		l.mu.Unlock()
		return ErrNoHumans
	}
	l.mu.Unlock()
	l.startOnce.Do(func() {
		l.mu.Lock()
		members := append([]*Member(nil), l.members...)
		l.Status = StatusInGame
		l.mu.Unlock()

		inst := game.NewGameInstance(l.ID, params.World, params.Chars, params.Defs, params.Config, l.Mode, l.MapIndex, l.Ranked, nil, params.EndHandler, params.Logger)
		if params.NewBroadcaster != nil {
			inst.SetBroadcaster(params.NewBroadcaster(inst.Registry()))
		}

		var occupied []game.Position
		joins := make([]game.PlayerJoinEvent, 0, len(members))
		for i, mem := range members {
			def, ok := params.Chars.Get(mem.Character)
			if !ok {
				def, _ = params.Chars.Get(0)
			}
			spawn := params.World.PickSpawnPoint(occupied)
			occupied = append(occupied, spawn)

			color := memberColor(i)
			p := game.NewPlayer(mem.ID, mem.Name, color, def.ID, def.MaxHealth, spawn)
			if mem.IsBot {
				p.MarkBot()
			}
			teamID := 0
			if l.Mode == game.ModeTeams {
				teamID = (i % 2) + 1
			}
			inst.AddPlayer(p, teamID)
			joins = append(joins, game.PlayerJoinEvent{
				PlayerID: mem.ID, Name: mem.Name, X: spawn.X, Y: spawn.Y, Color: color,
				Health: def.MaxHealth, Character: def.ID, TeamID: teamID,
			})
		}

		l.mu.Lock()
		l.Instance = inst
		l.mu.Unlock()

		memberIDs := make([]game.PlayerID, len(members))
		for i, mem := range members {
			memberIDs[i] = mem.ID
		}

		if m.broadcaster != nil {
			m.broadcaster.Publish(game.Target{IDs: memberIDs}, game.GameEventMessage{Kind: game.GameEventKind("GAME_STARTING")})
			inst.Start()
			m.broadcaster.Publish(game.Target{IDs: memberIDs}, game.SnapshotEvent{Players: joins})
		} else {
			inst.Start()
		}

		if m.onStart != nil {
			m.onStart(l)
		}
	})
	if !l.startOnceFired() {
		return fmt.Errorf("lobby: start already in progress")
	}
	return nil
}

func (l *Lobby) startOnceFired() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.Status == StatusInGame
}

var playerPalette = [][3]byte{
	{220, 60, 60}, {60, 140, 220}, {60, 200, 120}, {220, 180, 60},
	{180, 80, 220}, {60, 220, 220}, {220, 120, 60}, {140, 140, 140},
}

func memberColor(i int) [3]byte {
	return playerPalette[i%len(playerPalette)]
}
