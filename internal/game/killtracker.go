package game

import (
	"sort"
	"sync"
)

// killRecord holds one identity's atomic kill/death counters.
type killRecord struct {
	kills  int
	deaths int
}

// KillTracker is the per-instance scoreboard: atomic per-identity kill and
// death counters, with a team-aware scoreboard view for Teams mode.
type KillTracker struct {
	mu      sync.Mutex
	records map[PlayerID]*killRecord
	teamOf  map[PlayerID]int
}

// NewKillTracker constructs an empty tracker.
func NewKillTracker() *KillTracker {
	return &KillTracker{
		records: make(map[PlayerID]*killRecord),
		teamOf:  make(map[PlayerID]int),
	}
}

// Register tells the tracker a participant's team assignment (0 in FFA),
// so team-aggregated scoreboards can be produced.
func (k *KillTracker) Register(id PlayerID, teamID int) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if _, ok := k.records[id]; !ok {
		k.records[id] = &killRecord{}
	}
	k.teamOf[id] = teamID
}

// RecordKill increments killer's kills and victim's deaths atomically
// (under the tracker's mutex — counts are small and this path is not the
// hot tick path, so a mutex is simpler and sufficient here).
func (k *KillTracker) RecordKill(killer, victim PlayerID) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if r, ok := k.records[killer]; ok {
		r.kills++
	} else {
		k.records[killer] = &killRecord{kills: 1}
	}
	if r, ok := k.records[victim]; ok {
		r.deaths++
	} else {
		k.records[victim] = &killRecord{deaths: 1}
	}
}

// ScoreRow is one scoreboard entry.
type ScoreRow struct {
	ID     PlayerID
	Kills  int
	Deaths int
	Rank   int
}

// Scoreboard returns (id, kills, deaths) sorted by kills desc (stable),
// with rank assigned 1..N in that order.
func (k *KillTracker) Scoreboard() []ScoreRow {
	k.mu.Lock()
	defer k.mu.Unlock()
	rows := make([]ScoreRow, 0, len(k.records))
	for id, r := range k.records {
		rows = append(rows, ScoreRow{ID: id, Kills: r.kills, Deaths: r.deaths})
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Kills > rows[j].Kills })
	for i := range rows {
		rows[i].Rank = i + 1
	}
	return rows
}

// TeamRow is one team-aggregated scoreboard entry.
type TeamRow struct {
	TeamID int
	Kills  int
	Deaths int
	Rank   int
}

// TeamScoreboard aggregates per-player records by team and assigns one
// rank per team (§4.9: "Teams mode aggregates team totals and assigns one
// rank per team").
func (k *KillTracker) TeamScoreboard() []TeamRow {
	k.mu.Lock()
	defer k.mu.Unlock()
	totals := make(map[int]*TeamRow)
	for id, r := range k.records {
		team := k.teamOf[id]
		t, ok := totals[team]
		if !ok {
			t = &TeamRow{TeamID: team}
			totals[team] = t
		}
		t.Kills += r.kills
		t.Deaths += r.deaths
	}
	rows := make([]TeamRow, 0, len(totals))
	for _, t := range totals {
		rows = append(rows, *t)
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Kills > rows[j].Kills })
	for i := range rows {
		rows[i].Rank = i + 1
	}
	return rows
}
