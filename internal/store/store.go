// Package store persists accounts, match history, and ranked ratings in
// a SQLite database, with bcrypt-hashed passwords (§4.3, §6).
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"
)

// ErrAccountExists is returned by Register when the username is taken.
var ErrAccountExists = errors.New("store: account already exists")

// ErrInvalidCredentials is returned by Authenticate on a username/password
// mismatch or unknown username — deliberately indistinguishable, per §7.
var ErrInvalidCredentials = errors.New("store: invalid credentials")

const schema = `
CREATE TABLE IF NOT EXISTS accounts (
	username    TEXT PRIMARY KEY,
	password    TEXT NOT NULL,
	elo         INTEGER NOT NULL DEFAULT 1000,
	created_at  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS matches (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	map_index   INTEGER NOT NULL,
	mode        TEXT NOT NULL,
	ranked      INTEGER NOT NULL,
	duration_s  INTEGER NOT NULL,
	ended_at    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS match_results (
	match_id    INTEGER NOT NULL REFERENCES matches(id),
	username    TEXT NOT NULL,
	kills       INTEGER NOT NULL,
	deaths      INTEGER NOT NULL,
	rank        INTEGER NOT NULL,
	elo_delta   INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_match_results_username ON match_results(username);
`

// Store wraps a SQLite connection. All methods are safe for concurrent use
// via the database/sql pool.
type Store struct {
	db *sql.DB
}

// Open opens (creating if absent) the SQLite database at path and applies
// the schema, including the lazy elo-column migration for databases
// created before ranked play existed.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("store: path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("store: schema: %w", err)
	}
	// Lazy migration: databases created before the elo column existed.
	if _, err := s.db.Exec(`ALTER TABLE accounts ADD COLUMN elo INTEGER NOT NULL DEFAULT 1000`); err != nil {
		if !strings.Contains(err.Error(), "duplicate column") {
			return fmt.Errorf("store: elo migration: %w", err)
		}
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Register creates a new account with a bcrypt-hashed password.
func (s *Store) Register(ctx context.Context, username, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("store: hash password: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO accounts (username, password, elo, created_at) VALUES (?, ?, 1000, ?)`,
		username, string(hash), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return ErrAccountExists
		}
		return fmt.Errorf("store: register: %w", err)
	}
	return nil
}

// Authenticate verifies a username/password pair.
func (s *Store) Authenticate(ctx context.Context, username, password string) error {
	var hash string
	err := s.db.QueryRowContext(ctx, `SELECT password FROM accounts WHERE username = ?`, username).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrInvalidCredentials
	}
	if err != nil {
		return fmt.Errorf("store: authenticate: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// Elo returns a username's current rating, or the default 1000 if the
// account doesn't exist (callers should normally have already checked).
func (s *Store) Elo(ctx context.Context, username string) (int, error) {
	var elo int
	err := s.db.QueryRowContext(ctx, `SELECT elo FROM accounts WHERE username = ?`, username).Scan(&elo)
	if errors.Is(err, sql.ErrNoRows) {
		return 1000, nil
	}
	if err != nil {
		return 0, fmt.Errorf("store: elo: %w", err)
	}
	return elo, nil
}

// UpdateElo sets a username's rating to newElo.
func (s *Store) UpdateElo(ctx context.Context, username string, newElo int) error {
	_, err := s.db.ExecContext(ctx, `UPDATE accounts SET elo = ? WHERE username = ?`, newElo, username)
	if err != nil {
		return fmt.Errorf("store: update elo: %w", err)
	}
	return nil
}

// MatchResultRow is one participant's outcome in a saved match.
type MatchResultRow struct {
	Username string
	Kills    int
	Deaths   int
	Rank     int
	EloDelta int
}

// SaveMatch records a completed match and its per-player results in one
// transaction.
func (s *Store) SaveMatch(ctx context.Context, mapIndex int, mode string, ranked bool, durationS int, rows []MatchResultRow) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("store: begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO matches (map_index, mode, ranked, duration_s, ended_at) VALUES (?, ?, ?, ?, ?)`,
		mapIndex, mode, boolToInt(ranked), durationS, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("store: insert match: %w", err)
	}
	matchID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("store: match id: %w", err)
	}

	for _, r := range rows {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO match_results (match_id, username, kills, deaths, rank, elo_delta) VALUES (?, ?, ?, ?, ?, ?)`,
			matchID, r.Username, r.Kills, r.Deaths, r.Rank, r.EloDelta); err != nil {
			return 0, fmt.Errorf("store: insert result: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("store: commit: %w", err)
	}
	return matchID, nil
}

// HistoryEntry is one row of a username's match history, newest first.
type HistoryEntry struct {
	MatchID   int64
	MapIndex  int
	Mode      string
	Ranked    bool
	Kills     int
	Deaths    int
	Rank      int
	EloDelta  int
	EndedAt   string
}

// MatchHistory returns up to limit most-recent matches for username,
// starting after offset (for pagination).
func (s *Store) MatchHistory(ctx context.Context, username string, offset, limit int) ([]HistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT m.id, m.map_index, m.mode, m.ranked, r.kills, r.deaths, r.rank, r.elo_delta, m.ended_at
		FROM match_results r
		JOIN matches m ON m.id = r.match_id
		WHERE r.username = ?
		ORDER BY m.id DESC
		LIMIT ? OFFSET ?`, username, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("store: history: %w", err)
	}
	defer rows.Close()

	var out []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		var ranked int
		if err := rows.Scan(&e.MatchID, &e.MapIndex, &e.Mode, &ranked, &e.Kills, &e.Deaths, &e.Rank, &e.EloDelta, &e.EndedAt); err != nil {
			return nil, fmt.Errorf("store: history scan: %w", err)
		}
		e.Ranked = ranked != 0
		out = append(out, e)
	}
	return out, rows.Err()
}

// LeaderboardEntry is one ranked row of the global leaderboard.
type LeaderboardEntry struct {
	Username string
	Elo      int
	Rank     int
}

// Leaderboard returns the top limit accounts by rating.
func (s *Store) Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT username, elo FROM accounts ORDER BY elo DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: leaderboard: %w", err)
	}
	defer rows.Close()

	var out []LeaderboardEntry
	rank := 1
	for rows.Next() {
		var e LeaderboardEntry
		if err := rows.Scan(&e.Username, &e.Elo); err != nil {
			return nil, fmt.Errorf("store: leaderboard scan: %w", err)
		}
		e.Rank = rank
		rank++
		out = append(out, e)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
