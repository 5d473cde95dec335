/*
Package sqlite provides a SQLite-backed implementation of checkin.Store.

PURPOSE:
  Implements the full persistence contract (check-ins, points, correction
  slips, claimed rewards, special-date claims, launch marker) using
  SQLite. The same SQL works on client/server engines with minor dialect
  changes - only the upsert syntax differs.

UNIQUENESS ENFORCEMENT:
  - idx_checkins_member_day:   one record per (member, day)
  - idx_claims_unique:         one claim per (member, kind, threshold)
  - idx_special_claims_unique: one row per (member, rule)
  Duplicate inserts use INSERT OR IGNORE so logical duplicates are
  no-ops, never errors.

STARTUP RETRY:
  New pings and migrates with fixed backoff for a bounded number of
  attempts before giving up. The engine cannot run without its store, so
  exhausting the attempts is fatal to the caller.

CONCURRENCY:
  Uses sync.RWMutex so all writes serialize in-process, matching the
  engine's single-writer discipline. SQLite runs in WAL mode so readers
  do not block.

USAGE:
  store, err := sqlite.New("./data/checkin.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - checkin/store.go: Contract definition
  - checkin/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/checkin-engine/checkin"
)

const (
	initAttempts = 5
	initBackoff  = 2 * time.Second

	timeFormat = time.RFC3339Nano
)

// Store implements checkin.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ checkin.Store = (*Store)(nil)

// New opens (or creates) the database at dbPath and migrates the schema.
// Use ":memory:" for an in-memory database. Connectivity problems are
// retried with fixed backoff before failing.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	store := &Store{db: db}
	var lastErr error
	for attempt := 1; attempt <= initAttempts; attempt++ {
		if lastErr = db.Ping(); lastErr == nil {
			if lastErr = store.migrate(); lastErr == nil {
				return store, nil
			}
		}
		if attempt < initAttempts {
			time.Sleep(initBackoff)
		}
	}
	db.Close()
	return nil, fmt.Errorf("database init failed after %d attempts: %w (%v)",
		initAttempts, checkin.ErrStoreUnavailable, lastErr)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Check-in records (written once per (member, day), never updated)
	CREATE TABLE IF NOT EXISTS checkins (
		member TEXT NOT NULL,
		day TEXT NOT NULL,
		at TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_checkins_member_day
		ON checkins(member, day);
	CREATE INDEX IF NOT EXISTS idx_checkins_day_at
		ON checkins(day, at);

	-- Points (integer minor units, 100 = 1.00 displayed point)
	CREATE TABLE IF NOT EXISTS points (
		member TEXT PRIMARY KEY,
		balance INTEGER NOT NULL DEFAULT 0
	);

	-- Correction slips (never negative)
	CREATE TABLE IF NOT EXISTS correction_slips (
		member TEXT PRIMARY KEY,
		amount INTEGER NOT NULL DEFAULT 0
	);

	-- One-shot milestone claims (permanent)
	CREATE TABLE IF NOT EXISTS claimed_rewards (
		member TEXT NOT NULL,
		kind TEXT NOT NULL,
		threshold INTEGER NOT NULL,
		claimed_at TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_claims_unique
		ON claimed_rewards(member, kind, threshold);

	-- Repeat counters for calendar-pattern rules
	CREATE TABLE IF NOT EXISTS special_date_claims (
		member TEXT NOT NULL,
		rule TEXT NOT NULL,
		times INTEGER NOT NULL DEFAULT 0,
		last_claim_at TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_special_claims_unique
		ON special_date_claims(member, rule);

	-- Process-wide markers (first_launch_date)
	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// CHECK-IN STORE
// =============================================================================

func (s *Store) InsertCheckin(ctx context.Context, member checkin.MemberID, day checkin.Day, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO checkins (member, day, at) VALUES (?, ?, ?)`,
		string(member), day.String(), at.UTC().Format(timeFormat))
	if err != nil {
		return false, &checkin.StoreError{Op: "insert checkin", Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, &checkin.StoreError{Op: "insert checkin", Err: err}
	}
	return n > 0, nil
}

func (s *Store) HasCheckin(ctx context.Context, member checkin.MemberID, day checkin.Day) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM checkins WHERE member = ? AND day = ?`,
		string(member), day.String()).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, &checkin.StoreError{Op: "has checkin", Err: err}
	}
	return true, nil
}

func (s *Store) CheckinDays(ctx context.Context, member checkin.MemberID) ([]checkin.Day, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT day FROM checkins WHERE member = ? ORDER BY day ASC`,
		string(member))
	if err != nil {
		return nil, &checkin.StoreError{Op: "checkin days", Err: err}
	}
	defer rows.Close()

	var days []checkin.Day
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, &checkin.StoreError{Op: "checkin days", Err: err}
		}
		d, err := checkin.ParseDay(raw)
		if err != nil {
			return nil, &checkin.StoreError{Op: "checkin days", Err: err}
		}
		days = append(days, d)
	}
	return days, rows.Err()
}

func (s *Store) CheckinsOn(ctx context.Context, day checkin.Day) ([]checkin.CheckinRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT member, at FROM checkins WHERE day = ? ORDER BY at ASC, member ASC`,
		day.String())
	if err != nil {
		return nil, &checkin.StoreError{Op: "checkins on day", Err: err}
	}
	defer rows.Close()

	var recs []checkin.CheckinRecord
	for rows.Next() {
		var (
			member string
			rawAt  string
		)
		if err := rows.Scan(&member, &rawAt); err != nil {
			return nil, &checkin.StoreError{Op: "checkins on day", Err: err}
		}
		at, err := time.Parse(timeFormat, rawAt)
		if err != nil {
			return nil, &checkin.StoreError{Op: "checkins on day", Err: err}
		}
		recs = append(recs, checkin.CheckinRecord{Member: checkin.MemberID(member), Day: day, At: at})
	}
	return recs, rows.Err()
}

func (s *Store) LastCheckin(ctx context.Context, member checkin.MemberID) (checkin.CheckinRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		rawDay string
		rawAt  string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT day, at FROM checkins WHERE member = ? ORDER BY at DESC LIMIT 1`,
		string(member)).Scan(&rawDay, &rawAt)
	if err == sql.ErrNoRows {
		return checkin.CheckinRecord{}, false, nil
	}
	if err != nil {
		return checkin.CheckinRecord{}, false, &checkin.StoreError{Op: "last checkin", Err: err}
	}
	day, err := checkin.ParseDay(rawDay)
	if err != nil {
		return checkin.CheckinRecord{}, false, &checkin.StoreError{Op: "last checkin", Err: err}
	}
	at, err := time.Parse(timeFormat, rawAt)
	if err != nil {
		return checkin.CheckinRecord{}, false, &checkin.StoreError{Op: "last checkin", Err: err}
	}
	return checkin.CheckinRecord{Member: member, Day: day, At: at}, true, nil
}

func (s *Store) TotalsTop(ctx context.Context, n int) ([]checkin.RankedMember, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT member, COUNT(DISTINCT day) AS total
		 FROM checkins GROUP BY member
		 ORDER BY total DESC, member ASC LIMIT ?`, n)
	if err != nil {
		return nil, &checkin.StoreError{Op: "totals top", Err: err}
	}
	defer rows.Close()

	var ranked []checkin.RankedMember
	for rows.Next() {
		var (
			member string
			count  int
		)
		if err := rows.Scan(&member, &count); err != nil {
			return nil, &checkin.StoreError{Op: "totals top", Err: err}
		}
		ranked = append(ranked, checkin.RankedMember{Member: checkin.MemberID(member), Count: count})
	}
	return ranked, rows.Err()
}

func (s *Store) DaysByMember(ctx context.Context) (map[checkin.MemberID][]checkin.Day, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT member, day FROM checkins ORDER BY member ASC, day ASC`)
	if err != nil {
		return nil, &checkin.StoreError{Op: "days by member", Err: err}
	}
	defer rows.Close()

	out := make(map[checkin.MemberID][]checkin.Day)
	for rows.Next() {
		var (
			member string
			rawDay string
		)
		if err := rows.Scan(&member, &rawDay); err != nil {
			return nil, &checkin.StoreError{Op: "days by member", Err: err}
		}
		d, err := checkin.ParseDay(rawDay)
		if err != nil {
			return nil, &checkin.StoreError{Op: "days by member", Err: err}
		}
		id := checkin.MemberID(member)
		out[id] = append(out[id], d)
	}
	return out, rows.Err()
}

// =============================================================================
// POINTS STORE
// =============================================================================

func (s *Store) Points(ctx context.Context, member checkin.MemberID) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var balance int64
	err := s.db.QueryRowContext(ctx,
		`SELECT balance FROM points WHERE member = ?`, string(member)).Scan(&balance)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, &checkin.StoreError{Op: "points", Err: err}
	}
	return balance, nil
}

func (s *Store) SetPoints(ctx context.Context, member checkin.MemberID, balance int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO points (member, balance) VALUES (?, ?)
		 ON CONFLICT(member) DO UPDATE SET balance = excluded.balance`,
		string(member), balance)
	if err != nil {
		return &checkin.StoreError{Op: "set points", Err: err}
	}
	return nil
}

func (s *Store) AddPoints(ctx context.Context, member checkin.MemberID, delta int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO points (member, balance) VALUES (?, ?)
		 ON CONFLICT(member) DO UPDATE SET balance = balance + excluded.balance`,
		string(member), delta)
	if err != nil {
		return 0, &checkin.StoreError{Op: "add points", Err: err}
	}
	var balance int64
	if err := s.db.QueryRowContext(ctx,
		`SELECT balance FROM points WHERE member = ?`, string(member)).Scan(&balance); err != nil {
		return 0, &checkin.StoreError{Op: "add points", Err: err}
	}
	return balance, nil
}

// =============================================================================
// SLIP STORE
// =============================================================================

func (s *Store) Slips(ctx context.Context, member checkin.MemberID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var amount int
	err := s.db.QueryRowContext(ctx,
		`SELECT amount FROM correction_slips WHERE member = ?`, string(member)).Scan(&amount)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, &checkin.StoreError{Op: "slips", Err: err}
	}
	return amount, nil
}

func (s *Store) AddSlips(ctx context.Context, member checkin.MemberID, amount int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO correction_slips (member, amount) VALUES (?, ?)
		 ON CONFLICT(member) DO UPDATE SET amount = amount + excluded.amount`,
		string(member), amount)
	if err != nil {
		return &checkin.StoreError{Op: "add slips", Err: err}
	}
	return nil
}

func (s *Store) DecreaseSlips(ctx context.Context, member checkin.MemberID, amount int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// No row means zero owned; nothing to decrement.
	_, err := s.db.ExecContext(ctx,
		`UPDATE correction_slips SET amount = MAX(amount - ?, 0) WHERE member = ?`,
		amount, string(member))
	if err != nil {
		return &checkin.StoreError{Op: "decrease slips", Err: err}
	}
	return nil
}

func (s *Store) ClearSlips(ctx context.Context, member checkin.MemberID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`UPDATE correction_slips SET amount = 0 WHERE member = ?`, string(member))
	if err != nil {
		return &checkin.StoreError{Op: "clear slips", Err: err}
	}
	return nil
}

// =============================================================================
// CLAIM STORE
// =============================================================================

func (s *Store) HasClaimed(ctx context.Context, member checkin.MemberID, kind checkin.ClaimKind, threshold int) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM claimed_rewards WHERE member = ? AND kind = ? AND threshold = ?`,
		string(member), string(kind), threshold).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, &checkin.StoreError{Op: "has claimed", Err: err}
	}
	return true, nil
}

func (s *Store) MarkClaimed(ctx context.Context, member checkin.MemberID, kind checkin.ClaimKind, threshold int, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO claimed_rewards (member, kind, threshold, claimed_at)
		 VALUES (?, ?, ?, ?)`,
		string(member), string(kind), threshold, at.UTC().Format(timeFormat))
	if err != nil {
		return &checkin.StoreError{Op: "mark claimed", Err: err}
	}
	return nil
}

func (s *Store) SpecialDateTimes(ctx context.Context, member checkin.MemberID, ruleKey string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var times int
	err := s.db.QueryRowContext(ctx,
		`SELECT times FROM special_date_claims WHERE member = ? AND rule = ?`,
		string(member), ruleKey).Scan(&times)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, &checkin.StoreError{Op: "special date times", Err: err}
	}
	return times, nil
}

func (s *Store) IncrementSpecialDate(ctx context.Context, member checkin.MemberID, ruleKey string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO special_date_claims (member, rule, times, last_claim_at)
		 VALUES (?, ?, 1, ?)
		 ON CONFLICT(member, rule) DO UPDATE SET
			times = times + 1,
			last_claim_at = excluded.last_claim_at`,
		string(member), ruleKey, at.UTC().Format(timeFormat))
	if err != nil {
		return &checkin.StoreError{Op: "increment special date", Err: err}
	}
	return nil
}

// =============================================================================
// META STORE
// =============================================================================

func (s *Store) SeedFirstLaunch(ctx context.Context, day checkin.Day) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO meta (key, value) VALUES ('first_launch_date', ?)`,
		day.String())
	if err != nil {
		return &checkin.StoreError{Op: "seed first launch", Err: err}
	}
	return nil
}

func (s *Store) FirstLaunchDate(ctx context.Context) (checkin.Day, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM meta WHERE key = 'first_launch_date'`).Scan(&raw)
	if err == sql.ErrNoRows {
		return checkin.Day{}, false, nil
	}
	if err != nil {
		return checkin.Day{}, false, &checkin.StoreError{Op: "first launch date", Err: err}
	}
	day, err := checkin.ParseDay(raw)
	if err != nil {
		return checkin.Day{}, false, &checkin.StoreError{Op: "first launch date", Err: err}
	}
	return day, true, nil
}
