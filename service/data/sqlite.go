package data

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/khaledhikmat/fit-coach/model"
)

const (
	sessionsTable = "fitcoach_sessions"
	errorsTable   = "fitcoach_errors"
	statsTable    = "fitcoach_stats"
)

type sqliteService struct {
	db *sql.DB
}

// NewSQLite opens (or creates) the database at dbPath. Use ":memory:" for a
// throwaway database.
func NewSQLite(dbPath string) (IService, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database folder: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database at %q: %w", dbPath, err)
	}
	// A single connection avoids "database is locked" errors and keeps
	// :memory: databases alive across calls
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to SQLite database at %q: %w", dbPath, err)
	}

	if err := createTables(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return &sqliteService{db: db}, nil
}

func createTables(db *sql.DB) error {
	queries := map[string]string{
		sessionsTable: fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id TEXT PRIMARY KEY,
				source TEXT NOT NULL,
				framer_type TEXT NOT NULL,
				exercise TEXT NOT NULL,
				startup_time INTEGER NOT NULL
			);`, sessionsTable),
		errorsTable: fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				timestamp INTEGER NOT NULL,
				processor TEXT NOT NULL,
				inner_error TEXT,
				message TEXT,
				stack_trace TEXT,
				misc TEXT
			);`, errorsTable),
		statsTable: fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				kind TEXT NOT NULL,
				name TEXT NOT NULL,
				session TEXT NOT NULL,
				timestamp INTEGER NOT NULL,
				payload TEXT NOT NULL
			);`, statsTable),
	}

	for name, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("failed to create table %s: %w", name, err)
		}
	}
	return nil
}

func (svc *sqliteService) NewSession(session model.Session) error {
	if session.StartupTime == 0 {
		session.StartupTime = time.Now().Unix()
	}
	query := fmt.Sprintf(`INSERT INTO %s (id, source, framer_type, exercise, startup_time) VALUES (?, ?, ?, ?, ?)`, sessionsTable)
	_, err := svc.db.Exec(query, session.ID, session.Source, session.FramerType, session.Exercise, session.StartupTime)
	if err != nil {
		return fmt.Errorf("failed to insert session %s: %w", session.ID, err)
	}
	return nil
}

func (svc *sqliteService) RetrieveSessions() ([]model.Session, error) {
	query := fmt.Sprintf(`SELECT id, source, framer_type, exercise, startup_time FROM %s ORDER BY startup_time, id`, sessionsTable)
	rows, err := svc.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	sessions := []model.Session{}
	for rows.Next() {
		var s model.Session
		if err := rows.Scan(&s.ID, &s.Source, &s.FramerType, &s.Exercise, &s.StartupTime); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

func (svc *sqliteService) NewError(err interface{}) error {
	rec := toErrorRecord(err)
	rec.Timestamp = time.Now().Unix()

	misc, mErr := json.Marshal(rec.Misc)
	if mErr != nil {
		return mErr
	}

	query := fmt.Sprintf(`INSERT INTO %s (timestamp, processor, inner_error, message, stack_trace, misc) VALUES (?, ?, ?, ?, ?, ?)`, errorsTable)
	_, dbErr := svc.db.Exec(query, rec.Timestamp, rec.Processor, rec.Inner, rec.Message, rec.StackTrace, string(misc))
	if dbErr != nil {
		return fmt.Errorf("failed to insert error: %w", dbErr)
	}
	return nil
}

// RetrieveErrors returns the persisted errors, oldest first.
func (svc *sqliteService) RetrieveErrors() ([]ErrorRecord, error) {
	query := fmt.Sprintf(`SELECT timestamp, processor, inner_error, message, stack_trace, misc FROM %s ORDER BY id`, errorsTable)
	rows, err := svc.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query errors: %w", err)
	}
	defer func() { _ = rows.Close() }()

	records := []ErrorRecord{}
	for rows.Next() {
		var rec ErrorRecord
		var misc string
		if err := rows.Scan(&rec.Timestamp, &rec.Processor, &rec.Inner, &rec.Message, &rec.StackTrace, &misc); err != nil {
			return nil, fmt.Errorf("failed to scan error: %w", err)
		}
		if err := json.Unmarshal([]byte(misc), &rec.Misc); err != nil {
			return nil, fmt.Errorf("corrupt misc column: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (svc *sqliteService) NewCoachStats(stats model.CoachStats) error {
	stats.Timestamp = time.Now().Unix()
	return svc.newStats("coach", stats.Name, stats.Session, stats.Timestamp, stats)
}

func (svc *sqliteService) NewFramerStats(stats model.FramerStats) error {
	stats.Timestamp = time.Now().Unix()
	return svc.newStats("framer", stats.Name, stats.Session, stats.Timestamp, stats)
}

func (svc *sqliteService) NewSinkStats(stats model.SinkStats) error {
	stats.Timestamp = time.Now().Unix()
	return svc.newStats("sink", stats.Name, stats.Session, stats.Timestamp, stats)
}

func (svc *sqliteService) NewNotifierStats(stats model.NotifierStats) error {
	stats.Timestamp = time.Now().Unix()
	return svc.newStats("notifier", stats.Name, stats.Session, stats.Timestamp, stats)
}

func (svc *sqliteService) newStats(kind, name, session string, ts int64, stats interface{}) error {
	payload, err := json.Marshal(stats)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`INSERT INTO %s (kind, name, session, timestamp, payload) VALUES (?, ?, ?, ?, ?)`, statsTable)
	if _, err := svc.db.Exec(query, kind, name, session, ts, string(payload)); err != nil {
		return fmt.Errorf("failed to insert %s stats: %w", kind, err)
	}
	return nil
}

// RetrieveCoachStats returns the coach stats persisted for a session.
func (svc *sqliteService) RetrieveCoachStats(session string) ([]model.CoachStats, error) {
	query := fmt.Sprintf(`SELECT payload FROM %s WHERE kind = 'coach' AND session = ? ORDER BY id`, statsTable)
	rows, err := svc.db.Query(query, session)
	if err != nil {
		return nil, fmt.Errorf("failed to query coach stats: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := []model.CoachStats{}
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var s model.CoachStats
		if err := json.Unmarshal([]byte(payload), &s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (svc *sqliteService) Close() error {
	return svc.db.Close()
}
