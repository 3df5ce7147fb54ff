// Package journal keeps a local SQLite copy of every BAC result, including
// the ones the remote table never received.
package journal

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"facebeer-go/bus"
	"facebeer-go/services/kiosk"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

//go:embed schema.sql
var schema string

// ErrDuplicate is returned when a session was already journalled.
var ErrDuplicate = errors.New("journal: session already recorded")

// Entry is one journalled result.
type Entry struct {
	ID         int64     `json:"id"`
	SessionID  string    `json:"session_id"`
	Name       string    `json:"name"`
	Confidence float64   `json:"confidence"`
	BAC        float64   `json:"bac"`
	Samples    int       `json:"samples"`
	Code       int       `json:"code"`
	Err        string    `json:"err,omitempty"`
	At         time.Time `json:"at"`
}

// dsnPragmas are applied by the driver to every pooled connection.
const dsnPragmas = "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"

type Store struct {
	db *sql.DB
}

// Open opens (or creates) the journal at path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("journal path is required")
	}
	dsn := filepath.Clean(path) + dsnPragmas
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Append stores one result event.
func (s *Store) Append(ctx context.Context, ev kiosk.ResultEvent) error {
	if ev.SessionID == "" {
		return fmt.Errorf("journal: session id is required")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO measurements (session_id, name, confidence, bac, samples, code, err, at_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.SessionID, ev.Name, ev.Confidence, ev.BAC, ev.Samples, ev.Code, ev.Err, ev.TSms,
	)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("journal append: %w", err)
	}
	return nil
}

// Recent returns up to n entries, newest first.
func (s *Store) Recent(ctx context.Context, n int) ([]Entry, error) {
	if n <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, name, confidence, bac, samples, code, err, at_ms
		 FROM measurements ORDER BY at_ms DESC, id DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("journal recent: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var atMs int64
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Name, &e.Confidence, &e.BAC, &e.Samples, &e.Code, &e.Err, &atMs); err != nil {
			return nil, fmt.Errorf("journal scan: %w", err)
		}
		e.At = time.UnixMilli(atMs).UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}

// Run journals every kiosk result until ctx is done. Write failures are
// logged and never stop the kiosk.
func (s *Store) Run(ctx context.Context, conn *bus.Connection, log *slog.Logger) error {
	if log == nil {
		log = slog.Default()
	}
	log = log.With("svc", "journal")
	sub := conn.Subscribe(kiosk.TopicResult)
	defer conn.Unsubscribe(sub)

	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-sub.Channel():
			if !ok {
				return nil
			}
			ev, ok := m.Payload.(kiosk.ResultEvent)
			if !ok {
				continue
			}
			if err := s.Append(ctx, ev); err != nil {
				log.Error("append failed", "session", ev.SessionID, "err", err)
				continue
			}
			log.Debug("result journalled", "session", ev.SessionID, "bac", ev.BAC)
		}
	}
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return false
}
