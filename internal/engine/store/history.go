// Package store persists transcript resolution history for operator
// diagnostics. The resolver never reads it back.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/anatolykoptev/go_carousel/internal/engine"
	"github.com/anatolykoptev/go_carousel/internal/engine/transcript"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// ErrDisabled is returned by Default when no history DSN is configured.
var ErrDisabled = errors.New("history: store not configured (set HISTORY_DSN)")

const (
	driverSQLite   = "sqlite"
	driverPostgres = "pgx"
	defaultLimit   = 20
	maxLimit       = 200
)

// Entry is one recorded resolution.
type Entry struct {
	ID          int64                `json:"id"`
	VideoID     string               `json:"video_id"`
	Succeeded   bool                 `json:"succeeded"`
	Source      string               `json:"source,omitempty"`
	ContentHash string               `json:"content_hash,omitempty"`
	Chars       int                  `json:"chars,omitempty"`
	Attempted   int                  `json:"attempted"`
	Outcomes    []transcript.Outcome `json:"outcomes"`
	Error       string               `json:"error,omitempty"`
	CreatedAt   string               `json:"created_at"`
}

// History is a resolution log backed by SQLite or PostgreSQL.
type History struct {
	db     *sql.DB
	driver string
}

// driverFor picks the database driver and data source name for dsn.
// postgres:// and postgresql:// URLs use pgx; anything else is a SQLite path,
// optionally prefixed with sqlite://.
func driverFor(dsn string) (driver, source string) {
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return driverPostgres, dsn
	case strings.HasPrefix(dsn, "sqlite://"):
		return driverSQLite, strings.TrimPrefix(dsn, "sqlite://")
	default:
		return driverSQLite, dsn
	}
}

// Open connects to dsn and creates the schema if needed.
func Open(ctx context.Context, dsn string) (*History, error) {
	if dsn == "" {
		return nil, ErrDisabled
	}
	driver, source := driverFor(dsn)
	if driver == driverSQLite {
		if dir := filepath.Dir(source); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("history: mkdir %s: %w", dir, err)
			}
		}
	}

	db, err := sql.Open(driver, source)
	if err != nil {
		return nil, fmt.Errorf("history: open db: %w", err)
	}
	if driver == driverSQLite {
		db.SetMaxOpenConns(1) // SQLite: single writer
	}
	h := &History{db: db, driver: driver}
	if err := h.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: init schema: %w", err)
	}
	return h, nil
}

func (h *History) initSchema(ctx context.Context) error {
	idCol := "id INTEGER PRIMARY KEY AUTOINCREMENT"
	if h.driver == driverPostgres {
		idCol = "id BIGSERIAL PRIMARY KEY"
	}
	if _, err := h.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS resolutions (
		`+idCol+`,
		video_id     TEXT NOT NULL,
		succeeded    INTEGER NOT NULL,
		source       TEXT,
		content_hash TEXT,
		chars        INTEGER NOT NULL DEFAULT 0,
		attempted    INTEGER NOT NULL DEFAULT 0,
		outcomes     TEXT NOT NULL,
		error        TEXT,
		created_at   TEXT NOT NULL
	)`); err != nil {
		return err
	}
	_, err := h.db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS resolutions_video_id ON resolutions (video_id, id)`)
	return err
}

// rebind rewrites ? placeholders to $n for PostgreSQL.
func (h *History) rebind(query string) string {
	if h.driver != driverPostgres {
		return query
	}
	var sb strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			sb.WriteString("$" + strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// Record stores the outcome of one resolution. On success t is the returned
// transcript; on failure resolveErr is the resolver's error.
func (h *History) Record(ctx context.Context, videoID string, t transcript.Transcript, outcomes []transcript.Outcome, resolveErr error) (int64, error) {
	if outcomes == nil {
		outcomes = []transcript.Outcome{}
	}
	data, err := json.Marshal(outcomes)
	if err != nil {
		return 0, fmt.Errorf("history: encode outcomes: %w", err)
	}

	e := Entry{
		VideoID:   videoID,
		Succeeded: resolveErr == nil,
		Attempted: transcript.Attempted(outcomes),
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if resolveErr == nil {
		e.Source = t.Source
		e.ContentHash = engine.ContentHash(t.Text)
		e.Chars = engine.RuneLen(t.Text)
	} else {
		e.Error = engine.TruncateRunes(resolveErr.Error(), 2000, "...")
	}

	succeeded := 0
	if e.Succeeded {
		succeeded = 1
	}
	query := h.rebind(`INSERT INTO resolutions
		(video_id, succeeded, source, content_hash, chars, attempted, outcomes, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	args := []any{e.VideoID, succeeded, e.Source, e.ContentHash, e.Chars, e.Attempted, string(data), e.Error, e.CreatedAt}

	if h.driver == driverPostgres {
		var id int64
		if err := h.db.QueryRowContext(ctx, query+" RETURNING id", args...).Scan(&id); err != nil {
			return 0, fmt.Errorf("history: insert: %w", err)
		}
		return id, nil
	}
	res, err := h.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("history: insert: %w", err)
	}
	return res.LastInsertId()
}

// List returns the most recent entries, newest first, optionally filtered by
// video id. limit defaults to 20 and is capped at 200.
func (h *History) List(ctx context.Context, videoID string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	limit = min(limit, maxLimit)

	query := `SELECT id, video_id, succeeded, source, content_hash, chars, attempted, outcomes, error, created_at
		FROM resolutions`
	var args []any
	if videoID != "" {
		query += " WHERE video_id = ?"
		args = append(args, videoID)
	}
	query += " ORDER BY id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := h.db.QueryContext(ctx, h.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("history: query: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var (
			e                          Entry
			succeeded                  int
			source, hash, errMsg, data sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.VideoID, &succeeded, &source, &hash, &e.Chars, &e.Attempted, &data, &errMsg, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("history: scan: %w", err)
		}
		e.Succeeded = succeeded != 0
		e.Source, e.ContentHash, e.Error = source.String, hash.String, errMsg.String
		if data.Valid && data.String != "" {
			if err := json.Unmarshal([]byte(data.String), &e.Outcomes); err != nil {
				return nil, fmt.Errorf("history: decode outcomes for row %d: %w", e.ID, err)
			}
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close closes the underlying database.
func (h *History) Close() error {
	return h.db.Close()
}

var (
	defaultHistory *History
	defaultOnce    sync.Once
	defaultErr     error
)

// Default opens the store named by engine.Cfg.HistoryDSN once per process.
func Default() (*History, error) {
	defaultOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		defaultHistory, defaultErr = Open(ctx, engine.Cfg.HistoryDSN)
	})
	return defaultHistory, defaultErr
}
