// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package history keeps a bounded local log of analysis and trend results
// in SQLite. Entries are opaque to the store: the result is kept as JSON
// and handed back unchanged.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/research-radar/pkg/types"
)

const (
	dbFile            = "history.db"
	defaultMaxEntries = 20
)

// ErrNotFound reports an unknown entry id.
var ErrNotFound = errors.New("history entry not found")

// Kind names what produced an entry.
type Kind string

const (
	KindAnalysis Kind = "analysis"
	KindTrend    Kind = "trend"
)

// Entry is one saved result.
type Entry struct {
	ID         string          `json:"id" yaml:"id"`
	Kind       Kind            `json:"kind" yaml:"kind"`
	Field      string          `json:"field" yaml:"field"`
	Mode       string          `json:"mode,omitempty" yaml:"mode,omitempty"`
	PaperCount int             `json:"paperCount" yaml:"paper_count"`
	CreatedAt  time.Time       `json:"createdAt" yaml:"created_at"`
	Payload    json.RawMessage `json:"payload,omitempty" yaml:"-"`
}

// NewAnalysisEntry wraps an analysis result for saving.
func NewAnalysisEntry(field string, mode types.Mode, r *types.AnalysisResult) (Entry, error) {
	payload, err := json.Marshal(r)
	if err != nil {
		return Entry{}, fmt.Errorf("encoding analysis result: %w", err)
	}
	return Entry{Kind: KindAnalysis, Field: field, Mode: string(mode), PaperCount: r.TotalPapersAnalyzed, Payload: payload}, nil
}

// NewTrendEntry wraps a trend forecast for saving.
func NewTrendEntry(field string, r *types.TrendAnalysisResult) (Entry, error) {
	payload, err := json.Marshal(r)
	if err != nil {
		return Entry{}, fmt.Errorf("encoding trend result: %w", err)
	}
	return Entry{Kind: KindTrend, Field: field, Payload: payload}, nil
}

// Store manages the history database.
type Store struct {
	db         *sql.DB
	maxEntries int
	now        func() time.Time
}

// Open opens or creates dir/history.db.
func Open(cfg types.HistoryConfig) (*Store, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}

	db, err := sql.Open("sqlite3", filepath.Join(cfg.Dir, dbFile)+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	maxEntries := cfg.MaxEntries
	if maxEntries <= 0 {
		maxEntries = defaultMaxEntries
	}
	s := &Store{db: db, maxEntries: maxEntries, now: time.Now}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS entries (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			kind TEXT NOT NULL,
			field TEXT,
			mode TEXT,
			paper_count INTEGER,
			created_at TEXT NOT NULL,
			payload TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_entries_kind ON entries(kind)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Save stores e, filling ID and CreatedAt when unset, and prunes the
// oldest entries beyond the configured maximum.
func (s *Store) Save(ctx context.Context, e Entry) (Entry, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now().UTC()
	}
	if len(e.Payload) == 0 {
		e.Payload = json.RawMessage("null")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Entry{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO entries (id, kind, field, mode, paper_count, created_at, payload)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, string(e.Kind), e.Field, e.Mode, e.PaperCount,
		e.CreatedAt.Format(time.RFC3339Nano), string(e.Payload),
	)
	if err != nil {
		return Entry{}, fmt.Errorf("inserting entry: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`DELETE FROM entries WHERE seq NOT IN (SELECT seq FROM entries ORDER BY seq DESC LIMIT ?)`,
		s.maxEntries,
	)
	if err != nil {
		return Entry{}, fmt.Errorf("pruning entries: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Entry{}, fmt.Errorf("committing entry: %w", err)
	}
	return e, nil
}

// ListOptions filters List.
type ListOptions struct {
	Kind  Kind
	Limit int
}

// List returns entries newest first, without payloads.
func (s *Store) List(ctx context.Context, opts ListOptions) ([]Entry, error) {
	query := `SELECT id, kind, field, mode, paper_count, created_at FROM entries`
	var args []any
	if opts.Kind != "" {
		query += ` WHERE kind = ?`
		args = append(args, string(opts.Kind))
	}
	query += ` ORDER BY seq DESC`
	if opts.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, opts.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing entries: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows, false)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Get returns one entry with its payload.
func (s *Store) Get(ctx context.Context, id string) (Entry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, kind, field, mode, paper_count, created_at, payload FROM entries WHERE id = ?`, id)
	e, err := scanEntry(row, true)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return e, err
}

// Delete removes one entry.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM entries WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting entry: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// Clear removes every entry and returns how many there were.
func (s *Store) Clear(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM entries`)
	if err != nil {
		return 0, fmt.Errorf("clearing entries: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(sc scanner, withPayload bool) (Entry, error) {
	var (
		e           Entry
		kind        string
		field, mode sql.NullString
		count       sql.NullInt64
		created     string
		payload     string
	)
	dest := []any{&e.ID, &kind, &field, &mode, &count, &created}
	if withPayload {
		dest = append(dest, &payload)
	}
	if err := sc.Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, err
		}
		return Entry{}, fmt.Errorf("scanning entry: %w", err)
	}

	e.Kind = Kind(kind)
	e.Field = field.String
	e.Mode = mode.String
	e.PaperCount = int(count.Int64)
	t, err := time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return Entry{}, fmt.Errorf("parsing created_at %q: %w", created, err)
	}
	e.CreatedAt = t
	if withPayload {
		e.Payload = json.RawMessage(payload)
	}
	return e, nil
}
