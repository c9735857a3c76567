// Package store persists query trees by name. Every save creates a new
// version; earlier versions stay readable.
//
// Bodies are stored as the JSON form of types.RuleGroup, the same shape the
// builder exchanges with renderers, so a saved query round-trips through
// Normalize unchanged.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/solatis/querybuilder/internal/builder"
	"github.com/solatis/querybuilder/internal/core/db"
	"github.com/solatis/querybuilder/internal/types"
)

// ErrQueryNotFound is returned when no query exists under a name or version.
var ErrQueryNotFound = types.ErrQueryNotFound

// Record is one stored version of a query.
type Record struct {
	Name      string           `json:"name" yaml:"name"`
	Version   int              `json:"version" yaml:"version"`
	Query     *types.RuleGroup `json:"query" yaml:"query"`
	CreatedAt time.Time        `json:"createdAt" yaml:"createdAt"`
}

type row struct {
	Name      string `db:"name"`
	Version   int    `db:"version"`
	Body      string `db:"body"`
	CreatedAt string `db:"created_at"`
}

// Store reads and writes saved queries through the named statements in
// internal/core/db.
type Store struct {
	queries *db.Queries
	now     func() time.Time
}

// New creates a Store.
func New(queries *db.Queries) *Store {
	return &Store{queries: queries, now: time.Now}
}

// Save stores q as the next version of name and returns that version.
func (s *Store) Save(ctx context.Context, name string, q *types.RuleGroup) (int, error) {
	if name == "" {
		return 0, errors.New("query name is required")
	}
	if q == nil {
		return 0, errors.New("query is nil")
	}
	body, err := json.Marshal(q)
	if err != nil {
		return 0, fmt.Errorf("encode query %s: %w", name, err)
	}
	createdAt := s.now().UTC().Format(time.RFC3339)

	var version int
	err = s.queries.InTx(ctx, func(tx *db.Queries) error {
		if err := tx.Get(ctx, "latest-saved-query-version", &version, name); err != nil {
			return err
		}
		version++
		_, err := tx.Exec(ctx, "insert-saved-query", name, version, string(body), createdAt)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("save query %s: %w", name, err)
	}
	return version, nil
}

// Get returns the latest version of name.
func (s *Store) Get(ctx context.Context, name string) (Record, error) {
	var r row
	if err := s.queries.Get(ctx, "get-latest-saved-query", &r, name); err != nil {
		return Record{}, notFound(err, name)
	}
	return r.record()
}

// Version returns one specific version of name.
func (s *Store) Version(ctx context.Context, name string, version int) (Record, error) {
	var r row
	if err := s.queries.Get(ctx, "get-saved-query-version", &r, name, version); err != nil {
		return Record{}, notFound(err, fmt.Sprintf("%s@%d", name, version))
	}
	return r.record()
}

// List returns the latest version of every saved query, ordered by name.
func (s *Store) List(ctx context.Context) ([]Record, error) {
	var rows []row
	if err := s.queries.Select(ctx, "list-saved-queries", &rows); err != nil {
		return nil, fmt.Errorf("list queries: %w", err)
	}
	return records(rows)
}

// History returns every version of name, oldest first.
func (s *Store) History(ctx context.Context, name string) ([]Record, error) {
	var rows []row
	if err := s.queries.Select(ctx, "list-saved-query-history", &rows, name); err != nil {
		return nil, fmt.Errorf("history of %s: %w", name, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrQueryNotFound, name)
	}
	return records(rows)
}

// Delete removes every version of name.
func (s *Store) Delete(ctx context.Context, name string) error {
	res, err := s.queries.Exec(ctx, "delete-saved-query", name)
	if err != nil {
		return fmt.Errorf("delete query %s: %w", name, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrQueryNotFound, name)
	}
	return nil
}

// Recorder returns a query-change hook saving every accepted snapshot as a
// new version of name. Failures are logged; the edit itself has already
// been committed.
func Recorder(ctx context.Context, s *Store, name string, logger *slog.Logger) builder.QueryChangeFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(q *types.RuleGroup) {
		version, err := s.Save(ctx, name, q)
		if err != nil {
			logger.Error("failed to record query", "name", name, "error", err)
			return
		}
		logger.Debug("recorded query", "name", name, "version", version)
	}
}

func (r row) record() (Record, error) {
	q := &types.RuleGroup{}
	if err := json.Unmarshal([]byte(r.Body), q); err != nil {
		return Record{}, fmt.Errorf("decode query %s@%d: %w", r.Name, r.Version, err)
	}
	createdAt, err := time.Parse(time.RFC3339, r.CreatedAt)
	if err != nil {
		return Record{}, fmt.Errorf("decode query %s@%d: created_at: %w", r.Name, r.Version, err)
	}
	return Record{Name: r.Name, Version: r.Version, Query: q, CreatedAt: createdAt}, nil
}

func records(rows []row) ([]Record, error) {
	out := make([]Record, 0, len(rows))
	for _, r := range rows {
		rec, err := r.record()
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrQueryNotFound, what)
	}
	return fmt.Errorf("load query %s: %w", what, err)
}
