// Package sqlmerge serves MERGEFIELD values from the rows of a SQLite table.
//
// One row is current at a time; Next advances through the table the way a
// mail merge advances through its data source.
package sqlmerge

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/benjaminschreck/go-docfield/pkg/docfield"
)

// Source is a docfield.ValueResolver backed by a SQLite table.
type Source struct {
	db    *sql.DB
	owned bool
	table string
	where string
	args  []interface{}

	mu      sync.Mutex
	loaded  bool
	rows    []map[string]docfield.FieldValue
	current int
}

type Option func(*Source)

// WithFilter restricts the rows read to a WHERE clause with positional args.
func WithFilter(where string, args ...interface{}) Option {
	return func(s *Source) {
		s.where = where
		s.args = args
	}
}

// Open opens the database file at path.
func Open(path, table string, opts ...Option) (*Source, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	s := New(db, table, opts...)
	s.owned = true
	return s, nil
}

// New reads from an already open database. The caller keeps ownership of db.
func New(db *sql.DB, table string, opts ...Option) *Source {
	s := &Source{db: db, table: table}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Source) Name() string {
	return "sqlite:" + s.table
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// Load reads the table. It is called on first use and may be called again
// to pick up changes.
func (s *Source) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

func (s *Source) load(ctx context.Context) error {
	query := "SELECT * FROM " + quoteIdent(s.table)
	if s.where != "" {
		query += " WHERE " + s.where
	}
	rows, err := s.db.QueryContext(ctx, query, s.args...)
	if err != nil {
		return fmt.Errorf("querying %s: %w", s.table, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return fmt.Errorf("reading columns of %s: %w", s.table, err)
	}

	var out []map[string]docfield.FieldValue
	for rows.Next() {
		raw := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return fmt.Errorf("scanning %s: %w", s.table, err)
		}
		record := make(map[string]docfield.FieldValue, len(cols))
		for i, col := range cols {
			record[strings.ToLower(col)] = docfield.ValueOf(raw[i])
		}
		out = append(out, record)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("reading %s: %w", s.table, err)
	}

	s.rows = out
	s.loaded = true
	if s.current >= len(out) {
		s.current = 0
	}
	return nil
}

func (s *Source) ensureLoaded(ctx context.Context) error {
	if s.loaded {
		return nil
	}
	return s.load(ctx)
}

// Len returns the number of rows, loading the table if needed.
func (s *Source) Len(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(ctx); err != nil {
		return 0, err
	}
	return len(s.rows), nil
}

// Select makes row i current.
func (s *Source) Select(ctx context.Context, i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(ctx); err != nil {
		return err
	}
	if i < 0 || i >= len(s.rows) {
		return fmt.Errorf("row %d out of range: %s has %d rows", i, s.table, len(s.rows))
	}
	s.current = i
	return nil
}

// Next advances to the following row and reports whether there was one.
func (s *Source) Next() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current+1 >= len(s.rows) {
		return false
	}
	s.current++
	return true
}

// Record returns a copy of the current row keyed by lower-cased column name.
func (s *Source) Record(ctx context.Context) (map[string]docfield.FieldValue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	if len(s.rows) == 0 {
		return nil, nil
	}
	out := make(map[string]docfield.FieldValue, len(s.rows[s.current]))
	for k, v := range s.rows[s.current] {
		out[k] = v
	}
	return out, nil
}

// ResolveValue answers merge-field lookups from the current row. A NULL
// column resolves to the empty string.
func (s *Source) ResolveValue(ctx context.Context, name string, kind docfield.ResolveKind, _ *docfield.EvalContext) (docfield.FieldValue, bool, error) {
	if !docfield.ResolveMergeField.Accepts(kind) {
		return docfield.FieldValue{}, false, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(ctx); err != nil {
		return docfield.FieldValue{}, false, err
	}
	if len(s.rows) == 0 {
		return docfield.FieldValue{}, false, nil
	}
	v, ok := s.rows[s.current][strings.ToLower(strings.TrimSpace(name))]
	return v, ok, nil
}

// Close closes the database if the source opened it.
func (s *Source) Close() error {
	if !s.owned {
		return nil
	}
	return s.db.Close()
}
