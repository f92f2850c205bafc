// Package pathstore persists named cross-section polylines in SQLite so drawn
// sections survive restarts.
package pathstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when no path has the requested id
var ErrNotFound = errors.New("path not found")

// ErrInvalidPath is returned for lines with fewer than two points
var ErrInvalidPath = errors.New("path needs at least 2 points")

const schema = `
CREATE TABLE IF NOT EXISTS paths (
	id         TEXT PRIMARY KEY,
	dataset    TEXT NOT NULL,
	name       TEXT NOT NULL,
	geojson    TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS paths_dataset_idx ON paths (dataset);
`

// Path is a saved polyline attached to a dataset
type Path struct {
	ID        string         `json:"id"`
	Dataset   string         `json:"dataset"`
	Name      string         `json:"name"`
	Line      orb.LineString `json:"line"`
	CreatedAt time.Time      `json:"created_at"`
}

// Store is a SQLite-backed path store
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the store at dbPath. Use ":memory:" for a
// throwaway store.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	// SQLite serializes writers; a single connection also keeps ":memory:" databases shared
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}

// Save stores a new path and returns it with its generated id
func (s *Store) Save(ctx context.Context, dataset, name string, line orb.LineString) (*Path, error) {
	paths, err := s.SaveAll(ctx, dataset, name, []orb.LineString{line})
	if err != nil {
		return nil, err
	}
	return paths[0], nil
}

// SaveAll stores every line under the same name in one transaction. Either
// all lines are saved or none are.
func (s *Store) SaveAll(ctx context.Context, dataset, name string, lines []orb.LineString) ([]*Path, error) {
	encoded := make([]string, len(lines))
	for i, line := range lines {
		if len(line) < 2 {
			return nil, fmt.Errorf("line %d has %d points: %w", i, len(line), ErrInvalidPath)
		}
		data, err := geojson.NewGeometry(line).MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("failed to encode path: %w", err)
		}
		encoded[i] = string(data)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	created := time.Now().UTC().Truncate(time.Second)
	paths := make([]*Path, len(lines))
	for i, line := range lines {
		p := &Path{
			ID:        uuid.NewString(),
			Dataset:   dataset,
			Name:      name,
			Line:      line,
			CreatedAt: created,
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO paths (id, dataset, name, geojson, created_at) VALUES (?, ?, ?, ?, ?)`,
			p.ID, p.Dataset, p.Name, encoded[i], p.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to insert path: %w", err)
		}
		paths[i] = p
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit paths: %w", err)
	}
	return paths, nil
}

// Get returns the path with the given id
func (s *Store) Get(ctx context.Context, id string) (*Path, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, dataset, name, geojson, created_at FROM paths WHERE id = ?`, id)
	p, err := scanPath(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return p, err
}

// List returns the paths saved for a dataset, oldest first
func (s *Store) List(ctx context.Context, dataset string) ([]Path, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, dataset, name, geojson, created_at FROM paths WHERE dataset = ? ORDER BY created_at, name`, dataset)
	if err != nil {
		return nil, fmt.Errorf("failed to query paths: %w", err)
	}
	defer rows.Close()

	paths := []Path{}
	for rows.Next() {
		p, err := scanPath(rows)
		if err != nil {
			return nil, err
		}
		paths = append(paths, *p)
	}
	return paths, rows.Err()
}

// Delete removes a path
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM paths WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete path: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPath(row scanner) (*Path, error) {
	var p Path
	var data string
	if err := row.Scan(&p.ID, &p.Dataset, &p.Name, &data, &p.CreatedAt); err != nil {
		return nil, err
	}

	g, err := geojson.UnmarshalGeometry([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("path %s: stored geometry is invalid: %w", p.ID, err)
	}
	line, ok := g.Geometry().(orb.LineString)
	if !ok {
		return nil, fmt.Errorf("path %s: stored geometry is %s, not a LineString", p.ID, g.Type)
	}
	p.Line = line
	return &p, nil
}
