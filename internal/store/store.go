// Package store keeps ingested points in SQLite and answers bounding-box
// queries for the points service.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"pointmap/internal/geom"
	"pointmap/internal/pointsapi"
)

// Store is a point store backed by a SQL database.
type Store struct {
	db *sql.DB
}

// Stats summarises the store contents.
type Stats struct {
	Points int
	Loads  int
}

// Load describes one ingest.
type Load struct {
	ID        string
	Source    string
	Points    int
	CreatedAt time.Time
}

// Open opens (creating if needed) the SQLite database at path and migrates it.
// Use ":memory:" for a throwaway database.
func Open(ctx context.Context, path string) (*Store, error) {
	dsn := path
	if path != ":memory:" {
		dsn = "file:" + path + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// A second connection to :memory: would see an empty database.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}
	if err := Migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// NewWithDB wraps an already migrated database.
func NewWithDB(db *sql.DB) *Store {
	return &Store{db: db}
}

// SchemaVersion is the applied migration version.
func (s *Store) SchemaVersion() (int64, error) {
	return Version(s.db)
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Insert stores pts in one transaction and returns the new load id.
// Points with a non-finite coordinate or intensity are skipped.
func (s *Store) Insert(ctx context.Context, source string, pts []geom.Point) (id string, err error) {
	finite := make([]geom.Point, 0, len(pts))
	for _, p := range pts {
		if p.Finite() {
			finite = append(finite, p)
		}
	}
	pts = finite

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			err = errors.Join(err, tx.Rollback())
		}
	}()

	id = uuid.New().String()
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO loads (id, source, points, created_at) VALUES (?, ?, ?, ?)`,
		id, source, len(pts), time.Now().UTC(),
	); err != nil {
		return "", fmt.Errorf("failed to create load: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO points (load_id, x, y, z, intensity) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i, p := range pts {
		if _, err = stmt.ExecContext(ctx, id, p.Lon, p.Lat, p.Alt, float64(p.Intensity)); err != nil {
			return "", fmt.Errorf("failed to insert point %d: %w", i, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit load: %w", err)
	}
	return id, nil
}

// QueryPoints returns up to req.Limit points inside req.Bounds, bounds
// inclusive, in insertion order.
func (s *Store) QueryPoints(ctx context.Context, req pointsapi.Request) ([]geom.Point, error) {
	b := req.Bounds
	rows, err := s.db.QueryContext(ctx, `
		SELECT x, y, z, intensity FROM points
		WHERE x BETWEEN ? AND ? AND y BETWEEN ? AND ? AND z BETWEEN ? AND ?
		ORDER BY id
		LIMIT ?`,
		b.MinX, b.MaxX, b.MinY, b.MaxY, b.MinZ, b.MaxZ, req.Limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query points: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []geom.Point
	for rows.Next() {
		var p geom.Point
		var intensity float64
		if err := rows.Scan(&p.Lon, &p.Lat, &p.Alt, &intensity); err != nil {
			return nil, fmt.Errorf("failed to scan point: %w", err)
		}
		p.Intensity = float32(intensity)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read points: %w", err)
	}
	return out, nil
}

// Stats counts stored points and loads.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := s.db.QueryRowContext(ctx,
		`SELECT (SELECT COUNT(*) FROM points), (SELECT COUNT(*) FROM loads)`,
	).Scan(&st.Points, &st.Loads)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to count points: %w", err)
	}
	return st, nil
}

// Loads lists ingests, newest first.
func (s *Store) Loads(ctx context.Context) ([]Load, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source, points, created_at FROM loads ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list loads: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Load
	for rows.Next() {
		var l Load
		if err := rows.Scan(&l.ID, &l.Source, &l.Points, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan load: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
