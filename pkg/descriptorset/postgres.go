package descriptorset

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/quiverml/quiver/pkg/descriptor"
	"github.com/quiverml/quiver/pkg/plugin"
)

// PostgresSet stores descriptors in a PostgreSQL table, one row per
// descriptor with the vector serialized as JSONB.
type PostgresSet struct {
	url      string
	table    string
	maxConns int

	db *sql.DB
}

// NewPostgresSetWithDB wraps an existing database handle. Used in tests and
// when the caller manages the connection pool.
func NewPostgresSetWithDB(db *sql.DB, table string) *PostgresSet {
	if table == "" {
		table = "descriptors"
	}
	return &PostgresSet{db: db, table: table}
}

func (s *PostgresSet) DefaultConfig() plugin.Config {
	return plugin.Config{
		"url":       "",
		"table":     "descriptors",
		"max_conns": 10,
	}
}

func (s *PostgresSet) Configure(reg *plugin.Registry, cfg plugin.Config) error {
	s.url = cfg.StringOr("url", "")
	if s.url == "" {
		return fmt.Errorf("postgres set requires a url")
	}
	s.table = cfg.StringOr("table", "descriptors")
	if !identPattern.MatchString(s.table) {
		return fmt.Errorf("invalid table name %q", s.table)
	}
	s.maxConns = cfg.IntOr("max_conns", 10)

	db, err := sql.Open("postgres", s.url)
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	db.SetMaxOpenConns(s.maxConns)
	db.SetConnMaxIdleTime(10 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, fmt.Sprintf(
		`CREATE TABLE IF NOT EXISTS %s (uuid TEXT PRIMARY KEY, vector JSONB NOT NULL)`, s.table)); err != nil {
		db.Close()
		return fmt.Errorf("creating table %s: %w", s.table, err)
	}
	s.db = db
	return nil
}

func (s *PostgresSet) Config() plugin.Config {
	return plugin.Config{
		"url":       s.url,
		"table":     s.table,
		"max_conns": s.maxConns,
	}
}

// Close releases the database handle.
func (s *PostgresSet) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB exposes the underlying handle for health checks.
func (s *PostgresSet) DB() *sql.DB {
	return s.db
}

func (s *PostgresSet) Add(ctx context.Context, elems ...descriptor.Element) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt := fmt.Sprintf(
		`INSERT INTO %s (uuid, vector) VALUES ($1, $2) ON CONFLICT (uuid) DO UPDATE SET vector = EXCLUDED.vector`,
		s.table)
	for _, elem := range elems {
		v, err := vectorOf(elem)
		if err != nil {
			return err
		}
		encoded, err := encodeVector(v)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, stmt, elem.UUID(), encoded); err != nil {
			return fmt.Errorf("storing descriptor %q: %w", elem.UUID(), err)
		}
	}
	return tx.Commit()
}

func (s *PostgresSet) Get(ctx context.Context, uuid string) (descriptor.Element, error) {
	var encoded []byte
	err := s.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT vector FROM %s WHERE uuid = $1`, s.table), uuid).Scan(&encoded)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &NotFoundError{UUID: uuid}
	}
	if err != nil {
		return nil, fmt.Errorf("loading descriptor %q: %w", uuid, err)
	}

	v, err := decodeVector(encoded)
	if err != nil {
		return nil, err
	}
	return descriptor.NewMemoryElementWithVector(uuid, v), nil
}

func (s *PostgresSet) GetMany(ctx context.Context, uuids []string) ([]descriptor.Element, error) {
	out := make([]descriptor.Element, 0, len(uuids))
	for _, uuid := range uuids {
		elem, err := s.Get(ctx, uuid)
		if err != nil {
			return nil, err
		}
		out = append(out, elem)
	}
	return out, nil
}

func (s *PostgresSet) Has(ctx context.Context, uuid string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT 1 FROM %s WHERE uuid = $1`, s.table), uuid).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *PostgresSet) Remove(ctx context.Context, uuid string) error {
	res, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE uuid = $1`, s.table), uuid)
	if err != nil {
		return fmt.Errorf("removing descriptor %q: %w", uuid, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &NotFoundError{UUID: uuid}
	}
	return nil
}

func (s *PostgresSet) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT COUNT(*) FROM %s`, s.table)).Scan(&count)
	return count, err
}

func (s *PostgresSet) UUIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT uuid FROM %s ORDER BY uuid`, s.table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var uuid string
		if err := rows.Scan(&uuid); err != nil {
			return nil, err
		}
		out = append(out, uuid)
	}
	return out, rows.Err()
}

func (s *PostgresSet) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s`, s.table))
	return err
}
