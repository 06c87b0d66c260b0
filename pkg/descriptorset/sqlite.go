package descriptorset

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/quiverml/quiver/pkg/descriptor"
	"github.com/quiverml/quiver/pkg/plugin"
)

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SQLiteSet stores descriptors in a SQLite database file, one row per
// descriptor with the vector serialized as JSON.
type SQLiteSet struct {
	path  string
	table string

	db *sql.DB
}

func (s *SQLiteSet) DefaultConfig() plugin.Config {
	return plugin.Config{
		"path":  "descriptors.db",
		"table": "descriptors",
	}
}

func (s *SQLiteSet) Configure(reg *plugin.Registry, cfg plugin.Config) error {
	s.path = cfg.StringOr("path", "descriptors.db")
	s.table = cfg.StringOr("table", "descriptors")
	if !identPattern.MatchString(s.table) {
		return fmt.Errorf("invalid table name %q", s.table)
	}

	db, err := sql.Open("sqlite3", s.path)
	if err != nil {
		return fmt.Errorf("opening sqlite database %s: %w", s.path, err)
	}
	if _, err := db.Exec(fmt.Sprintf(
		`CREATE TABLE IF NOT EXISTS %s (uuid TEXT PRIMARY KEY, vector TEXT NOT NULL)`, s.table)); err != nil {
		db.Close()
		return fmt.Errorf("creating table %s: %w", s.table, err)
	}
	s.db = db
	return nil
}

func (s *SQLiteSet) Config() plugin.Config {
	return plugin.Config{
		"path":  s.path,
		"table": s.table,
	}
}

// Close releases the database handle.
func (s *SQLiteSet) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteSet) Add(ctx context.Context, elems ...descriptor.Element) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt := fmt.Sprintf(
		`INSERT INTO %s (uuid, vector) VALUES (?, ?) ON CONFLICT(uuid) DO UPDATE SET vector = excluded.vector`,
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
		if _, err := tx.ExecContext(ctx, stmt, elem.UUID(), string(encoded)); err != nil {
			return fmt.Errorf("storing descriptor %q: %w", elem.UUID(), err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteSet) Get(ctx context.Context, uuid string) (descriptor.Element, error) {
	var encoded string
	err := s.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT vector FROM %s WHERE uuid = ?`, s.table), uuid).Scan(&encoded)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &NotFoundError{UUID: uuid}
	}
	if err != nil {
		return nil, fmt.Errorf("loading descriptor %q: %w", uuid, err)
	}

	v, err := decodeVector([]byte(encoded))
	if err != nil {
		return nil, err
	}
	return descriptor.NewMemoryElementWithVector(uuid, v), nil
}

func (s *SQLiteSet) GetMany(ctx context.Context, uuids []string) ([]descriptor.Element, error) {
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

func (s *SQLiteSet) Has(ctx context.Context, uuid string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT 1 FROM %s WHERE uuid = ?`, s.table), uuid).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *SQLiteSet) Remove(ctx context.Context, uuid string) error {
	res, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE uuid = ?`, s.table), uuid)
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

func (s *SQLiteSet) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT COUNT(*) FROM %s`, s.table)).Scan(&count)
	return count, err
}

func (s *SQLiteSet) UUIDs(ctx context.Context) ([]string, error) {
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

func (s *SQLiteSet) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s`, s.table))
	return err
}
