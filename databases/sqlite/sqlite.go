// Package sqlite provides a lineage.Store on a local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rlch/lineage"
	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// ErrInvalidConfig is returned when the sqlite section is missing.
var ErrInvalidConfig = errors.New("sqlite: missing sqlite config")

//nolint:gochecknoinits // Store self-registration pattern
func init() {
	lineage.RegisterStore(lineage.StoreSQLite, func(cfg *lineage.StoreConfig) (lineage.Store, error) {
		if cfg.SQLite == nil {
			return nil, ErrInvalidConfig
		}

		path := cfg.SQLite.Path
		if path == "" {
			path = lineage.DefaultSQLitePath
		}

		return New(context.Background(), path)
	})
}

// schema is executed on every open.
const schema = `
CREATE TABLE IF NOT EXISTS persons (
    id    TEXT PRIMARY KEY,
    scope TEXT NOT NULL,
    data  TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS persons_scope ON persons (scope);

CREATE TABLE IF NOT EXISTS relationships (
    id         TEXT PRIMARY KEY,
    scope      TEXT NOT NULL,
    type       TEXT NOT NULL,
    person1_id TEXT NOT NULL,
    person2_id TEXT NOT NULL,
    data       TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS relationships_person1 ON relationships (person1_id, type);
CREATE INDEX IF NOT EXISTS relationships_person2 ON relationships (person2_id, type);
`

// Store implements lineage.Store on SQLite in WAL mode. Records are stored
// as JSON with the queried columns pulled out.
type Store struct {
	db *sql.DB
}

var _ lineage.Store = (*Store)(nil)

// New opens (or creates) the database at path and creates the schema.
// Use ":memory:" for a throwaway database.
func New(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open database: %w", err)
	}

	// SQLite has a single writer; one connection avoids SQLITE_BUSY between
	// pooled connections and keeps a ":memory:" database alive.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()

			return nil, fmt.Errorf("sqlite: %s: %w", pragma, err)
		}
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("sqlite: create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// GetPerson implements lineage.Store.
func (s *Store) GetPerson(ctx context.Context, id string) (*lineage.Person, error) {
	var data string

	err := s.db.QueryRowContext(ctx, "SELECT data FROM persons WHERE id = ?", id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, lineage.PersonNotFound(id)
	}

	if err != nil {
		return nil, fmt.Errorf("sqlite: get person %q: %w", id, err)
	}

	return decodePerson(data)
}

// ListPersons implements lineage.Store.
func (s *Store) ListPersons(ctx context.Context, scope string) ([]*lineage.Person, error) {
	q := "SELECT data FROM persons"

	var args []any

	if scope != "" {
		q += " WHERE scope = ?"
		args = append(args, scope)
	}

	rows, err := s.db.QueryContext(ctx, q+" ORDER BY id", args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list persons: %w", err)
	}
	defer rows.Close()

	var out []*lineage.Person

	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("sqlite: scan person: %w", err)
		}

		p, err := decodePerson(data)
		if err != nil {
			return nil, err
		}

		out = append(out, p)
	}

	return out, rows.Err()
}

// CreatePerson implements lineage.Store.
func (s *Store) CreatePerson(ctx context.Context, p *lineage.Person) (*lineage.Person, error) {
	p = p.Clone()
	if p.ID == "" {
		p.ID = lineage.NewID()
	}

	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("sqlite: encode person: %w", err)
	}

	_, err = s.db.ExecContext(ctx, "INSERT INTO persons (id, scope, data) VALUES (?, ?, ?)", p.ID, p.Scope, string(data))
	if err != nil {
		return nil, fmt.Errorf("sqlite: create person: %w", err)
	}

	return p, nil
}

// DeletePerson implements lineage.Store.
func (s *Store) DeletePerson(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM persons WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("sqlite: delete person %q: %w", id, err)
	}

	return affected(res, lineage.PersonNotFound(id))
}

// GetRelationship implements lineage.Store.
func (s *Store) GetRelationship(ctx context.Context, id string) (*lineage.Relationship, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, scope, type, person1_id, person2_id, data FROM relationships WHERE id = ?", id)

	r, err := scanRelationship(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, lineage.RelationshipNotFound(id)
	}

	return r, err
}

// FindRelationships implements lineage.Store.
func (s *Store) FindRelationships(ctx context.Context, filter lineage.RelationshipFilter) ([]*lineage.Relationship, error) {
	var (
		where []string
		args  []any
	)

	add := func(cond string, vals ...any) {
		where = append(where, cond)
		args = append(args, vals...)
	}

	if filter.Scope != "" {
		add("scope = ?", filter.Scope)
	}

	if filter.Type != "" {
		add("type = ?", string(filter.Type))
	}

	if filter.Person1ID != "" {
		add("person1_id = ?", filter.Person1ID)
	}

	if filter.Person2ID != "" {
		add("person2_id = ?", filter.Person2ID)
	}

	if filter.Involving != "" {
		add("(person1_id = ? OR person2_id = ?)", filter.Involving, filter.Involving)
	}

	q := "SELECT id, scope, type, person1_id, person2_id, data FROM relationships"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}

	rows, err := s.db.QueryContext(ctx, q+" ORDER BY id", args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: find relationships: %w", err)
	}
	defer rows.Close()

	var out []*lineage.Relationship

	for rows.Next() {
		r, err := scanRelationship(rows)
		if err != nil {
			return nil, err
		}

		out = append(out, r)
	}

	return out, rows.Err()
}

// CreateRelationship implements lineage.Store.
func (s *Store) CreateRelationship(ctx context.Context, r *lineage.Relationship) (*lineage.Relationship, error) {
	r = r.Clone()
	if r.ID == "" {
		r.ID = lineage.NewID()
	}

	data, err := json.Marshal(r.RelationshipAttrs)
	if err != nil {
		return nil, fmt.Errorf("sqlite: encode relationship: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO relationships (id, scope, type, person1_id, person2_id, data) VALUES (?, ?, ?, ?, ?, ?)",
		r.ID, r.Scope, string(r.Type), r.Person1ID, r.Person2ID, string(data))
	if err != nil {
		return nil, fmt.Errorf("sqlite: create relationship: %w", err)
	}

	return r, nil
}

// DeleteRelationship implements lineage.Store.
func (s *Store) DeleteRelationship(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM relationships WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("sqlite: delete relationship %q: %w", id, err)
	}

	return affected(res, lineage.RelationshipNotFound(id))
}

// UpdateRelationship implements lineage.Store.
func (s *Store) UpdateRelationship(
	ctx context.Context,
	id string,
	attrs lineage.RelationshipAttrs,
) (*lineage.Relationship, error) {
	data, err := json.Marshal(attrs)
	if err != nil {
		return nil, fmt.Errorf("sqlite: encode relationship: %w", err)
	}

	res, err := s.db.ExecContext(ctx, "UPDATE relationships SET data = ? WHERE id = ?", string(data), id)
	if err != nil {
		return nil, fmt.Errorf("sqlite: update relationship %q: %w", id, err)
	}

	if err := affected(res, lineage.RelationshipNotFound(id)); err != nil {
		return nil, err
	}

	return s.GetRelationship(ctx, id)
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRelationship(row scanner) (*lineage.Relationship, error) {
	var (
		r    lineage.Relationship
		typ  string
		data string
	)

	if err := row.Scan(&r.ID, &r.Scope, &typ, &r.Person1ID, &r.Person2ID, &data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}

		return nil, fmt.Errorf("sqlite: scan relationship: %w", err)
	}

	r.Type = lineage.RelationshipType(typ)

	if err := json.Unmarshal([]byte(data), &r.RelationshipAttrs); err != nil {
		return nil, fmt.Errorf("sqlite: decode relationship %q: %w", r.ID, err)
	}

	return &r, nil
}

func decodePerson(data string) (*lineage.Person, error) {
	var p lineage.Person
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return nil, fmt.Errorf("sqlite: decode person: %w", err)
	}

	return &p, nil
}

// affected returns notFound when res touched no rows.
func affected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: rows affected: %w", err)
	}

	if n == 0 {
		return notFound
	}

	return nil
}
