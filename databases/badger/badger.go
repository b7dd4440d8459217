// Package badger provides a lineage.Store on BadgerDB.
//
// Key layout:
//
//	p/<personID>          person JSON
//	r/<relationshipID>    relationship JSON
//	e/<personID>/<relID>  endpoint index, empty value
package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/rlch/lineage"
	"go.uber.org/zap"
)

// ErrInvalidConfig is returned when the badger section is unusable.
var ErrInvalidConfig = errors.New("badger: path is required unless in_memory is set")

//nolint:gochecknoinits // Store self-registration pattern
func init() {
	lineage.RegisterStore(lineage.StoreBadger, func(cfg *lineage.StoreConfig) (lineage.Store, error) {
		if cfg.Badger == nil {
			return nil, ErrInvalidConfig
		}

		return New(*cfg.Badger, nil)
	})
}

const (
	personPrefix       = "p/"
	relationshipPrefix = "r/"
	endpointPrefix     = "e/"
)

// Store implements lineage.Store on a BadgerDB key-value store.
type Store struct {
	db *badger.DB
}

var _ lineage.Store = (*Store)(nil)

// New opens the database described by cfg. A nil logger silences Badger.
func New(cfg lineage.BadgerConfig, logger *zap.Logger) (*Store, error) {
	var opts badger.Options

	switch {
	case cfg.InMemory:
		opts = badger.DefaultOptions("").WithInMemory(true)
	case cfg.Path == "":
		return nil, ErrInvalidConfig
	default:
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("badger: create directory %s: %w", cfg.Path, err)
		}

		opts = badger.DefaultOptions(cfg.Path)
	}

	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)

	if logger != nil {
		opts = opts.WithLogger(zapLogger{logger.Sugar()})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger: open database: %w", err)
	}

	return &Store{db: db}, nil
}

// zapLogger adapts zap to badger.Logger.
type zapLogger struct {
	s *zap.SugaredLogger
}

func (l zapLogger) Errorf(format string, args ...any)   { l.s.Errorf(format, args...) }
func (l zapLogger) Warningf(format string, args ...any) { l.s.Warnf(format, args...) }
func (l zapLogger) Infof(format string, args ...any)    { l.s.Infof(format, args...) }
func (l zapLogger) Debugf(format string, args ...any)   { l.s.Debugf(format, args...) }

func personKey(id string) []byte       { return []byte(personPrefix + id) }
func relationshipKey(id string) []byte { return []byte(relationshipPrefix + id) }

func endpointKey(personID, relID string) []byte {
	return []byte(endpointPrefix + personID + "/" + relID)
}

// GetPerson implements lineage.Store.
func (s *Store) GetPerson(_ context.Context, id string) (*lineage.Person, error) {
	var p lineage.Person

	err := s.db.View(func(txn *badger.Txn) error {
		return get(txn, personKey(id), &p)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, lineage.PersonNotFound(id)
	}

	if err != nil {
		return nil, fmt.Errorf("badger: get person %q: %w", id, err)
	}

	return &p, nil
}

// ListPersons implements lineage.Store.
func (s *Store) ListPersons(ctx context.Context, scope string) ([]*lineage.Person, error) {
	var out []*lineage.Person

	err := s.db.View(func(txn *badger.Txn) error {
		return scan(ctx, txn, []byte(personPrefix), func(val []byte) error {
			var p lineage.Person
			if err := json.Unmarshal(val, &p); err != nil {
				return err
			}

			if scope == "" || p.Scope == scope {
				out = append(out, &p)
			}

			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("badger: list persons: %w", err)
	}

	return out, nil
}

// CreatePerson implements lineage.Store.
func (s *Store) CreatePerson(_ context.Context, p *lineage.Person) (*lineage.Person, error) {
	p = p.Clone()
	if p.ID == "" {
		p.ID = lineage.NewID()
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		return put(txn, personKey(p.ID), p)
	})
	if err != nil {
		return nil, fmt.Errorf("badger: create person: %w", err)
	}

	return p, nil
}

// DeletePerson implements lineage.Store.
func (s *Store) DeletePerson(_ context.Context, id string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(personKey(id)); err != nil {
			return err
		}

		return txn.Delete(personKey(id))
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return lineage.PersonNotFound(id)
	}

	if err != nil {
		return fmt.Errorf("badger: delete person %q: %w", id, err)
	}

	return nil
}

// GetRelationship implements lineage.Store.
func (s *Store) GetRelationship(_ context.Context, id string) (*lineage.Relationship, error) {
	var r lineage.Relationship

	err := s.db.View(func(txn *badger.Txn) error {
		return get(txn, relationshipKey(id), &r)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, lineage.RelationshipNotFound(id)
	}

	if err != nil {
		return nil, fmt.Errorf("badger: get relationship %q: %w", id, err)
	}

	return &r, nil
}

// FindRelationships implements lineage.Store. Filters naming a person walk
// that person's endpoint index; others scan every relationship.
func (s *Store) FindRelationships(ctx context.Context, filter lineage.RelationshipFilter) ([]*lineage.Relationship, error) {
	anchor := filter.Involving
	if anchor == "" {
		anchor = filter.Person1ID
	}

	if anchor == "" {
		anchor = filter.Person2ID
	}

	var out []*lineage.Relationship

	keep := func(r *lineage.Relationship) {
		if filter.Match(r) {
			out = append(out, r)
		}
	}

	err := s.db.View(func(txn *badger.Txn) error {
		if anchor == "" {
			return scan(ctx, txn, []byte(relationshipPrefix), func(val []byte) error {
				var r lineage.Relationship
				if err := json.Unmarshal(val, &r); err != nil {
					return err
				}

				keep(&r)

				return nil
			})
		}

		prefix := []byte(endpointPrefix + anchor + "/")

		for _, relID := range scanKeys(txn, prefix) {
			var r lineage.Relationship
			if err := get(txn, relationshipKey(relID), &r); err != nil {
				return err
			}

			keep(&r)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("badger: find relationships: %w", err)
	}

	return out, nil
}

// CreateRelationship implements lineage.Store.
func (s *Store) CreateRelationship(_ context.Context, r *lineage.Relationship) (*lineage.Relationship, error) {
	r = r.Clone()
	if r.ID == "" {
		r.ID = lineage.NewID()
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		if err := put(txn, relationshipKey(r.ID), r); err != nil {
			return err
		}

		if err := txn.Set(endpointKey(r.Person1ID, r.ID), nil); err != nil {
			return err
		}

		return txn.Set(endpointKey(r.Person2ID, r.ID), nil)
	})
	if err != nil {
		return nil, fmt.Errorf("badger: create relationship: %w", err)
	}

	return r, nil
}

// DeleteRelationship implements lineage.Store.
func (s *Store) DeleteRelationship(_ context.Context, id string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		var r lineage.Relationship
		if err := get(txn, relationshipKey(id), &r); err != nil {
			return err
		}

		for _, key := range [][]byte{
			relationshipKey(id),
			endpointKey(r.Person1ID, id),
			endpointKey(r.Person2ID, id),
		} {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}

		return nil
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return lineage.RelationshipNotFound(id)
	}

	if err != nil {
		return fmt.Errorf("badger: delete relationship %q: %w", id, err)
	}

	return nil
}

// UpdateRelationship implements lineage.Store.
func (s *Store) UpdateRelationship(
	_ context.Context,
	id string,
	attrs lineage.RelationshipAttrs,
) (*lineage.Relationship, error) {
	var r lineage.Relationship

	err := s.db.Update(func(txn *badger.Txn) error {
		if err := get(txn, relationshipKey(id), &r); err != nil {
			return err
		}

		r.RelationshipAttrs = attrs.Clone()

		return put(txn, relationshipKey(id), &r)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, lineage.RelationshipNotFound(id)
	}

	if err != nil {
		return nil, fmt.Errorf("badger: update relationship %q: %w", id, err)
	}

	return &r, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func get(txn *badger.Txn, key []byte, v any) error {
	item, err := txn.Get(key)
	if err != nil {
		return err
	}

	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	})
}

func put(txn *badger.Txn, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	return txn.Set(key, data)
}

// scan calls fn with each value under prefix, in key order.
func scan(ctx context.Context, txn *badger.Txn, prefix []byte, fn func(val []byte) error) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix

	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := it.Item().Value(fn); err != nil {
			return err
		}
	}

	return nil
}

// scanKeys returns the key suffixes under prefix, in key order.
func scanKeys(txn *badger.Txn, prefix []byte) []string {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	opts.PrefetchValues = false

	it := txn.NewIterator(opts)
	defer it.Close()

	var out []string

	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		out = append(out, string(it.Item().Key()[len(prefix):]))
	}

	return out
}
