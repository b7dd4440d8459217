// Package neo4j provides a lineage.Store on a Neo4j server.
//
// Persons are (:Person) nodes. Relationships are (:Relationship) nodes
// carrying their endpoint IDs as properties rather than native edges, so an
// edge may outlive or precede its endpoints exactly as the store contract
// allows. Both keep the full record as JSON in a data property.
package neo4j

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
	"github.com/rlch/lineage"
)

// ErrInvalidConfig is returned when the neo4j section is missing or has no URI.
var ErrInvalidConfig = errors.New("neo4j: missing neo4j uri")

//nolint:gochecknoinits // Store self-registration pattern
func init() {
	lineage.RegisterStore(lineage.StoreNeo4j, func(cfg *lineage.StoreConfig) (lineage.Store, error) {
		if cfg.Neo4j == nil {
			return nil, ErrInvalidConfig
		}

		return New(context.Background(), cfg.Neo4j)
	})
}

// schema is applied on every connect.
var schema = []string{
	"CREATE CONSTRAINT lineage_person_id IF NOT EXISTS FOR (p:Person) REQUIRE p.id IS UNIQUE",
	"CREATE CONSTRAINT lineage_relationship_id IF NOT EXISTS FOR (r:Relationship) REQUIRE r.id IS UNIQUE",
	"CREATE INDEX lineage_person_scope IF NOT EXISTS FOR (p:Person) ON (p.scope)",
	"CREATE INDEX lineage_relationship_person1 IF NOT EXISTS FOR (r:Relationship) ON (r.person1_id)",
	"CREATE INDEX lineage_relationship_person2 IF NOT EXISTS FOR (r:Relationship) ON (r.person2_id)",
}

const relationshipFields = "r.id AS id, r.scope AS scope, r.type AS type, " +
	"r.person1_id AS person1_id, r.person2_id AS person2_id, r.data AS data"

// Store implements lineage.Store for Neo4j.
type Store struct {
	driver     neo4j.DriverWithContext
	sessionCfg neo4j.SessionConfig
}

var _ lineage.Store = (*Store)(nil)

// New connects to the server described by cfg and applies the schema.
func New(ctx context.Context, cfg *lineage.Neo4jConfig) (*Store, error) {
	if cfg.URI == "" {
		return nil, ErrInvalidConfig
	}

	auth := neo4j.NoAuth()
	if cfg.Username != "" {
		auth = neo4j.BasicAuth(cfg.Username, cfg.Password, "")
	}

	driver, err := neo4j.NewDriverWithContext(cfg.URI, auth)
	if err != nil {
		return nil, fmt.Errorf("neo4j: failed to create driver: %w", err)
	}

	err = driver.VerifyConnectivity(ctx)
	if err != nil {
		_ = driver.Close(ctx)

		return nil, fmt.Errorf("neo4j: failed to connect: %w", err)
	}

	s := &Store{
		driver:     driver,
		sessionCfg: neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite, DatabaseName: cfg.Database},
	}

	for _, stmt := range schema {
		if _, err := s.run(ctx, stmt, nil); err != nil {
			_ = driver.Close(ctx)

			return nil, fmt.Errorf("neo4j: failed to apply schema: %w", err)
		}
	}

	return s, nil
}

// run executes one statement and returns its rows flattened. Sessions are
// not safe for concurrent use, and traversals read concurrently, so every
// call gets its own.
func (s *Store) run(ctx context.Context, query string, params map[string]any) ([]map[string]any, error) {
	session := s.driver.NewSession(ctx, s.sessionCfg)
	defer func() { _ = session.Close(ctx) }()

	result, err := session.Run(ctx, query, params)
	if err != nil {
		return nil, fmt.Errorf("neo4j: query execution failed: %w", err)
	}

	records, err := result.Collect(ctx)
	if err != nil {
		return nil, fmt.Errorf("neo4j: failed to collect results: %w", err)
	}

	rows := make([]map[string]any, len(records))
	for i, record := range records {
		rows[i] = flattenRecord(record.Keys, record.Values)
	}

	return rows, nil
}

// GetPerson implements lineage.Store.
func (s *Store) GetPerson(ctx context.Context, id string) (*lineage.Person, error) {
	rows, err := s.run(ctx, "MATCH (p:Person {id: $id}) RETURN p", map[string]any{"id": id})
	if err != nil {
		return nil, err
	}

	if len(rows) == 0 {
		return nil, lineage.PersonNotFound(id)
	}

	return decodePerson(rows[0], "p.data")
}

// ListPersons implements lineage.Store.
func (s *Store) ListPersons(ctx context.Context, scope string) ([]*lineage.Person, error) {
	rows, err := s.run(ctx,
		"MATCH (p:Person) WHERE $scope = '' OR p.scope = $scope RETURN p.data AS data ORDER BY p.id",
		map[string]any{"scope": scope})
	if err != nil {
		return nil, err
	}

	out := make([]*lineage.Person, 0, len(rows))

	for _, row := range rows {
		p, err := decodePerson(row, "data")
		if err != nil {
			return nil, err
		}

		out = append(out, p)
	}

	return out, nil
}

// CreatePerson implements lineage.Store.
func (s *Store) CreatePerson(ctx context.Context, p *lineage.Person) (*lineage.Person, error) {
	p = p.Clone()
	if p.ID == "" {
		p.ID = lineage.NewID()
	}

	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("neo4j: failed to encode person: %w", err)
	}

	_, err = s.run(ctx, "CREATE (:Person {id: $id, scope: $scope, data: $data})", map[string]any{
		"id":    p.ID,
		"scope": p.Scope,
		"data":  string(data),
	})
	if err != nil {
		return nil, err
	}

	return p, nil
}

// DeletePerson implements lineage.Store.
func (s *Store) DeletePerson(ctx context.Context, id string) error {
	return s.delete(ctx, "MATCH (n:Person {id: $id}) DELETE n RETURN count(n) AS deleted", id,
		lineage.PersonNotFound(id))
}

// GetRelationship implements lineage.Store.
func (s *Store) GetRelationship(ctx context.Context, id string) (*lineage.Relationship, error) {
	rows, err := s.run(ctx, "MATCH (r:Relationship {id: $id}) RETURN "+relationshipFields,
		map[string]any{"id": id})
	if err != nil {
		return nil, err
	}

	if len(rows) == 0 {
		return nil, lineage.RelationshipNotFound(id)
	}

	return decodeRelationship(rows[0])
}

// FindRelationships implements lineage.Store.
func (s *Store) FindRelationships(ctx context.Context, filter lineage.RelationshipFilter) ([]*lineage.Relationship, error) {
	const query = `MATCH (r:Relationship)
WHERE ($scope = '' OR r.scope = $scope)
  AND ($type = '' OR r.type = $type)
  AND ($person1 = '' OR r.person1_id = $person1)
  AND ($person2 = '' OR r.person2_id = $person2)
  AND ($involving = '' OR r.person1_id = $involving OR r.person2_id = $involving)
RETURN ` + relationshipFields + `
ORDER BY r.id`

	rows, err := s.run(ctx, query, map[string]any{
		"scope":     filter.Scope,
		"type":      string(filter.Type),
		"person1":   filter.Person1ID,
		"person2":   filter.Person2ID,
		"involving": filter.Involving,
	})
	if err != nil {
		return nil, err
	}

	out := make([]*lineage.Relationship, 0, len(rows))

	for _, row := range rows {
		r, err := decodeRelationship(row)
		if err != nil {
			return nil, err
		}

		out = append(out, r)
	}

	return out, nil
}

// CreateRelationship implements lineage.Store.
func (s *Store) CreateRelationship(ctx context.Context, r *lineage.Relationship) (*lineage.Relationship, error) {
	r = r.Clone()
	if r.ID == "" {
		r.ID = lineage.NewID()
	}

	data, err := json.Marshal(r.RelationshipAttrs)
	if err != nil {
		return nil, fmt.Errorf("neo4j: failed to encode relationship: %w", err)
	}

	_, err = s.run(ctx,
		`CREATE (:Relationship {id: $id, scope: $scope, type: $type,
  person1_id: $person1, person2_id: $person2, data: $data})`,
		map[string]any{
			"id":      r.ID,
			"scope":   r.Scope,
			"type":    string(r.Type),
			"person1": r.Person1ID,
			"person2": r.Person2ID,
			"data":    string(data),
		})
	if err != nil {
		return nil, err
	}

	return r, nil
}

// DeleteRelationship implements lineage.Store.
func (s *Store) DeleteRelationship(ctx context.Context, id string) error {
	return s.delete(ctx, "MATCH (n:Relationship {id: $id}) DELETE n RETURN count(n) AS deleted", id,
		lineage.RelationshipNotFound(id))
}

// UpdateRelationship implements lineage.Store.
func (s *Store) UpdateRelationship(
	ctx context.Context,
	id string,
	attrs lineage.RelationshipAttrs,
) (*lineage.Relationship, error) {
	data, err := json.Marshal(attrs)
	if err != nil {
		return nil, fmt.Errorf("neo4j: failed to encode relationship: %w", err)
	}

	rows, err := s.run(ctx, "MATCH (r:Relationship {id: $id}) SET r.data = $data RETURN "+relationshipFields,
		map[string]any{"id": id, "data": string(data)})
	if err != nil {
		return nil, err
	}

	if len(rows) == 0 {
		return nil, lineage.RelationshipNotFound(id)
	}

	return decodeRelationship(rows[0])
}

// Close releases the driver.
func (s *Store) Close() error {
	if err := s.driver.Close(context.Background()); err != nil {
		return fmt.Errorf("neo4j: failed to close driver: %w", err)
	}

	return nil
}

func (s *Store) delete(ctx context.Context, query, id string, notFound error) error {
	rows, err := s.run(ctx, query, map[string]any{"id": id})
	if err != nil {
		return err
	}

	if len(rows) == 0 {
		return notFound
	}

	if n, _ := rows[0]["deleted"].(int64); n == 0 {
		return notFound
	}

	return nil
}

func decodePerson(row map[string]any, key string) (*lineage.Person, error) {
	data, ok := row[key].(string)
	if !ok {
		return nil, fmt.Errorf("neo4j: person row has no %s", key)
	}

	var p lineage.Person
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return nil, fmt.Errorf("neo4j: failed to decode person: %w", err)
	}

	return &p, nil
}

func decodeRelationship(row map[string]any) (*lineage.Relationship, error) {
	str := func(key string) string {
		s, _ := row[key].(string)

		return s
	}

	r := &lineage.Relationship{
		ID:        str("id"),
		Scope:     str("scope"),
		Type:      lineage.RelationshipType(str("type")),
		Person1ID: str("person1_id"),
		Person2ID: str("person2_id"),
	}

	if err := json.Unmarshal([]byte(str("data")), &r.RelationshipAttrs); err != nil {
		return nil, fmt.Errorf("neo4j: failed to decode relationship %q: %w", r.ID, err)
	}

	return r, nil
}

// flattenRecord converts a record into a map. Node and relationship values
// expand to "alias.property" keys.
func flattenRecord(keys []string, values []any) map[string]any {
	result := make(map[string]any, len(keys))

	for i, key := range keys {
		flattenValue(result, key, values[i])
	}

	return result
}

func flattenValue(result map[string]any, key string, value any) {
	switch v := value.(type) {
	case dbtype.Node:
		for prop, propVal := range v.Props {
			result[key+"."+prop] = propVal
		}

		result[key+".labels"] = v.Labels

	case dbtype.Relationship:
		for prop, propVal := range v.Props {
			result[key+"."+prop] = propVal
		}

		result[key+".type"] = v.Type

	case map[string]any:
		for k, val := range v {
			result[key+"."+k] = val
		}

	default:
		result[key] = v
	}
}
