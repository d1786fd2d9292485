package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/smallnest/faqgraph/rag"
)

// QueryRunner executes read-only Cypher and returns rows as maps.
type QueryRunner interface {
	Read(ctx context.Context, cypher string, params map[string]any) ([]map[string]any, error)
	Close(ctx context.Context) error
}

// driverRunner runs queries on a Neo4j driver in managed read transactions.
type driverRunner struct {
	driver   neo4j.DriverWithContext
	database string
}

func (r *driverRunner) Read(ctx context.Context, cypher string, params map[string]any) ([]map[string]any, error) {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeRead,
		DatabaseName: r.database,
	})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		rows := make([]map[string]any, len(records))
		for i, rec := range records {
			rows[i] = rec.AsMap()
		}
		return rows, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]map[string]any), nil
}

func (r *driverRunner) Close(ctx context.Context) error {
	return r.driver.Close(ctx)
}

// Neo4jGraph reads the FAQ graph from Neo4j. The expected schema is
// (:FAQ {id, question, answer, topic, category})-[:MENTIONS]->(:Entity {type, normalized})
// and (:FAQ)-[:HAS_CASE]->(:Case {id, name, condition, keywords, method, answer, order}).
type Neo4jGraph struct {
	runner QueryRunner
}

// NewNeo4jGraph connects to Neo4j and verifies connectivity.
func NewNeo4jGraph(ctx context.Context, cfg GraphConfig) (*Neo4jGraph, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.User, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("failed to connect to neo4j: %w", err)
	}
	return NewNeo4jGraphWithRunner(&driverRunner{driver: driver, database: cfg.Database}), nil
}

// NewNeo4jGraphWithRunner creates a Neo4jGraph over an existing runner.
func NewNeo4jGraphWithRunner(runner QueryRunner) *Neo4jGraph {
	return &Neo4jGraph{runner: runner}
}

const searchByEntitiesCypher = `
UNWIND $terms AS term
MATCH (f:FAQ)-[:MENTIONS]->(e:Entity {type: term.type, normalized: term.value})
WITH f, sum(term.weight) AS score, collect(DISTINCT {type: e.type, value: e.normalized}) AS matched
RETURN f.id AS id, f.question AS question, f.answer AS answer,
       f.topic AS topic, f.category AS category, score, matched
ORDER BY score DESC, id ASC
LIMIT $limit`

const getFAQCypher = `
MATCH (f:FAQ {id: $id})
OPTIONAL MATCH (f)-[:MENTIONS]->(e:Entity)
RETURN f.id AS id, f.question AS question, f.answer AS answer,
       f.topic AS topic, f.category AS category,
       collect({type: e.type, value: e.normalized}) AS entities`

const listFAQsCypher = `
MATCH (f:FAQ)
OPTIONAL MATCH (f)-[:MENTIONS]->(e:Entity)
RETURN f.id AS id, f.question AS question, f.answer AS answer,
       f.topic AS topic, f.category AS category,
       collect({type: e.type, value: e.normalized}) AS entities
ORDER BY id`

const getCasesCypher = `
MATCH (f:FAQ {id: $id})-[:HAS_CASE]->(c:Case)
RETURN c.id AS id, c.name AS name, c.condition AS condition, c.keywords AS keywords,
       c.method AS method, c.answer AS answer, c.order AS order
ORDER BY c.order ASC`

// SearchByEntities implements GraphStore.
func (g *Neo4jGraph) SearchByEntities(ctx context.Context, query GraphQuery) ([]GraphHit, error) {
	terms, maxScore := query.terms()
	if len(terms) == 0 {
		return nil, nil
	}
	params := make([]map[string]any, len(terms))
	for i, t := range terms {
		params[i] = map[string]any{"type": string(t.Type), "value": t.Value, "weight": t.Weight}
	}
	limit := query.Limit
	if limit <= 0 {
		limit = 20
	}

	rows, err := g.runner.Read(ctx, searchByEntitiesCypher, map[string]any{"terms": params, "limit": int64(limit)})
	if err != nil {
		return nil, fmt.Errorf("neo4j search by entities: %w", err)
	}

	hits := make([]GraphHit, 0, len(rows))
	for _, row := range rows {
		hit := GraphHit{
			FAQ:      faqFromRow(row),
			Score:    asFloat(row["score"]),
			MaxScore: maxScore,
		}
		for _, pair := range entityPairs(row["matched"]) {
			hit.Matched = append(hit.Matched, rag.Entity{Type: pair.Type, Value: pair.Value, Normalized: pair.Value})
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// GetFAQ implements GraphStore.
func (g *Neo4jGraph) GetFAQ(ctx context.Context, id string) (*rag.FAQ, error) {
	rows, err := g.runner.Read(ctx, getFAQCypher, map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("neo4j get faq: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrFAQNotFound, id)
	}
	faq := faqFromRow(rows[0])
	cases, err := g.GetCases(ctx, id)
	if err != nil {
		return nil, err
	}
	faq.Cases = cases
	return &faq, nil
}

// GetCases implements GraphStore.
func (g *Neo4jGraph) GetCases(ctx context.Context, faqID string) ([]rag.Case, error) {
	rows, err := g.runner.Read(ctx, getCasesCypher, map[string]any{"id": faqID})
	if err != nil {
		return nil, fmt.Errorf("neo4j get cases: %w", err)
	}
	cases := make([]rag.Case, 0, len(rows))
	for _, row := range rows {
		cases = append(cases, rag.Case{
			ID:        asString(row["id"]),
			FAQID:     faqID,
			Name:      asString(row["name"]),
			Condition: asString(row["condition"]),
			Keywords:  asStrings(row["keywords"]),
			Method:    asString(row["method"]),
			Answer:    asString(row["answer"]),
			Order:     int(asFloat(row["order"])),
		})
	}
	return cases, nil
}

// ListFAQs implements GraphStore. Cases are not loaded.
func (g *Neo4jGraph) ListFAQs(ctx context.Context) ([]rag.FAQ, error) {
	rows, err := g.runner.Read(ctx, listFAQsCypher, nil)
	if err != nil {
		return nil, fmt.Errorf("neo4j list faqs: %w", err)
	}
	faqs := make([]rag.FAQ, 0, len(rows))
	for _, row := range rows {
		faqs = append(faqs, faqFromRow(row))
	}
	return faqs, nil
}

// Close closes the underlying driver.
func (g *Neo4jGraph) Close(ctx context.Context) error {
	return g.runner.Close(ctx)
}

func faqFromRow(row map[string]any) rag.FAQ {
	faq := rag.FAQ{
		ID:       asString(row["id"]),
		Question: asString(row["question"]),
		Answer:   asString(row["answer"]),
		Topic:    asString(row["topic"]),
		Category: asString(row["category"]),
	}
	pairs := entityPairs(row["entities"])
	if len(pairs) > 0 {
		faq.Entities = make(map[rag.EntityType][]string)
		for _, p := range pairs {
			faq.Entities[p.Type] = append(faq.Entities[p.Type], p.Value)
		}
	}
	return faq
}

type entityPair struct {
	Type  rag.EntityType
	Value string
}

// entityPairs decodes a list of {type, value} maps; OPTIONAL MATCH rows with
// null entities are skipped.
func entityPairs(v any) []entityPair {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []entityPair
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		t, ok := rag.ParseEntityType(asString(m["type"]))
		value := asString(m["value"])
		if !ok || value == "" {
			continue
		}
		out = append(out, entityPair{Type: t, Value: value})
	}
	return out
}

func asString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	default:
		return fmt.Sprint(s)
	}
}

func asStrings(v any) []string {
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s := strings.TrimSpace(asString(item)); s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		if list == "" {
			return nil
		}
		parts := strings.Split(list, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if s := strings.TrimSpace(p); s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func asFloat(v any) float64 {
	switch n := v.(type) {
	case int64:
		return float64(n)
	case int:
		return float64(n)
	case float64:
		return n
	case float32:
		return float64(n)
	default:
		return 0
	}
}
