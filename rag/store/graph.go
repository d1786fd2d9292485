package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/smallnest/faqgraph/rag"
)

// ErrFAQNotFound is returned when an FAQ id is unknown.
var ErrFAQNotFound = errors.New("faq not found")

// GraphStore is the FAQ knowledge graph: FAQ nodes linked to the entities
// they mention and to their Case sub-answers.
type GraphStore interface {
	// SearchByEntities returns FAQs sharing entities with the query, best first.
	SearchByEntities(ctx context.Context, query GraphQuery) ([]GraphHit, error)
	GetFAQ(ctx context.Context, id string) (*rag.FAQ, error)
	GetCases(ctx context.Context, faqID string) ([]rag.Case, error)
	ListFAQs(ctx context.Context) ([]rag.FAQ, error)
	Close(ctx context.Context) error
}

// GraphQuery selects FAQs by entity overlap.
type GraphQuery struct {
	Entities rag.Entities
	// Weights per entity type; missing types weigh 1.
	Weights map[rag.EntityType]float64
	Limit   int
}

// GraphHit is an FAQ matched by a GraphQuery.
type GraphHit struct {
	FAQ     rag.FAQ
	Matched rag.Entities
	// Score is the summed weight of the matched query terms.
	Score float64
	// MaxScore is the summed weight of all query terms.
	MaxScore float64
}

// DefaultEntityWeights returns the per-type weights used for graph scoring.
func DefaultEntityWeights() map[rag.EntityType]float64 {
	return map[rag.EntityType]float64{
		rag.EntityTopic:         3,
		rag.EntityAction:        2,
		rag.EntityBank:          1.5,
		rag.EntityError:         2.5,
		rag.EntityErrorCode:     3,
		rag.EntityFeature:       1.5,
		rag.EntityService:       1.5,
		rag.EntityAmount:        0.5,
		rag.EntityFee:           1.5,
		rag.EntityLimit:         1.5,
		rag.EntityTimeFrame:     1,
		rag.EntityDocument:      1.5,
		rag.EntityAccountStatus: 1.5,
		rag.EntityChannel:       1,
		rag.EntityStep:          0.5,
	}
}

// graphTerm is one distinct (type, value) query term with its weight.
type graphTerm struct {
	Type   rag.EntityType
	Value  string
	Weight float64
}

// terms dedupes the query entities and returns them with the maximum
// achievable score.
func (q GraphQuery) terms() ([]graphTerm, float64) {
	var (
		out   []graphTerm
		total float64
		seen  = make(map[string]bool)
	)
	for _, e := range q.Entities {
		key := string(e.Type) + "\x00" + e.Normalized
		if e.Normalized == "" || seen[key] {
			continue
		}
		seen[key] = true
		weight := 1.0
		if w, ok := q.Weights[e.Type]; ok {
			weight = w
		}
		out = append(out, graphTerm{Type: e.Type, Value: e.Normalized, Weight: weight})
		total += weight
	}
	return out, total
}

// GraphConfig selects and configures a GraphStore.
type GraphConfig struct {
	URI      string `yaml:"uri"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// NewGraphStore creates a graph store from the URI scheme: memory:// for an
// empty in-process graph, neo4j://, neo4j+s:// or bolt:// for Neo4j.
func NewGraphStore(ctx context.Context, cfg GraphConfig) (GraphStore, error) {
	switch {
	case cfg.URI == "" || strings.HasPrefix(cfg.URI, "memory://"):
		return NewMemoryGraph(), nil
	case strings.HasPrefix(cfg.URI, "neo4j://"),
		strings.HasPrefix(cfg.URI, "neo4j+s://"),
		strings.HasPrefix(cfg.URI, "neo4j+ssc://"),
		strings.HasPrefix(cfg.URI, "bolt://"),
		strings.HasPrefix(cfg.URI, "bolt+s://"):
		return NewNeo4jGraph(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported graph uri %q: only memory:// and neo4j/bolt URLs are supported", cfg.URI)
	}
}
