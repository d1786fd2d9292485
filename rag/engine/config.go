package engine

import (
	"errors"

	"github.com/smallnest/faqgraph/rag"
	"github.com/smallnest/faqgraph/rag/store"
)

// ErrNoAnswer is returned, together with a fallback result, when no FAQ
// scores above the confidence threshold.
var ErrNoAnswer = errors.New("no answer above confidence threshold")

// FallbackAnswer is the reply used when no FAQ matches.
const FallbackAnswer = "Xin lỗi, mình chưa tìm thấy thông tin phù hợp với câu hỏi của bạn. " +
	"Bạn có thể mô tả rõ hơn hoặc liên hệ tổng đài chăm sóc khách hàng để được hỗ trợ."

// Config holds the GraphRAG scoring weights and thresholds.
type Config struct {
	// CandidateLimit is the number of FAQs read from the graph.
	CandidateLimit int `yaml:"candidate_limit"`
	// SemanticCandidates is the number of FAQs added on embedding
	// similarity alone.
	SemanticCandidates int     `yaml:"semantic_candidates"`
	SemanticFloor      float64 `yaml:"semantic_floor"`

	GraphWeight    float64 `yaml:"graph_weight"`
	SemanticWeight float64 `yaml:"semantic_weight"`

	ExactMatchBoost      float64 `yaml:"exact_match_boost"`
	NearExactBoost       float64 `yaml:"near_exact_boost"`
	NearExactJaccard     float64 `yaml:"near_exact_jaccard"`
	TopicMatchFactor     float64 `yaml:"topic_match_factor"`
	TopicMismatchFactor  float64 `yaml:"topic_mismatch_factor"`
	IntentMatchBoost     float64 `yaml:"intent_match_boost"`
	ErrorMatchBoost      float64 `yaml:"error_match_boost"`
	ErrorMissingFactor   float64 `yaml:"error_missing_factor"`
	ActionMismatchFactor float64 `yaml:"action_mismatch_factor"`
	BankMatchBoost       float64 `yaml:"bank_match_boost"`

	MinConfidence float64 `yaml:"min_confidence"`
	// TopK is the number of FAQs returned as sources and LLM context.
	TopK int `yaml:"top_k"`

	EntityWeights map[rag.EntityType]float64 `yaml:"entity_weights"`
}

// DefaultConfig returns the hand-tuned scoring constants.
func DefaultConfig() Config {
	return Config{
		CandidateLimit:       20,
		SemanticCandidates:   5,
		SemanticFloor:        0.3,
		GraphWeight:          0.6,
		SemanticWeight:       0.4,
		ExactMatchBoost:      0.5,
		NearExactBoost:       0.25,
		NearExactJaccard:     0.8,
		TopicMatchFactor:     1.3,
		TopicMismatchFactor:  0.7,
		IntentMatchBoost:     0.15,
		ErrorMatchBoost:      0.3,
		ErrorMissingFactor:   0.8,
		ActionMismatchFactor: 0.75,
		BankMatchBoost:       0.1,
		MinConfidence:        0.35,
		TopK:                 3,
		EntityWeights:        store.DefaultEntityWeights(),
	}
}

// withDefaults fills zero fields from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.CandidateLimit <= 0 {
		c.CandidateLimit = d.CandidateLimit
	}
	if c.SemanticCandidates < 0 {
		c.SemanticCandidates = 0
	}
	if c.GraphWeight == 0 && c.SemanticWeight == 0 {
		c.GraphWeight, c.SemanticWeight = d.GraphWeight, d.SemanticWeight
	}
	if c.TopK <= 0 {
		c.TopK = d.TopK
	}
	if c.EntityWeights == nil {
		c.EntityWeights = d.EntityWeights
	}
	return c
}
