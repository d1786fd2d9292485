package rag

import (
	"context"
	"sort"
	"strings"
	"time"
)

// EntityType names one of the entity classes the extractor recognises.
type EntityType string

const (
	EntityTopic         EntityType = "Topic"
	EntityAction        EntityType = "Action"
	EntityBank          EntityType = "Bank"
	EntityError         EntityType = "Error"
	EntityErrorCode     EntityType = "ErrorCode"
	EntityFeature       EntityType = "Feature"
	EntityService       EntityType = "Service"
	EntityAmount        EntityType = "Amount"
	EntityFee           EntityType = "Fee"
	EntityLimit         EntityType = "Limit"
	EntityTimeFrame     EntityType = "TimeFrame"
	EntityDocument      EntityType = "Document"
	EntityAccountStatus EntityType = "AccountStatus"
	EntityChannel       EntityType = "Channel"
	EntityStep          EntityType = "Step"
)

// EntityTypes lists every entity type in canonical order.
var EntityTypes = []EntityType{
	EntityTopic, EntityAction, EntityBank, EntityError, EntityErrorCode,
	EntityFeature, EntityService, EntityAmount, EntityFee, EntityLimit,
	EntityTimeFrame, EntityDocument, EntityAccountStatus, EntityChannel, EntityStep,
}

// Order returns the position of t in EntityTypes, or len(EntityTypes) for
// unknown types.
func (t EntityType) Order() int {
	for i, et := range EntityTypes {
		if et == t {
			return i
		}
	}
	return len(EntityTypes)
}

// Valid reports whether t is one of the known entity types.
func (t EntityType) Valid() bool {
	return t.Order() < len(EntityTypes)
}

// ParseEntityType matches s case-insensitively against the known types.
func ParseEntityType(s string) (EntityType, bool) {
	s = strings.TrimSpace(s)
	for _, et := range EntityTypes {
		if strings.EqualFold(string(et), s) {
			return et, true
		}
	}
	return "", false
}

// Entity sources
const (
	SourceRegex = "regex"
	SourceLLM   = "llm"
	SourceBoth  = "both"
)

// Entity is a typed span extracted from user text.
type Entity struct {
	Type       EntityType `json:"type"`
	Value      string     `json:"value"`
	Normalized string     `json:"normalized"`
	Source     string     `json:"source,omitempty"`
	Confidence float64    `json:"confidence"`
}

// Entities is an extraction result.
type Entities []Entity

// Values returns the normalized values of type t, in order.
func (es Entities) Values(t EntityType) []string {
	var out []string
	for _, e := range es {
		if e.Type == t {
			out = append(out, e.Normalized)
		}
	}
	return out
}

// Has reports whether at least one entity of type t is present.
func (es Entities) Has(t EntityType) bool {
	for _, e := range es {
		if e.Type == t {
			return true
		}
	}
	return false
}

// First returns the first normalized value of type t.
func (es Entities) First(t EntityType) (string, bool) {
	for _, e := range es {
		if e.Type == t {
			return e.Normalized, true
		}
	}
	return "", false
}

// Map groups normalized values by type.
func (es Entities) Map() map[EntityType][]string {
	m := make(map[EntityType][]string)
	for _, e := range es {
		m[e.Type] = append(m[e.Type], e.Normalized)
	}
	return m
}

// Sort orders entities by type order, then normalized value.
func (es Entities) Sort() {
	sort.SliceStable(es, func(i, j int) bool {
		oi, oj := es[i].Type.Order(), es[j].Type.Order()
		if oi != oj {
			return oi < oj
		}
		return es[i].Normalized < es[j].Normalized
	})
}

// Intent is the coarse purpose of a user message.
type Intent string

const (
	IntentHowTo        Intent = "how_to"
	IntentTroubleshoot Intent = "troubleshoot"
	IntentInquiry      Intent = "inquiry"
	IntentGeneral      Intent = "general"
)

// IntentResult is the output of intent classification.
type IntentResult struct {
	Intent     Intent             `json:"intent"`
	Confidence float64            `json:"confidence"`
	Scores     map[Intent]float64 `json:"scores,omitempty"`
	Greeting   bool               `json:"greeting,omitempty"`
}

// Case is a sub-answer attached to an FAQ for conditional or
// multi-method answers.
type Case struct {
	ID        string   `json:"id" yaml:"id"`
	FAQID     string   `json:"faq_id,omitempty" yaml:"faq_id,omitempty"`
	Name      string   `json:"name" yaml:"name"`
	Condition string   `json:"condition,omitempty" yaml:"condition,omitempty"`
	Keywords  []string `json:"keywords,omitempty" yaml:"keywords,omitempty"`
	Method    string   `json:"method,omitempty" yaml:"method,omitempty"`
	Answer    string   `json:"answer" yaml:"answer"`
	Order     int      `json:"order" yaml:"order"`
}

// FAQ is a question/answer pair plus the entities it mentions.
type FAQ struct {
	ID       string                  `json:"id" yaml:"id"`
	Question string                  `json:"question" yaml:"question"`
	Answer   string                  `json:"answer" yaml:"answer"`
	Topic    string                  `json:"topic,omitempty" yaml:"topic,omitempty"`
	Category string                  `json:"category,omitempty" yaml:"category,omitempty"`
	Entities map[EntityType][]string `json:"entities,omitempty" yaml:"entities,omitempty"`
	Cases    []Case                  `json:"cases,omitempty" yaml:"cases,omitempty"`
}

// Document builds the retrieval document for the FAQ.
func (f FAQ) Document() Document {
	meta := map[string]any{
		"faq_id":   f.ID,
		"question": f.Question,
	}
	if f.Topic != "" {
		meta["topic"] = f.Topic
	}
	if f.Category != "" {
		meta["category"] = f.Category
	}
	return Document{
		ID:       f.ID,
		Content:  "Câu hỏi: " + f.Question + "\nTrả lời: " + f.Answer,
		Metadata: meta,
	}
}

// HasEntity reports whether the FAQ mentions value under type t.
func (f FAQ) HasEntity(t EntityType, value string) bool {
	for _, v := range f.Entities[t] {
		if v == value {
			return true
		}
	}
	return false
}

// Document is a retrievable piece of text.
type Document struct {
	ID        string         `json:"id"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Embedding []float32      `json:"-"`
	CreatedAt time.Time      `json:"created_at,omitzero"`
	UpdatedAt time.Time      `json:"updated_at,omitzero"`
}

// DocumentSearchResult is a document with its retrieval score.
type DocumentSearchResult struct {
	Document Document       `json:"document"`
	Score    float64        `json:"score"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// RetrievalConfig controls a single retrieval call.
type RetrievalConfig struct {
	K              int            `json:"k"`
	ScoreThreshold float64        `json:"score_threshold"`
	SearchType     string         `json:"search_type"`
	Filter         map[string]any `json:"filter,omitempty"`
	IncludeScores  bool           `json:"include_scores"`
}

// QueryResult is the answer of a RAG engine.
type QueryResult struct {
	Query        string         `json:"query"`
	Answer       string         `json:"answer"`
	Sources      []Document     `json:"sources"`
	Context      string         `json:"context"`
	Confidence   float64        `json:"confidence"`
	FAQ          *FAQ           `json:"faq,omitempty"`
	Intent       Intent         `json:"intent,omitempty"`
	Entities     Entities       `json:"entities,omitempty"`
	ResponseTime time.Duration  `json:"response_time"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// Embedder turns text into dense vectors.
type Embedder interface {
	EmbedDocument(ctx context.Context, text string) ([]float32, error)
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	GetDimension() int
}

// LLMInterface is the text-generation surface used by extraction,
// summarisation and answer generation.
type LLMInterface interface {
	Generate(ctx context.Context, prompt string) (string, error)
	GenerateWithSystem(ctx context.Context, system, prompt string) (string, error)
}

// Retriever returns scored documents for a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string) ([]Document, error)
	RetrieveWithConfig(ctx context.Context, query string, config *RetrievalConfig) ([]DocumentSearchResult, error)
}

// Reranker reorders retrieval results for a query.
type Reranker interface {
	Rerank(ctx context.Context, query string, results []DocumentSearchResult) ([]DocumentSearchResult, error)
}

// Engine answers a user query from the FAQ corpus.
type Engine interface {
	Query(ctx context.Context, query string) (*QueryResult, error)
}
