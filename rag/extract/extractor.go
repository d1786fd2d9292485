// Package extract finds typed entities in Vietnamese support questions.
//
// Extraction runs regex cascades over folded text and can consult an LLM,
// either as a fallback when the regex pass finds too little, first with the
// regex pass as a safety net, or always with both results merged.
package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/smallnest/faqgraph/log"
	"github.com/smallnest/faqgraph/rag"
	"github.com/smallnest/faqgraph/textutil"
)

// Strategy selects how regex and LLM extraction are combined.
type Strategy string

const (
	StrategyRegex       Strategy = "regex"
	StrategyLLMFallback Strategy = "llm_fallback"
	StrategyLLMFirst    Strategy = "llm_first"
	StrategyHybrid      Strategy = "hybrid"
)

// ParseStrategy validates s.
func ParseStrategy(s string) (Strategy, error) {
	switch st := Strategy(strings.ToLower(strings.TrimSpace(s))); st {
	case StrategyRegex, StrategyLLMFallback, StrategyLLMFirst, StrategyHybrid:
		return st, nil
	case "":
		return StrategyLLMFallback, nil
	default:
		return "", fmt.Errorf("unknown extraction strategy %q", s)
	}
}

// Config tunes extraction.
type Config struct {
	Strategy Strategy `yaml:"strategy"`
	// MinRegexEntities below which llm_fallback consults the LLM.
	MinRegexEntities int     `yaml:"min_regex_entities"`
	MinConfidence    float64 `yaml:"min_confidence"`
	RegexConfidence  float64 `yaml:"regex_confidence"`
	LLMConfidence    float64 `yaml:"llm_confidence"`
}

// DefaultConfig returns the default extraction settings.
func DefaultConfig() Config {
	return Config{
		Strategy:         StrategyLLMFallback,
		MinRegexEntities: 2,
		MinConfidence:    0.3,
		RegexConfidence:  0.9,
		LLMConfidence:    0.75,
	}
}

// Extractor extracts entities from user text.
type Extractor struct {
	config Config
	llm    rag.LLMInterface
	logger log.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithLLM enables the LLM strategies.
func WithLLM(llm rag.LLMInterface) Option {
	return func(e *Extractor) { e.llm = llm }
}

// WithLogger sets the logger.
func WithLogger(l log.Logger) Option {
	return func(e *Extractor) { e.logger = l }
}

// WithConfig replaces the default configuration.
func WithConfig(c Config) Option {
	return func(e *Extractor) { e.config = c }
}

// New creates an Extractor. Without an LLM every strategy behaves as regex.
func New(opts ...Option) *Extractor {
	e := &Extractor{config: DefaultConfig()}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = log.OrDefault(e.logger)
	if e.config.Strategy == "" {
		e.config.Strategy = StrategyLLMFallback
	}
	return e
}

// Config returns the active configuration.
func (e *Extractor) Config() Config {
	return e.config
}

// Extract returns the validated entities found in text. LLM failures are
// logged and the regex result is used instead; only context errors are
// returned.
func (e *Extractor) Extract(ctx context.Context, text string) (rag.Entities, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	strategy := e.config.Strategy
	if e.llm == nil {
		strategy = StrategyRegex
	}

	var entities rag.Entities
	switch strategy {
	case StrategyRegex:
		entities = e.ExtractRegex(text)

	case StrategyLLMFallback:
		entities = e.ExtractRegex(text)
		if e.needsLLM(entities) {
			llmEntities, err := e.ExtractLLM(ctx, text)
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				e.logger.Warn("llm entity extraction failed, using regex result: %v", err)
			} else {
				entities = Merge(entities, llmEntities)
			}
		}

	case StrategyLLMFirst:
		llmEntities, err := e.ExtractLLM(ctx, text)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			e.logger.Warn("llm entity extraction failed, using regex result: %v", err)
		}
		if err != nil || len(llmEntities) == 0 {
			entities = e.ExtractRegex(text)
		} else {
			entities = llmEntities
		}

	case StrategyHybrid:
		entities = e.ExtractRegex(text)
		llmEntities, err := e.ExtractLLM(ctx, text)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			e.logger.Warn("llm entity extraction failed, using regex result: %v", err)
		} else {
			entities = Merge(entities, llmEntities)
		}

	default:
		return nil, fmt.Errorf("unknown extraction strategy %q", strategy)
	}

	out := e.Validate(text, entities)
	e.logger.Debug("extracted %d entities (%s) from %q", len(out), strategy, text)
	return out, nil
}

func (e *Extractor) needsLLM(entities rag.Entities) bool {
	if !entities.Has(rag.EntityTopic) && !entities.Has(rag.EntityAction) {
		return true
	}
	return len(entities) < e.config.MinRegexEntities
}

// ExtractRegex runs the regex cascades only.
func (e *Extractor) ExtractRegex(text string) rag.Entities {
	folded := textutil.Fold(text)
	var out rag.Entities
	for _, table := range tables {
		out = append(out, matchTable(folded, table, e.config.RegexConfidence)...)
	}
	return out
}

// matchTable applies one type's cascade. A span claimed by an earlier
// pattern is not matched again, and each canonical value is kept once.
func matchTable(folded string, table typeTable, confidence float64) rag.Entities {
	var (
		out     rag.Entities
		claimed [][2]int
		seen    = make(map[string]bool)
	)
	for _, p := range table.patterns {
		if p.norm == nil && p.value == "" {
			for _, loc := range p.re.FindAllStringIndex(folded, -1) {
				claimed = append(claimed, [2]int{loc[0], loc[1]})
			}
			continue
		}
		if p.norm == nil && seen[p.value] {
			continue
		}
		for _, loc := range p.re.FindAllStringSubmatchIndex(folded, -1) {
			if overlaps(claimed, loc[0], loc[1]) {
				continue
			}
			value := p.value
			if p.norm != nil {
				value = p.norm(submatches(folded, loc))
			}
			if value == "" {
				continue
			}
			claimed = append(claimed, [2]int{loc[0], loc[1]})
			if seen[value] {
				continue
			}
			seen[value] = true
			out = append(out, rag.Entity{
				Type:       table.typ,
				Value:      strings.TrimSpace(folded[loc[0]:loc[1]]),
				Normalized: value,
				Source:     rag.SourceRegex,
				Confidence: confidence,
			})
			if p.norm == nil {
				break
			}
		}
	}
	return out
}

func submatches(s string, loc []int) []string {
	groups := make([]string, len(loc)/2)
	for i := range groups {
		if loc[2*i] >= 0 {
			groups[i] = s[loc[2*i]:loc[2*i+1]]
		}
	}
	return groups
}

func overlaps(spans [][2]int, start, end int) bool {
	for _, s := range spans {
		if start < s[1] && s[0] < end {
			return true
		}
	}
	return false
}

// canonical maps an LLM-supplied value onto the regex vocabulary of its type
// when possible.
func canonical(t rag.EntityType, value string) string {
	folded := textutil.Fold(value)
	if t == rag.EntityBank {
		return CanonicalBank(folded)
	}
	for _, table := range tables {
		if table.typ != t {
			continue
		}
		if found := matchTable(folded, table, 0); len(found) > 0 {
			return found[0].Normalized
		}
	}
	return folded
}
