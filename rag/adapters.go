package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	openaillm "github.com/tmc/langchaingo/llms/openai"
)

// LLM providers understood by NewLLM.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// LangChainLLM adapts a langchaingo llms.Model to LLMInterface.
type LangChainLLM struct {
	model   llms.Model
	options []llms.CallOption
}

// NewLangChainLLM wraps model. opts are applied to every call.
func NewLangChainLLM(model llms.Model, opts ...llms.CallOption) *LangChainLLM {
	return &LangChainLLM{model: model, options: opts}
}

// Generate sends a single human message.
func (l *LangChainLLM) Generate(ctx context.Context, prompt string) (string, error) {
	return l.GenerateWithSystem(ctx, "", prompt)
}

// GenerateWithSystem sends an optional system message followed by prompt.
func (l *LangChainLLM) GenerateWithSystem(ctx context.Context, system, prompt string) (string, error) {
	messages := make([]llms.MessageContent, 0, 2)
	if system != "" {
		messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, system))
	}
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, prompt))

	resp, err := l.model.GenerateContent(ctx, messages, l.options...)
	if err != nil {
		return "", fmt.Errorf("llm generate: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("llm generate: empty response")
	}
	return strings.TrimSpace(resp.Choices[0].Content), nil
}

// Model returns the wrapped langchaingo model.
func (l *LangChainLLM) Model() llms.Model {
	return l.model
}

// NewLLM builds a chat model for provider ("openai" or "gemini").
func NewLLM(ctx context.Context, provider, model, apiKey, baseURL string, opts ...llms.CallOption) (*LangChainLLM, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("llm %s: missing api key", provider)
	}
	switch strings.ToLower(provider) {
	case ProviderOpenAI, "":
		o := []openaillm.Option{openaillm.WithToken(apiKey)}
		if model != "" {
			o = append(o, openaillm.WithModel(model))
		}
		if baseURL != "" {
			o = append(o, openaillm.WithBaseURL(baseURL))
		}
		m, err := openaillm.New(o...)
		if err != nil {
			return nil, fmt.Errorf("create openai llm: %w", err)
		}
		return NewLangChainLLM(m, opts...), nil
	case ProviderGemini, "google", "googleai":
		o := []googleai.Option{googleai.WithAPIKey(apiKey)}
		if model != "" {
			o = append(o, googleai.WithDefaultModel(model))
		}
		m, err := googleai.New(ctx, o...)
		if err != nil {
			return nil, fmt.Errorf("create gemini llm: %w", err)
		}
		return NewLangChainLLM(m, opts...), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", provider)
	}
}

// OpenAIEmbedder embeds text with the OpenAI embeddings endpoint.
type OpenAIEmbedder struct {
	client    *openai.Client
	model     openai.EmbeddingModel
	dimension int
}

// NewOpenAIEmbedder creates an embedder. An empty model selects
// text-embedding-3-small.
func NewOpenAIEmbedder(apiKey, model, baseURL string) *OpenAIEmbedder {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = string(openai.SmallEmbedding3)
	}
	return &OpenAIEmbedder{
		client:    openai.NewClientWithConfig(cfg),
		model:     openai.EmbeddingModel(model),
		dimension: embeddingDimension(model),
	}
}

// EmbedDocument embeds a single text.
func (e *OpenAIEmbedder) EmbedDocument(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedDocuments embeds texts in one request.
func (e *OpenAIEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: e.model,
	})
	if err != nil {
		return nil, fmt.Errorf("create embeddings: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("create embeddings: got %d vectors for %d inputs", len(resp.Data), len(texts))
	}
	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, fmt.Errorf("create embeddings: index %d out of range", d.Index)
		}
		out[d.Index] = d.Embedding
	}
	return out, nil
}

// GetDimension returns the vector size of the configured model.
func (e *OpenAIEmbedder) GetDimension() int {
	return e.dimension
}

func embeddingDimension(model string) int {
	switch model {
	case string(openai.LargeEmbedding3):
		return 3072
	default:
		return 1536
	}
}
