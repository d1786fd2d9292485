// Package rag holds the types shared by the retrieval packages: FAQs and
// their cases, entities, intents, documents and query results, plus the
// LLM and embedding adapters.
//
// An FAQ becomes a Document for BM25 and vector search and a set of
// entity links in the knowledge graph. Both engines in rag/engine return a
// QueryResult whose Answer is the formatted FAQ answer (or the fallback
// text) and whose Context lists the top FAQs for generation.
//
// LLMInterface is satisfied by LangChainLLM, which wraps any langchaingo
// model:
//
//	llm, err := rag.NewLLM(ctx, rag.ProviderOpenAI, "gpt-4o-mini", key, "")
//	answer, err := llm.GenerateWithSystem(ctx, system, prompt)
//
// OpenAIEmbedder implements Embedder with the OpenAI embeddings API.
package rag
