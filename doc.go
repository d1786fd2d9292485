// Package faqgraph is a customer-support chatbot for a Vietnamese mobile
// money wallet. It answers questions from an FAQ corpus with one of two
// retrieval engines and keeps enough conversation state to walk a user
// through multi-step procedures.
//
// # Layout
//
//   - rag: FAQ types, the LLM and embedding adapters
//   - rag/extract: rule-based and LLM entity extraction
//   - rag/intent: intent classification
//   - rag/store: the FAQ knowledge graph (in memory or Neo4j) and the vector store
//   - rag/retriever: BM25, vector and hybrid retrieval with reciprocal rank fusion
//   - rag/engine: GraphRAG and traditional RAG engines
//   - rag/loader: JSON, YAML and help-centre HTML loaders
//   - conversation: continuation signals, step tracking and chat memory
//   - chatbot: the per-session façade tying retrieval, generation and state together
//   - store: session, answer cache and transcript stores (memory, Redis, Postgres, SQLite)
//   - graph: the small state-graph runner the chatbot pipeline is built on
//   - config, log, app, server: configuration, logging, wiring and HTTP
//
// # Quick Start
//
//	g := store.NewMemoryGraph()
//	for _, f := range faqs {
//		_ = g.AddFAQ(ctx, f)
//	}
//	e, _ := engine.NewGraphEngine(g)
//	bot, _ := chatbot.New(e)
//
//	resp, _ := bot.Chat(ctx, "", "Làm thế nào để nạp tiền vào ví?")
//	fmt.Println(resp.Answer) // Bước 1: ...
//	resp, _ = bot.Chat(ctx, resp.SessionID, "tiếp")
//	fmt.Println(resp.Answer) // **Bước 2/3:** ...
//
// The cmd/supportbot binary serves the chatbot over HTTP and
// cmd/supportbot-repl runs it in a terminal. Both read config.yaml, a .env
// file and the environment; see package config.
package faqgraph
