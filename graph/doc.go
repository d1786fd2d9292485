// Package graph runs small state machines as graphs of named nodes.
//
// A StateGraph holds nodes that transform a typed state, static and
// conditional edges between them, an optional retry policy and node
// listeners. Compile checks the wiring; StateRunnable.Invoke walks the graph
// from the entry point until a node routes to END.
//
//	g := graph.NewStateGraph[Turn]()
//	g.AddNode("retrieve", "find the best FAQ", retrieve)
//	g.AddNode("generate", "write the answer", generate)
//	g.SetEntryPoint("retrieve")
//	g.AddEdge("retrieve", "generate")
//	g.AddEdge("generate", graph.END)
//	runnable, err := g.Compile()
//	out, err := runnable.Invoke(ctx, Turn{Query: q})
package graph
