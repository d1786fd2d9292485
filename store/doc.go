// Package store persists chatbot sessions, cached answers and transcripts.
//
// The package defines the shared types (ConversationState, Turn,
// CachedAnswer) and the three storage interfaces. Backends live in
// sub-packages:
//   - memory: in-process maps, for tests and single-instance deployments
//   - redis: sessions with a TTL and the answer cache
//   - postgres: the transcript log on pgx
//   - sqlite: the transcript log in a local file
package store
