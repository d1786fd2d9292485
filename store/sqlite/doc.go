// Package sqlite keeps conversation sessions and the transcript log in a
// single SQLite file, for deployments without Redis or PostgreSQL.
//
//	s, err := sqlite.NewSqliteStore(sqlite.SqliteOptions{Path: "./faqgraph.db"})
//	if err != nil {
//		return err
//	}
//	defer s.Close()
//
// SqliteStore satisfies both store.SessionStore and store.TranscriptStore.
package sqlite
