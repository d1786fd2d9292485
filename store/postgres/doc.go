// Package postgres stores the chatbot transcript log in PostgreSQL.
//
// Each question/answer exchange is one row keyed by its turn id, indexed by
// session. Feedback is written back onto the row.
//
//	ts, err := postgres.NewPostgresTranscriptStore(ctx, postgres.PostgresOptions{
//		ConnString: os.Getenv("POSTGRES_DSN"),
//	})
//	if err != nil {
//		return err
//	}
//	defer ts.Close()
//	if err := ts.InitSchema(ctx); err != nil {
//		return err
//	}
package postgres
