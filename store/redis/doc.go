// Package redis stores chatbot sessions and cached answers in Redis.
//
// Sessions are JSON documents under "<prefix>session:<id>" and expire after
// the configured TTL of inactivity. Cached answers live under
// "<prefix>answer:<key>".
//
//	sessions := redis.NewRedisSessionStore(redis.RedisOptions{
//		Addr: "localhost:6379",
//		TTL:  30 * time.Minute,
//	})
//	cache := redis.NewRedisAnswerCache(redis.RedisOptions{Addr: "localhost:6379"})
package redis
