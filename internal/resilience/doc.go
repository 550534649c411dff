// Package resilience groups the fault tolerance helpers used around the
// remote news source and the item store.
//
//   - circuitbreaker wraps gobreaker with per-dependency presets.
//   - retry computes backoff schedules and classifies retryable errors.
//
// Example:
//
//	cb := circuitbreaker.New(circuitbreaker.NewsAPIConfig())
//	out, err := cb.Execute(func() (interface{}, error) {
//	    return client.Do(req)
//	})
//
//	err = retry.WithBackoff(ctx, retry.DBConfig(), func() error {
//	    return db.PingContext(ctx)
//	})
package resilience
