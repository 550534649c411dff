package metrics

import "time"

// Item origins used as the origin label of ItemsReturnedTotal.
const (
	OriginFresh  = "fresh"
	OriginCached = "cached"
	OriginDemo   = "demo"
)

// RecordAttempt records one remote attempt with its outcome kind.
func RecordAttempt(outcome string) {
	FetchAttemptsTotal.WithLabelValues(outcome).Inc()
}

// RecordFetchCompleted records a fetch that produced a result.
func RecordFetchCompleted(status string, duration time.Duration) {
	FetchesTotal.WithLabelValues(status).Inc()
	FetchDuration.Observe(duration.Seconds())
}

// RecordFetchFailed records a fetch that ended in an error.
func RecordFetchFailed(reason string, duration time.Duration) {
	FetchErrorsTotal.WithLabelValues(reason).Inc()
	FetchDuration.Observe(duration.Seconds())
}

// RecordItemsReturned adds count items of the given origin.
func RecordItemsReturned(origin string, count int) {
	if count <= 0 {
		return
	}
	ItemsReturnedTotal.WithLabelValues(origin).Add(float64(count))
}

// RecordItemsPersisted adds count newly stored items.
func RecordItemsPersisted(count int) {
	if count <= 0 {
		return
	}
	ItemsPersistedTotal.Add(float64(count))
}

// RecordDBQuery records the duration of a store operation.
func RecordDBQuery(operation string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}
