package fetch

import "news-fetcher/internal/domain/entity"

// OutcomeKind classifies a single step of a fetch.
type OutcomeKind string

const (
	// OutcomeOK is a remote attempt whose every article was accepted or deduplicated.
	OutcomeOK OutcomeKind = "ok"
	// OutcomeParseSkip is a successful remote attempt that dropped malformed articles.
	OutcomeParseSkip OutcomeKind = "parse_skip"
	// OutcomeRemoteError is a failed remote attempt.
	OutcomeRemoteError OutcomeKind = "remote_error"
	// OutcomeStoreError is a failed store session.
	OutcomeStoreError OutcomeKind = "store_error"
)

// Outcome records what happened on one attempt.
// Attempt is zero for the store step.
type Outcome struct {
	Attempt  int
	Kind     OutcomeKind
	Err      error
	Accepted int
	Skipped  int
}

// Result is the answer to one fetch.
type Result struct {
	// Items holds at most entity.PageSize items, fresh items first.
	Items []*entity.NewsItem
	// Attempts counts remote attempts, or 1 for demonstration data.
	Attempts int
	// FreshCount is how many Items came from the remote source (or the demo dataset).
	FreshCount int
	// CachedCount is how many Items came from the store.
	CachedCount int
	// Persisted counts the items written to the store during this fetch.
	Persisted int
	// Demo is set when the items came from the built-in datasets.
	Demo     bool
	Outcomes []Outcome
}

// Status classifies the result for callers.
func (r *Result) Status() entity.Status {
	return entity.Classify(len(r.Items), r.FreshCount)
}

func (r *Result) clone() *Result {
	c := *r
	c.Items = append([]*entity.NewsItem(nil), r.Items...)
	c.Outcomes = append([]Outcome(nil), r.Outcomes...)
	return &c
}
