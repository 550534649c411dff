// Package fetch orchestrates a news fetch for one category: bounded retries
// against a remote source, persistence of new items, and a fallback to
// recently cached items when the remote source comes up short.
package fetch

import "errors"

// Sentinel errors for fetch use case operations.
var (
	// ErrStore wraps any failure of the item store during a fetch.
	ErrStore = errors.New("item store failure")

	// ErrRemote wraps failures reported by a remote source. Remote failures
	// are retried and never surface from Fetch on their own.
	ErrRemote = errors.New("remote source failure")

	// ErrAborted is returned when the context ends before the fetch completes.
	ErrAborted = errors.New("fetch aborted")
)
