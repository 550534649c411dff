package entity

// Status summarizes where the items of a fetch came from.
type Status string

const (
	// StatusFresh means a full page was returned and at least one item came from the remote source.
	StatusFresh Status = "FRESH"
	// StatusPartial means fewer items than a full page were available.
	StatusPartial Status = "PARTIAL"
	// StatusCached means a full page was returned entirely from the local cache.
	StatusCached Status = "CACHED"
)

// PageSize is the number of items a fetch aims to return.
const PageSize = 10

// Classify derives the status from the number of items returned and how many of them were fresh.
func Classify(total, fresh int) Status {
	switch {
	case total < PageSize:
		return StatusPartial
	case fresh == 0:
		return StatusCached
	default:
		return StatusFresh
	}
}
