// Package news serves POST /news/fetch.
package news

import (
	"time"

	"news-fetcher/internal/domain/entity"
	"news-fetcher/internal/usecase/fetch"
)

// FetchRequest is the body of POST /news/fetch.
type FetchRequest struct {
	Category string `json:"category" validate:"required,category"`
}

// ItemDTO is one news item in a fetch response.
type ItemDTO struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	SourceName  string    `json:"source_name"`
	PublishedAt time.Time `json:"published_at"`
	FetchedAt   time.Time `json:"fetched_at"`
}

// FetchResponse is the body of a successful fetch.
type FetchResponse struct {
	Status   entity.Status `json:"status"`
	Attempts int           `json:"attempts"`
	Category string        `json:"category"`
	Items    []ItemDTO     `json:"items"`
}

func toResponse(category string, res *fetch.Result) FetchResponse {
	items := make([]ItemDTO, 0, len(res.Items))
	for _, it := range res.Items {
		items = append(items, ItemDTO{
			ID:          it.ID,
			Title:       it.Title,
			Description: it.Description,
			URL:         it.URL,
			SourceName:  it.SourceName,
			PublishedAt: it.PublishedAt.UTC(),
			FetchedAt:   it.FetchedAt.UTC(),
		})
	}
	return FetchResponse{
		Status:   res.Status(),
		Attempts: res.Attempts,
		Category: category,
		Items:    items,
	}
}
