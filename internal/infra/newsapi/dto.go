package newsapi

import "encoding/json"

// searchResponse is the body of GET /v2/everything. Articles stay raw so
// that one mistyped entry does not fail the whole page.
type searchResponse struct {
	Status       string            `json:"status"`
	Code         string            `json:"code,omitempty"`
	Message      string            `json:"message,omitempty"`
	TotalResults int               `json:"totalResults"`
	Articles     []json.RawMessage `json:"articles"`
}

type articleDTO struct {
	Source      sourceDTO `json:"source"`
	Author      string    `json:"author"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	URLToImage  string    `json:"urlToImage"`
	PublishedAt string    `json:"publishedAt"`
	Content     string    `json:"content"`
}

type sourceDTO struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
