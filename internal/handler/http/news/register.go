package news

import (
	"net/http"
	"time"
)

// Register mounts the news routes on mux. wrap, when non-nil, is applied to
// the fetch endpoint only.
func Register(mux *http.ServeMux, svc Fetcher, timeout time.Duration, wrap func(http.Handler) http.Handler) {
	var h http.Handler = FetchHandler{
		Svc:       svc,
		Validator: NewRequestValidator(),
		Timeout:   timeout,
	}
	if wrap != nil {
		h = wrap(h)
	}
	mux.Handle("POST /news/fetch", h)
}
