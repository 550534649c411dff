package news

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"news-fetcher/internal/handler/http/respond"
	"news-fetcher/internal/observability/logging"
	"news-fetcher/internal/usecase/fetch"
)

// Fetcher is the part of fetch.Service the handler needs.
type Fetcher interface {
	Fetch(ctx context.Context, category string, maxAttempts int) (*fetch.Result, error)
}

// FetchHandler answers POST /news/fetch.
type FetchHandler struct {
	Svc       Fetcher
	Validator *RequestValidator
	// Timeout bounds one fetch including backoff; 0 means no bound.
	Timeout time.Duration
}

func (h FetchHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := logging.FromContext(r.Context())

	var req FetchRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		respond.Unprocessable(w, "invalid request body", map[string]string{"body": decodeMessage(err)})
		return
	}
	if fields := h.Validator.Validate(req); fields != nil {
		respond.Unprocessable(w, "validation failed", fields)
		return
	}

	// The fetch is shared with concurrent callers for the same category, so
	// one client disconnecting must not abort it for the others.
	ctx := context.WithoutCancel(r.Context())
	if h.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.Timeout)
		defer cancel()
	}

	res, err := h.Svc.Fetch(ctx, req.Category, 0)
	if err != nil {
		logger.Error("news fetch failed",
			slog.String("category", req.Category),
			slog.Bool("store_error", fetch.IsStoreError(err)),
			slog.String("error", respond.SanitizeError(err)))
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}

	logger.Info("news fetched",
		slog.String("category", req.Category),
		slog.String("status", string(res.Status())),
		slog.Int("attempts", res.Attempts),
		slog.Int("items", len(res.Items)),
		slog.Int("fresh", res.FreshCount),
		slog.Bool("demo", res.Demo))
	respond.JSON(w, http.StatusOK, toResponse(req.Category, res))
}

func decodeMessage(err error) string {
	var maxErr *http.MaxBytesError
	switch {
	case errors.Is(err, io.EOF):
		return "request body is required"
	case errors.As(err, &maxErr):
		return "request body is too long"
	default:
		return "request body must be a JSON object with a string category"
	}
}
