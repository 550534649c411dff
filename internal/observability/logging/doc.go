// Package logging provides structured logging utilities with context propagation.
//
// Loggers are JSON slog loggers writing to stdout. Request handlers derive a
// request-scoped logger carrying request_id and trace_id:
//
//	logger := logging.ForRequest(r.Context(), base)
//	logger.Info("fetch completed", slog.String("category", category))
package logging
