// Package responsewriter records what a handler sent so middleware can log,
// measure and trace it after the fact.
package responsewriter

import (
	"net/http"
)

// ResponseWriter captures the status code and body size of a response.
type ResponseWriter struct {
	http.ResponseWriter
	status  int
	written int
	sent    bool
}

// Wrap returns w itself when it is already a *ResponseWriter, so stacked
// middleware share one recorder.
func Wrap(w http.ResponseWriter) *ResponseWriter {
	if rw, ok := w.(*ResponseWriter); ok {
		return rw
	}
	return &ResponseWriter{ResponseWriter: w, status: http.StatusOK}
}

// WriteHeader records the first status code only; later calls are ignored
// the same way net/http ignores superfluous WriteHeader calls.
func (w *ResponseWriter) WriteHeader(code int) {
	if w.sent {
		return
	}
	w.status = code
	w.sent = true
	w.ResponseWriter.WriteHeader(code)
}

func (w *ResponseWriter) Write(b []byte) (int, error) {
	if !w.sent {
		w.WriteHeader(http.StatusOK)
	}
	n, err := w.ResponseWriter.Write(b)
	w.written += n
	return n, err
}

// Flush forwards to the underlying writer when it supports flushing.
func (w *ResponseWriter) Flush() {
	if !w.sent {
		w.WriteHeader(http.StatusOK)
	}
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// StatusCode returns the status sent, or 200 if the handler never set one.
func (w *ResponseWriter) StatusCode() int { return w.status }

// BytesWritten returns the number of body bytes sent.
func (w *ResponseWriter) BytesWritten() int { return w.written }

// HeaderSent reports whether the status line has gone out.
func (w *ResponseWriter) HeaderSent() bool { return w.sent }

// Unwrap exposes the underlying writer to http.ResponseController.
func (w *ResponseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
