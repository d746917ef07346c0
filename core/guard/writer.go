package guard

import (
	"net/http"
	"time"

	"github.com/dmitrymomot/sessionguard/core/recorder"
)

// ResponseWriter captures the status and body size of a response.
type ResponseWriter struct {
	http.ResponseWriter
	status  int
	size    int64
	written bool
}

// NewResponseWriter wraps w.
func NewResponseWriter(w http.ResponseWriter) *ResponseWriter {
	return &ResponseWriter{ResponseWriter: w}
}

func (w *ResponseWriter) WriteHeader(status int) {
	if !w.written {
		w.status = status
		w.written = true
		w.ResponseWriter.WriteHeader(status)
	}
}

func (w *ResponseWriter) Write(b []byte) (int, error) {
	if !w.written {
		w.WriteHeader(http.StatusOK)
	}
	n, err := w.ResponseWriter.Write(b)
	w.size += int64(n)
	return n, err
}

// Status returns the written status, http.StatusOK when nothing was written.
func (w *ResponseWriter) Status() int {
	if !w.written {
		return http.StatusOK
	}
	return w.status
}

// Size returns the number of body bytes written.
func (w *ResponseWriter) Size() int64 {
	return w.size
}

// Flush implements http.Flusher if the underlying ResponseWriter supports it.
func (w *ResponseWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (w *ResponseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// Meta returns the finalized response snapshot.
func (w *ResponseWriter) Meta(completedAt time.Time) recorder.ResponseMeta {
	return recorder.ResponseMeta{
		StatusCode:  w.Status(),
		Size:        w.size,
		ContentType: w.Header().Get("Content-Type"),
		CompletedAt: completedAt,
	}
}
