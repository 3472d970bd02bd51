package errors

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

const (
	// bodies above this size are streamed through untouched
	maxCapturedBody = 64 * 1024
	maxLoggedBody   = 500

	exportIDHeader = "X-Export-ID"
)

// ErrorMiddleware turns panics into problem responses and writes one access
// log line per API request. Failed export requests carry a summary of the
// body with row data replaced by counts.
type ErrorMiddleware struct {
	handler *ErrorHandler
	logger  *slog.Logger
}

func NewErrorMiddleware(handler *ErrorHandler, logger *slog.Logger) *ErrorMiddleware {
	return &ErrorMiddleware{
		handler: handler,
		logger:  logger.With(slog.String("component", "error_middleware")),
	}
}

func (m *ErrorMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		body := captureBody(r)
		start := time.Now()

		defer func() {
			if rec := recover(); rec != nil {
				m.handler.HandlePanic(ww, r, rec)
			}
		}()

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		attrs := []slog.Attr{
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", status),
			slog.Duration("duration", time.Since(start)),
			slog.Int("bytes", ww.BytesWritten()),
			slog.String("remote_addr", r.RemoteAddr),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		}
		if id := ww.Header().Get(exportIDHeader); id != "" {
			attrs = append(attrs, slog.String("export_id", id))
		}
		if r.URL.RawQuery != "" {
			attrs = append(attrs, slog.String("query", r.URL.RawQuery))
		}
		if status >= http.StatusBadRequest && len(body) > 0 {
			attrs = append(attrs, slog.String("request_body", truncate(summarizeRequestBody(body), maxLoggedBody)))
		}

		m.logger.LogAttrs(r.Context(), statusLevel(status), "http request", attrs...)
	})
}

// captureBody reads a small request body and puts it back for the handler
func captureBody(r *http.Request) []byte {
	if r.Body == nil || r.ContentLength <= 0 || r.ContentLength >= maxCapturedBody {
		return nil
	}
	body, _ := io.ReadAll(r.Body)
	r.Body = io.NopCloser(bytes.NewReader(body))
	return body
}

func statusLevel(status int) slog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case status >= http.StatusBadRequest:
		return slog.LevelWarn
	}
	return slog.LevelInfo
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// summarizeRequestBody replaces row arrays, at the top level or under
// "grid", with their lengths.
func summarizeRequestBody(body []byte) string {
	var data map[string]interface{}
	if err := json.Unmarshal(body, &data); err != nil {
		return string(body)
	}

	countRows(data)
	if grid, ok := data["grid"].(map[string]interface{}); ok {
		countRows(grid)
	}

	out, _ := json.Marshal(data)
	return string(out)
}

func countRows(m map[string]interface{}) {
	for _, key := range []string{"processed_rows", "source_rows"} {
		if rows, ok := m[key].([]interface{}); ok {
			m[key] = map[string]int{"count": len(rows)}
		}
	}
}
