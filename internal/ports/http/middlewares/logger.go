package middlewares

import (
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// Logger writes one access log line per request. Query values carry
// emails and codes, so only the query keys are logged.
func Logger(l *slog.Logger) func(http.Handler) http.Handler {
	if l == nil {
		l = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			defer func() {
				status := ww.Status()
				if status == 0 {
					status = http.StatusOK
				}

				attrs := []any{
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.String("query_keys", queryKeys(r)),
					slog.String("proto", r.Proto),
					slog.String("remote_addr", r.RemoteAddr),
					slog.Int("status", status),
					slog.Int("bytes", ww.BytesWritten()),
					slog.Duration("duration", time.Since(start)),
				}
				if reqID := middleware.GetReqID(r.Context()); reqID != "" {
					attrs = append(attrs, slog.String("request_id", reqID))
				}

				switch {
				case status >= http.StatusInternalServerError:
					l.ErrorContext(r.Context(), "HTTP request completed", attrs...)
				case status >= http.StatusBadRequest:
					l.WarnContext(r.Context(), "HTTP request completed", attrs...)
				default:
					l.InfoContext(r.Context(), "HTTP request completed", attrs...)
				}
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

func queryKeys(r *http.Request) string {
	q := r.URL.Query()
	if len(q) == 0 {
		return ""
	}
	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return strings.Join(keys, ",")
}
