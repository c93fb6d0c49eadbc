package httpmw

import (
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ContentInfo identifies the loaded page set. *staticrouter.Router satisfies it.
type ContentInfo interface {
	ContentVersion() string
	ContentHash() string
}

const shortHashLen = 12

// ContentHeaders stamps responses with X-Content-Version and a short
// X-Content-Hash, and records both on the active span.
func ContentHeaders(info ContentInfo) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if info == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			v, h := info.ContentVersion(), info.ContentHash()
			if v != "" {
				w.Header().Set("X-Content-Version", v)
			}
			if h != "" {
				short := h
				if len(short) > shortHashLen {
					short = short[:shortHashLen]
				}
				w.Header().Set("X-Content-Hash", short)
			}
			if span := trace.SpanFromContext(r.Context()); span.IsRecording() {
				span.SetAttributes(
					attribute.String("content.version", v),
					attribute.String("content.hash", h),
				)
			}
			next.ServeHTTP(w, r)
		})
	}
}
