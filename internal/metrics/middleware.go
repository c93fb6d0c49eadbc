package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"

	"github.com/keithlinneman/staticrouter/internal/httpmw"
)

// recorder keeps what the page metrics need from a response.
type recorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (rw *recorder) WriteHeader(code int) {
	if rw.status == 0 {
		rw.status = code
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *recorder) Write(p []byte) (int, error) {
	if rw.status == 0 {
		rw.status = http.StatusOK
	}
	n, err := rw.ResponseWriter.Write(p)
	rw.bytes += n
	return n, err
}

func (rw *recorder) code() int {
	if rw.status == 0 {
		return http.StatusOK
	}
	return rw.status
}

type pageLabelKey struct{}

// pageLabel is filled in by the page handler; the middleware reads it after
// the handler returns.
type pageLabel struct{ template string }

// SetPageTemplate records which template served the request so the request
// latency is also observed per template. Outside Middleware it is a no-op.
func SetPageTemplate(ctx context.Context, name string) {
	if pl, ok := ctx.Value(pageLabelKey{}).(*pageLabel); ok {
		pl.template = name
	}
}

// Middleware measures inflight, totals, latency, response size and 5xx per
// route pattern, plus latency per page template when a page was rendered.
func (m *ServerMetrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// chi fills a pre-installed route context in place, so the pattern
		// is readable here once next returns
		ctx := r.Context()
		if chi.RouteContext(ctx) == nil {
			ctx = context.WithValue(ctx, chi.RouteCtxKey, chi.NewRouteContext())
		}
		pl := &pageLabel{}
		ctx = context.WithValue(ctx, pageLabelKey{}, pl)
		r = r.WithContext(ctx)

		m.inflight.Inc()
		defer m.inflight.Dec()

		rw := &recorder{ResponseWriter: w}
		next.ServeHTTP(rw, r)

		route := httpmw.RoutePattern(ctx)
		code := rw.code()
		lat := time.Since(start).Seconds()
		ex := traceExemplar(ctx)

		m.reqTotal.WithLabelValues(r.Method, route, strconv.Itoa(code)).Inc()
		observe(m.reqDur.WithLabelValues(r.Method, route), lat, ex)
		m.respBytes.WithLabelValues(r.Method, route).Observe(float64(rw.bytes))
		if pl.template != "" {
			observe(m.pageDur.WithLabelValues(pl.template), lat, ex)
		}
		if code >= 500 {
			m.errorsTotal.WithLabelValues(r.Method, route).Inc()
		}
	})
}

func observe(o prometheus.Observer, v float64, ex prometheus.Labels) {
	if eo, ok := o.(prometheus.ExemplarObserver); ok && ex != nil {
		eo.ObserveWithExemplar(v, ex)
		return
	}
	o.Observe(v)
}

// if a sampled trace is present attach its trace_id as an exemplar
func traceExemplar(ctx context.Context) prometheus.Labels {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() || !sc.IsSampled() {
		return nil
	}
	return prometheus.Labels{"trace_id": sc.TraceID().String()}
}
