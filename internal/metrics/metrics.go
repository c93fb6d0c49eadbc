package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/keithlinneman/staticrouter/internal/version"
)

type ServerMetrics struct {
	reg                    *prometheus.Registry
	handler                http.Handler
	inflight               prometheus.Gauge
	reqTotal               *prometheus.CounterVec
	reqDur                 *prometheus.HistogramVec
	respBytes              *prometheus.HistogramVec
	httpPanicTotal         prometheus.Counter
	buildInfo              *prometheus.GaugeVec
	ratelimitDeniedTotal   prometheus.Counter
	ratelimitCapacityTotal prometheus.Counter
	errorsTotal            *prometheus.CounterVec
	profilingActive        prometheus.Gauge

	// page metrics
	contentSource          *prometheus.GaugeVec
	pagesLoaded            prometheus.Gauge
	pageRendersTotal       *prometheus.CounterVec
	pageLoadDuration       prometheus.Histogram
	pageDur                *prometheus.HistogramVec
	contentLoadedTimestamp prometheus.Gauge
	contentHashInfo        *prometheus.GaugeVec
}

// New returns a fresh registry + standard collectors + HTTP and page metrics
// safe labels only (method, route, code, template) to avoid cardinality explosions
func New() *ServerMetrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &ServerMetrics{
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "http_inflight_requests",
			Help: "Current number of in-flight HTTP requests",
		}),
		reqTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests by method, route, and status",
		}, []string{"method", "route", "status"}),
		reqDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Request latency by method and route",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"method", "route"}),
		respBytes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_response_size_bytes",
			Help:    "Response size by method and route",
			Buckets: []float64{256, 1024, 4096, 16384, 65536, 262144, 1048576, 4194304},
		}, []string{"method", "route"}),
		httpPanicTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "http_panic_total",
			Help: "Total number of recovered httpserver panics",
		}),
		buildInfo: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "build_info",
			Help: "Build metadata (value is always 1)",
		}, []string{"app", "component", "version", "commit", "commit_date", "build_id", "build_date", "vcs_dirty", "go_version"}),
		ratelimitDeniedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "http_requests_rate_limited_total",
			Help: "Total requests rejected by rate limiter",
		}),
		ratelimitCapacityTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "http_requests_rate_limited_capacity_total",
			Help: "Total number of times rate limiter capacity reached",
		}),
		errorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "Total 5xx HTTP server errors by method and route (SLI)",
		}, []string{"method", "route"}),
		profilingActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "profiling_active",
			Help: "Whether continuous profiling is active (1) or disabled/failed (0)",
		}),
		contentSource: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "content_source_info",
			Help: "Current content source (label carries value, gauge is always 1)",
		}, []string{"source"}),
		pagesLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pages_loaded",
			Help: "Number of pages registered with the router",
		}),
		pageRendersTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "page_renders_total",
			Help: "Page renders by template and response status",
		}, []string{"template", "status"}),
		pageLoadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "page_load_duration_seconds",
			Help:    "Time to discover, parse, and render all content at startup",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		pageDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "page_request_duration_seconds",
			Help:    "Latency of requests answered by a rendered page, by template",
			Buckets: []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"template"}),
		contentLoadedTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "content_loaded_timestamp_seconds",
			Help: "Unix timestamp of when the current content was loaded",
		}),
		contentHashInfo: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "content_hash_info",
			Help: "Digest of the loaded content (label carries identity, value is always 1)",
		}, []string{"sha256"}),
	}
	reg.MustRegister(
		m.inflight,
		m.reqTotal,
		m.reqDur,
		m.respBytes,
		m.httpPanicTotal,
		m.buildInfo,
		m.ratelimitDeniedTotal,
		m.ratelimitCapacityTotal,
		m.errorsTotal,
		m.profilingActive,
		m.contentSource,
		m.pagesLoaded,
		m.pageRendersTotal,
		m.pageLoadDuration,
		m.pageDur,
		m.contentLoadedTimestamp,
		m.contentHashInfo,
	)

	m.handler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
	m.reg = reg
	return m
}

func (m *ServerMetrics) IncHttpPanic() {
	m.httpPanicTotal.Inc()
}

func (m *ServerMetrics) Handler() http.Handler {
	return m.handler
}

// set once at startup.
func (m *ServerMetrics) SetBuildInfoFromVersion(app, component string, vi *version.Info) {
	dirty := "unknown"
	if vi.VCSDirty != nil {
		dirty = strconv.FormatBool(*vi.VCSDirty)
	}
	m.buildInfo.With(prometheus.Labels{
		"app":         app,
		"component":   component,
		"version":     vi.Version,
		"commit":      vi.Commit,
		"commit_date": vi.CommitDate,
		"build_id":    vi.BuildId,
		"build_date":  vi.BuildDate,
		"go_version":  vi.GoVersion,
		"vcs_dirty":   dirty,
	}).Set(1)
}

func (m *ServerMetrics) IncRateLimitDenied() {
	m.ratelimitDeniedTotal.Inc()
}

func (m *ServerMetrics) IncRateLimitCapacity() {
	m.ratelimitCapacityTotal.Inc()
}

func (m *ServerMetrics) SetProfilingActive(active bool) {
	if active {
		m.profilingActive.Set(1)
	} else {
		m.profilingActive.Set(0)
	}
}

// SetContentSource records where pages were loaded from ("dir" or "s3").
func (m *ServerMetrics) SetContentSource(source string) {
	m.contentSource.Reset()
	m.contentSource.WithLabelValues(source).Set(1)
}

func (m *ServerMetrics) SetPagesLoaded(n int) {
	m.pagesLoaded.Set(float64(n))
}

func (m *ServerMetrics) ObservePageLoad(d time.Duration) {
	m.pageLoadDuration.Observe(d.Seconds())
}

// SetContentLoaded records the load time and the digest of the loaded set.
func (m *ServerMetrics) SetContentLoaded(t time.Time, sha256 string) {
	m.contentLoadedTimestamp.Set(float64(t.Unix()))
	m.contentHashInfo.Reset()
	if sha256 != "" {
		m.contentHashInfo.WithLabelValues(sha256).Set(1)
	}
}

func (m *ServerMetrics) IncPageRender(template string, status int) {
	m.pageRendersTotal.WithLabelValues(template, strconv.Itoa(status)).Inc()
}
