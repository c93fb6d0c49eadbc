// Package httpserver assembles the public page server: a chi router with the
// page routes, wrapped in the httpmw stack, tracing and rate limiting.
package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/keithlinneman/staticrouter/internal/health"
	"github.com/keithlinneman/staticrouter/internal/httpmw"
	"github.com/keithlinneman/staticrouter/internal/log"
	"github.com/keithlinneman/staticrouter/internal/xerrors"
)

// pages never accept bodies
const maxRequestBody = 1 << 10

// NewHandler builds the public handler. main owns the *http.Server so it can
// drain on shutdown.
func NewHandler(opts *Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = log.Nop()
	}

	r := chi.NewRouter()
	r.Use(middleware.Compress(5, "text/html", "text/css", "text/plain"))
	// HEAD is answered by the GET page routes
	r.Use(middleware.GetHead)
	r.Use(httpmw.AnnotateHTTPRoute)
	r.Use(httpmw.AccessLog())
	r.Use(httpmw.MaxBody(maxRequestBody))

	if opts.Health != nil {
		r.Get("/-/healthy", health.HealthzHandler(opts.Health))
	}
	if opts.Readiness != nil {
		r.Get("/-/ready", health.ReadyzHandler(opts.Readiness))
	}
	if opts.Routes != nil {
		opts.Routes(r)
	}
	if opts.NotFound != nil {
		r.NotFound(opts.NotFound.ServeHTTP)
		r.MethodNotAllowed(opts.NotFound.ServeHTTP)
	}

	return httpmw.Chain(r,
		httpmw.SecurityHeaders,
		recoverMW(opts, logger),
		httpmw.RequestID("X-Request-Id"),
		httpmw.ClientIPWithOptions(opts.ClientIPOpts),
		opts.RateLimitMW,
		tracing,
		contentHeaders(opts.ContentInfo),
		httpmw.TraceResponseHeaders("X-Trace-Id", "X-Span-Id"),
		opts.MetricsMW,
		httpmw.WithLogger(logger),
	)
}

func recoverMW(opts *Options, logger log.Logger) func(http.Handler) http.Handler {
	if !opts.UseRecoverMW {
		return nil
	}
	return httpmw.Recover(logger, opts.OnPanic)
}

func contentHeaders(info httpmw.ContentInfo) func(http.Handler) http.Handler {
	if info == nil {
		return nil
	}
	return httpmw.ContentHeaders(info)
}

// shouldTrace skips probes and static assets.
func shouldTrace(r *http.Request) bool {
	p := r.URL.Path
	switch p {
	case "/-/healthy", "/-/ready", "/favicon.ico", "/robots.txt":
		return false
	}
	return !strings.HasPrefix(p, "/_static/")
}

func tracing(next http.Handler) http.Handler {
	return otelhttp.NewHandler(next, "http.server",
		otelhttp.WithFilter(shouldTrace),
		// AnnotateHTTPRoute renames the span to the route pattern once routed
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method
		}),
		otelhttp.WithPublicEndpointFn(func(*http.Request) bool { return true }),
	)
}

// Server timeout defaults, shared with opshttp.
const (
	DefaultReadHeaderTimeout = 5 * time.Second
	DefaultReadTimeout       = 10 * time.Second
	DefaultWriteTimeout      = 10 * time.Second
	DefaultIdleTimeout       = 60 * time.Second
	DefaultMaxHeaderBytes    = 1 << 20
	DefaultPort              = 8080
)

func NewServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: DefaultReadHeaderTimeout,
		ReadTimeout:       DefaultReadTimeout,
		WriteTimeout:      DefaultWriteTimeout,
		IdleTimeout:       DefaultIdleTimeout,
		MaxHeaderBytes:    DefaultMaxHeaderBytes,
	}
}

// Start serves the public handler on opts.Port (default 8080) and returns a
// stop function for graceful shutdown.
func Start(ctx context.Context, opts *Options) (func(context.Context) error, error) {
	if opts.Logger == nil {
		opts.Logger = log.Nop()
	}
	port := opts.Port
	if port == 0 {
		port = DefaultPort
	}
	addr := fmt.Sprintf(":%d", port)
	srv := NewServer(addr, NewHandler(opts))

	ln, err := (&net.ListenConfig{}).Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, xerrors.Wrapf(err, "listen addr=%s", addr)
	}

	go func() {
		opts.Logger.Info(ctx, "http server listening", "addr", addr)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			opts.Logger.Error(ctx, err, "http server error")
		}
	}()

	var once sync.Once
	stop := func(sctx context.Context) (retErr error) {
		once.Do(func() {
			opts.Logger.Info(sctx, "http server shutting down")
			c, cancel := context.WithTimeout(sctx, 5*time.Second)
			defer cancel()
			retErr = srv.Shutdown(c)
		})
		return retErr
	}
	return stop, nil
}
