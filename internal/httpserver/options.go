package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/keithlinneman/staticrouter/internal/health"
	"github.com/keithlinneman/staticrouter/internal/httpmw"
	"github.com/keithlinneman/staticrouter/internal/log"
)

type Options struct {
	Logger log.Logger
	Port   int

	// Routes installs the page routes, typically staticrouter.Router.Register.
	Routes func(chi.Router)
	// NotFound serves requests no route matched, typically the router itself
	// so unknown paths get the themed 404.
	NotFound http.Handler

	UseRecoverMW bool
	OnPanic      func()
	MetricsMW    func(http.Handler) http.Handler
	RateLimitMW  func(http.Handler) http.Handler
	ClientIPOpts httpmw.ClientIPOptions

	Health    health.Probe
	Readiness health.Probe

	ContentInfo httpmw.ContentInfo
}
