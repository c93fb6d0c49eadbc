package staticrouter

import (
	"io"
	"time"

	"github.com/keithlinneman/staticrouter/internal/log"
)

// DefaultTemplate is used for pages whose frontmatter names no template.
const DefaultTemplate = "default"

// NotFoundTemplate renders the themed 404 page when the engine defines it.
const NotFoundTemplate = "404"

// TemplateRenderer looks up templates by name. *templates.Engine satisfies it.
type TemplateRenderer interface {
	Render(w io.Writer, name string, data any) error
	Exists(name string) bool
	ContentType() string
}

// PageMetrics receives load and render measurements. *metrics.ServerMetrics
// satisfies it.
type PageMetrics interface {
	SetPagesLoaded(n int)
	ObservePageLoad(d time.Duration)
	SetContentLoaded(t time.Time, sha256 string)
	IncPageRender(template string, status int)
}

type Option func(*Router)

// WithDefaultTemplate sets the template for pages that do not name one.
func WithDefaultTemplate(name string) Option {
	return func(rt *Router) {
		if name != "" {
			rt.defaultTemplate = name
		}
	}
}

func WithTemplates(t TemplateRenderer) Option {
	return func(rt *Router) {
		if t != nil {
			rt.tmpl = t
		}
	}
}

func WithLogger(l log.Logger) Option {
	return func(rt *Router) {
		if l != nil {
			rt.logger = l
		}
	}
}

func WithMetrics(m PageMetrics) Option {
	return func(rt *Router) {
		if m != nil {
			rt.metrics = m
		}
	}
}

type nopMetrics struct{}

func (nopMetrics) SetPagesLoaded(int)                 {}
func (nopMetrics) ObservePageLoad(time.Duration)      {}
func (nopMetrics) SetContentLoaded(time.Time, string) {}
func (nopMetrics) IncPageRender(string, int)          {}
