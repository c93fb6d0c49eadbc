package staticrouter

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/keithlinneman/staticrouter/internal/content"
	"github.com/keithlinneman/staticrouter/internal/log"
	"github.com/keithlinneman/staticrouter/internal/page"
	"github.com/keithlinneman/staticrouter/internal/templates"
	"github.com/keithlinneman/staticrouter/internal/webassets"
	"github.com/keithlinneman/staticrouter/internal/xerrors"
)

// ErrNilLoader is returned by New when no content loader is given.
var ErrNilLoader = errors.New("staticrouter: nil content loader")

// Router maps URL paths to loaded pages and renders them on request.
type Router struct {
	pages map[string]*page.Page
	order []string

	defaultTemplate string
	tmpl            TemplateRenderer
	logger          log.Logger
	metrics         PageMetrics

	hash     string
	loadedAt time.Time
}

// New loads every page from loader and indexes it by path. A load error
// aborts construction.
func New(ctx context.Context, loader content.ContentLoader, opts ...Option) (*Router, error) {
	if loader == nil {
		return nil, ErrNilLoader
	}

	rt := &Router{
		pages:           make(map[string]*page.Page),
		defaultTemplate: DefaultTemplate,
		tmpl:            templates.New(nil, webassets.TemplatesFS()),
		logger:          log.Nop(),
		metrics:         nopMetrics{},
	}
	for _, o := range opts {
		o(rt)
	}

	start := time.Now()
	pages, err := loader.Load(ctx)
	if err != nil {
		return nil, xerrors.Wrap(err, "load content")
	}
	rt.index(ctx, pages)
	rt.loadedAt = time.Now()
	rt.hash = digest(rt.pages)

	rt.metrics.ObservePageLoad(rt.loadedAt.Sub(start))
	rt.metrics.SetPagesLoaded(len(rt.order))
	rt.metrics.SetContentLoaded(rt.loadedAt, rt.hash)

	rt.logger.Info(ctx, "pages indexed",
		"pages", len(rt.order),
		"default_template", rt.defaultTemplate,
		"content_hash", rt.hash,
		"duration", rt.loadedAt.Sub(start).String(),
	)
	return rt, nil
}

// Register constructs a Router and installs its routes on r.
func Register(ctx context.Context, r chi.Router, loader content.ContentLoader, opts ...Option) (*Router, error) {
	rt, err := New(ctx, loader, opts...)
	if err != nil {
		return nil, err
	}
	rt.Register(r)
	return rt, nil
}

// later pages replace earlier ones with the same path but keep the first
// registration position
func (rt *Router) index(ctx context.Context, pages []*page.Page) {
	for _, p := range pages {
		if p == nil {
			continue
		}
		if _, dup := rt.pages[p.Path]; dup {
			rt.logger.Debug(ctx, "page path collision, last loaded wins", "path", p.Path)
		} else {
			rt.order = append(rt.order, p.Path)
		}
		rt.pages[p.Path] = p
	}
}

// Register adds one GET route per page path to r, all sharing rt's handler.
// Paths containing chi pattern characters are left to the host's NotFound
// handler, which may be set to rt itself.
func (rt *Router) Register(r chi.Router) {
	for _, path := range rt.order {
		if strings.ContainsAny(path, "{}*") {
			rt.logger.Warn(context.Background(), "page path is not a literal route, serving via fallback only", "path", path)
			continue
		}
		r.Get(path, rt.ServeHTTP)
	}
}

// Pages returns the indexed pages in registration order.
func (rt *Router) Pages() []*page.Page {
	out := make([]*page.Page, 0, len(rt.order))
	for _, path := range rt.order {
		out = append(out, rt.pages[path])
	}
	return out
}

// Page returns the page registered at path.
func (rt *Router) Page(path string) (*page.Page, bool) {
	p, ok := rt.pages[path]
	return p, ok
}

func (rt *Router) Len() int { return len(rt.order) }

// DefaultTemplate is the template used for pages that do not name one.
func (rt *Router) DefaultTemplate() string { return rt.defaultTemplate }

// TemplateFor returns the template a page renders with.
func (rt *Router) TemplateFor(p *page.Page) string {
	if name := p.Template(); name != "" {
		return name
	}
	return rt.defaultTemplate
}

// ContentHash is a sha256 over every page path and rendered body.
func (rt *Router) ContentHash() string { return rt.hash }

// ContentVersion identifies the load by its completion time.
func (rt *Router) ContentVersion() string {
	if rt.loadedAt.IsZero() {
		return ""
	}
	return rt.loadedAt.UTC().Format("20060102T150405Z")
}

func (rt *Router) LoadedAt() time.Time { return rt.loadedAt }

func digest(pages map[string]*page.Page) string {
	paths := make([]string, 0, len(pages))
	for p := range pages {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	h := sha256.New()
	for _, path := range paths {
		h.Write([]byte(path))
		h.Write([]byte{0})
		h.Write([]byte(pages[path].Content))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
