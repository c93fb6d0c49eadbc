package staticrouter

import (
	"bytes"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/keithlinneman/staticrouter/internal/metrics"
	"github.com/keithlinneman/staticrouter/internal/page"
	"github.com/keithlinneman/staticrouter/internal/pathutil"
)

// View is the data every page template executes with.
type View struct {
	Request *http.Request
	Page    *page.Page
	Router  *Router
}

// ServeHTTP renders the page registered at r.URL.Path.
func (rt *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx, span := otel.Tracer("staticrouter").Start(r.Context(), "page.render",
		trace.WithAttributes(attribute.String("page.path", r.URL.Path)))
	defer span.End()
	r = r.WithContext(ctx)

	p, ok := rt.lookup(r.URL.Path)
	if !ok {
		span.SetAttributes(attribute.Bool("page.found", false))
		rt.serveNotFound(w, r)
		return
	}

	name := rt.TemplateFor(p)
	metrics.SetPageTemplate(ctx, name)
	span.SetAttributes(
		attribute.Bool("page.found", true),
		attribute.String("page.template", name),
	)

	var buf bytes.Buffer
	if err := rt.tmpl.Render(&buf, name, View{Request: r, Page: p, Router: rt}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "render failed")
		rt.logger.Error(ctx, err, "page render failed", "path", p.Path, "template", name)
		rt.metrics.IncPageRender(name, http.StatusInternalServerError)
		w.Header().Set("Cache-Control", "no-store")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	rt.metrics.IncPageRender(name, http.StatusOK)
	rt.write(w, r, http.StatusOK, "no-cache", &buf)
}

func (rt *Router) lookup(urlPath string) (*page.Page, bool) {
	if !pathutil.IsCanonicalURLPath(urlPath) {
		return nil, false
	}
	p, ok := rt.pages[urlPath]
	return p, ok
}

// serveNotFound prefers the themed 404 template and falls back to plain text.
func (rt *Router) serveNotFound(w http.ResponseWriter, r *http.Request) {
	if rt.tmpl.Exists(NotFoundTemplate) {
		var buf bytes.Buffer
		err := rt.tmpl.Render(&buf, NotFoundTemplate, View{Request: r, Router: rt})
		if err == nil {
			metrics.SetPageTemplate(r.Context(), NotFoundTemplate)
			rt.metrics.IncPageRender(NotFoundTemplate, http.StatusNotFound)
			rt.write(w, r, http.StatusNotFound, "no-store", &buf)
			return
		}
		rt.logger.Warn(r.Context(), "404 template failed, using plain text", "err", err)
	}

	rt.metrics.IncPageRender("", http.StatusNotFound)
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	_, _ = w.Write([]byte("404 page not found"))
}

func (rt *Router) write(w http.ResponseWriter, r *http.Request, status int, cacheControl string, body *bytes.Buffer) {
	h := w.Header()
	h.Set("Content-Type", rt.tmpl.ContentType())
	h.Set("Cache-Control", cacheControl)
	w.WriteHeader(status)
	if r.Method == http.MethodHead {
		return
	}
	_, _ = body.WriteTo(w)
}
