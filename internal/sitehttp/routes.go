// Package sitehttp mounts the public site on a chi router: generated page
// routes plus the small set of embedded assets the built-in templates link to.
package sitehttp

import (
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"
)

// StaticPrefix is where assets are served. Content cannot shadow it because
// page paths always end in "/".
const StaticPrefix = "/_static/"

const assetCacheControl = "public, max-age=3600"

// Pages is the part of the page router the site needs.
type Pages interface {
	http.Handler
	Register(r chi.Router)
}

type Asset struct {
	ContentType string
	Body        []byte
}

type Routes struct {
	Pages  Pages
	Assets map[string]Asset // keyed by file name under StaticPrefix
}

// New serves pages plus chroma.css for highlighted code blocks.
func New(pages Pages, chromaCSS []byte) *Routes {
	rt := &Routes{Pages: pages, Assets: map[string]Asset{}}
	if len(chromaCSS) > 0 {
		rt.Assets["chroma.css"] = Asset{ContentType: contentTypeFor("chroma.css"), Body: chromaCSS}
	}
	return rt
}

// RegisterRoutes installs asset and page routes. Unknown paths are left to
// the router's NotFound handler.
func (rt *Routes) RegisterRoutes(r chi.Router) {
	r.Get(StaticPrefix+"{name}", rt.serveAsset)
	if rt.Pages != nil {
		rt.Pages.Register(r)
	}
}

func (rt *Routes) serveAsset(w http.ResponseWriter, r *http.Request) {
	a, ok := rt.Assets[chi.URLParam(r, "name")]
	if !ok {
		if rt.Pages != nil {
			rt.Pages.ServeHTTP(w, r)
			return
		}
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", a.ContentType)
	w.Header().Set("Cache-Control", assetCacheControl)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	if r.Method == http.MethodHead {
		return
	}
	_, _ = w.Write(a.Body)
}

func contentTypeFor(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".css":
		return "text/css; charset=utf-8"
	case ".js", ".mjs":
		return "text/javascript; charset=utf-8"
	case ".svg":
		return "image/svg+xml"
	case ".ico":
		return "image/x-icon"
	default:
		return "application/octet-stream"
	}
}
