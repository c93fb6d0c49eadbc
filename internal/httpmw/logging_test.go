package httpmw

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
)

func TestWithLoggerAndAccessLog(t *testing.T) {
	spy := newSpyLogger()

	mux := chi.NewRouter()
	mux.Use(RequestID(""), ClientIP, WithLogger(spy), AccessLog())
	mux.Get("/about/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("hello"))
	})
	h := http.Handler(mux)

	req := httptest.NewRequest(http.MethodGet, "/about/?utm=secret", http.NoBody)
	req.Header.Set("X-Request-Id", "req-1")
	req.Header.Set("User-Agent", "private-agent")
	h.ServeHTTP(httptest.NewRecorder(), req)

	recs := spy.all()
	if len(recs) != 1 {
		t.Fatalf("records = %d, want 1", len(recs))
	}
	r := recs[0]
	if r.level != "info" || r.msg != "http request" {
		t.Fatalf("record = %+v", r)
	}

	want := map[string]any{
		"request_id":                "req-1",
		"url.path":                  "/about/",
		"http.request.method":       http.MethodGet,
		"http.response.status_code": http.StatusOK,
		"http.response.body.size":   int64(5),
		"url.scheme":                "http",
	}
	for k, v := range want {
		if got, _ := field(r.kv, k); got != v {
			t.Errorf("%s = %v (%T), want %v", k, got, got, v)
		}
	}
	if route, _ := field(r.kv, "http.route"); !strings.HasPrefix(route.(string), "/about") {
		t.Errorf("http.route = %v", route)
	}
	for i := 1; i < len(r.kv); i += 2 {
		if s, ok := r.kv[i].(string); ok && (s == "private-agent" || s == "utm=secret") {
			t.Fatalf("query or user agent leaked into log fields: %v", r.kv)
		}
	}
}

func TestAccessLog_ServerErrorsWarn(t *testing.T) {
	spy := newSpyLogger()
	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}), WithLogger(spy), AccessLog())

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x/", http.NoBody))

	recs := spy.all()
	if len(recs) != 1 || recs[0].level != "warn" {
		t.Fatalf("records = %+v", recs)
	}
	if route, _ := field(recs[0].kv, "http.route"); route != UnmatchedRoute {
		t.Fatalf("http.route = %v, want %s", route, UnmatchedRoute)
	}
}

func TestAccessLog_SkipsProbesAndStatic(t *testing.T) {
	spy := newSpyLogger()
	h := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}), WithLogger(spy), AccessLog())

	for _, p := range []string{"/-/ready", "/-/healthy", "/_static/chroma.css"} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, p, http.NoBody))
	}
	if n := len(spy.all()); n != 0 {
		t.Fatalf("records = %d, want 0", n)
	}
}

func TestResponseWriter_FirstStatusWins(t *testing.T) {
	rw := &responseWriter{ResponseWriter: httptest.NewRecorder()}
	if rw.statusCode() != http.StatusOK {
		t.Fatalf("implicit status = %d", rw.statusCode())
	}
	rw.WriteHeader(http.StatusNotFound)
	_, _ = rw.Write([]byte("abc"))
	if rw.status != http.StatusNotFound || rw.bytes != 3 {
		t.Fatalf("status = %d bytes = %d", rw.status, rw.bytes)
	}
	if _, _, err := rw.Hijack(); err == nil {
		t.Fatal("recorder cannot hijack")
	}
}

func TestSchemeFromRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	if got := schemeFromRequest(r); got != "http" {
		t.Fatalf("scheme = %q", got)
	}
	r.Header.Set("X-Forwarded-Proto", "HTTPS, http")
	if got := schemeFromRequest(r); got != "https" {
		t.Fatalf("scheme = %q", got)
	}
	r.Header.Set("X-Forwarded-Proto", "gopher")
	if got := schemeFromRequest(r); got != "http" {
		t.Fatalf("scheme = %q", got)
	}
	r.Header.Del("X-Forwarded-Proto")
	r.TLS = &tls.ConnectionState{}
	if got := schemeFromRequest(r); got != "https" {
		t.Fatalf("scheme = %q", got)
	}
}
