package opshttp

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/keithlinneman/staticrouter/internal/health"
	"github.com/keithlinneman/staticrouter/internal/log"
)

func get(h http.Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, http.NoBody))
	return rec
}

func TestNewHandler_Probes(t *testing.T) {
	var gate health.ShutdownGate
	h := NewHandler(log.Nop(), &Options{
		Health:    health.Fixed(true, ""),
		Readiness: health.All(gate.Probe(), health.Fixed(true, "")),
	})

	if rec := get(h, "/-/healthy"); rec.Code != http.StatusOK {
		t.Fatalf("healthy: %d", rec.Code)
	}
	if rec := get(h, "/-/ready"); rec.Code != http.StatusOK {
		t.Fatalf("ready: %d", rec.Code)
	}

	gate.Set("draining")
	rec := get(h, "/-/ready")
	if rec.Code != http.StatusServiceUnavailable || !strings.Contains(rec.Body.String(), "draining") {
		t.Fatalf("ready while draining: %d %q", rec.Code, rec.Body.String())
	}
	if rec := get(h, "/-/healthy"); rec.Code != http.StatusOK {
		t.Fatal("draining must not fail liveness")
	}
}

func TestNewHandler_Metrics(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("pages_loaded 3\n"))
	})
	h := NewHandler(log.Nop(), &Options{Metrics: metrics})

	if rec := get(h, "/metrics"); rec.Body.String() != "pages_loaded 3\n" {
		t.Fatalf("metrics body = %q", rec.Body.String())
	}
	if rec := get(NewHandler(log.Nop(), &Options{}), "/metrics"); rec.Code != http.StatusNotFound {
		t.Fatalf("no metrics handler: %d", rec.Code)
	}
}

func TestNewHandler_Pprof(t *testing.T) {
	if rec := get(NewHandler(log.Nop(), &Options{}), "/debug/pprof/"); rec.Code != http.StatusNotFound {
		t.Fatalf("pprof disabled: %d", rec.Code)
	}
	rec := get(NewHandler(log.Nop(), &Options{EnablePprof: true}), "/debug/pprof/")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "goroutine") {
		t.Fatalf("pprof enabled: %d", rec.Code)
	}
}

func TestNewHandler_Recover(t *testing.T) {
	panics := 0
	h := NewHandler(log.Nop(), &Options{
		UseRecoverMW: true,
		OnPanic:      func() { panics++ },
		Metrics:      http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("scrape") }),
	})
	if rec := get(h, "/metrics"); rec.Code != http.StatusInternalServerError || panics != 1 {
		t.Fatalf("status = %d, panics = %d", rec.Code, panics)
	}
}

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

func TestStart_ServeAndStop(t *testing.T) {
	port := freePort(t)
	ctx := context.Background()

	stop, err := Start(ctx, log.Nop(), &Options{Port: port, Health: health.Fixed(true, "")})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	url := fmt.Sprintf("http://127.0.0.1:%d/-/healthy", port)
	var resp *http.Response
	for i := 0; i < 50; i++ {
		if resp, err = http.Get(url); err == nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || string(body) != "ok\n" {
		t.Fatalf("status = %d body = %q", resp.StatusCode, body)
	}

	if err := stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if err := stop(ctx); err != nil {
		t.Fatalf("second stop: %v", err)
	}
	if _, err := http.Get(url); err == nil {
		t.Fatal("server still accepting connections after stop")
	}
}

func TestStart_PortInUse(t *testing.T) {
	ln, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	_, err = Start(context.Background(), log.Nop(), &Options{Port: ln.Addr().(*net.TCPAddr).Port})
	if err == nil {
		t.Fatal("expected listen error")
	}
}
