package opshttp

import (
	"net/http"

	"github.com/keithlinneman/staticrouter/internal/health"
)

type Options struct {
	Port        int
	Metrics     http.Handler
	EnablePprof bool
	Health      health.Probe
	Readiness   health.Probe
	// Recover panics in admin handlers; OnPanic may count them.
	UseRecoverMW bool
	OnPanic      func()
}
