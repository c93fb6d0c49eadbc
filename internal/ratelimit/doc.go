// Package ratelimit is per-client token bucket middleware built on
// golang.org/x/time/rate.
//
// State is in memory and per instance. It blunts a single client hammering
// the page renderer; distributed floods need upstream filtering. The client
// address comes from httpmw.ClientIPFromContext, so ClientIP must run first.
package ratelimit
