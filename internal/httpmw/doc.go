// Package httpmw holds the middleware stack of the public page server.
//
// httpserver.NewHandler composes it outermost first: security headers,
// recover, request id, client ip, rate limiting, otelhttp, content headers,
// trace headers, metrics, request logger, access log, then the chi router.
// Query strings and user agents never reach log records.
package httpmw
