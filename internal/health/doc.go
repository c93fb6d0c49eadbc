// Package health provides composable probes for the liveness and readiness
// endpoints.
//
// [All], [Any] and [Fixed] combine probes. [MinPages] fails readiness until
// the router has indexed content, and [ShutdownGate] fails it while the
// server drains so load balancers stop routing before connections close.
package health
