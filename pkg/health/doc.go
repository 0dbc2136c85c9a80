// Package health implements the relay's own liveness/readiness surface: a
// named Checker per subsystem (the Subscription Reconciler, the Ingest
// Listener), aggregated with failure hysteresis into a Status per
// subsystem, and served over HTTP by Server at /healthz alongside the
// Prometheus /metrics handler.
//
// A subsystem is reported unhealthy only after Config.Retries consecutive
// failed checks, so a single slow reconcile cycle or a momentary listener
// hiccup does not flap the aggregate status.
package health
