// Package control implements the daemon's control plane: signal
// handling, config reload, and graceful shutdown coordination for the
// running process.
//
// SIGHUP and SIGUSR1 reload the configuration file and trigger an
// immediate reconciliation cycle. SIGUSR2 triggers a purge cycle
// followed by process exit. SIGINT and SIGTERM trigger graceful
// shutdown: the ingest listener stops accepting new connections, the
// lane ring drains via the shutdown sentinel, and the reconciler's
// background loop is stopped.
//
// Each signal is edge-triggered: one arriving while a prior one of the
// same kind is still being handled is dropped rather than queued, so a
// burst of HUPs during a slow reload collapses to a single reload.
package control
