package reconciler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/openchami/redfish-relay/pkg/bmcclient"
	"github.com/openchami/redfish-relay/pkg/config"
	"github.com/openchami/redfish-relay/pkg/log"
	"github.com/openchami/redfish-relay/pkg/metrics"
	"github.com/openchami/redfish-relay/pkg/types"
	"github.com/rs/zerolog"
)

// endpointSession is the subset of bmcclient.Session the reconciler needs,
// narrowed to an interface so tests can substitute a fake endpoint.
type endpointSession interface {
	ListSubscriptions(ctx context.Context) ([]types.LiveSubscription, error)
	CreateSubscription(ctx context.Context, desired types.Subscription) (types.LiveSubscription, error)
	DeleteSubscription(ctx context.Context, handle string) error
	Close()
}

// opener opens a session against one endpoint.
type opener func(ctx context.Context, host, username, password string, timeout time.Duration, retries int) (endpointSession, error)

func defaultOpener(ctx context.Context, host, username, password string, timeout time.Duration, retries int) (endpointSession, error) {
	return bmcclient.Open(ctx, host, username, password, timeout, retries)
}

// Reconciler converges every managed endpoint's live subscriptions onto the
// desired set computed from configuration.
type Reconciler struct {
	mu     sync.RWMutex
	cfg    *config.Config
	open   opener
	logger zerolog.Logger

	stopCh chan struct{}
	doneCh chan struct{}

	cycleCompleted int32
}

// New creates a Reconciler bound to the given configuration.
func New(cfg *config.Config) *Reconciler {
	return &Reconciler{
		cfg:    cfg,
		open:   defaultOpener,
		logger: log.WithComponent("reconciler"),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// SetConfig swaps in a freshly loaded configuration, taking effect on the
// next cycle. It never mutates a Config in place.
func (r *Reconciler) SetConfig(cfg *config.Config) {
	r.mu.Lock()
	r.cfg = cfg
	r.mu.Unlock()
}

func (r *Reconciler) config() *config.Config {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cfg
}

// Run starts the periodic refresh loop. It blocks until ctx is cancelled or
// Stop is called, and always performs one cycle immediately on entry.
func (r *Reconciler) Run(ctx context.Context) {
	defer close(r.doneCh)

	r.runCycle(ctx, false)

	immediate := false
	for {
		interval := r.config().RefreshIntervalDuration()
		wait := interval
		if immediate {
			wait = 0
		}
		timer := time.NewTimer(wait)

		select {
		case <-timer.C:
			start := time.Now()
			r.runCycle(ctx, false)
			elapsed := time.Since(start)
			immediate = elapsed > interval
			if immediate {
				r.logger.Warn().
					Dur("elapsed", elapsed).
					Dur("interval", interval).
					Msg("reconciliation cycle exceeded refresh interval, starting next cycle immediately")
			}
		case <-ctx.Done():
			timer.Stop()
			return
		case <-r.stopCh:
			timer.Stop()
			return
		}
	}
}

// Stop signals Run to exit after completing its current cycle.
func (r *Reconciler) Stop() {
	close(r.stopCh)
	<-r.doneCh
}

// ReconcileNow runs a single fleet-wide cycle outside the periodic
// schedule, used by the control plane to answer HUP/USR1.
func (r *Reconciler) ReconcileNow(ctx context.Context) error {
	r.runCycle(ctx, false)
	return nil
}

// PurgeNow runs a single fleet-wide cycle that treats every endpoint's
// desired set as empty, tearing down only the subscriptions this relay
// owns (per the namespace-prefix scoping rule).
func (r *Reconciler) PurgeNow(ctx context.Context) error {
	r.runCycle(ctx, true)
	return nil
}

// Ready reports whether at least one reconcile cycle has completed,
// regardless of whether any individual endpoint within it succeeded. It
// backs the control plane's /healthz reconciler check.
func (r *Reconciler) Ready() bool {
	return atomic.LoadInt32(&r.cycleCompleted) == 1
}

func (r *Reconciler) runCycle(ctx context.Context, purge bool) {
	timer := metrics.NewTimer()
	defer func() {
		timer.ObserveDuration(metrics.ReconciliationDuration)
		metrics.ReconciliationCyclesTotal.Inc()
		atomic.StoreInt32(&r.cycleCompleted, 1)
	}()

	cfg := r.config()
	hostnames := make([]string, 0, len(cfg.Endpoints))
	for host := range cfg.Endpoints {
		hostnames = append(hostnames, host)
	}

	workers := cfg.General.MaxWorkers
	if workers > len(hostnames) {
		workers = len(hostnames)
	}
	if workers <= 0 {
		return
	}

	jobs := make(chan string, len(hostnames))
	for _, h := range hostnames {
		jobs <- h
	}
	close(jobs)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for host := range jobs {
				r.reconcileEndpoint(ctx, cfg, host, purge)
			}
		}()
	}
	wg.Wait()
}

func (r *Reconciler) reconcileEndpoint(ctx context.Context, cfg *config.Config, hostname string, purge bool) {
	logger := log.WithEndpoint(hostname)
	endpointTimer := metrics.NewTimer()
	defer endpointTimer.ObserveDuration(metrics.EndpointReconcileDuration)

	ep := cfg.Endpoints[hostname]
	username := ep.Username
	if username == "" {
		username = cfg.General.RedfishUsername
	}
	password := ep.Password
	if password == "" {
		password = cfg.General.RedfishPassword
	}

	timeout := time.Duration(cfg.General.SubscriptionTimeout) * time.Second
	session, err := r.open(ctx, hostname, username, password, timeout, cfg.General.SubscriptionRetries)
	if err != nil {
		logger.Debug().Err(err).Msg("endpoint unreachable this cycle")
		metrics.EndpointErrorsTotal.WithLabelValues("connect").Inc()
		return
	}
	defer session.Close()

	live, err := session.ListSubscriptions(ctx)
	if err != nil {
		logger.Debug().Err(err).Msg("failed to list subscriptions")
		metrics.EndpointErrorsTotal.WithLabelValues("list").Inc()
		return
	}

	var desired []types.Subscription
	if !purge {
		desired, err = cfg.DesiredSubscriptions(hostname)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to compute desired subscriptions")
			metrics.EndpointErrorsTotal.WithLabelValues("compute").Inc()
			return
		}
	}

	toAdd, toRemove := diff(desired, live, cfg.General.ContextPrefix, cfg.General.PurgeUnrecognized)

	for _, l := range toRemove {
		if err := session.DeleteSubscription(ctx, l.Handle); err != nil {
			logger.Warn().Str("context", l.Context).Err(err).Msg("failed to remove subscription")
			metrics.SubscriptionOpsTotal.WithLabelValues("remove", "error").Inc()
			continue
		}
		metrics.SubscriptionOpsTotal.WithLabelValues("remove", "ok").Inc()
	}

	for _, d := range toAdd {
		if _, err := session.CreateSubscription(ctx, d); err != nil {
			logger.Warn().Str("context", d.Context).Err(err).Msg("failed to create subscription")
			metrics.SubscriptionOpsTotal.WithLabelValues("add", "error").Inc()
			continue
		}
		metrics.SubscriptionOpsTotal.WithLabelValues("add", "ok").Inc()
	}
}

// diff computes the adds and removes needed to converge live onto desired,
// per the per-endpoint convergence rule: match by Context, full-field
// equality keeps, any difference removes-then-adds, and unmatched live
// subscriptions are removed only when their context carries the namespace
// prefix or purgeUnrecognized is set.
func diff(desired []types.Subscription, live []types.LiveSubscription, namespacePrefix string, purgeUnrecognized bool) (toAdd []types.Subscription, toRemove []types.LiveSubscription) {
	matched := make(map[int]bool, len(live))

	for _, d := range desired {
		idx := -1
		for i, l := range live {
			if matched[i] {
				continue
			}
			if l.Context == d.Context {
				idx = i
				break
			}
		}
		if idx < 0 {
			toAdd = append(toAdd, d)
			continue
		}
		matched[idx] = true
		if !live[idx].Subscription.Equal(d) {
			toRemove = append(toRemove, live[idx])
			toAdd = append(toAdd, d)
		}
	}

	for i, l := range live {
		if matched[i] {
			continue
		}
		if hasPrefix(l.Context, namespacePrefix) || purgeUnrecognized {
			toRemove = append(toRemove, l)
		}
	}

	return toAdd, toRemove
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}
