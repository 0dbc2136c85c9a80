package control

import (
	"context"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/openchami/redfish-relay/pkg/config"
	"github.com/openchami/redfish-relay/pkg/log"
	"github.com/rs/zerolog"
)

// Reconciler is the subset of *reconciler.Reconciler the control plane
// needs to drive a reload or a purge.
type Reconciler interface {
	SetConfig(cfg *config.Config)
	ReconcileNow(ctx context.Context) error
	PurgeNow(ctx context.Context) error
	Stop()
}

// Listener is the subset of *ingest.Listener the control plane needs to
// drain on shutdown.
type Listener interface {
	Shutdown(ctx context.Context) error
}

// Plane coordinates signal-driven reload, purge, and graceful shutdown.
type Plane struct {
	configPath string
	reconciler Reconciler
	listener   Listener
	logger     zerolog.Logger

	reloading int32
	purging   int32
}

// New builds a Plane. configPath is reread on every SIGHUP/SIGUSR1.
func New(configPath string, reconciler Reconciler, listener Listener) *Plane {
	return &Plane{
		configPath: configPath,
		reconciler: reconciler,
		listener:   listener,
		logger:     log.WithComponent("control"),
	}
}

// Run installs signal handlers and blocks until a terminating signal
// arrives or ctx is cancelled, at which point it drains the listener and
// reconciler and returns.
func (p *Plane) Run(ctx context.Context) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP, syscall.SIGUSR1, syscall.SIGUSR2)
	defer signal.Stop(sigCh)

	for {
		select {
		case sig := <-sigCh:
			switch sig {
			case syscall.SIGHUP, syscall.SIGUSR1:
				go p.reload(ctx)
			case syscall.SIGUSR2:
				go p.purgeAndExit(ctx)
			default:
				p.logger.Info().Str("signal", sig.String()).Msg("received shutdown signal")
				return p.shutdown(ctx)
			}
		case <-ctx.Done():
			return p.shutdown(context.Background())
		}
	}
}

// reload rereads the config file and forces an immediate reconcile. A
// reload already in progress causes a concurrent signal to be dropped
// rather than queued.
func (p *Plane) reload(ctx context.Context) {
	if !atomic.CompareAndSwapInt32(&p.reloading, 0, 1) {
		p.logger.Debug().Msg("reload already in progress, dropping signal")
		return
	}
	defer atomic.StoreInt32(&p.reloading, 0)

	cfg, err := config.Load(p.configPath)
	if err != nil {
		p.logger.Error().Err(err).Msg("config reload failed, keeping previous configuration")
		return
	}

	p.reconciler.SetConfig(cfg)
	if err := p.reconciler.ReconcileNow(ctx); err != nil {
		p.logger.Error().Err(err).Msg("reconcile after reload failed")
		return
	}
	p.logger.Info().Msg("configuration reloaded")
}

// purgeAndExit runs a one-shot purge cycle and exits the process with
// status 0 once the purge completes.
func (p *Plane) purgeAndExit(ctx context.Context) {
	if !atomic.CompareAndSwapInt32(&p.purging, 0, 1) {
		p.logger.Debug().Msg("purge already in progress, dropping signal")
		return
	}

	if err := p.reconciler.PurgeNow(ctx); err != nil {
		p.logger.Error().Err(err).Msg("purge cycle failed")
		os.Exit(1)
	}
	p.logger.Info().Msg("purge cycle complete, exiting")
	os.Exit(0)
}

func (p *Plane) shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := p.listener.Shutdown(shutdownCtx); err != nil {
		p.logger.Error().Err(err).Msg("listener shutdown error")
	}
	p.reconciler.Stop()
	p.logger.Info().Msg("shutdown complete")
	return nil
}
