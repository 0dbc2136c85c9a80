package main

import (
	"context"
	"fmt"
	"time"

	"github.com/openchami/redfish-relay/pkg/config"
	"github.com/openchami/redfish-relay/pkg/control"
	"github.com/openchami/redfish-relay/pkg/health"
	"github.com/openchami/redfish-relay/pkg/ingest"
	"github.com/openchami/redfish-relay/pkg/log"
	"github.com/openchami/redfish-relay/pkg/reconciler"
	"github.com/openchami/redfish-relay/pkg/resolver"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the relay: reconcile subscriptions and ingest pushed events",
	Long: `serve runs both halves of the relay for the life of the process: the
Subscription Reconciler's periodic fleet-wide convergence loop, and the
Ingest Listener's HTTP receiver with its worker lanes.

It blocks until SIGTERM/SIGINT, or responds in place to SIGHUP/SIGUSR1
(reload config and reconcile) and SIGUSR2 (purge and exit).`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	configPath, _ := rootCmd.PersistentFlags().GetString("config")

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	res := resolver.New()

	alertBroker, alertWriter, err := wireAlerts(cfg)
	if err != nil {
		return fmt.Errorf("wiring alerts: %w", err)
	}
	defer alertBroker.Stop()
	if alertWriter != nil {
		defer alertWriter.Close()
	}

	listener, err := ingest.NewListener(cfg, res, alertBroker, busFactory(cfg))
	if err != nil {
		return fmt.Errorf("starting ingest listener: %w", err)
	}

	rec := reconciler.New(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := listener.ListenAndServe(); err != nil {
			log.WithComponent("serve").Error().Err(err).Msg("ingest listener exited")
		}
	}()
	go listener.Supervise(ctx)
	go rec.Run(ctx)

	healthServer := health.NewServer(cfg.General.StatusAddress, health.DefaultConfig(),
		health.NewFuncChecker("reconciler", func(ctx context.Context) health.Result {
			if rec.Ready() {
				return health.Result{Healthy: true, Message: "completed at least one cycle", CheckedAt: time.Now()}
			}
			return health.Result{Healthy: false, Message: "no reconcile cycle completed yet", CheckedAt: time.Now()}
		}),
		health.NewFuncChecker("listener", func(ctx context.Context) health.Result {
			if listener.Ready() {
				return health.Result{Healthy: true, Message: "accepting connections", CheckedAt: time.Now()}
			}
			return health.Result{Healthy: false, Message: "not yet bound", CheckedAt: time.Now()}
		}),
	)
	go func() {
		if err := healthServer.ListenAndServe(); err != nil {
			log.WithComponent("serve").Error().Err(err).Msg("status server exited")
		}
	}()

	plane := control.New(configPath, rec, listener)
	err = plane.Run(ctx)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if shutdownErr := healthServer.Shutdown(shutdownCtx); shutdownErr != nil {
		log.WithComponent("serve").Warn().Err(shutdownErr).Msg("status server shutdown error")
	}

	return err
}
