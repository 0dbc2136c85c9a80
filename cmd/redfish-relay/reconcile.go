package main

import (
	"context"
	"fmt"

	"github.com/openchami/redfish-relay/pkg/config"
	"github.com/openchami/redfish-relay/pkg/reconciler"
	"github.com/spf13/cobra"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Run a single fleet-wide reconcile cycle and exit",
	Long: `reconcile loads the configuration, converges every configured endpoint's
live subscriptions onto the desired set once, and exits. It does not start
the ingest listener.`,
	RunE: runReconcile,
}

func init() {
	rootCmd.AddCommand(reconcileCmd)
}

func runReconcile(cmd *cobra.Command, args []string) error {
	configPath, _ := rootCmd.PersistentFlags().GetString("config")

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	rec := reconciler.New(cfg)
	if err := rec.ReconcileNow(context.Background()); err != nil {
		return fmt.Errorf("reconcile: %w", err)
	}
	return nil
}
