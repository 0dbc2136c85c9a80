package main

import (
	"context"
	"fmt"

	"github.com/openchami/redfish-relay/pkg/config"
	"github.com/openchami/redfish-relay/pkg/reconciler"
	"github.com/spf13/cobra"
)

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Tear down this relay's subscriptions fleet-wide and exit",
	Long: `purge runs a single reconcile cycle that treats the desired set as
empty for every configured endpoint, removing only the subscriptions this
relay owns (namespace-prefix scoped, or every unrecognized subscription
when general.purge_unrecognized is set), then exits.

This is the same operation SIGUSR2 triggers on a running process.`,
	RunE: runPurge,
}

func init() {
	rootCmd.AddCommand(purgeCmd)
}

func runPurge(cmd *cobra.Command, args []string) error {
	configPath, _ := rootCmd.PersistentFlags().GetString("config")

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	rec := reconciler.New(cfg)
	if err := rec.PurgeNow(context.Background()); err != nil {
		return fmt.Errorf("purge: %w", err)
	}
	return nil
}
