package main

import (
	"fmt"
	"os"

	"github.com/openchami/redfish-relay/pkg/config"
	"github.com/openchami/redfish-relay/pkg/log"
	"github.com/spf13/cobra"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "redfish-relay",
	Short: "Redfish event relay for a BMC fleet",
	Long: `redfish-relay reconciles Redfish event subscriptions across a fleet of
baseboard management controllers and relays the events they push back to
this process into a message bus, deduplicated and schema-validated.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"redfish-relay version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("config", "/etc/redfish-relay/config.yaml", "path to the configuration document")
	rootCmd.PersistentFlags().String("log-level", "", "override general.log_level from the config file")
	rootCmd.PersistentFlags().Bool("log-json", false, "emit logs as JSON instead of console output")

	cobra.OnInitialize(initLogging)
}

func initLogging() {
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")
	levelFlag, _ := rootCmd.PersistentFlags().GetString("log-level")

	level := log.InfoLevel
	if levelFlag != "" {
		level = log.Level(levelFlag)
	} else if configPath, _ := rootCmd.PersistentFlags().GetString("config"); configPath != "" {
		if cfg, err := config.Load(configPath); err == nil {
			level = log.Level(cfg.General.LogLevel)
		}
	}

	log.Init(log.Config{
		Level:      level,
		JSONOutput: logJSON,
	})
}
