package main

import (
	"fmt"

	"github.com/openchami/redfish-relay/pkg/alerts"
	"github.com/openchami/redfish-relay/pkg/bus"
	"github.com/openchami/redfish-relay/pkg/config"
	"github.com/openchami/redfish-relay/pkg/events"
	"github.com/openchami/redfish-relay/pkg/ingest"
)

// busFactory returns the ingest.BusFactory this configuration calls for:
// a real schema-registry-aware Kafka producer per lane, or a logging
// no-op when general.no_kafka opts out of a broker dependency.
func busFactory(cfg *config.Config) ingest.BusFactory {
	if cfg.General.NoKafka {
		return func() (ingest.BusProducer, error) {
			return bus.NewNoopProducer(), nil
		}
	}
	return func() (ingest.BusProducer, error) {
		return bus.NewProducer(cfg.Bus, cfg.SchemaRegistry, cfg.General.TopicPrefix)
	}
}

// wireAlerts starts the alert broker and, when general.log_alerts is set,
// the flat-file writer subscribed to it. Callers must Stop the broker and
// Close the writer (if non-nil) on shutdown.
func wireAlerts(cfg *config.Config) (*events.Broker, *alerts.Writer, error) {
	broker := events.NewBroker()
	broker.Start()

	if !cfg.General.LogAlerts {
		return broker, nil, nil
	}
	if cfg.General.LogAlertsFile == "" {
		return nil, nil, fmt.Errorf("general.log_alerts is true but general.log_alerts_file is empty")
	}

	writer, err := alerts.NewWriter(cfg.General.LogAlertsFile)
	if err != nil {
		broker.Stop()
		return nil, nil, err
	}

	sub := broker.Subscribe()
	go writer.Run(sub)

	return broker, writer, nil
}
