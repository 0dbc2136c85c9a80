package bus

import (
	"github.com/openchami/redfish-relay/pkg/log"
	"github.com/openchami/redfish-relay/pkg/types"
	"github.com/rs/zerolog"
)

// NoopProducer satisfies the same contract as Producer but only logs
// records instead of publishing them, for the general.no_kafka escape
// hatch (local runs) where no broker is available.
type NoopProducer struct {
	logger zerolog.Logger
}

// NewNoopProducer builds a NoopProducer.
func NewNoopProducer() *NoopProducer {
	return &NoopProducer{logger: log.WithComponent("bus-noop")}
}

func (n *NoopProducer) EmitTelemetry(rec types.RedfishCrayOemSensors) error {
	n.logger.Debug().Str("sensor_name", rec.SensorName).Msg("no_kafka: dropping telemetry record")
	return nil
}

func (n *NoopProducer) EmitGenericEvent(rec types.RedfishCrayEvents) error {
	n.logger.Debug().Str("message_id", rec.MessageId).Msg("no_kafka: dropping generic event")
	return nil
}

func (n *NoopProducer) EmitHealth(rec types.CrayFabricHealth) error {
	n.logger.Debug().Str("message_id", rec.MessageId).Msg("no_kafka: dropping health record")
	return nil
}

func (n *NoopProducer) Poll(timeoutMs int)  {}
func (n *NoopProducer) Flush(timeoutMs int) {}
func (n *NoopProducer) Close()              {}
