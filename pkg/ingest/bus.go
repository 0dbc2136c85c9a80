package ingest

import "github.com/openchami/redfish-relay/pkg/types"

// BusProducer is the subset of the bus package's Producer each lane needs,
// narrowed to an interface so a lane can be tested without a real broker
// connection.
type BusProducer interface {
	EmitTelemetry(rec types.RedfishCrayOemSensors) error
	EmitGenericEvent(rec types.RedfishCrayEvents) error
	EmitHealth(rec types.CrayFabricHealth) error
	Poll(timeoutMs int)
	Flush(timeoutMs int)
	Close()
}
