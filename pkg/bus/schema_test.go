package bus

import (
	"testing"

	"github.com/hamba/avro/v2"
	"github.com/openchami/redfish-relay/pkg/types"
)

func TestTelemetrySchema_RoundTrips(t *testing.T) {
	schema, err := avro.Parse(telemetrySchemaJSON)
	if err != nil {
		t.Fatalf("avro.Parse() error = %v", err)
	}

	in := types.RedfishCrayOemSensors{
		Timestamp:             1700000000000,
		Location:              "x1000c0s0b0n0",
		Index:                 1,
		ParentalContext:       "Node",
		ParentalIndex:         0,
		PhysicalContext:       "CPU",
		PhysicalSubContext:    "",
		DeviceSpecificContext: "",
		EventName:             "Temperature",
		Value:                 42.5,
		SensorName:            "Node0CPU1Temperature",
		Cluster:               "foo",
	}

	data, err := avro.Marshal(schema, in)
	if err != nil {
		t.Fatalf("avro.Marshal() error = %v", err)
	}

	var out types.RedfishCrayOemSensors
	if err := avro.Unmarshal(schema, data, &out); err != nil {
		t.Fatalf("avro.Unmarshal() error = %v", err)
	}

	if out != in {
		t.Errorf("round-tripped record = %+v, want %+v", out, in)
	}
}

func TestEventsSchema_RoundTrips(t *testing.T) {
	schema, err := avro.Parse(eventsSchemaJSON)
	if err != nil {
		t.Fatalf("avro.Parse() error = %v", err)
	}

	in := types.RedfishCrayEvents{
		Timestamp:         1700000000000,
		Location:          "x1000c0s0b0n0",
		MessageId:         "ResourceEvent.1.0.ResourceChanged",
		Severity:          "Critical",
		Message:           "something broke",
		OriginOfCondition: "/redfish/v1/Systems/1",
		SyslogLevel:       "error",
		Cluster:           "foo",
	}

	data, err := avro.Marshal(schema, in)
	if err != nil {
		t.Fatalf("avro.Marshal() error = %v", err)
	}

	var out types.RedfishCrayEvents
	if err := avro.Unmarshal(schema, data, &out); err != nil {
		t.Fatalf("avro.Unmarshal() error = %v", err)
	}

	if out != in {
		t.Errorf("round-tripped record = %+v, want %+v", out, in)
	}
}

func TestHealthSchema_RoundTrips(t *testing.T) {
	schema, err := avro.Parse(healthSchemaJSON)
	if err != nil {
		t.Fatalf("avro.Parse() error = %v", err)
	}

	in := types.CrayFabricHealth{
		Timestamp:       1700000000000,
		Location:        "rack1-switch1",
		MessageId:       "CrayFabricHealthFault",
		Message:         "42",
		Group:           1,
		Switch:          2,
		Port:            3,
		Severity:        "Warning",
		PhysicalContext: "Port",
		Cluster:         "foo",
	}

	data, err := avro.Marshal(schema, in)
	if err != nil {
		t.Fatalf("avro.Marshal() error = %v", err)
	}

	var out types.CrayFabricHealth
	if err := avro.Unmarshal(schema, data, &out); err != nil {
		t.Fatalf("avro.Unmarshal() error = %v", err)
	}

	if out != in {
		t.Errorf("round-tripped record = %+v, want %+v", out, in)
	}
}

func TestRecordCodec_EncodeWrapsRegistryMagicByteAndSchemaID(t *testing.T) {
	schema, err := avro.Parse(telemetrySchemaJSON)
	if err != nil {
		t.Fatalf("avro.Parse() error = %v", err)
	}

	c := &recordCodec{schema: schema, schemaID: 7, topic: "craytelemetry"}
	wire, err := c.encode(types.RedfishCrayOemSensors{EventName: "Temperature"})
	if err != nil {
		t.Fatalf("encode() error = %v", err)
	}

	if wire[0] != 0x0 {
		t.Errorf("wire[0] = %#x, want magic byte 0x0", wire[0])
	}
	schemaID := uint32(wire[1])<<24 | uint32(wire[2])<<16 | uint32(wire[3])<<8 | uint32(wire[4])
	if schemaID != 7 {
		t.Errorf("encoded schema ID = %d, want 7", schemaID)
	}
}
