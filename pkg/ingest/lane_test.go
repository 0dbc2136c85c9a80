package ingest

import (
	"sync"
	"testing"
	"time"

	"github.com/openchami/redfish-relay/pkg/config"
	"github.com/openchami/redfish-relay/pkg/events"
	"github.com/openchami/redfish-relay/pkg/resolver"
	"github.com/openchami/redfish-relay/pkg/types"
)

type fakeBus struct {
	mu        sync.Mutex
	telemetry []types.RedfishCrayOemSensors
	generic   []types.RedfishCrayEvents
	health    []types.CrayFabricHealth
	closed    bool
}

func (f *fakeBus) EmitTelemetry(rec types.RedfishCrayOemSensors) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.telemetry = append(f.telemetry, rec)
	return nil
}

func (f *fakeBus) EmitGenericEvent(rec types.RedfishCrayEvents) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.generic = append(f.generic, rec)
	return nil
}

func (f *fakeBus) EmitHealth(rec types.CrayFabricHealth) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.health = append(f.health, rec)
	return nil
}

func (f *fakeBus) Poll(timeoutMs int)  {}
func (f *fakeBus) Flush(timeoutMs int) {}
func (f *fakeBus) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.General.SamplePeriod = 10
	cfg.General.ClockSkewLimitSec = 3600
	cfg.General.WorkerCount = 1
	cfg.General.LogAlerts = true
	return cfg
}

func newTestLane(bus *fakeBus) *Lane {
	cfg := testConfig()
	res := resolver.New()
	broker := events.NewBroker()
	return NewLane(0, cfg, res, broker, bus, nil)
}

const telemetryPayload = `{
  "Events": [
    {
      "MessageId": "CrayTelemetry.Temperature",
      "EventTimestamp": "2026-07-31T00:00:00.000000+00:00",
      "Oem": {
        "Sensors": [
          {
            "Location": "x1000c0s0b0n0",
            "Timestamp": "2026-07-31T00:00:00.000000+00:00",
            "Value": 42.0,
            "ParentalContext": "Node",
            "ParentalIndex": 0,
            "PhysicalContext": "CPU",
            "Index": 0,
            "DeviceSpecificContext": "",
            "PhysicalSubContext": ""
          }
        ]
      }
    }
  ]
}`

func TestProcessRedfish_TelemetryDedupKeepsLatestTimestamp(t *testing.T) {
	bus := &fakeBus{}
	lane := newTestLane(bus)
	// The fixture carries fixed dates; widen the skew limit so both sample
	// timestamps are kept as parsed instead of being replaced by wall-clock.
	lane.cfg.General.ClockSkewLimitSec = 10 * 365 * 24 * 3600

	// Both samples sit in one event: a second event with the same MessageId
	// from the same client would be dropped by per-client sampling.
	body := []byte(`{
  "Events": [
    {
      "MessageId": "CrayTelemetry.Temperature",
      "EventTimestamp": "2026-07-31T00:00:00.000000+00:00",
      "Oem": {"Sensors": [
        {"Location": "x1000c0s0b0n0", "Timestamp": "2026-07-31T00:00:00.000000+00:00", "Value": 10.0,
         "ParentalContext": "Node", "ParentalIndex": 0, "PhysicalContext": "CPU", "Index": 0},
        {"Location": "x1000c0s0b0n0", "Timestamp": "2026-07-31T00:00:05.000000+00:00", "Value": 20.0,
         "ParentalContext": "Node", "ParentalIndex": 0, "PhysicalContext": "CPU", "Index": 0}
      ]}
    }
  ]
}`)

	lane.processRedfish(job{path: "/redfish", clientIP: "10.0.0.1", body: body})

	if len(bus.telemetry) != 1 {
		t.Fatalf("expected exactly 1 emitted sample after dedup, got %d", len(bus.telemetry))
	}
	if bus.telemetry[0].Value != 20.0 {
		t.Errorf("expected the later sample (20.0) to win, got %v", bus.telemetry[0].Value)
	}
}

func TestProcessTelemetryEvent_SamplingDropsWithinPeriod(t *testing.T) {
	bus := &fakeBus{}
	lane := newTestLane(bus)

	lane.processRedfish(job{path: "/redfish", clientIP: "10.0.0.2", body: []byte(telemetryPayload)})
	lane.processRedfish(job{path: "/redfish", clientIP: "10.0.0.2", body: []byte(telemetryPayload)})

	if len(bus.telemetry) != 1 {
		t.Fatalf("expected second event from same client_ip+MessageId within sample_period to be dropped, got %d emitted", len(bus.telemetry))
	}
}

func TestComposeSensorName(t *testing.T) {
	rec := types.RedfishCrayOemSensors{
		ParentalContext:       "Node",
		ParentalIndex:         1,
		PhysicalContext:       "CPU",
		Index:                 2,
		DeviceSpecificContext: "Core",
		PhysicalSubContext:    "Temp",
		EventName:             "Temperature",
	}
	got := composeSensorName(rec)
	want := "Node1CPU2CoreTempTemperature"
	if got != want {
		t.Errorf("composeSensorName() = %q, want %q", got, want)
	}
}

func TestProcessGenericEvent_MapsSeverityAndPublishesAlert(t *testing.T) {
	bus := &fakeBus{}
	lane := newTestLane(bus)
	sub := lane.alerts.Subscribe()
	defer lane.alerts.Unsubscribe(sub)
	lane.alerts.Start()
	defer lane.alerts.Stop()

	ev := wireEvent{
		MessageId:      "ResourceEvent.1.0.ResourceChanged",
		EventTimestamp: "2026-07-31T00:00:00.000000+00:00",
		Severity:       "Critical",
		Message:        "something broke",
		OriginOfCondition: &wireOriginOfCond{
			ODataID: "/redfish/v1/Systems/1",
		},
	}
	lane.processGenericEvent("10.0.0.3", ev)

	if len(bus.generic) != 1 {
		t.Fatalf("expected 1 generic event emitted, got %d", len(bus.generic))
	}
	if bus.generic[0].SyslogLevel != "error" {
		t.Errorf("Critical should map to syslog level error, got %q", bus.generic[0].SyslogLevel)
	}

	select {
	case alert := <-sub:
		if alert.Severity != "Critical" {
			t.Errorf("alert severity = %q, want Critical", alert.Severity)
		}
	case <-time.After(time.Second):
		t.Fatal("expected alert to be published to broker")
	}
}

func TestSeverityToSyslog(t *testing.T) {
	cases := map[string]string{
		"OK":       "information",
		"Warning":  "warning",
		"Critical": "error",
		"Bogus":    "unknown",
	}
	for in, want := range cases {
		if got := severityToSyslog(in); got != want {
			t.Errorf("severityToSyslog(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestProcessHealthEvent_UsesFirstSensorOnly(t *testing.T) {
	bus := &fakeBus{}
	lane := newTestLane(bus)

	loc1 := "rack1-switch1"
	ev := wireEvent{
		MessageId: "CrayFabricHealthFault",
		Severity:  "Warning",
		Oem: &wireOem{
			Sensors: []wireSensor{
				{Location: &loc1, PhysicalSubContext: "Port"},
				{Location: &loc1, PhysicalSubContext: "Port"},
			},
		},
	}
	lane.processHealthEvent("10.0.0.4", ev)

	if len(bus.health) != 1 {
		t.Fatalf("expected 1 health record emitted, got %d", len(bus.health))
	}
	if bus.health[0].Location != loc1 {
		t.Errorf("health record location = %q, want %q", bus.health[0].Location, loc1)
	}
}

func TestProcessHealthEvent_NoSensorsDropsSilently(t *testing.T) {
	bus := &fakeBus{}
	lane := newTestLane(bus)

	lane.processHealthEvent("10.0.0.5", wireEvent{MessageId: "CrayFabricHealthFault"})

	if len(bus.health) != 0 {
		t.Fatalf("expected no health record emitted for a sensorless event, got %d", len(bus.health))
	}
}

func TestProcess_UnrecognizedPathDropsPayload(t *testing.T) {
	bus := &fakeBus{}
	lane := newTestLane(bus)

	lane.process(job{path: "/unknown", clientIP: "10.0.0.6", body: []byte(`{}`)})

	if len(bus.telemetry)+len(bus.generic)+len(bus.health) != 0 {
		t.Fatal("expected no records emitted for an unrecognized path")
	}
}

func TestDecode_MalformedPayloadIsDropped(t *testing.T) {
	bus := &fakeBus{}
	lane := newTestLane(bus)

	if _, ok := lane.decode([]byte(`not json`)); ok {
		t.Error("expected decode to report failure for malformed JSON")
	}
}

func TestLaneRun_SentinelShutsDownAndForwards(t *testing.T) {
	bus1 := &fakeBus{}
	bus2 := &fakeBus{}

	lane2 := NewLane(1, testConfig(), resolver.New(), events.NewBroker(), bus2, nil)
	lane1 := NewLane(0, testConfig(), resolver.New(), events.NewBroker(), bus1, lane2.input)

	done := make(chan struct{})
	go func() {
		lane1.Run()
		close(done)
	}()

	lane1.input <- job{sentinel: true}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("lane1 did not shut down on sentinel")
	}

	select {
	case j := <-lane2.input:
		if !j.sentinel {
			t.Fatal("expected forwarded job to be the sentinel")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("sentinel was not forwarded to the next lane")
	}

	if !bus1.closed {
		t.Error("expected lane1's bus session to be closed on shutdown")
	}
}
