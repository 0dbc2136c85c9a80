package ingest

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/openchami/redfish-relay/pkg/config"
	"github.com/openchami/redfish-relay/pkg/events"
	"github.com/openchami/redfish-relay/pkg/log"
	"github.com/openchami/redfish-relay/pkg/metrics"
	"github.com/openchami/redfish-relay/pkg/resolver"
	"github.com/openchami/redfish-relay/pkg/types"
	"github.com/rs/zerolog"
)

// job is one unit of ingest work: a request's raw body plus the context
// needed to classify and attribute it. A zero-value job with sentinel set
// true is the lane shutdown signal.
type job struct {
	path     string
	clientIP string
	body     []byte
	sentinel bool
}

// Lane decodes, classifies, samples, dedups, and emits events from one
// sticky slice of clients. It owns its input channel, its bus session, and
// all of its sampling/dedup state; nothing about a Lane is shared with any
// other lane.
type Lane struct {
	idx    int
	input  chan job
	next   chan job
	cfg    *config.Config
	res    *resolver.Resolver
	alerts *events.Broker
	bus    BusProducer

	sampling *samplingState
	skew     *skewTracker
	logger   zerolog.Logger

	clusterName string
}

// NewLane constructs a lane. next is the following lane's input channel
// (nil for the last lane in the ring), used only to forward the shutdown
// sentinel.
func NewLane(idx int, cfg *config.Config, res *resolver.Resolver, alerts *events.Broker, bus BusProducer, next chan job) *Lane {
	hostname, _ := os.Hostname()
	return &Lane{
		idx:         idx,
		input:       make(chan job, 256),
		next:        next,
		cfg:         cfg,
		res:         res,
		alerts:      alerts,
		bus:         bus,
		sampling:    newSamplingState(),
		skew:        newSkewTracker(),
		logger:      log.WithLane(idx),
		clusterName: stripTrailingDigits(hostname),
	}
}

// Run is the lane's consumer loop. It returns when it receives the
// shutdown sentinel, after flushing its bus session and (unless it is the
// last lane) forwarding the sentinel downstream.
func (l *Lane) Run() {
	reapInterval := l.cfg.SamplePeriodDuration() * 10
	if reapInterval <= 0 {
		reapInterval = time.Minute
	}
	ticker := time.NewTicker(reapInterval)
	defer ticker.Stop()

	for {
		select {
		case j, ok := <-l.input:
			if !ok {
				l.shutdown()
				return
			}
			if j.sentinel {
				l.shutdown()
				if l.next != nil {
					l.next <- job{sentinel: true}
				}
				return
			}
			l.process(j)
			l.bus.Poll(0)

		case <-ticker.C:
			evicted := l.sampling.reap(time.Now(), reapInterval)
			if evicted > 0 {
				l.logger.Debug().Int("evicted", evicted).Msg("reaped stale sampling entries")
			}
		}
	}
}

func (l *Lane) shutdown() {
	l.bus.Flush(5000)
	l.bus.Close()
	l.logger.Info().Msg("lane shut down")
}

func (l *Lane) process(j job) {
	switch j.path {
	case "/redfish":
		l.processRedfish(j)
	case "/slingshot":
		l.processSlingshot(j)
	default:
		l.logger.Warn().Str("path", j.path).Msg("unrecognized path, dropping payload")
		metrics.EventsDroppedTotal.WithLabelValues("unknown_path").Inc()
	}
}

// wire decode shapes: presence of a field must be distinguishable from its
// zero value, so optional numeric/string fields that matter for validation
// use pointers here; types.Sensor itself carries no such ambiguity once
// constructed.
type wireEnvelope struct {
	Events []wireEvent `json:"Events"`
}

type wireEvent struct {
	MessageId         string             `json:"MessageId"`
	EventTimestamp    string             `json:"EventTimestamp"`
	Severity          string             `json:"Severity"`
	Message           string             `json:"Message"`
	OriginOfCondition *wireOriginOfCond  `json:"OriginOfCondition"`
	Oem               *wireOem           `json:"Oem"`
}

type wireOriginOfCond struct {
	ODataID string `json:"@odata.id"`
}

type wireOem struct {
	Sensors []wireSensor `json:"Sensors"`
}

type wireSensor struct {
	Location              *string  `json:"Location"`
	Timestamp             *string  `json:"Timestamp"`
	Value                 *float64 `json:"Value"`
	ParentalContext       string   `json:"ParentalContext"`
	ParentalIndex         *int     `json:"ParentalIndex"`
	PhysicalContext       string   `json:"PhysicalContext"`
	Index                 *int     `json:"Index"`
	DeviceSpecificContext string   `json:"DeviceSpecificContext"`
	PhysicalSubContext    string   `json:"PhysicalSubContext"`
	SubIndex              *int     `json:"SubIndex"`
}

func (l *Lane) decode(body []byte) (wireEnvelope, bool) {
	var env wireEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		l.logger.Warn().Err(err).Msg("malformed payload, dropping")
		metrics.EventsDroppedTotal.WithLabelValues("decode_error").Inc()
		return wireEnvelope{}, false
	}
	return env, true
}

// dedupEntry is one payload-local candidate for a given SensorName: the
// sample with the largest timestamp wins, ties kept at first-seen.
type dedupEntry struct {
	rec       types.RedfishCrayOemSensors
	timestamp int64
}

func (l *Lane) processRedfish(j job) {
	env, ok := l.decode(j.body)
	if !ok {
		return
	}

	dedup := make(map[string]dedupEntry)

	for _, ev := range env.Events {
		if strings.HasPrefix(ev.MessageId, "CrayTelemetry.") {
			metrics.EventsReceivedTotal.WithLabelValues(j.path, "telemetry").Inc()
			l.processTelemetryEvent(j.clientIP, ev, dedup)
			continue
		}
		metrics.EventsReceivedTotal.WithLabelValues(j.path, "generic").Inc()
		l.processGenericEvent(j.clientIP, ev)
	}

	for name, entry := range dedup {
		rec := entry.rec
		rec.SensorName = name
		if err := l.bus.EmitTelemetry(rec); err != nil {
			l.logger.Error().Err(err).Str("sensor_name", name).Msg("bus delivery error")
			metrics.BusDeliveryErrorsTotal.WithLabelValues("craytelemetry").Inc()
			continue
		}
		metrics.SamplesEmittedTotal.WithLabelValues("craytelemetry").Inc()
		metrics.BusDeliveredTotal.WithLabelValues("craytelemetry").Inc()
	}
}

func (l *Lane) processTelemetryEvent(clientIP string, ev wireEvent, dedup map[string]dedupEntry) {
	now := time.Now()
	if !l.sampling.accept(clientIP, ev.MessageId, now, l.cfg.SamplePeriodDuration()) {
		metrics.SamplingDroppedTotal.Inc()
		return
	}

	eventName := strings.TrimPrefix(ev.MessageId, "CrayTelemetry.")
	location := l.res.Resolve(clientIP)

	if ev.Oem == nil {
		return
	}
	for _, sensor := range ev.Oem.Sensors {
		if sensor.Location == nil || sensor.Timestamp == nil || sensor.Value == nil {
			l.logger.Warn().Msg("sensor missing required field, skipping")
			continue
		}

		rec := types.RedfishCrayOemSensors{
			Location:              *sensor.Location,
			Value:                 *sensor.Value,
			ParentalContext:       sensor.ParentalContext,
			ParentalIndex:         intOrDefault(sensor.ParentalIndex, -1),
			PhysicalContext:       sensor.PhysicalContext,
			Index:                 intOrDefault(sensor.Index, -1),
			DeviceSpecificContext: sensor.DeviceSpecificContext,
			PhysicalSubContext:    sensor.PhysicalSubContext,
			EventName:             eventName,
			Cluster:               l.clusterName,
			Timestamp:             parseSampleTime(*sensor.Timestamp, location, skewLimit(l.cfg), l.skew, l.logger),
		}
		name := composeSensorName(rec)

		existing, ok := dedup[name]
		if !ok || rec.Timestamp > existing.timestamp {
			dedup[name] = dedupEntry{rec: rec, timestamp: rec.Timestamp}
		}
	}
}

func composeSensorName(rec types.RedfishCrayOemSensors) string {
	return rec.ParentalContext +
		strconv.Itoa(rec.ParentalIndex) +
		rec.PhysicalContext +
		strconv.Itoa(rec.Index) +
		rec.DeviceSpecificContext +
		rec.PhysicalSubContext +
		rec.EventName
}

func (l *Lane) processGenericEvent(clientIP string, ev wireEvent) {
	location := l.res.Resolve(clientIP)
	origin := ""
	if ev.OriginOfCondition != nil {
		origin = ev.OriginOfCondition.ODataID
	}

	rec := types.RedfishCrayEvents{
		Timestamp:         parseSampleTime(ev.EventTimestamp, location, skewLimit(l.cfg), l.skew, l.logger),
		Location:          location,
		MessageId:         ev.MessageId,
		Severity:          ev.Severity,
		Message:           ev.Message,
		OriginOfCondition: origin,
		SyslogLevel:       severityToSyslog(ev.Severity),
		Cluster:           l.clusterName,
	}

	if err := l.bus.EmitGenericEvent(rec); err != nil {
		l.logger.Error().Err(err).Msg("bus delivery error")
		metrics.BusDeliveryErrorsTotal.WithLabelValues("crayevents").Inc()
	} else {
		metrics.BusDeliveredTotal.WithLabelValues("crayevents").Inc()
	}

	if l.cfg.General.LogAlerts && l.alerts != nil {
		l.alerts.Publish(&events.Alert{
			Timestamp:         time.UnixMilli(rec.Timestamp),
			Location:          rec.Location,
			MessageID:         rec.MessageId,
			Severity:          rec.Severity,
			Message:           rec.Message,
			OriginOfCondition: rec.OriginOfCondition,
		})
	}
}

func severityToSyslog(severity string) string {
	switch severity {
	case "OK":
		return "information"
	case "Warning":
		return "warning"
	case "Critical":
		return "error"
	default:
		return "unknown"
	}
}

func (l *Lane) processSlingshot(j job) {
	env, ok := l.decode(j.body)
	if !ok {
		return
	}

	for _, ev := range env.Events {
		if !strings.HasPrefix(ev.MessageId, "CrayFabricHealth") {
			l.logger.Debug().Str("message_id", ev.MessageId).Msg("non-health event on slingshot path, dropping")
			metrics.EventsDroppedTotal.WithLabelValues("not_health").Inc()
			continue
		}
		metrics.EventsReceivedTotal.WithLabelValues(j.path, "health").Inc()
		l.processHealthEvent(j.clientIP, ev)
	}
}

func (l *Lane) processHealthEvent(clientIP string, ev wireEvent) {
	if ev.Oem == nil || len(ev.Oem.Sensors) == 0 {
		l.logger.Warn().Msg("health event carries no sensors, dropping")
		return
	}
	if len(ev.Oem.Sensors) > 1 {
		l.logger.Warn().Int("count", len(ev.Oem.Sensors)).Msg("health event carries multiple sensors, using first only")
	}

	s := ev.Oem.Sensors[0]
	location := l.res.Resolve(clientIP)
	if s.Location != nil {
		location = *s.Location
	}

	message := ""
	if s.Value != nil {
		message = fmt.Sprintf("%v", *s.Value)
	}

	rec := types.CrayFabricHealth{
		Timestamp:       time.Now().UnixMilli(),
		Location:        location,
		MessageId:       ev.MessageId,
		Message:         message,
		Group:           intOrDefault(s.ParentalIndex, 0),
		Switch:          intOrDefault(s.Index, 0),
		Port:            intOrDefault(s.SubIndex, 0),
		Severity:        s.PhysicalSubContext,
		PhysicalContext: s.PhysicalContext,
		Cluster:         l.clusterName,
	}

	if err := l.bus.EmitHealth(rec); err != nil {
		l.logger.Error().Err(err).Msg("bus delivery error")
		metrics.BusDeliveryErrorsTotal.WithLabelValues("crayfabrichealth").Inc()
	} else {
		metrics.BusDeliveredTotal.WithLabelValues("crayfabrichealth").Inc()
	}
}

func intOrDefault(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}

func skewLimit(cfg *config.Config) time.Duration {
	return time.Duration(cfg.General.ClockSkewLimitSec) * time.Second
}

func stripTrailingDigits(s string) string {
	i := len(s)
	for i > 0 && s[i-1] >= '0' && s[i-1] <= '9' {
		i--
	}
	return s[:i]
}
