package bus

import (
	"encoding/binary"
	"fmt"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/hamba/avro/v2"
	"github.com/openchami/redfish-relay/pkg/log"
	"github.com/openchami/redfish-relay/pkg/metrics"
	"github.com/openchami/redfish-relay/pkg/types"
	"github.com/riferrei/srclient"
	"github.com/rs/zerolog"
)

// recordCodec is one record family's Avro schema plus its registered
// schema-registry ID and destination topic.
type recordCodec struct {
	schema   avro.Schema
	schemaID int
	topic    string
}

func newRecordCodec(registry *srclient.SchemaRegistryClient, subject, topic, schemaJSON string) (*recordCodec, error) {
	schema, err := avro.Parse(schemaJSON)
	if err != nil {
		return nil, fmt.Errorf("parsing avro schema for %s: %w", subject, err)
	}

	regSchema, err := registry.CreateSchema(subject, schemaJSON, srclient.Avro)
	if err != nil {
		return nil, fmt.Errorf("registering schema for subject %s: %w", subject, err)
	}

	return &recordCodec{schema: schema, schemaID: regSchema.ID(), topic: topic}, nil
}

// encode wraps v's Avro binary encoding in the registry wire format: a
// leading magic byte (0x0) followed by the big-endian 4-byte schema ID.
func (c *recordCodec) encode(v any) ([]byte, error) {
	body, err := avro.Marshal(c.schema, v)
	if err != nil {
		return nil, err
	}

	wire := make([]byte, 5+len(body))
	wire[0] = 0x0
	binary.BigEndian.PutUint32(wire[1:5], uint32(c.schemaID))
	copy(wire[5:], body)
	return wire, nil
}

// Producer publishes the three record families to Kafka, schema-registry
// wire-encoded, through a single confluent-kafka-go Producer session.
type Producer struct {
	kafka *kafka.Producer

	telemetry *recordCodec
	events    *recordCodec
	health    *recordCodec

	logger zerolog.Logger
}

// NewProducer builds a Producer from the bus and schema-registry
// configuration maps, passed through opaquely from the config document,
// plus the configured topic prefix for the prefixed topics.
func NewProducer(busCfg map[string]string, schemaRegistryCfg map[string]string, topicPrefix string) (*Producer, error) {
	kafkaConfig := &kafka.ConfigMap{}
	for k, v := range busCfg {
		if err := kafkaConfig.SetKey(k, v); err != nil {
			return nil, fmt.Errorf("bus config key %q: %w", k, err)
		}
	}

	producer, err := kafka.NewProducer(kafkaConfig)
	if err != nil {
		return nil, fmt.Errorf("creating kafka producer: %w", err)
	}

	registryURL := schemaRegistryCfg["url"]
	registry := srclient.CreateSchemaRegistryClient(registryURL)

	telemetryTopic := topicPrefix + "craytelemetry"
	eventsTopic := topicPrefix + "crayevents"
	healthTopic := "crayfabrichealth"

	telemetryCodec, err := newRecordCodec(registry, telemetryTopic+"-value", telemetryTopic, telemetrySchemaJSON)
	if err != nil {
		producer.Close()
		return nil, err
	}
	eventsCodec, err := newRecordCodec(registry, eventsTopic+"-value", eventsTopic, eventsSchemaJSON)
	if err != nil {
		producer.Close()
		return nil, err
	}
	healthCodec, err := newRecordCodec(registry, healthTopic+"-value", healthTopic, healthSchemaJSON)
	if err != nil {
		producer.Close()
		return nil, err
	}

	p := &Producer{
		kafka:     producer,
		telemetry: telemetryCodec,
		events:    eventsCodec,
		health:    healthCodec,
		logger:    log.WithComponent("bus"),
	}

	go p.logDeliveryReports()

	return p, nil
}

// logDeliveryReports drains the producer's event stream and logs each
// delivery outcome at trace level, per record.
func (p *Producer) logDeliveryReports() {
	for e := range p.kafka.Events() {
		msg, ok := e.(*kafka.Message)
		if !ok {
			continue
		}
		topic := ""
		if msg.TopicPartition.Topic != nil {
			topic = *msg.TopicPartition.Topic
		}
		if msg.TopicPartition.Error != nil {
			p.logger.Trace().Str("topic", topic).Err(msg.TopicPartition.Error).Msg("bus delivery failed")
			metrics.BusDeliveryErrorsTotal.WithLabelValues(topic).Inc()
			continue
		}
		p.logger.Trace().Str("topic", topic).Msg("bus delivery succeeded")
	}
}

func (p *Producer) produce(c *recordCodec, v any) error {
	wire, err := c.encode(v)
	if err != nil {
		metrics.SchemaErrorsTotal.WithLabelValues(c.topic).Inc()
		return fmt.Errorf("encoding record for topic %s: %w", c.topic, err)
	}

	topic := c.topic
	return p.kafka.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
		Value:          wire,
	}, nil)
}

func (p *Producer) EmitTelemetry(rec types.RedfishCrayOemSensors) error {
	return p.produce(p.telemetry, rec)
}

func (p *Producer) EmitGenericEvent(rec types.RedfishCrayEvents) error {
	return p.produce(p.events, rec)
}

func (p *Producer) EmitHealth(rec types.CrayFabricHealth) error {
	return p.produce(p.health, rec)
}

func (p *Producer) Poll(timeoutMs int) { p.kafka.Poll(timeoutMs) }

func (p *Producer) Flush(timeoutMs int) { p.kafka.Flush(timeoutMs) }

func (p *Producer) Close() { p.kafka.Close() }
