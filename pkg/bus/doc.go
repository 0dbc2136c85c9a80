// Package bus implements the Bus Producer: a schema-registry-aware,
// asynchronous publisher for the three outbound record families
// (telemetry, generic events, health).
//
// Each record family owns an Avro schema (schema.go) and a subject
// registered with the schema registry; encoding wraps the Avro binary
// payload in the registry wire format (a leading magic byte and the
// 4-byte schema ID) before handing it to the underlying Kafka producer.
// Submission is non-blocking: Produce enqueues onto the client's internal
// queue and returns immediately, with delivery outcome reported
// asynchronously through the client's event channel, which a background
// goroutine started by NewProducer drains and logs.
package bus
