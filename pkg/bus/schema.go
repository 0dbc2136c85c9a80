package bus

// Avro schemas for the three outbound record families, matching the
// types.RedfishCrayOemSensors / types.RedfishCrayEvents /
// types.CrayFabricHealth field lists exactly so that hamba/avro's
// reflection-based codec can marshal them without a generated mapping.

const telemetrySchemaJSON = `{
  "type": "record",
  "name": "RedfishCrayOemSensors",
  "namespace": "org.openchami.relay",
  "fields": [
    {"name": "Timestamp", "type": "long"},
    {"name": "Location", "type": "string"},
    {"name": "Index", "type": "int"},
    {"name": "ParentalContext", "type": "string"},
    {"name": "ParentalIndex", "type": "int"},
    {"name": "PhysicalContext", "type": "string"},
    {"name": "PhysicalSubContext", "type": "string"},
    {"name": "DeviceSpecificContext", "type": "string"},
    {"name": "EventName", "type": "string"},
    {"name": "Value", "type": "double"},
    {"name": "SensorName", "type": "string"},
    {"name": "Cluster", "type": "string"}
  ]
}`

const eventsSchemaJSON = `{
  "type": "record",
  "name": "RedfishCrayEvents",
  "namespace": "org.openchami.relay",
  "fields": [
    {"name": "Timestamp", "type": "long"},
    {"name": "Location", "type": "string"},
    {"name": "MessageId", "type": "string"},
    {"name": "Severity", "type": "string"},
    {"name": "Message", "type": "string"},
    {"name": "OriginOfCondition", "type": "string"},
    {"name": "SyslogLevel", "type": "string"},
    {"name": "Cluster", "type": "string"}
  ]
}`

const healthSchemaJSON = `{
  "type": "record",
  "name": "CrayFabricHealth",
  "namespace": "org.openchami.relay",
  "fields": [
    {"name": "Timestamp", "type": "long"},
    {"name": "Location", "type": "string"},
    {"name": "MessageId", "type": "string"},
    {"name": "Message", "type": "string"},
    {"name": "Group", "type": "int"},
    {"name": "Switch", "type": "int"},
    {"name": "Port", "type": "int"},
    {"name": "Severity", "type": "string"},
    {"name": "PhysicalContext", "type": "string"},
    {"name": "Cluster", "type": "string"}
  ]
}`
