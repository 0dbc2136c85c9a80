// Package types holds the data model shared across the relay: desired and
// live subscriptions, managed endpoints, and the event/record shapes that
// flow from a pushed Redfish event to a bus record.
package types

import "sort"

// Subscription is the desired state of one event subscription, built from
// configuration. It is never mutated in place: a config reload produces a
// fresh set.
type Subscription struct {
	// Context is the authoritative identity key. Every desired subscription
	// for this relay carries a Context prefixed by the configured namespace.
	Context string

	// Destination is "<relay-ip>:<relay-port>/<path>".
	Destination string

	// RegistryPrefixes, ExcludeRegistryPrefixes, MessageIDs, and
	// ExcludeMessageIDs are subscription filters. A nil slice is equivalent
	// to an empty one when comparing subscriptions.
	RegistryPrefixes        []string
	ExcludeRegistryPrefixes []string
	MessageIDs              []string
	ExcludeMessageIDs       []string

	// Protocol is the management-protocol subscription protocol tag, e.g.
	// "Redfish".
	Protocol string
}

// LiveSubscription is a Subscription as reported by an endpoint, plus the
// server-assigned handle needed to delete it.
type LiveSubscription struct {
	Subscription
	Handle string
}

// Equal reports whether two subscriptions are identical on every field other
// than the live Handle, treating a missing list field as an empty list and
// comparing list fields order-independently.
func (s Subscription) Equal(other Subscription) bool {
	return s.Context == other.Context &&
		s.Destination == other.Destination &&
		s.Protocol == other.Protocol &&
		sameSet(s.RegistryPrefixes, other.RegistryPrefixes) &&
		sameSet(s.ExcludeRegistryPrefixes, other.ExcludeRegistryPrefixes) &&
		sameSet(s.MessageIDs, other.MessageIDs) &&
		sameSet(s.ExcludeMessageIDs, other.ExcludeMessageIDs)
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	sa := append([]string(nil), a...)
	sb := append([]string(nil), b...)
	sort.Strings(sa)
	sort.Strings(sb)
	for i := range sa {
		if sa[i] != sb[i] {
			return false
		}
	}
	return true
}

// Endpoint is a managed BMC: a hostname plus the credentials to open a
// session against it.
type Endpoint struct {
	Hostname string
	Username string
	Password string
}

// Event is one entry in a pushed event envelope's Events array. Only the
// fields this relay inspects are modeled; everything else in the payload is
// ignored.
type Event struct {
	MessageId         string
	EventTimestamp    string
	Severity          string
	Message           string
	OriginOfCondition *OriginOfCondition
	Oem               *Oem
}

// OriginOfCondition carries the nested odata identifier some events report.
type OriginOfCondition struct {
	ODataID string `json:"@odata.id"`
}

// Oem carries vendor sensor extensions.
type Oem struct {
	Sensors []Sensor
}

// Sensor is one entry in an event's Oem.Sensors array, already validated to
// carry its three required fields (Location, Timestamp, Value). Geometric
// descriptors default to "" / -1 when the source omitted them.
type Sensor struct {
	Location              string
	Timestamp             string
	Value                 float64
	ParentalContext       string
	ParentalIndex         int
	PhysicalContext       string
	Index                 int
	DeviceSpecificContext string
	PhysicalSubContext    string
	SubIndex              int
}

// Envelope is the top-level pushed payload shape.
type Envelope struct {
	Events []Event
}

// RedfishCrayOemSensors is the telemetry record family (C5 telemetry
// processing -> <prefix>craytelemetry).
type RedfishCrayOemSensors struct {
	Timestamp             int64
	Location              string
	Index                 int
	ParentalContext       string
	ParentalIndex         int
	PhysicalContext       string
	PhysicalSubContext    string
	DeviceSpecificContext string
	EventName             string
	Value                 float64
	SensorName            string
	Cluster               string
}

// RedfishCrayEvents is the generic event record family (C5 generic
// processing -> <prefix>crayevents).
type RedfishCrayEvents struct {
	Timestamp         int64
	Location          string
	MessageId         string
	Severity          string
	Message           string
	OriginOfCondition string
	SyslogLevel       string
	Cluster           string
}

// CrayFabricHealth is the health record family (C5 health processing ->
// crayfabrichealth).
type CrayFabricHealth struct {
	Timestamp       int64
	Location        string
	MessageId       string
	Message         string
	Group           int
	Switch          int
	Port            int
	Severity        string
	PhysicalContext string
	Cluster         string
}
