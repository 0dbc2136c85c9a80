package config

import (
	"fmt"
	"net"
	"os"
	"time"

	"github.com/openchami/redfish-relay/pkg/types"
	"gopkg.in/yaml.v3"
)

// ConfigError reports a fatal, startup-time configuration problem.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// General holds the process-wide settings from the "general" section.
type General struct {
	LogLevel             string `yaml:"log_level"`
	RefreshInterval      int    `yaml:"refresh_interval"`
	ContextPrefix        string `yaml:"context_prefix"`
	PurgeUnrecognized    bool   `yaml:"purge_unrecognized"`
	MaxWorkers           int    `yaml:"max_workers"`
	RedfishUsername      string `yaml:"redfish_username"`
	RedfishPassword      string `yaml:"redfish_password"`
	TopicPrefix          string `yaml:"topic_prefix"`
	SamplePeriod         int    `yaml:"sample_period"`
	WorkerCount          int    `yaml:"worker_count"`
	Address              string `yaml:"address"`
	Port                 int    `yaml:"port"`
	SubscriptionTimeout  int    `yaml:"subscription_timeout"`
	SubscriptionRetries  int    `yaml:"subscription_retries"`
	ResubscribeInterval  int    `yaml:"resubscribe_interval"`
	LogAlerts            bool   `yaml:"log_alerts"`
	LogAlertsFile        string `yaml:"log_alerts_file"`
	NoKafka              bool   `yaml:"no_kafka"`
	ClockSkewLimitSec    int    `yaml:"clock_skew_limit_sec"`
	StatusAddress        string `yaml:"status_address"`
}

// SubscriptionSpec is one entry under the "subscriptions" section: a
// template that expands into one desired Subscription per matching server.
type SubscriptionSpec struct {
	Servers            string            `yaml:"servers"`
	Context            string            `yaml:"context"`
	Properties         map[string]any    `yaml:"properties"`
	Destinations       []string          `yaml:"destinations"`
	DestinationsPort   int               `yaml:"destinations_port"`
	DestinationsUseIP  bool              `yaml:"destinations_use_ip"`
}

// EndpointSpec is one entry under the "endpoints" section (the per-hostname
// sections listing the endpoints this instance owns).
type EndpointSpec struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// Config is the full, validated configuration document.
type Config struct {
	General       General                 `yaml:"general"`
	Subscriptions []SubscriptionSpec      `yaml:"subscriptions"`
	Endpoints     map[string]EndpointSpec `yaml:"endpoints"`
	Bus           map[string]string       `yaml:"bus"`
	SchemaRegistry map[string]string      `yaml:"schema_registry"`
}

// Load reads and parses a configuration document from path, applies
// defaults, and validates it.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{Field: "path", Err: err}
	}
	return Parse(data)
}

// Parse parses a configuration document already read into memory. It is
// split out from Load so a HUP/USR1 reload can reread the same path without
// duplicating defaulting/validation logic, and so tests can exercise it
// without a filesystem.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, &ConfigError{Field: "yaml", Err: err}
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.General.RefreshInterval <= 0 {
		c.General.RefreshInterval = 300
	}
	if c.General.MaxWorkers <= 0 {
		c.General.MaxWorkers = 50
	}
	if c.General.WorkerCount <= 0 {
		c.General.WorkerCount = 8
	}
	if c.General.SamplePeriod <= 0 {
		c.General.SamplePeriod = 10
	}
	if c.General.Address == "" {
		c.General.Address = "0.0.0.0"
	}
	if c.General.Port <= 0 {
		c.General.Port = 9127
	}
	if c.General.SubscriptionTimeout <= 0 {
		c.General.SubscriptionTimeout = 10
	}
	if c.General.SubscriptionRetries <= 0 {
		c.General.SubscriptionRetries = 3
	}
	if c.General.ResubscribeInterval <= 0 {
		c.General.ResubscribeInterval = c.General.RefreshInterval
	}
	if c.General.ClockSkewLimitSec <= 0 {
		c.General.ClockSkewLimitSec = 3600
	}
	if c.General.StatusAddress == "" {
		c.General.StatusAddress = "0.0.0.0:9128"
	}
	if c.General.LogLevel == "" {
		c.General.LogLevel = "info"
	}
}

// Validate checks that the document satisfies the invariants this relay
// depends on, returning a *ConfigError naming the first violation.
func (c *Config) Validate() error {
	if c.General.ContextPrefix == "" {
		return &ConfigError{Field: "general.context_prefix", Err: fmt.Errorf("must be set")}
	}
	if len(c.Endpoints) == 0 {
		return &ConfigError{Field: "endpoints", Err: fmt.Errorf("at least one endpoint must be configured")}
	}
	for i, sub := range c.Subscriptions {
		if sub.Context == "" {
			return &ConfigError{Field: fmt.Sprintf("subscriptions[%d].context", i), Err: fmt.Errorf("must be set")}
		}
		if !hasPrefix(sub.Context, c.General.ContextPrefix) {
			return &ConfigError{
				Field: fmt.Sprintf("subscriptions[%d].context", i),
				Err:   fmt.Errorf("%q must begin with namespace prefix %q", sub.Context, c.General.ContextPrefix),
			}
		}
		if sub.Servers == "" {
			return &ConfigError{Field: fmt.Sprintf("subscriptions[%d].servers", i), Err: fmt.Errorf("must be set")}
		}
	}
	return nil
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

// RefreshIntervalDuration returns the general refresh interval as a
// time.Duration.
func (c *Config) RefreshIntervalDuration() time.Duration {
	return time.Duration(c.General.RefreshInterval) * time.Second
}

// SamplePeriodDuration returns the per-client sampling window as a
// time.Duration.
func (c *Config) SamplePeriodDuration() time.Duration {
	return time.Duration(c.General.SamplePeriod) * time.Second
}

// DesiredSubscriptions expands the subscription templates into the desired
// set for one endpoint hostname, in the shape the reconciler compares
// against each endpoint's live set.
func (c *Config) DesiredSubscriptions(hostname string) ([]types.Subscription, error) {
	var out []types.Subscription
	for _, spec := range c.Subscriptions {
		hosts, err := ExpandHostlist(spec.Servers)
		if err != nil {
			return nil, &ConfigError{Field: "subscriptions.servers", Err: err}
		}
		if !contains(hosts, hostname) {
			continue
		}

		dest := buildDestination(spec, hostname, c.General.Port, c.General.Address)
		sub := types.Subscription{
			Context:     spec.Context,
			Destination: dest,
			Protocol:    "Redfish",
		}
		if prefixes, ok := spec.Properties["RegistryPrefixes"]; ok {
			sub.RegistryPrefixes = toStringSlice(prefixes)
		}
		if prefixes, ok := spec.Properties["ExcludeRegistryPrefixes"]; ok {
			sub.ExcludeRegistryPrefixes = toStringSlice(prefixes)
		}
		if ids, ok := spec.Properties["MessageIds"]; ok {
			sub.MessageIDs = toStringSlice(ids)
		}
		if ids, ok := spec.Properties["ExcludeMessageIds"]; ok {
			sub.ExcludeMessageIDs = toStringSlice(ids)
		}
		out = append(out, sub)
	}
	return out, nil
}

// buildDestination computes the "<ip>:<port>/redfish" destination URL a
// desired subscription carries. An explicit per-entry destinations list
// wins outright; otherwise, when destinations_use_ip opts in, the relay's
// own outbound-facing IP is resolved so the endpoint is told to push to a
// reachable address rather than the non-routable bind wildcard.
func buildDestination(spec SubscriptionSpec, hostname string, defaultPort int, relayAddress string) string {
	port := defaultPort
	if spec.DestinationsPort > 0 {
		port = spec.DestinationsPort
	}
	if len(spec.Destinations) > 0 {
		// Round-robin across configured relay instances by hostname hash so
		// that repeated calls for the same hostname are stable.
		idx := stableIndex(hostname, len(spec.Destinations))
		return fmt.Sprintf("%s:%d/redfish", spec.Destinations[idx], port)
	}
	if spec.DestinationsUseIP {
		return fmt.Sprintf("%s:%d/redfish", relayIP(relayAddress), port)
	}
	return fmt.Sprintf("0.0.0.0:%d/redfish", port)
}

// relayIP returns the address this relay process should advertise as a
// push destination. A configured, non-wildcard general.address is used
// as-is; otherwise the outbound-facing local IP is discovered by dialing
// a well-known external address and reading the chosen local interface,
// the standard no-root way to ask the OS "which IP would I use." Nothing
// is actually sent: UDP dial only resolves a route, it doesn't transmit.
func relayIP(bindAddress string) string {
	if bindAddress != "" && bindAddress != "0.0.0.0" && bindAddress != "::" {
		return bindAddress
	}
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "0.0.0.0"
	}
	defer conn.Close()
	addr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok {
		return "0.0.0.0"
	}
	return addr.IP.String()
}

func stableIndex(key string, n int) int {
	if n <= 1 {
		return 0
	}
	var h uint32
	for i := 0; i < len(key); i++ {
		h = h*31 + uint32(key[i])
	}
	return int(h % uint32(n))
}

func contains(hosts []string, host string) bool {
	for _, h := range hosts {
		if h == host {
			return true
		}
	}
	return false
}

func toStringSlice(v any) []string {
	switch vv := v.(type) {
	case []string:
		return vv
	case []any:
		out := make([]string, 0, len(vv))
		for _, item := range vv {
			out = append(out, fmt.Sprintf("%v", item))
		}
		return out
	default:
		return nil
	}
}
