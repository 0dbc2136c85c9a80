/*
Package config loads and validates the relay's YAML configuration
document (general settings, subscription templates, managed endpoints,
and the bus/schema-registry passthrough sections described in spec §6).

The wire grammar itself — the YAML/INI text format — is treated as an
external collaborator; this package's job starts once gopkg.in/yaml.v3 has
produced a tree of Go values, and ends at a validated, typed Config plus
the per-endpoint desired Subscription set each config entry expands to.
*/
package config
