/*
Package metrics exposes Prometheus collectors for the relay and a Timer
helper for observing durations.

Series are grouped by component: reconciler (cycle duration, op counts),
ingest (receive/drop/sample counts, plus queue depth per lane), and bus
(delivery outcomes).
*/
package metrics
