/*
Package ingest implements the HTTP receiver and worker lanes that turn
pushed management-protocol events into bus records.

The Listener accepts POST requests, answers every accepted request with a
trivial 200 OK before any decoding happens, and dispatches the raw body to
one of a fixed number of lanes using sticky client_ip -> lane_index
dispatch: once a client is assigned a lane, all of its traffic lands on
that lane's local sampling and dedup state for the life of the process (or
until that lane is replaced after a crash).

Each Lane owns one consumer goroutine: it decodes the payload, classifies
every event by path and MessageId prefix, applies per-client sampling and
per-payload dedup, and emits records through a bus producer session that
belongs to that lane alone.
*/
package ingest
