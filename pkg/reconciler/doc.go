/*
Package reconciler drives every managed endpoint's live event subscriptions
toward the desired set computed from configuration.

# Per-endpoint convergence

For one endpoint with desired set D and live set L, each d in D is matched
against L by Context (the identity key). No match schedules an add. A
match whose other fields (destination, registry prefixes, exclude prefixes,
message IDs, exclude message IDs, protocol) are all equal is kept as-is;
any difference schedules a remove-then-add so the endpoint converges on
exactly what configuration asks for. Every l in L with no desired match is
removed when its context carries the configured namespace prefix, or when
purge_unrecognized is set; otherwise it is left alone, since it may belong
to another consumer of the same endpoint. Removes execute before adds.
Any single operation's failure is logged and does not abort the endpoint.

# Fleet driver

A refresh cycle visits all endpoints with bounded parallelism
W = min(max_workers, len(endpoints)). One endpoint's failure (connect,
list, or compare) is isolated: logged and skipped, with no retry within
the cycle. A cycle runs at process start and on every refresh_interval;
if one cycle overruns the interval, the next starts immediately rather
than waiting out the remainder of the tick.

A purge cycle (driven by the control plane on USR2) treats the desired set
for every endpoint as empty, tearing down only the subscriptions this
relay owns.
*/
package reconciler
