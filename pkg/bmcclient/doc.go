/*
Package bmcclient implements an authenticated client session against one
managed endpoint's event-subscription collection: open a session, list,
create, and delete subscriptions, close the session.

Sessions are not shared across goroutines. Each reconciliation attempt
opens its own session, uses it for the lifetime of one endpoint pass, and
closes it.
*/
package bmcclient
