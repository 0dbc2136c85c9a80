/*
Package events broadcasts generic-event alerts to any number of independent
subscribers without coupling worker lanes to file I/O.

A lane that classifies a generic event calls Broker.Publish; the broker
fans the alert out to every subscriber's buffered channel, dropping it for
a subscriber whose buffer is full rather than blocking the lane. The
alerts-file writer is the one subscriber today, but the broker itself
knows nothing about files.

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	sub := broker.Subscribe()
	defer broker.Unsubscribe(sub)
	for alert := range sub {
		// write alert
	}
*/
package events
