/*
Package log provides structured logging for the relay using zerolog.

All components obtain a logger via one of the With* helpers so that every
line carries the field that matters for that component (component,
endpoint, client_ip, lane) without every call site repeating it.

	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true})
	logger := log.WithEndpoint("nid001234")
	logger.Warn().Err(err).Msg("subscription create failed")
*/
package log
