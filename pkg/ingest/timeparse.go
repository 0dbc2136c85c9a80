package ingest

import (
	"sync"
	"time"

	"github.com/openchami/redfish-relay/pkg/metrics"
	"github.com/rs/zerolog"
)

// skewTracker throttles clock-skew warnings to at most one per source
// every 24 hours. It is lane-local and only the lane's decode path touches
// it; the mutex is a precaution, not something that use requires.
type skewTracker struct {
	mu       sync.Mutex
	lastWarn map[string]time.Time
}

func newSkewTracker() *skewTracker {
	return &skewTracker{lastWarn: make(map[string]time.Time)}
}

func (s *skewTracker) shouldWarn(source string, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	last, ok := s.lastWarn[source]
	if ok && now.Sub(last) < 24*time.Hour {
		return false
	}
	s.lastWarn[source] = now
	return true
}

// parseSampleTime parses an ISO-8601 timestamp to milliseconds since
// epoch. On parse failure it substitutes wall-clock and always warns. If
// the parsed time differs from wall-clock by more than skewLimit, it
// substitutes wall-clock and warns at most once per source per 24h.
func parseSampleTime(raw, source string, skewLimit time.Duration, tracker *skewTracker, logger zerolog.Logger) int64 {
	now := time.Now()

	parsed, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		logger.Warn().Str("source", source).Str("raw", raw).Err(err).Msg("failed to parse event timestamp, substituting wall-clock")
		metrics.ClockSkewTotal.WithLabelValues("parse_error").Inc()
		return now.UnixMilli()
	}

	skew := parsed.Sub(now)
	if skew < 0 {
		skew = -skew
	}
	if skew > skewLimit {
		metrics.ClockSkewTotal.WithLabelValues("skew_exceeded").Inc()
		if tracker.shouldWarn(source, now) {
			logger.Warn().
				Str("source", source).
				Time("parsed", parsed).
				Time("wallclock", now).
				Dur("skew", skew).
				Msg("event timestamp exceeds clock skew limit, substituting wall-clock")
		}
		return now.UnixMilli()
	}

	return parsed.UnixMilli()
}
