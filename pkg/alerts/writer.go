// Package alerts mirrors generic events to a flat alerts file, one line
// per event, for operators who tail logs rather than query the bus.
package alerts

import (
	"bufio"
	"fmt"
	"os"
	"sync"

	"github.com/openchami/redfish-relay/pkg/events"
	"github.com/openchami/redfish-relay/pkg/log"
)

// Writer consumes a Subscriber and appends one formatted line per alert to
// a file, flushing after every write so a tailing reader sees it promptly.
type Writer struct {
	mu   sync.Mutex
	file *os.File
	w    *bufio.Writer
}

// NewWriter opens path for appending, creating it if necessary.
func NewWriter(path string) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("alerts: opening %s: %w", path, err)
	}
	return &Writer{file: f, w: bufio.NewWriter(f)}, nil
}

// Close flushes and closes the underlying file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.w.Flush(); err != nil {
		return err
	}
	return w.file.Close()
}

// Run drains sub until it is closed, writing one line per alert in the
// fixed format: "<ts> <Location> <MessageId> <Severity> \"<Message>\" <OriginOfCondition>".
func (w *Writer) Run(sub events.Subscriber) {
	for alert := range sub {
		line := fmt.Sprintf("%d %s %s %s %q %s\n",
			alert.Timestamp.UnixMilli(),
			alert.Location,
			alert.MessageID,
			alert.Severity,
			alert.Message,
			alert.OriginOfCondition,
		)

		w.mu.Lock()
		if _, err := w.w.WriteString(line); err != nil {
			log.WithComponent("alerts").Error().Err(err).Msg("failed to write alerts file line")
		} else if err := w.w.Flush(); err != nil {
			log.WithComponent("alerts").Error().Err(err).Msg("failed to flush alerts file")
		}
		w.mu.Unlock()
	}
}
