package alerts

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/openchami/redfish-relay/pkg/events"
)

func TestWriter_FormatsFixedLine(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "alerts.log")

	w, err := NewWriter(path)
	if err != nil {
		t.Fatalf("NewWriter() returned error: %v", err)
	}

	sub := make(events.Subscriber, 1)
	sub <- &events.Alert{
		Timestamp:         time.UnixMilli(1700000000000),
		Location:          "x1000c0s0b0n0",
		MessageID:         "Redfish.1.0.ResourceAdded",
		Severity:          "OK",
		Message:           "a thing happened",
		OriginOfCondition: "/redfish/v1/Systems/1",
	}
	close(sub)

	w.Run(sub)
	if err := w.Close(); err != nil {
		t.Fatalf("Close() returned error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() returned error: %v", err)
	}
	line := strings.TrimSpace(string(data))

	want := `1700000000000 x1000c0s0b0n0 Redfish.1.0.ResourceAdded OK "a thing happened" /redfish/v1/Systems/1`
	if line != want {
		t.Errorf("line = %q, want %q", line, want)
	}
}
