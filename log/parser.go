package log

import (
	"strings"
	"time"

	"github.com/ls1intum/hades/hadesLogForwarder/forwarder"
)

// ParseLine parses a single line of container output. Lines carry the RFC3339Nano
// timestamp prefix added by the container runtime, the rest of the line is the
// message and is passed on verbatim, including any timestamp the application
// wrote itself. Without a runtime timestamp the current time is used.
func ParseLine(line, stream string) forwarder.LogLine {
	timestamp, message := splitTimestamp(strings.TrimRight(line, "\r\n"))

	return forwarder.LogLine{
		Timestamp: timestamp,
		Message:   message,
		Stream:    stream,
	}
}

// splitTimestamp extracts timestamp and message from simple container logs
func splitTimestamp(line string) (time.Time, string) {
	parts := strings.SplitN(line, " ", 2)

	timestamp, err := time.Parse(time.RFC3339Nano, parts[0])
	if err != nil {
		return time.Now().UTC(), line
	}

	message := ""
	if len(parts) > 1 {
		message = parts[1]
	}

	return timestamp, message
}
