package forwarder

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"
)

const (
	// StreamStdout identifies stdout log stream
	StreamStdout = "stdout"
	// StreamStderr identifies stderr log stream
	StreamStderr = "stderr"
)

// CloudWatch Logs accounting: every event costs its UTF-8 message length plus
// a fixed 26 bytes, a single event may not exceed 256 KiB, a PutLogEvents
// request may not exceed 1 MiB or 10,000 events and may not span more than 24h.
const (
	EventOverhead   = 26
	MaxEventBytes   = 256 * 1024
	MaxBatchBytes   = 1024 * 1024
	MaxBatchEntries = 10000
	MaxBatchSpan    = 24 * time.Hour
)

// LogLine is a single line of output read from the source process.
type LogLine struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
	Stream    string    `json:"output_stream"`
}

// Size returns the number of bytes the line contributes to a batch payload.
func (l LogLine) Size() int {
	return len(l.Message) + EventOverhead
}

// Destination identifies the log group and stream events are appended to.
type Destination struct {
	Group  string
	Stream string
}

func (d Destination) String() string {
	return d.Group + "/" + d.Stream
}

// Batch is an ordered run of lines submitted in one call. First is the
// 1-based index of its first line among all forwarded lines.
type Batch struct {
	First int
	Lines []LogLine
	Bytes int
}

func (b *Batch) Len() int {
	return len(b.Lines)
}

func (b *Batch) Empty() bool {
	return len(b.Lines) == 0
}

// Last returns the index of the last line in the batch.
func (b *Batch) Last() int {
	return b.First + len(b.Lines) - 1
}

// Span returns the time between the first line of the batch and t.
func (b *Batch) Span(t time.Time) time.Duration {
	if b.Empty() {
		return 0
	}
	return t.Sub(b.Lines[0].Timestamp)
}

// Range formats the batch's line range for diagnostics, e.g. "lines 101-200".
func (b *Batch) Range() string {
	return fmt.Sprintf("lines %d-%d", b.First, b.Last())
}

func (b *Batch) add(line LogLine) {
	b.Lines = append(b.Lines, line)
	b.Bytes += line.Size()
}

func (b *Batch) reset(next int) {
	b.First = next
	b.Lines = nil
	b.Bytes = 0
}

// Source yields the output of the source process line by line. Next blocks
// until a line is available and returns io.EOF once the process has closed
// its output.
type Source interface {
	Next(ctx context.Context) (LogLine, error)
}

// Mirror receives every batch after it has been accepted by the destination.
type Mirror interface {
	PublishBatch(ctx context.Context, dest Destination, batch Batch) error
}

// truncateMessage cuts msg to at most limit bytes without splitting a
// multi-byte rune.
func truncateMessage(msg string, limit int) string {
	if len(msg) <= limit {
		return msg
	}
	for limit > 0 && !utf8.RuneStart(msg[limit]) {
		limit--
	}
	return msg[:limit]
}
