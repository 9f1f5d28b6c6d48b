package forwarder

import (
	"context"
	"fmt"
	"io"
	"time"
)

type putCall struct {
	token string
	lines []LogLine
}

// fakeClient is an in-memory destination. putErrs are returned, in order,
// by the first PutEvents calls; a nil entry lets that call succeed.
type fakeClient struct {
	groups  map[string]bool
	streams map[string]string

	createGroupErr  error
	createStreamErr error
	putErrs         []error

	createGroupCalls  int
	createStreamCalls int
	streamTokenCalls  int
	calls             []putCall
	accepted          []putCall
	seq               int
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		groups:  map[string]bool{},
		streams: map[string]string{},
	}
}

func (c *fakeClient) GroupExists(_ context.Context, group string) (bool, error) {
	return c.groups[group], nil
}

func (c *fakeClient) CreateGroup(_ context.Context, group string) error {
	c.createGroupCalls++
	if c.createGroupErr != nil {
		return c.createGroupErr
	}
	c.groups[group] = true
	return nil
}

func (c *fakeClient) StreamToken(_ context.Context, group, stream string) (string, bool, error) {
	c.streamTokenCalls++
	token, ok := c.streams[group+"/"+stream]
	return token, ok, nil
}

func (c *fakeClient) CreateStream(_ context.Context, group, stream string) error {
	c.createStreamCalls++
	if c.createStreamErr != nil {
		return c.createStreamErr
	}
	c.streams[group+"/"+stream] = ""
	return nil
}

func (c *fakeClient) PutEvents(_ context.Context, dest Destination, token string, lines []LogLine) (string, error) {
	call := putCall{token: token, lines: append([]LogLine(nil), lines...)}
	c.calls = append(c.calls, call)

	if len(c.putErrs) > 0 {
		err := c.putErrs[0]
		c.putErrs = c.putErrs[1:]
		if err != nil {
			return "", err
		}
	}

	c.accepted = append(c.accepted, call)
	c.seq++
	next := fmt.Sprintf("%08d", c.seq)
	c.streams[dest.String()] = next
	return next, nil
}

func (c *fakeClient) acceptedSizes() []int {
	sizes := make([]int, 0, len(c.accepted))
	for _, call := range c.accepted {
		sizes = append(sizes, len(call.lines))
	}
	return sizes
}

func (c *fakeClient) acceptedMessages() []string {
	var messages []string
	for _, call := range c.accepted {
		for _, line := range call.lines {
			messages = append(messages, line.Message)
		}
	}
	return messages
}

type sliceSource struct {
	lines []LogLine
	err   error
}

func (s *sliceSource) Next(ctx context.Context) (LogLine, error) {
	if len(s.lines) == 0 {
		if s.err != nil {
			return LogLine{}, s.err
		}
		return LogLine{}, io.EOF
	}
	line := s.lines[0]
	s.lines = s.lines[1:]
	return line, nil
}

var baseTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func generateLines(n int) []LogLine {
	lines := make([]LogLine, n)
	for i := range lines {
		lines[i] = LogLine{
			Timestamp: baseTime.Add(time.Duration(i) * time.Millisecond),
			Message:   fmt.Sprintf("line %d", i+1),
			Stream:    StreamStdout,
		}
	}
	return lines
}

func messagesOf(lines []LogLine) []string {
	messages := make([]string, len(lines))
	for i, line := range lines {
		messages[i] = line.Message
	}
	return messages
}

type fakeMirror struct {
	batches []Batch
	err     error
}

func (m *fakeMirror) PublishBatch(_ context.Context, _ Destination, batch Batch) error {
	m.batches = append(m.batches, batch)
	return m.err
}
