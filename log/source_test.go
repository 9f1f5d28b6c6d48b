package log

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/ls1intum/hades/hadesLogForwarder/forwarder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(t *testing.T, s *Source) []forwarder.LogLine {
	t.Helper()
	var lines []forwarder.LogLine
	for {
		line, err := s.Next(context.Background())
		if errors.Is(err, io.EOF) {
			return lines
		}
		require.NoError(t, err)
		lines = append(lines, line)
	}
}

func TestSource_Combined(t *testing.T) {
	raw := "2024-05-01T12:00:00Z one\n2024-05-01T12:00:01Z two\n2024-05-01T12:00:02Z three"
	s := NewSource(context.Background(), io.NopCloser(strings.NewReader(raw)), Combined)
	defer s.Close()

	lines := drain(t, s)
	require.Len(t, lines, 3)
	for i, msg := range []string{"one", "two", "three"} {
		assert.Equal(t, msg, lines[i].Message)
		assert.Equal(t, forwarder.StreamStdout, lines[i].Stream)
	}
	assert.Equal(t, time.Date(2024, 5, 1, 12, 0, 2, 0, time.UTC), lines[2].Timestamp)
}

func TestSource_DemuxError(t *testing.T) {
	broken := errors.New("unexpected stream header")
	demux := func(stdout, _ io.Writer, _ io.Reader) error {
		_, _ = stdout.Write([]byte("partial\n"))
		return broken
	}
	s := NewSource(context.Background(), io.NopCloser(strings.NewReader("")), demux)
	defer s.Close()

	line, err := s.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "partial", line.Message)

	_, err = s.Next(context.Background())
	assert.ErrorIs(t, err, broken)
}

func TestSource_NextHonoursContext(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	s := NewSource(context.Background(), pr, Combined)
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := s.Next(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSource_CloseUnblocksReader(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	s := NewSource(context.Background(), pr, Combined)

	done := make(chan struct{})
	go func() {
		_ = s.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Close did not return")
	}

	_, err := s.Next(context.Background())
	assert.Error(t, err)
}
