package log

import (
	"context"
	"io"

	"github.com/ls1intum/hades/hadesLogForwarder/forwarder"
)

var _ forwarder.Source = (*Source)(nil)

// DemuxFunc copies a raw log stream into the stdout and stderr writers.
type DemuxFunc func(stdout, stderr io.Writer, r io.Reader) error

// Combined treats the whole stream as stdout, for runtimes that do not
// separate the two streams.
func Combined(stdout, _ io.Writer, r io.Reader) error {
	_, err := io.Copy(stdout, r)
	return err
}

// Source yields the lines of a followed log stream in arrival order. A single
// goroutine demultiplexes the stream and lines are handed over one at a time,
// so Next never reorders them.
type Source struct {
	lines  chan forwarder.LogLine
	done   chan struct{}
	reader io.ReadCloser
	cancel context.CancelFunc
	err    error
}

func NewSource(ctx context.Context, reader io.ReadCloser, demux DemuxFunc) *Source {
	ctx, cancel := context.WithCancel(ctx)
	s := &Source{
		lines:  make(chan forwarder.LogLine),
		done:   make(chan struct{}),
		reader: reader,
		cancel: cancel,
	}
	go s.run(ctx, demux)
	return s
}

func (s *Source) run(ctx context.Context, demux DemuxFunc) {
	defer close(s.done)
	defer s.reader.Close()

	emit := func(line forwarder.LogLine) error {
		select {
		case s.lines <- line:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	stdout := NewLineWriter(forwarder.StreamStdout, emit)
	stderr := NewLineWriter(forwarder.StreamStderr, emit)

	err := demux(stdout, stderr, s.reader)
	if err == nil {
		err = stdout.Flush()
	}
	if err == nil {
		err = stderr.Flush()
	}
	if err == nil {
		err = io.EOF
	}
	s.err = err
}

// Next returns the next line, io.EOF once the stream has ended.
func (s *Source) Next(ctx context.Context) (forwarder.LogLine, error) {
	select {
	case line := <-s.lines:
		return line, nil
	case <-s.done:
		return forwarder.LogLine{}, s.err
	case <-ctx.Done():
		return forwarder.LogLine{}, ctx.Err()
	}
}

// Close stops following the stream and waits for the reader goroutine.
func (s *Source) Close() error {
	s.cancel()
	err := s.reader.Close()
	<-s.done
	return err
}
