package log

import (
	"bytes"

	"github.com/ls1intum/hades/hadesLogForwarder/forwarder"
)

// maxLineBytes caps a single line, longer lines are split.
const maxLineBytes = 1024 * 1024

// LineWriter splits the bytes written to it into lines, parses each complete
// line and hands it to emit. It is used as the stdout or stderr writer of a
// stream demultiplexer.
type LineWriter struct {
	stream string
	emit   func(forwarder.LogLine) error
	buf    []byte
}

func NewLineWriter(stream string, emit func(forwarder.LogLine) error) *LineWriter {
	return &LineWriter{
		stream: stream,
		emit:   emit,
	}
}

func (w *LineWriter) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)

	for {
		i := bytes.IndexByte(w.buf, '\n')
		if i < 0 {
			break
		}
		if err := w.emitLine(w.buf[:i]); err != nil {
			return 0, err
		}
		w.buf = w.buf[i+1:]
	}

	for len(w.buf) >= maxLineBytes {
		if err := w.emitLine(w.buf[:maxLineBytes]); err != nil {
			return 0, err
		}
		w.buf = w.buf[maxLineBytes:]
	}

	return len(p), nil
}

// Flush emits a trailing line that was not terminated by a newline.
func (w *LineWriter) Flush() error {
	if len(w.buf) == 0 {
		return nil
	}
	err := w.emitLine(w.buf)
	w.buf = nil
	return err
}

func (w *LineWriter) emitLine(line []byte) error {
	return w.emit(ParseLine(string(line), w.stream))
}
