package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ls1intum/hades/hadesLogForwarder/forwarder"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const (
	// LogSubject is the NATS subject pattern batches are mirrored to
	LogSubject = "hades.logs.%s"
	// StreamName is the JetStream stream holding mirrored batches
	StreamName = "HADES_JOB_LOGS"
)

// ErrNilConnection is returned when NATS connection is nil
var ErrNilConnection = errors.New("nil NATS connection")

type publisher interface {
	Publish(ctx context.Context, subject string, payload []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// BatchMessage is the JSON document published for every forwarded batch.
type BatchMessage struct {
	Group     string              `json:"group"`
	Stream    string              `json:"stream"`
	FirstLine int                 `json:"first_line"`
	LastLine  int                 `json:"last_line"`
	Logs      []forwarder.LogLine `json:"logs"`
}

// BatchPublisher mirrors accepted batches to JetStream so that live viewers
// can follow a run while it is being forwarded.
type BatchPublisher struct {
	js     publisher
	logger *slog.Logger
}

// NewBatchPublisher creates or updates the log stream and returns a publisher
// bound to it.
func NewBatchPublisher(ctx context.Context, nc *nats.Conn) (*BatchPublisher, error) {
	if nc == nil {
		return nil, ErrNilConnection
	}

	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("creating JetStream context: %w", err)
	}

	stream, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:       StreamName,
		Subjects:   []string{fmt.Sprintf(LogSubject, "*")},
		Storage:    jetstream.FileStorage,
		Retention:  jetstream.LimitsPolicy,
		Duplicates: 1 * time.Minute,
		MaxMsgs:    10000,
		MaxAge:     24 * time.Hour,
	})
	if err != nil {
		return nil, fmt.Errorf("creating JetStream stream: %w", err)
	}

	slog.Info("JetStream stream ready",
		"stream", stream.CachedInfo().Config.Name,
		"subjects", stream.CachedInfo().Config.Subjects)

	return newBatchPublisher(js), nil
}

func newBatchPublisher(js publisher) *BatchPublisher {
	return &BatchPublisher{
		js:     js,
		logger: slog.Default().With(slog.String("component", "nats")),
	}
}

// PublishBatch publishes batch to "hades.logs.<stream>". The message ID is
// derived from the destination and the batch's first line so JetStream drops
// duplicates within its window.
func (p *BatchPublisher) PublishBatch(ctx context.Context, dest forwarder.Destination, batch forwarder.Batch) error {
	subject := Subject(dest.Stream)
	data, err := json.Marshal(BatchMessage{
		Group:     dest.Group,
		Stream:    dest.Stream,
		FirstLine: batch.First,
		LastLine:  batch.Last(),
		Logs:      batch.Lines,
	})
	if err != nil {
		return fmt.Errorf("marshaling batch %s: %w", batch.Range(), err)
	}

	msgID := fmt.Sprintf("%s#%d", dest, batch.First)
	if _, err := p.js.Publish(ctx, subject, data, jetstream.WithMsgID(msgID)); err != nil {
		return fmt.Errorf("publishing batch to subject %s: %w", subject, err)
	}

	p.logger.Debug("Published batch", "subject", subject, "entries", batch.Len())
	return nil
}

// Subject returns the subject a stream's batches are published to. Characters
// that are not valid inside a single subject token are replaced with '_'.
func Subject(stream string) string {
	token := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, stream)
	if token == "" {
		token = "_"
	}
	return fmt.Sprintf(LogSubject, token)
}
