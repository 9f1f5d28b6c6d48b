package forwarder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const maxBackoffInterval = 30 * time.Second

// Forwarder batches log lines and appends them, strictly in order, to a
// single destination. It owns the destination client and the sequencing
// token and must not be used from more than one goroutine.
type Forwarder struct {
	client Client
	dest   Destination
	limits Limits
	mirror Mirror
	logger *slog.Logger

	token    string
	batch    Batch
	lines    int
	lastSeen time.Time
	// stopped holds the error that terminated forwarding, nothing is
	// submitted once it is set.
	stopped error
}

// New creates a forwarder for dest. token is the sequencing token returned by
// EnsureDestination.
func New(client Client, dest Destination, token string, options ...Option) (*Forwarder, error) {
	if client == nil {
		return nil, fmt.Errorf("nil destination client")
	}

	f := &Forwarder{
		client: client,
		dest:   dest,
		limits: DefaultLimits(),
		logger: slog.Default().With(slog.String("component", "forwarder"), slog.String("destination", dest.String())),
		token:  token,
	}
	for _, option := range options {
		option(f)
	}

	if err := f.limits.Validate(); err != nil {
		return nil, err
	}
	f.batch.reset(1)
	return f, nil
}

// Token returns the sequencing token the next submission will use.
func (f *Forwarder) Token() string {
	return f.token
}

// Forwarded returns the number of lines accepted from the source so far.
func (f *Forwarder) Forwarded() int {
	return f.lines
}

// Run consumes source until it is exhausted and flushes the trailing batch.
// A failing source still gets its buffered lines flushed before Run returns
// the source error. A submission that cannot be completed stops forwarding
// with a *FatalSubmissionError.
func (f *Forwarder) Run(ctx context.Context, source Source) error {
	if f.stopped != nil {
		return f.stopped
	}

	for {
		line, err := source.Next(ctx)
		if errors.Is(err, io.EOF) {
			if err := f.flush(ctx); err != nil {
				return err
			}
			f.logger.Info("Log source exhausted", slog.Int("lines", f.lines))
			return nil
		}
		if err != nil {
			srcErr := fmt.Errorf("reading log source: %w", err)
			// The source may have failed because ctx was cancelled, the
			// buffered lines are still worth delivering.
			if ferr := f.flush(context.WithoutCancel(ctx)); ferr != nil {
				return errors.Join(srcErr, ferr)
			}
			return srcErr
		}

		if err := f.add(ctx, line); err != nil {
			return err
		}
	}
}

func (f *Forwarder) add(ctx context.Context, line LogLine) error {
	line.Message = strings.TrimSpace(strings.ToValidUTF8(line.Message, "\uFFFD"))
	if line.Message == "" {
		return nil
	}
	// a single event must fit into an otherwise empty batch
	line.Message = truncateMessage(line.Message, min(MaxEventBytes, f.limits.MaxBatchBytes)-EventOverhead)
	if line.Message == "" {
		return nil
	}

	if line.Timestamp.IsZero() {
		line.Timestamp = time.Now().UTC()
	}
	if line.Timestamp.Before(f.lastSeen) {
		line.Timestamp = f.lastSeen
	}
	f.lastSeen = line.Timestamp

	if !f.batch.Empty() && (f.batch.Bytes+line.Size() > f.limits.MaxBatchBytes || f.batch.Span(line.Timestamp) > MaxBatchSpan) {
		if err := f.flush(ctx); err != nil {
			return err
		}
	}

	f.lines++
	f.batch.add(line)

	if f.batch.Len() >= f.limits.MaxBatchEntries || f.batch.Bytes >= f.limits.MaxBatchBytes {
		return f.flush(ctx)
	}
	return nil
}

// flush submits the current batch. The batch is discarded afterwards whether
// or not the submission succeeded.
func (f *Forwarder) flush(ctx context.Context) error {
	if f.stopped != nil {
		return f.stopped
	}
	if f.batch.Empty() {
		return nil
	}

	batch := f.batch
	f.batch.reset(batch.Last() + 1)

	if err := f.submitBatch(ctx, batch); err != nil {
		f.stopped = err
		f.logger.Error("Failed to submit batch, forwarding stopped", slog.String("range", batch.Range()), slog.Any("error", err))
		return err
	}

	f.logger.Debug("Submitted batch", slog.String("range", batch.Range()), slog.Int("bytes", batch.Bytes))

	if f.mirror != nil {
		if err := f.mirror.PublishBatch(ctx, f.dest, batch); err != nil {
			f.logger.Warn("Failed to mirror batch", slog.String("range", batch.Range()), slog.Any("error", err))
		}
	}
	return nil
}

type resultKind int

const (
	resultOK resultKind = iota
	resultRetryable
	resultStaleToken
	resultFatal
)

// submitResult is the outcome of a single PutEvents attempt.
type submitResult struct {
	kind  resultKind
	token string
	err   error
}

func (f *Forwarder) attempt(ctx context.Context, batch Batch) submitResult {
	token, err := f.client.PutEvents(ctx, f.dest, f.token, batch.Lines)
	if err == nil {
		return submitResult{kind: resultOK, token: token}
	}

	var transient *TransientSubmissionError
	if !errors.As(err, &transient) || ctx.Err() != nil {
		return submitResult{kind: resultFatal, err: err}
	}
	switch {
	case transient.AlreadyAccepted:
		return submitResult{kind: resultOK, token: transient.ExpectedToken}
	case transient.StaleToken:
		return submitResult{kind: resultStaleToken, token: transient.ExpectedToken, err: err}
	default:
		return submitResult{kind: resultRetryable, err: err}
	}
}

// submitBatch appends batch to the destination. A stale sequencing token is
// refreshed and the batch resubmitted once, other transient failures are
// retried up to RetryLimit times with exponential backoff.
func (f *Forwarder) submitBatch(ctx context.Context, batch Batch) error {
	schedule := f.newBackOff()
	attempts, retries := 0, 0
	refreshed := false

	fatal := func(err error) error {
		return &FatalSubmissionError{First: batch.First, Last: batch.Last(), Attempts: attempts, Err: err}
	}

	for {
		attempts++
		result := f.attempt(ctx, batch)

		switch result.kind {
		case resultOK:
			f.token = result.token
			return nil

		case resultStaleToken:
			if refreshed {
				return fatal(result.err)
			}
			refreshed = true
			token, err := f.refreshToken(ctx, result.token)
			if err != nil {
				return fatal(err)
			}
			f.logger.Warn("Sequencing token was stale, resubmitting batch", slog.String("range", batch.Range()))
			f.token = token

		case resultRetryable:
			if retries >= f.limits.RetryLimit {
				return fatal(fmt.Errorf("%w: %w", ErrRetriesExhausted, result.err))
			}
			retries++
			delay := schedule.NextBackOff()
			f.logger.Warn("Transient submission failure, backing off",
				slog.String("range", batch.Range()),
				slog.Int("retry", retries),
				slog.Duration("delay", delay),
				slog.Any("error", result.err))
			if err := sleep(ctx, delay); err != nil {
				return fatal(err)
			}

		default:
			return fatal(result.err)
		}
	}
}

// refreshToken returns the token the destination expects next. expected is
// the token reported alongside the rejection, if any.
func (f *Forwarder) refreshToken(ctx context.Context, expected string) (string, error) {
	if expected != "" {
		return expected, nil
	}
	token, exists, err := f.client.StreamToken(ctx, f.dest.Group, f.dest.Stream)
	if err != nil {
		return "", fmt.Errorf("refreshing sequencing token: %w", err)
	}
	if !exists {
		return "", ErrStreamMissing
	}
	return token, nil
}

func (f *Forwarder) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = min(f.limits.RetryBackoffBase, maxBackoffInterval)
	b.MaxInterval = maxBackoffInterval
	b.Multiplier = 2
	b.RandomizationFactor = 0
	// attempts are bounded by RetryLimit, never by elapsed time
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
