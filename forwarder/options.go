package forwarder

import (
	"fmt"
	"log/slog"
	"time"
)

// Limits bound the size of a batch and the retry behaviour of a submission.
type Limits struct {
	MaxBatchEntries int
	MaxBatchBytes   int
	// RetryLimit is the number of retransmissions of one batch after
	// transient failures.
	RetryLimit       int
	RetryBackoffBase time.Duration
}

func DefaultLimits() Limits {
	return Limits{
		MaxBatchEntries:  100,
		MaxBatchBytes:    MaxBatchBytes,
		RetryLimit:       3,
		RetryBackoffBase: 500 * time.Millisecond,
	}
}

// Validate checks the limits against what the destination service accepts.
func (l Limits) Validate() error {
	if l.MaxBatchEntries < 1 || l.MaxBatchEntries > MaxBatchEntries {
		return fmt.Errorf("max batch entries must be between 1 and %d, got %d", MaxBatchEntries, l.MaxBatchEntries)
	}
	if l.MaxBatchBytes <= EventOverhead || l.MaxBatchBytes > MaxBatchBytes {
		return fmt.Errorf("max batch bytes must be between %d and %d, got %d", EventOverhead+1, MaxBatchBytes, l.MaxBatchBytes)
	}
	if l.RetryLimit < 0 {
		return fmt.Errorf("retry limit cannot be negative, got %d", l.RetryLimit)
	}
	if l.RetryBackoffBase < 0 {
		return fmt.Errorf("retry backoff base cannot be negative, got %s", l.RetryBackoffBase)
	}
	return nil
}

type Option func(*Forwarder)

func WithLimits(limits Limits) Option {
	return func(f *Forwarder) {
		f.limits = limits
	}
}

// WithMirror hands every accepted batch to m as well.
func WithMirror(m Mirror) Option {
	return func(f *Forwarder) {
		f.mirror = m
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(f *Forwarder) {
		f.logger = logger
	}
}
