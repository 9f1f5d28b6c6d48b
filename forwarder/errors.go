package forwarder

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyExists is returned by a Client when a group or stream it was
	// asked to create is already present.
	ErrAlreadyExists = errors.New("resource already exists")
	// ErrRetriesExhausted marks a batch that kept failing with transient errors.
	ErrRetriesExhausted = errors.New("retry limit exhausted")
	// ErrStreamMissing is returned when the destination stream vanished mid-run.
	ErrStreamMissing = errors.New("destination stream does not exist")
	// ErrEventsRejected is returned by a Client when the destination accepted
	// the request but refused some of its events.
	ErrEventsRejected = errors.New("log events rejected")
)

// DestinationError is returned when the destination could not be verified or
// created. It is fatal: no log line is consumed afterwards.
type DestinationError struct {
	Destination Destination
	Op          string
	Err         error
}

func (e *DestinationError) Error() string {
	return fmt.Sprintf("ensuring destination %s: %s: %v", e.Destination, e.Op, e.Err)
}

func (e *DestinationError) Unwrap() error {
	return e.Err
}

// TransientSubmissionError is a retryable submission failure: throttling,
// a stale sequencing token or a transient network fault.
type TransientSubmissionError struct {
	Reason string
	// StaleToken is set when the destination rejected the sequencing token.
	StaleToken bool
	// AlreadyAccepted is set when the destination already holds the batch.
	AlreadyAccepted bool
	// ExpectedToken carries the token the destination expects next, if known.
	ExpectedToken string
	Err           error
}

func (e *TransientSubmissionError) Error() string {
	if e.Err == nil {
		return "transient submission error: " + e.Reason
	}
	return fmt.Sprintf("transient submission error: %s: %v", e.Reason, e.Err)
}

func (e *TransientSubmissionError) Unwrap() error {
	return e.Err
}

// FatalSubmissionError terminates forwarding. When returned from Run it names
// the line range of the batch that could not be delivered.
type FatalSubmissionError struct {
	First    int
	Last     int
	Attempts int
	Err      error
}

func (e *FatalSubmissionError) Error() string {
	return fmt.Sprintf("submitting batch (lines %d-%d) failed after %d attempt(s): %v", e.First, e.Last, e.Attempts, e.Err)
}

func (e *FatalSubmissionError) Unwrap() error {
	return e.Err
}
