package forwarder

import (
	"context"
	"errors"
	"log/slog"
)

// Client is the subset of the log destination service the forwarder relies on.
type Client interface {
	GroupExists(ctx context.Context, group string) (bool, error)
	CreateGroup(ctx context.Context, group string) error
	// StreamToken returns the current sequencing token of the stream and
	// whether the stream exists at all.
	StreamToken(ctx context.Context, group, stream string) (string, bool, error)
	CreateStream(ctx context.Context, group, stream string) error
	// PutEvents appends lines to the stream and returns the next sequencing
	// token. Retryable failures are reported as *TransientSubmissionError.
	PutEvents(ctx context.Context, dest Destination, token string, lines []LogLine) (string, error)
}

// EnsureDestination makes sure the log group and stream exist, creating
// whichever is missing, and returns the stream's current sequencing token.
// A concurrent creation by someone else is not an error.
func EnsureDestination(ctx context.Context, client Client, dest Destination) (string, error) {
	logger := slog.Default().With(slog.String("group", dest.Group), slog.String("stream", dest.Stream))

	exists, err := client.GroupExists(ctx, dest.Group)
	if err != nil {
		return "", &DestinationError{Destination: dest, Op: "describe group", Err: err}
	}
	if !exists {
		err := client.CreateGroup(ctx, dest.Group)
		switch {
		case err == nil:
			logger.Info("Created log group")
		case errors.Is(err, ErrAlreadyExists):
			logger.Info("Log group already exists")
		default:
			return "", &DestinationError{Destination: dest, Op: "create group", Err: err}
		}
	}

	token, exists, err := client.StreamToken(ctx, dest.Group, dest.Stream)
	if err != nil {
		return "", &DestinationError{Destination: dest, Op: "describe stream", Err: err}
	}
	if exists {
		logger.Debug("Log stream already exists", slog.Bool("has_token", token != ""))
		return token, nil
	}

	err = client.CreateStream(ctx, dest.Group, dest.Stream)
	switch {
	case err == nil:
		logger.Info("Created log stream")
		return "", nil
	case errors.Is(err, ErrAlreadyExists):
		// Lost a creation race, pick up whatever token the winner left behind.
		logger.Info("Log stream already exists")
		token, _, err := client.StreamToken(ctx, dest.Group, dest.Stream)
		if err != nil {
			return "", &DestinationError{Destination: dest, Op: "describe stream", Err: err}
		}
		return token, nil
	default:
		return "", &DestinationError{Destination: dest, Op: "create stream", Err: err}
	}
}
