package cloudwatch

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
	"github.com/ls1intum/hades/hadesLogForwarder/forwarder"
)

// Error codes the service uses for conditions that go away on their own.
var transientCodes = map[string]bool{
	"ThrottlingException":         true,
	"ServiceUnavailableException": true,
	"OperationAbortedException":   true,
	"RequestTimeout":              true,
	"RequestTimeoutException":     true,
	"InternalFailure":             true,
}

func mapCreateError(err error, resource string) error {
	if err == nil {
		return nil
	}
	var exists *types.ResourceAlreadyExistsException
	if errors.As(err, &exists) {
		return fmt.Errorf("%s: %w", resource, forwarder.ErrAlreadyExists)
	}
	return fmt.Errorf("creating %s: %w", resource, err)
}

// classify marks retryable PutLogEvents failures as transient. Everything
// else is returned wrapped, the forwarder treats it as fatal.
func classify(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var staleToken *types.InvalidSequenceTokenException
	if errors.As(err, &staleToken) {
		return &forwarder.TransientSubmissionError{
			Reason:        "invalid sequence token",
			StaleToken:    true,
			ExpectedToken: aws.ToString(staleToken.ExpectedSequenceToken),
			Err:           err,
		}
	}

	var accepted *types.DataAlreadyAcceptedException
	if errors.As(err, &accepted) {
		return &forwarder.TransientSubmissionError{
			Reason:          "data already accepted",
			AlreadyAccepted: true,
			ExpectedToken:   aws.ToString(accepted.ExpectedSequenceToken),
			Err:             err,
		}
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		if transientCodes[apiErr.ErrorCode()] {
			return &forwarder.TransientSubmissionError{Reason: apiErr.ErrorCode(), Err: err}
		}
		return fmt.Errorf("putting log events: %w", err)
	}

	var sendErr *smithyhttp.RequestSendError
	var netErr net.Error
	if errors.As(err, &sendErr) || errors.As(err, &netErr) {
		return &forwarder.TransientSubmissionError{Reason: "network", Err: err}
	}

	return fmt.Errorf("putting log events: %w", err)
}
