package cloudwatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"
	"github.com/ls1intum/hades/hadesLogForwarder/forwarder"
)

var _ forwarder.Client = (*Client)(nil)

// Config holds the credentials and location of the CloudWatch Logs service.
// Empty credentials fall back to the SDK's default provider chain.
type Config struct {
	Region          string `env:"AWS_REGION"`
	AccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
	SessionToken    string `env:"AWS_SESSION_TOKEN"`
	// Endpoint overrides the service endpoint, e.g. for LocalStack.
	Endpoint string `env:"AWS_ENDPOINT_URL"`
}

// API is the part of the CloudWatch Logs SDK client used by Client.
type API interface {
	DescribeLogGroups(ctx context.Context, params *cloudwatchlogs.DescribeLogGroupsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.DescribeLogGroupsOutput, error)
	CreateLogGroup(ctx context.Context, params *cloudwatchlogs.CreateLogGroupInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.CreateLogGroupOutput, error)
	DescribeLogStreams(ctx context.Context, params *cloudwatchlogs.DescribeLogStreamsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.DescribeLogStreamsOutput, error)
	CreateLogStream(ctx context.Context, params *cloudwatchlogs.CreateLogStreamInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.CreateLogStreamOutput, error)
	PutLogEvents(ctx context.Context, params *cloudwatchlogs.PutLogEventsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.PutLogEventsOutput, error)
}

// Client appends log events to CloudWatch Logs.
type Client struct {
	api    API
	logger *slog.Logger
}

// New creates a Client from cfg.
func New(ctx context.Context, cfg Config) (*Client, error) {
	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" || cfg.SecretAccessKey != "" {
		if cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
			return nil, fmt.Errorf("both access key id and secret access key are required")
		}
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken)))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	if awsCfg.Region == "" {
		return nil, fmt.Errorf("no AWS region configured")
	}

	api := cloudwatchlogs.NewFromConfig(awsCfg, func(o *cloudwatchlogs.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	slog.Debug("Created CloudWatch Logs client", slog.String("region", awsCfg.Region), slog.String("endpoint", cfg.Endpoint))
	return NewWithAPI(api), nil
}

// NewWithAPI wraps an existing SDK client.
func NewWithAPI(api API) *Client {
	return &Client{
		api:    api,
		logger: slog.Default().With(slog.String("component", "cloudwatch")),
	}
}

func (c *Client) GroupExists(ctx context.Context, group string) (bool, error) {
	paginator := cloudwatchlogs.NewDescribeLogGroupsPaginator(c.api, &cloudwatchlogs.DescribeLogGroupsInput{
		LogGroupNamePrefix: aws.String(group),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return false, fmt.Errorf("describing log group %s: %w", group, err)
		}
		for _, g := range page.LogGroups {
			if aws.ToString(g.LogGroupName) == group {
				return true, nil
			}
		}
	}
	return false, nil
}

func (c *Client) CreateGroup(ctx context.Context, group string) error {
	_, err := c.api.CreateLogGroup(ctx, &cloudwatchlogs.CreateLogGroupInput{
		LogGroupName: aws.String(group),
	})
	return mapCreateError(err, "log group "+group)
}

func (c *Client) StreamToken(ctx context.Context, group, stream string) (string, bool, error) {
	paginator := cloudwatchlogs.NewDescribeLogStreamsPaginator(c.api, &cloudwatchlogs.DescribeLogStreamsInput{
		LogGroupName:        aws.String(group),
		LogStreamNamePrefix: aws.String(stream),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			var notFound *types.ResourceNotFoundException
			if errors.As(err, &notFound) {
				return "", false, nil
			}
			return "", false, fmt.Errorf("describing log stream %s/%s: %w", group, stream, err)
		}
		for _, s := range page.LogStreams {
			if aws.ToString(s.LogStreamName) == stream {
				return aws.ToString(s.UploadSequenceToken), true, nil
			}
		}
	}
	return "", false, nil
}

func (c *Client) CreateStream(ctx context.Context, group, stream string) error {
	_, err := c.api.CreateLogStream(ctx, &cloudwatchlogs.CreateLogStreamInput{
		LogGroupName:  aws.String(group),
		LogStreamName: aws.String(stream),
	})
	return mapCreateError(err, "log stream "+group+"/"+stream)
}

// PutEvents appends lines in a single PutLogEvents call. The SDK's own
// retries are disabled for this call, the forwarder decides what to retry.
func (c *Client) PutEvents(ctx context.Context, dest forwarder.Destination, token string, lines []forwarder.LogLine) (string, error) {
	input := &cloudwatchlogs.PutLogEventsInput{
		LogGroupName:  aws.String(dest.Group),
		LogStreamName: aws.String(dest.Stream),
		LogEvents:     toInputEvents(lines),
	}
	if token != "" {
		input.SequenceToken = aws.String(token)
	}

	out, err := c.api.PutLogEvents(ctx, input, func(o *cloudwatchlogs.Options) {
		o.RetryMaxAttempts = 1
	})
	if err != nil {
		return "", classify(err)
	}

	if err := rejected(out.RejectedLogEventsInfo); err != nil {
		c.logger.Warn("Log events were rejected", slog.String("destination", dest.String()), slog.Any("error", err))
		return "", err
	}

	return aws.ToString(out.NextSequenceToken), nil
}

// rejected reports the events the service refused although the request as a
// whole succeeded.
func rejected(info *types.RejectedLogEventsInfo) error {
	if info == nil {
		return nil
	}
	var reasons []string
	if info.TooOldLogEventEndIndex != nil {
		reasons = append(reasons, fmt.Sprintf("too old up to event %d", aws.ToInt32(info.TooOldLogEventEndIndex)))
	}
	if info.ExpiredLogEventEndIndex != nil {
		reasons = append(reasons, fmt.Sprintf("expired up to event %d", aws.ToInt32(info.ExpiredLogEventEndIndex)))
	}
	if info.TooNewLogEventStartIndex != nil {
		reasons = append(reasons, fmt.Sprintf("too new from event %d", aws.ToInt32(info.TooNewLogEventStartIndex)))
	}
	if len(reasons) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", forwarder.ErrEventsRejected, strings.Join(reasons, ", "))
}

func toInputEvents(lines []forwarder.LogLine) []types.InputLogEvent {
	events := make([]types.InputLogEvent, 0, len(lines))
	for _, line := range lines {
		events = append(events, types.InputLogEvent{
			Message:   aws.String(line.Message),
			Timestamp: aws.Int64(line.Timestamp.UnixMilli()),
		})
	}
	return events
}
