//go:build integration

package cloudwatch

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/ls1intum/hades/hadesLogForwarder/forwarder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/localstack"
)

const localstackImage = "localstack/localstack:3.8"

type lines struct {
	items []forwarder.LogLine
}

func (s *lines) Next(context.Context) (forwarder.LogLine, error) {
	if len(s.items) == 0 {
		return forwarder.LogLine{}, io.EOF
	}
	line := s.items[0]
	s.items = s.items[1:]
	return line, nil
}

type LocalstackTestSuite struct {
	suite.Suite
	container *localstack.LocalStackContainer
	cfg       Config
}

func (s *LocalstackTestSuite) SetupSuite() {
	ctx := context.Background()
	container, err := localstack.Run(ctx, localstackImage)
	require.NoError(s.T(), err)
	s.container = container

	endpoint, err := container.PortEndpoint(ctx, "4566/tcp", "http")
	require.NoError(s.T(), err)

	s.cfg = Config{
		Region:          "us-east-1",
		AccessKeyID:     "test",
		SecretAccessKey: "test",
		Endpoint:        endpoint,
	}
}

func (s *LocalstackTestSuite) TearDownSuite() {
	require.NoError(s.T(), testcontainers.TerminateContainer(s.container))
}

func (s *LocalstackTestSuite) rawClient(ctx context.Context) *cloudwatchlogs.Client {
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(s.cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(s.cfg.AccessKeyID, s.cfg.SecretAccessKey, "")))
	require.NoError(s.T(), err)
	return cloudwatchlogs.NewFromConfig(awsCfg, func(o *cloudwatchlogs.Options) {
		o.BaseEndpoint = aws.String(s.cfg.Endpoint)
	})
}

func (s *LocalstackTestSuite) TestForwardsIntoNewStream() {
	ctx := context.Background()
	client, err := New(ctx, s.cfg)
	require.NoError(s.T(), err)

	dest := forwarder.Destination{Group: "hades-it", Stream: fmt.Sprintf("run-%d", time.Now().UnixNano())}
	token, err := forwarder.EnsureDestination(ctx, client, dest)
	require.NoError(s.T(), err)

	// a second run finds everything in place
	_, err = forwarder.EnsureDestination(ctx, client, dest)
	require.NoError(s.T(), err)

	limits := forwarder.DefaultLimits()
	limits.MaxBatchEntries = 10
	fwd, err := forwarder.New(client, dest, token, forwarder.WithLimits(limits))
	require.NoError(s.T(), err)

	start := time.Now().UTC().Truncate(time.Millisecond)
	src := &lines{}
	for i := range 25 {
		src.items = append(src.items, forwarder.LogLine{
			Timestamp: start.Add(time.Duration(i) * time.Millisecond),
			Message:   fmt.Sprintf("line %d", i+1),
			Stream:    forwarder.StreamStdout,
		})
	}
	require.NoError(s.T(), fwd.Run(ctx, src))
	assert.Equal(s.T(), 25, fwd.Forwarded())

	out, err := s.rawClient(ctx).GetLogEvents(ctx, &cloudwatchlogs.GetLogEventsInput{
		LogGroupName:  aws.String(dest.Group),
		LogStreamName: aws.String(dest.Stream),
		StartFromHead: aws.Bool(true),
	})
	require.NoError(s.T(), err)
	require.Len(s.T(), out.Events, 25)
	assert.Equal(s.T(), "line 1", aws.ToString(out.Events[0].Message))
	assert.Equal(s.T(), "line 25", aws.ToString(out.Events[24].Message))
}

func TestLocalstackTestSuite(t *testing.T) {
	suite.Run(t, new(LocalstackTestSuite))
}
