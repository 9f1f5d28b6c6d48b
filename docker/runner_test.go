package docker

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/docker/docker/errdefs"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/ls1intum/hades/hadesLogForwarder/forwarder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type RunnerTestSuite struct {
	suite.Suite
	api    *fakeDocker
	runner *Runner
}

func (s *RunnerTestSuite) SetupTest() {
	s.api = &fakeDocker{localImages: map[string]bool{}}
	runner, err := NewRunner(withAPI(s.api), WithCPULimit(2), WithMemoryLimit("512m"))
	require.NoError(s.T(), err)
	s.runner = runner
}

func (s *RunnerTestSuite) TestStartPullsMissingImage() {
	c, err := s.runner.Start(context.Background(), "ubuntu:24.04", "echo hello")
	require.NoError(s.T(), err)

	assert.Equal(s.T(), []string{"ubuntu:24.04"}, s.api.pulled)
	assert.Equal(s.T(), "c0ffee", c.ID)
	assert.Equal(s.T(), []string{"c0ffee"}, s.api.started)
}

func (s *RunnerTestSuite) TestStartSkipsPullForLocalImage() {
	s.api.localImages["ubuntu:24.04"] = true

	_, err := s.runner.Start(context.Background(), "ubuntu:24.04", "echo hello")
	require.NoError(s.T(), err)
	assert.Empty(s.T(), s.api.pulled)
}

func (s *RunnerTestSuite) TestStartBuildsContainerConfig() {
	_, err := s.runner.Start(context.Background(), "ubuntu:24.04", "for i in 1 2 3; do echo $i; done")
	require.NoError(s.T(), err)

	cfg := s.api.created
	require.NotNil(s.T(), cfg)
	assert.Equal(s.T(), "ubuntu:24.04", cfg.Image)
	assert.Equal(s.T(), []string{"/bin/bash", "-c"}, []string(cfg.Entrypoint))
	assert.Equal(s.T(), []string{"for i in 1 2 3; do echo $i; done"}, []string(cfg.Cmd))
	assert.NotEmpty(s.T(), cfg.Labels[runIDLabel])

	assert.Equal(s.T(), int64(2e9), s.api.hostConfig.Resources.NanoCPUs)
	assert.Equal(s.T(), int64(512*1024*1024), s.api.hostConfig.Resources.Memory)
}

func (s *RunnerTestSuite) TestStartFailureRemovesContainer() {
	s.api.startErr = errors.New("no space left on device")

	_, err := s.runner.Start(context.Background(), "ubuntu:24.04", "true")
	require.Error(s.T(), err)
	assert.Equal(s.T(), []string{"c0ffee"}, s.api.removed)
}

func (s *RunnerTestSuite) TestWaitReturnsExitCode() {
	s.api.exitCode = 3
	c, err := s.runner.Start(context.Background(), "ubuntu:24.04", "exit 3")
	require.NoError(s.T(), err)

	code, err := c.Wait(context.Background())
	require.NoError(s.T(), err)
	assert.Equal(s.T(), int64(3), code)
}

func (s *RunnerTestSuite) TestRemoveToleratesAutoremovedContainer() {
	s.api.removeErr = errdefs.NotFound(errors.New("no such container"))
	c := &Container{ID: "gone", cli: s.api, autoremove: true, logger: slog.Default()}
	assert.NoError(s.T(), c.Remove(context.Background()))

	c.autoremove = false
	assert.Error(s.T(), c.Remove(context.Background()))
}

func (s *RunnerTestSuite) TestLogsYieldDemultiplexedLines() {
	var buf bytes.Buffer
	stdout := stdcopy.NewStdWriter(&buf, stdcopy.Stdout)
	stderr := stdcopy.NewStdWriter(&buf, stdcopy.Stderr)
	_, _ = stdout.Write([]byte("2024-05-01T12:00:00Z hello\n"))
	_, _ = stderr.Write([]byte("2024-05-01T12:00:01Z oops\n"))
	_, _ = stdout.Write([]byte("2024-05-01T12:00:02Z bye"))
	s.api.logs = buf.Bytes()

	c, err := s.runner.Start(context.Background(), "ubuntu:24.04", "true")
	require.NoError(s.T(), err)

	source, err := c.Logs(context.Background())
	require.NoError(s.T(), err)
	defer source.Close()

	var got []forwarder.LogLine
	for {
		line, err := source.Next(context.Background())
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(s.T(), err)
		got = append(got, line)
	}

	require.Len(s.T(), got, 3)
	assert.Equal(s.T(), "hello", got[0].Message)
	assert.Equal(s.T(), forwarder.StreamStdout, got[0].Stream)
	assert.Equal(s.T(), "oops", got[1].Message)
	assert.Equal(s.T(), forwarder.StreamStderr, got[1].Stream)
	assert.Equal(s.T(), "bye", got[2].Message)

	// exhausted sources keep reporting EOF
	_, err = source.Next(context.Background())
	assert.ErrorIs(s.T(), err, io.EOF)
}

func TestRunnerTestSuite(t *testing.T) {
	suite.Run(t, new(RunnerTestSuite))
}

func TestNewRunner_RejectsInvalidOptions(t *testing.T) {
	api := &fakeDocker{}

	_, err := NewRunner(withAPI(api), WithMemoryLimit("12x"))
	require.Error(t, err)
	assert.True(t, api.closed)

	_, err = NewRunner(withAPI(&fakeDocker{}), WithScriptExecutor("  "))
	assert.Error(t, err)
}
