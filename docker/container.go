package docker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/ls1intum/hades/hadesLogForwarder/log"
)

const stopTimeoutSeconds = 10

// Container is a running container started by a Runner.
type Container struct {
	ID         string
	Image      string
	cli        dockerAPI
	autoremove bool
	logger     *slog.Logger
}

// Logs follows the combined stdout and stderr of the container from its start.
func (c *Container) Logs(ctx context.Context) (*log.Source, error) {
	reader, err := c.cli.ContainerLogs(ctx, c.ID, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Follow:     true,
		Timestamps: true,
	})
	if err != nil {
		return nil, fmt.Errorf("following container logs: %w", err)
	}
	return newLogSource(ctx, reader), nil
}

// Wait blocks until the container has stopped and returns its exit code.
func (c *Container) Wait(ctx context.Context) (int64, error) {
	statusCh, errCh := c.cli.ContainerWait(ctx, c.ID, container.WaitConditionNotRunning)
	select {
	case err := <-errCh:
		if err != nil {
			c.logger.Error("Error waiting for container", slog.Any("error", err))
			return -1, err
		}
		return -1, fmt.Errorf("container wait ended without status")
	case status := <-statusCh:
		if status.Error != nil {
			return status.StatusCode, fmt.Errorf("container wait: %s", status.Error.Message)
		}
		if status.StatusCode != 0 {
			c.logger.Warn("Container exited with status", slog.Int64("status", status.StatusCode))
		}
		return status.StatusCode, nil
	}
}

// Remove stops the container if it is still running and removes it.
func (c *Container) Remove(ctx context.Context) error {
	timeout := stopTimeoutSeconds
	if err := c.cli.ContainerStop(ctx, c.ID, container.StopOptions{Timeout: &timeout}); err != nil && !client.IsErrNotFound(err) {
		c.logger.Warn("Failed to stop container", slog.Any("error", err))
	}

	err := c.cli.ContainerRemove(ctx, c.ID, container.RemoveOptions{Force: true, RemoveVolumes: true})
	if err != nil {
		// an autoremoved container may already be gone
		if c.autoremove && client.IsErrNotFound(err) {
			return nil
		}
		return fmt.Errorf("removing container %s: %w", c.ID, err)
	}

	c.logger.Debug("Container removed")
	return nil
}
