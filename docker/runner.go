package docker

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/google/uuid"
	"github.com/ls1intum/hades/hadesLogForwarder/utils"
)

const runIDLabel = "hades.forwarder.run_id"

type Options struct {
	scriptExecutor      string
	containerAutoremove bool
	cpuLimit            uint
	memoryLimit         string
}

// Runner starts a command inside a fresh container.
type Runner struct {
	Options
	cli dockerAPI
}

func NewRunner(options ...DockerOption) (*Runner, error) {
	runner := &Runner{
		Options: Options{
			scriptExecutor: "/bin/bash -c",
		},
	}

	for _, option := range options {
		if err := option(runner); err != nil {
			runner.Close()
			return nil, err
		}
	}

	if runner.cli == nil {
		cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
		if err != nil {
			slog.Error("Failed to create Docker client", slog.Any("error", err))
			return nil, err
		}
		runner.cli = cli
	}

	return runner, nil
}

// Start runs command in a new container created from img, pulling the image
// first if necessary.
func (r *Runner) Start(ctx context.Context, img, command string) (*Container, error) {
	runID := uuid.New().String()
	logger := slog.Default().With(slog.String("image", img), slog.String("run_id", runID))

	if err := ensureImage(ctx, r.cli, img); err != nil {
		logger.Error("Failed to pull image", slog.Any("error", err))
		return nil, err
	}

	containerConfig := container.Config{
		Image:        img,
		Entrypoint:   strings.Fields(r.scriptExecutor),
		Cmd:          []string{command},
		AttachStdout: true,
		AttachStderr: true,
		Labels:       map[string]string{runIDLabel: runID},
	}

	hostConfig := container.HostConfig{
		AutoRemove: r.containerAutoremove,
	}

	// Limit the resource usage of the container
	if r.cpuLimit != 0 {
		logger.Debug("Setting CPU limit", "limit", r.cpuLimit)
		hostConfig.Resources.NanoCPUs = int64(r.cpuLimit) * 1e9
	}
	if ramLimit := utils.FindMemoryLimit(r.memoryLimit, ""); ramLimit != 0 {
		logger.Debug("Setting RAM limit", "limit", ramLimit)
		hostConfig.Resources.Memory = ramLimit
	}

	resp, err := r.cli.ContainerCreate(ctx, &containerConfig, &hostConfig, nil, nil, "")
	if err != nil {
		logger.Error("Failed to create container", slog.Any("error", err))
		return nil, fmt.Errorf("creating container: %w", err)
	}
	for _, warning := range resp.Warnings {
		logger.Warn("Container created with warning", slog.String("warning", warning))
	}

	c := &Container{
		ID:         resp.ID,
		Image:      img,
		cli:        r.cli,
		autoremove: r.containerAutoremove,
		logger:     logger.With(slog.String("container_id", resp.ID)),
	}

	if err := r.cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		logger.Error("Failed to start container", slog.Any("error", err))
		if rmErr := c.Remove(context.WithoutCancel(ctx)); rmErr != nil {
			logger.Error("Failed to cleanup container", slog.Any("error", rmErr))
		}
		return nil, fmt.Errorf("starting container: %w", err)
	}

	c.logger.Info("Container started")
	return c, nil
}

func (r *Runner) Close() error {
	if r.cli == nil {
		return nil
	}
	return r.cli.Close()
}
