package docker

import (
	"fmt"
	"strings"

	"github.com/docker/docker/client"
	"github.com/ls1intum/hades/hadesLogForwarder/utils"
)

type DockerOption func(*Runner) error

func WithDockerHost(dockerHost string) DockerOption {
	return func(r *Runner) error {
		cli, err := client.NewClientWithOpts(client.WithHost(dockerHost), client.WithAPIVersionNegotiation())
		if err != nil {
			return fmt.Errorf("creating Docker client for %s: %w", dockerHost, err)
		}
		if r.cli != nil {
			r.cli.Close()
		}
		r.cli = cli
		return nil
	}
}

func WithScriptExecutor(scriptExecutor string) DockerOption {
	return func(r *Runner) error {
		if strings.TrimSpace(scriptExecutor) == "" {
			return fmt.Errorf("empty script executor")
		}
		r.scriptExecutor = scriptExecutor
		return nil
	}
}

func WithContainerAutoremove(autoremove bool) DockerOption {
	return func(r *Runner) error {
		r.containerAutoremove = autoremove
		return nil
	}
}

func WithCPULimit(cpuLimit uint) DockerOption {
	return func(r *Runner) error {
		r.cpuLimit = cpuLimit
		return nil
	}
}

func WithMemoryLimit(memoryLimit string) DockerOption {
	return func(r *Runner) error {
		if memoryLimit != "" {
			if _, err := utils.ParseMemoryLimit(memoryLimit); err != nil {
				return fmt.Errorf("invalid memory limit: %w", err)
			}
		}
		r.memoryLimit = memoryLimit
		return nil
	}
}

func withAPI(api dockerAPI) DockerOption {
	return func(r *Runner) error {
		r.cli = api
		return nil
	}
}
