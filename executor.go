package main

import (
	"context"
	"fmt"

	"github.com/ls1intum/hades/hadesLogForwarder/docker"
	"github.com/ls1intum/hades/hadesLogForwarder/forwarder"
	"github.com/ls1intum/hades/hadesLogForwarder/k8s"
)

// logSource is a followed log stream that must be closed when done.
type logSource interface {
	forwarder.Source
	Close() error
}

// process is the running command whose output is forwarded.
type process interface {
	Logs(ctx context.Context) (logSource, error)
	Wait(ctx context.Context) (int64, error)
	Remove(ctx context.Context) error
}

type executor interface {
	Start(ctx context.Context, image, command string) (process, error)
	Close() error
}

func newExecutor(cfg ForwarderConfig) (executor, error) {
	switch cfg.Executor {
	case executorDocker:
		runner, err := docker.NewRunner(cfg.Docker.Options()...)
		if err != nil {
			return nil, err
		}
		return dockerExecutor{runner}, nil
	case executorK8s:
		clientset, err := k8s.NewClientset(cfg.K8s)
		if err != nil {
			return nil, err
		}
		runner, err := k8s.NewRunner(clientset, cfg.K8s)
		if err != nil {
			return nil, err
		}
		return k8sExecutor{runner}, nil
	default:
		return nil, fmt.Errorf("invalid executor %q", cfg.Executor)
	}
}

type dockerExecutor struct {
	runner *docker.Runner
}

func (e dockerExecutor) Start(ctx context.Context, image, command string) (process, error) {
	c, err := e.runner.Start(ctx, image, command)
	if err != nil {
		return nil, err
	}
	return dockerProcess{c}, nil
}

func (e dockerExecutor) Close() error {
	return e.runner.Close()
}

type dockerProcess struct {
	*docker.Container
}

func (p dockerProcess) Logs(ctx context.Context) (logSource, error) {
	return p.Container.Logs(ctx)
}

type k8sExecutor struct {
	runner *k8s.Runner
}

func (e k8sExecutor) Start(ctx context.Context, image, command string) (process, error) {
	pod, err := e.runner.Start(ctx, image, command)
	if err != nil {
		return nil, err
	}
	return k8sProcess{pod}, nil
}

func (e k8sExecutor) Close() error {
	return nil
}

type k8sProcess struct {
	*k8s.Pod
}

func (p k8sProcess) Logs(ctx context.Context) (logSource, error) {
	return p.Pod.Logs(ctx)
}
