package k8s

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ls1intum/hades/hadesLogForwarder/log"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/client-go/kubernetes"
)

// Pod is a build pod started by a Runner.
type Pod struct {
	Name      string
	Namespace string

	client       kubernetes.Interface
	pollInterval time.Duration
	logger       *slog.Logger
}

// Logs follows the pod's log stream from its start. Kubernetes does not
// separate stdout and stderr, so every line is reported as stdout.
func (p *Pod) Logs(ctx context.Context) (*log.Source, error) {
	req := p.client.CoreV1().Pods(p.Namespace).GetLogs(p.Name, &corev1.PodLogOptions{
		Container:  containerName,
		Follow:     true,
		Timestamps: true,
	})
	stream, err := req.Stream(ctx)
	if err != nil {
		return nil, fmt.Errorf("following pod logs: %w", err)
	}
	return log.NewSource(ctx, stream, log.Combined), nil
}

// Wait blocks until the build container has terminated and returns its exit code.
func (p *Pod) Wait(ctx context.Context) (int64, error) {
	var exitCode int32
	err := wait.PollUntilContextCancel(ctx, p.pollInterval, true, func(ctx context.Context) (bool, error) {
		pod, err := p.client.CoreV1().Pods(p.Namespace).Get(ctx, p.Name, metav1.GetOptions{})
		if err != nil {
			return false, err
		}
		for _, status := range pod.Status.ContainerStatuses {
			if status.Name == containerName && status.State.Terminated != nil {
				exitCode = status.State.Terminated.ExitCode
				return true, nil
			}
		}
		return false, nil
	})
	if err != nil {
		return -1, fmt.Errorf("waiting for pod %s: %w", p.Name, err)
	}

	if exitCode != 0 {
		p.logger.Warn("Container exited with status", slog.Int("status", int(exitCode)))
	}
	return int64(exitCode), nil
}

// Remove deletes the pod immediately. A pod that is already gone is not an error.
func (p *Pod) Remove(ctx context.Context) error {
	grace := int64(0)
	propagation := metav1.DeletePropagationBackground
	err := p.client.CoreV1().Pods(p.Namespace).Delete(ctx, p.Name, metav1.DeleteOptions{
		GracePeriodSeconds: &grace,
		PropagationPolicy:  &propagation,
	})
	if err != nil && !apierrors.IsNotFound(err) {
		return fmt.Errorf("deleting pod %s: %w", p.Name, err)
	}
	p.logger.Debug("Pod removed")
	return nil
}
