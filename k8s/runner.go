package k8s

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/client-go/kubernetes"
)

const (
	podNamePrefix  = "hades-forwarder-"
	containerName  = "build"
	runIDLabel     = "hades.forwarder/run-id"
	appLabel       = "app.kubernetes.io/managed-by"
	appLabelValue  = "hades-log-forwarder"
	defaultPolling = 2 * time.Second
	defaultTimeout = 10 * time.Minute
)

// image pull failures leave the pod pending forever
var fatalWaitingReasons = map[string]bool{
	"ErrImagePull":               true,
	"ImagePullBackOff":           true,
	"InvalidImageName":           true,
	"CreateContainerConfigError": true,
}

// Runner starts single-container pods running a shell command.
type Runner struct {
	client         kubernetes.Interface
	namespace      string
	scriptExecutor []string
	limits         corev1.ResourceList
	startTimeout   time.Duration
	pollInterval   time.Duration
}

func NewRunner(client kubernetes.Interface, cfg Config) (*Runner, error) {
	executor := strings.Fields(cfg.ScriptExecutor)
	if len(executor) == 0 {
		return nil, errors.New("script executor must not be empty")
	}

	limits := corev1.ResourceList{}
	if cfg.CPULimit != "" {
		q, err := resource.ParseQuantity(cfg.CPULimit)
		if err != nil {
			return nil, fmt.Errorf("invalid CPU limit %q: %w", cfg.CPULimit, err)
		}
		limits[corev1.ResourceCPU] = q
	}
	if cfg.MemoryLimit != "" {
		q, err := resource.ParseQuantity(cfg.MemoryLimit)
		if err != nil {
			return nil, fmt.Errorf("invalid memory limit %q: %w", cfg.MemoryLimit, err)
		}
		limits[corev1.ResourceMemory] = q
	}

	startTimeout := cfg.StartTimeout
	if startTimeout <= 0 {
		startTimeout = defaultTimeout
	}

	return &Runner{
		client:         client,
		namespace:      cfg.Namespace,
		scriptExecutor: executor,
		limits:         limits,
		startTimeout:   startTimeout,
		pollInterval:   defaultPolling,
	}, nil
}

func (r *Runner) podSpec(image, command string) *corev1.Pod {
	runID := uuid.NewString()
	return &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{
			Name: podNamePrefix + runID[:8],
			Labels: map[string]string{
				runIDLabel: runID,
				appLabel:   appLabelValue,
			},
		},
		Spec: corev1.PodSpec{
			RestartPolicy: corev1.RestartPolicyNever,
			Containers: []corev1.Container{
				{
					Name:    containerName,
					Image:   image,
					Command: r.scriptExecutor,
					Args:    []string{command},
					Resources: corev1.ResourceRequirements{
						Limits: r.limits,
					},
				},
			},
		},
	}
}

// Start creates the pod and waits until it has left the Pending phase, so its
// log stream can be followed.
func (r *Runner) Start(ctx context.Context, image, command string) (*Pod, error) {
	created, err := r.client.CoreV1().Pods(r.namespace).Create(ctx, r.podSpec(image, command), metav1.CreateOptions{})
	if err != nil {
		return nil, fmt.Errorf("creating pod: %w", err)
	}

	pod := &Pod{
		Name:         created.Name,
		Namespace:    r.namespace,
		client:       r.client,
		pollInterval: r.pollInterval,
		logger:       slog.Default().With(slog.String("component", "k8s"), slog.String("pod", created.Name)),
	}
	pod.logger.Info("Pod created", "image", image)

	if err := r.waitForStart(ctx, pod); err != nil {
		if rerr := pod.Remove(context.WithoutCancel(ctx)); rerr != nil {
			pod.logger.Warn("Failed to remove pod after start failure", slog.Any("error", rerr))
		}
		return nil, err
	}
	return pod, nil
}

func (r *Runner) waitForStart(ctx context.Context, pod *Pod) error {
	pods := r.client.CoreV1().Pods(r.namespace)
	err := wait.PollUntilContextTimeout(ctx, r.pollInterval, r.startTimeout, true, func(ctx context.Context) (bool, error) {
		p, err := pods.Get(ctx, pod.Name, metav1.GetOptions{})
		if err != nil {
			return false, err
		}
		if p.Status.Phase != corev1.PodPending && p.Status.Phase != "" {
			return true, nil
		}
		for _, status := range p.Status.ContainerStatuses {
			if w := status.State.Waiting; w != nil && fatalWaitingReasons[w.Reason] {
				return false, fmt.Errorf("container cannot start: %s: %s", w.Reason, w.Message)
			}
		}
		return false, nil
	})
	if err != nil {
		return fmt.Errorf("waiting for pod %s to start: %w", pod.Name, err)
	}
	pod.logger.Debug("Pod started")
	return nil
}
