package k8s

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
)

const (
	ConfigModeKubeconfig     = "kubeconfig"
	ConfigModeServiceAccount = "serviceaccount"
)

type Config struct {
	// Namespace the build pod is created in
	Namespace string `env:"K8S_NAMESPACE,notEmpty" envDefault:"default"`

	// ConfigMode selects how the client authenticates ("kubeconfig" or "serviceaccount")
	ConfigMode string `env:"K8S_CONFIG_MODE,notEmpty" envDefault:"kubeconfig"`
	Kubeconfig string `env:"KUBECONFIG"`

	ScriptExecutor string        `env:"K8S_SCRIPT_EXECUTOR" envDefault:"/bin/bash -c"`
	CPULimit       string        `env:"K8S_CPU_LIMIT"`
	MemoryLimit    string        `env:"K8S_MEMORY_LIMIT"`
	StartTimeout   time.Duration `env:"K8S_START_TIMEOUT" envDefault:"10m"`
}

// NewClientset creates a clientset for the configured access mode. Without an
// explicit kubeconfig the file in the user's home directory is used.
func NewClientset(cfg Config) (kubernetes.Interface, error) {
	var restCfg *rest.Config
	var err error

	switch cfg.ConfigMode {
	case ConfigModeServiceAccount:
		slog.Info("Using in-cluster service account")
		restCfg, err = rest.InClusterConfig()
	case ConfigModeKubeconfig:
		path := cfg.Kubeconfig
		if path == "" {
			home, herr := os.UserHomeDir()
			if herr != nil {
				return nil, fmt.Errorf("getting user home dir: %w", herr)
			}
			path = filepath.Join(home, ".kube", "config")
		}
		slog.Info("Using kubeconfig", "path", path)
		restCfg, err = clientcmd.BuildConfigFromFlags("", path)
	default:
		return nil, fmt.Errorf("unknown K8S_CONFIG_MODE %q", cfg.ConfigMode)
	}
	if err != nil {
		return nil, fmt.Errorf("loading cluster config: %w", err)
	}

	clientset, err := kubernetes.NewForConfig(restCfg)
	if err != nil {
		return nil, fmt.Errorf("creating Kubernetes clientset: %w", err)
	}
	return clientset, nil
}
