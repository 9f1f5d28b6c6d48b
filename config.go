package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ls1intum/hades/hadesLogForwarder/cloudwatch"
	"github.com/ls1intum/hades/hadesLogForwarder/docker"
	"github.com/ls1intum/hades/hadesLogForwarder/forwarder"
	"github.com/ls1intum/hades/hadesLogForwarder/k8s"
	"github.com/ls1intum/hades/hadesLogForwarder/nats"
	"github.com/ls1intum/hades/hadesLogForwarder/utils"
)

const (
	executorDocker = "docker"
	executorK8s    = "k8s"
)

type ForwarderConfig struct {
	Executor string `env:"HADES_EXECUTOR" envDefault:"docker"`

	Image   string `env:"HADES_IMAGE"`
	Command string `env:"HADES_COMMAND"`
	Group   string `env:"AWS_CLOUDWATCH_GROUP"`
	Stream  string `env:"AWS_CLOUDWATCH_STREAM"`

	MaxBatchEntries    int `env:"FORWARDER_MAX_BATCH_ENTRIES" envDefault:"100"`
	MaxBatchBytes      int `env:"FORWARDER_MAX_BATCH_BYTES" envDefault:"1048576"`
	RetryLimit         int `env:"FORWARDER_RETRY_LIMIT" envDefault:"3"`
	RetryBackoffBaseMs int `env:"FORWARDER_RETRY_BACKOFF_BASE_MS" envDefault:"500"`

	AWS    cloudwatch.Config
	Docker docker.EnvConfig
	K8s    k8s.Config
	Nats   nats.ConnectionConfig
	Log    utils.LogConfig
}

// applyFlags overrides environment values with the flags given on the command line.
func (c *ForwarderConfig) applyFlags(opts cliOptions) {
	setString := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	setInt := func(dst *int, v *int) {
		if v != nil {
			*dst = *v
		}
	}

	setString(&c.Image, opts.DockerImage)
	setString(&c.Command, opts.BashCommand)
	setString(&c.Group, opts.Group)
	setString(&c.Stream, opts.Stream)
	setString(&c.AWS.AccessKeyID, opts.AccessKeyID)
	setString(&c.AWS.SecretAccessKey, opts.SecretAccessKey)
	setString(&c.AWS.Region, opts.Region)
	setString(&c.Executor, opts.Executor)

	setInt(&c.MaxBatchEntries, opts.MaxBatchEntries)
	setInt(&c.MaxBatchBytes, opts.MaxBatchBytes)
	setInt(&c.RetryLimit, opts.RetryLimit)
	setInt(&c.RetryBackoffBaseMs, opts.RetryBackoffBaseMs)

	if c.Stream == "" && c.Image != "" {
		c.Stream = defaultStreamName(c.Image)
	}
}

func (c *ForwarderConfig) validate() error {
	switch {
	case c.Image == "":
		return fmt.Errorf("no image given, use --docker-image")
	case c.Command == "":
		return fmt.Errorf("no command given, use --bash-command")
	case c.Group == "":
		return fmt.Errorf("no log group given, use --aws-cloudwatch-group")
	case c.Stream == "":
		return fmt.Errorf("no log stream given, use --aws-cloudwatch-stream")
	}

	switch c.Executor {
	case executorDocker, executorK8s:
	default:
		return fmt.Errorf("invalid executor %q, expected %q or %q", c.Executor, executorDocker, executorK8s)
	}

	return c.limits().Validate()
}

func (c *ForwarderConfig) limits() forwarder.Limits {
	return forwarder.Limits{
		MaxBatchEntries:  c.MaxBatchEntries,
		MaxBatchBytes:    c.MaxBatchBytes,
		RetryLimit:       c.RetryLimit,
		RetryBackoffBase: time.Duration(c.RetryBackoffBaseMs) * time.Millisecond,
	}
}

// stream names may not contain ':' or '*'
var streamNameReplacer = strings.NewReplacer(":", "-", "*", "-", "/", "-")

// defaultStreamName derives a unique stream name from the image, e.g.
// "ubuntu-24.04-5f0c...".
func defaultStreamName(image string) string {
	return streamNameReplacer.Replace(image) + "-" + uuid.NewString()
}
