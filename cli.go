package main

import (
	"github.com/jessevdk/go-flags"
)

type cliOptions struct {
	DockerImage string `long:"docker-image" description:"Image the command is run in"`
	BashCommand string `long:"bash-command" description:"Command handed to the script executor"`

	Group           string `long:"aws-cloudwatch-group" description:"CloudWatch Logs log group, created if missing"`
	Stream          string `long:"aws-cloudwatch-stream" description:"CloudWatch Logs log stream, defaults to <image>-<uuid>"`
	AccessKeyID     string `long:"aws-access-key-id" description:"AWS access key id, defaults to the SDK credential chain"`
	SecretAccessKey string `long:"aws-secret-access-key" description:"AWS secret access key"`
	Region          string `long:"aws-region" description:"AWS region"`

	Executor string `long:"executor" choice:"docker" choice:"k8s" description:"Where the command runs"`

	MaxBatchEntries    *int `long:"max-batch-entries" description:"Maximum number of lines per batch (1-10000)"`
	MaxBatchBytes      *int `long:"max-batch-bytes" description:"Maximum payload size of a batch in bytes"`
	RetryLimit         *int `long:"retry-limit" description:"Retransmissions of a batch after transient failures"`
	RetryBackoffBaseMs *int `long:"retry-backoff-base-ms" description:"Initial backoff between retransmissions"`
}

// parseArgs parses the command line. Help requests surface as a *flags.Error
// of type flags.ErrHelp.
func parseArgs(args []string) (cliOptions, error) {
	var opts cliOptions
	parser := flags.NewParser(&opts, flags.HelpFlag|flags.PassDoubleDash)
	parser.Name = "hades-log-forwarder"

	if _, err := parser.ParseArgs(args); err != nil {
		return cliOptions{}, err
	}
	return opts, nil
}
