package docker

import (
	"context"
	"io"

	"github.com/docker/docker/pkg/stdcopy"
	"github.com/ls1intum/hades/hadesLogForwarder/log"
)

// stdDemux splits Docker's multiplexed log format into stdout and stderr.
func stdDemux(stdout, stderr io.Writer, r io.Reader) error {
	_, err := stdcopy.StdCopy(stdout, stderr, r)
	return err
}

func newLogSource(ctx context.Context, reader io.ReadCloser) *log.Source {
	return log.NewSource(ctx, reader, stdDemux)
}
