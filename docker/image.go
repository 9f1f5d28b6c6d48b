package docker

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
)

// ensureImage pulls img unless it is already present locally.
func ensureImage(ctx context.Context, cli dockerAPI, img string) error {
	if _, err := cli.ImageInspect(ctx, img); err == nil {
		slog.Debug("Image present locally", slog.String("image", img))
		return nil
	} else if !client.IsErrNotFound(err) {
		return fmt.Errorf("inspecting image %s: %w", img, err)
	}

	slog.Info("Pulling image", slog.String("image", img))
	response, err := cli.ImagePull(ctx, img, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("failed to pull image %s: %w", img, err)
	}
	defer response.Close()

	// the pull only completes once the progress stream has been consumed
	if _, err := io.Copy(io.Discard, response); err != nil {
		return fmt.Errorf("failed to pull image %s: %w", img, err)
	}
	return nil
}
