// Package builder drives an image build and verifies its result.
package builder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/oar-cd/skiff/docker"
	"github.com/oar-cd/skiff/domain"
)

// Builder builds project images through a container engine
type Builder struct {
	engine  docker.Engine
	timeout time.Duration
}

// NewBuilder returns a Builder. A zero timeout leaves the build bounded only by ctx.
func NewBuilder(engine docker.Engine, timeout time.Duration) *Builder {
	return &Builder{engine: engine, timeout: timeout}
}

// Build submits dir with tag, relays progress to out and checks the image exists afterwards.
// The first error event aborts the build without the existence check.
func (b *Builder) Build(ctx context.Context, dir, tag string, out io.Writer) (*domain.BuildResult, error) {
	if out == nil {
		out = io.Discard
	}
	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	slog.Info("Building image",
		"layer", "builder",
		"operation", "build",
		"dir", dir,
		"tag", tag)

	stream, err := b.engine.BuildImage(ctx, dir, tag)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrBuildFailed, err)
	}
	defer func() {
		if closeErr := stream.Close(); closeErr != nil {
			slog.Debug("Failed to close build stream", "layer", "builder", "error", closeErr)
		}
	}()

	result := &domain.BuildResult{Image: tag}
	for {
		event, err := stream.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return result, fmt.Errorf("%w: build did not finish: %v", domain.ErrBuildFailed, ctxErr)
			}
			return result, fmt.Errorf("%w: %v", domain.ErrBuildFailed, err)
		}

		switch event.Kind {
		case domain.BuildEventProgress:
			result.Productive = true
			result.Log = append(result.Log, event.Message)
			_, _ = io.WriteString(out, event.Message)
		case domain.BuildEventError:
			return result, fmt.Errorf("%w: %s", domain.ErrBuildFailed, event.Message)
		default:
			slog.Info("Unrecognized build event",
				"layer", "builder",
				"operation", "build",
				"raw", event.Raw)
		}
	}

	if !result.Productive {
		slog.Warn("Build produced no progress output, the build context may be empty",
			"layer", "builder",
			"operation", "build",
			"dir", dir)
	}

	exists, err := b.engine.ImageExists(ctx, tag)
	if err != nil {
		return result, fmt.Errorf("%w: %v", domain.ErrBuildVerificationFailed, err)
	}
	if !exists {
		return result, fmt.Errorf("%w: image %s not found after build", domain.ErrBuildVerificationFailed, tag)
	}

	slog.Info("Image built",
		"layer", "builder",
		"operation", "build",
		"tag", tag,
		"log_lines", len(result.Log))

	return result, nil
}

// Output joins the build log the way it was written to the operator
func Output(result *domain.BuildResult) string {
	if result == nil {
		return ""
	}
	return strings.Join(result.Log, "")
}
