package pipeline

import (
	"errors"
	"fmt"
	"strings"

	"github.com/oar-cd/skiff/domain"
)

// StageError is the failure of a single pipeline stage
type StageError struct {
	Stage domain.Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// FailedStage returns the stage err was raised in, or "" when err is not a StageError
func FailedStage(err error) domain.Stage {
	var stageErr *StageError
	if errors.As(err, &stageErr) {
		return stageErr.Stage
	}
	return ""
}

// FormatErrorForUser converts pipeline errors to operator hints.
// This should only be called at the handler level
func FormatErrorForUser(err error) string {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, domain.ErrLeaseUnavailable):
		return "another deployment of this project is in progress, try again when it finishes"
	case errors.Is(err, domain.ErrNoPortAvailable):
		return "no free host port in the configured range"
	case errors.Is(err, domain.ErrEntrypointWriteFailed):
		return "could not write the entrypoint into the project directory"
	case errors.Is(err, domain.ErrGenerationService):
		return "the build definition service is unavailable, check the llm settings"
	case errors.Is(err, domain.ErrBuildFailed):
		return "the image build failed, see the build output"
	case errors.Is(err, domain.ErrBuildVerificationFailed):
		return "the build finished but the image was not found"
	case errors.Is(err, domain.ErrContainerLaunchFailed):
		return "the container could not be started"
	case errors.Is(err, domain.ErrContainerNotFound):
		return "container not found"
	}

	errStr := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errStr, "no such file or directory"):
		return "project directory not found"
	case strings.Contains(errStr, "permission denied"):
		return "permission denied"
	case strings.Contains(errStr, "authentication required"):
		return "repository authentication failed, set git.token"
	case strings.Contains(errStr, "cannot connect to the docker daemon"):
		return "container engine is not reachable"
	case strings.Contains(errStr, "timeout"), strings.Contains(errStr, "deadline exceeded"):
		return "operation timed out"
	default:
		return "an unexpected error occurred"
	}
}
