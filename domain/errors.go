package domain

import "errors"

var (
	ErrNoPortAvailable         = errors.New("no free port available")
	ErrEntrypointWriteFailed   = errors.New("entrypoint write failed")
	ErrGenerationService       = errors.New("generation service error")
	ErrBuildFailed             = errors.New("build failed")
	ErrBuildVerificationFailed = errors.New("build verification failed")
	ErrContainerNotFound       = errors.New("container not found")
	ErrContainerLaunchFailed   = errors.New("container launch failed")
	ErrLeaseUnavailable        = errors.New("project is locked by another run")
)
