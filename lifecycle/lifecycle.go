// Package lifecycle keeps at most one running container per project identity.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/oar-cd/skiff/docker"
	"github.com/oar-cd/skiff/domain"
)

// LookupFunc reads a variable from the host environment
type LookupFunc func(key string) (string, bool)

// Manager replaces, stops and inspects project containers
type Manager struct {
	engine        docker.Engine
	advertiseHost string
	forwardEnv    []string
	lookup        LookupFunc
}

// NewManager returns a Manager forwarding the named host variables into new containers
func NewManager(engine docker.Engine, advertiseHost string, forwardEnv []string) *Manager {
	return &Manager{
		engine:        engine,
		advertiseHost: advertiseHost,
		forwardEnv:    forwardEnv,
		lookup:        os.LookupEnv,
	}
}

// WithLookup replaces the environment source, such as one that also reads .env files
func (m *Manager) WithLookup(lookup LookupFunc) *Manager {
	m.lookup = lookup
	return m
}

// ForwardedEnv returns KEY=VALUE pairs for allow-listed variables that are set.
// Unset names are omitted entirely.
func (m *Manager) ForwardedEnv() []string {
	var env []string
	for _, key := range m.forwardEnv {
		if value, ok := m.lookup(key); ok {
			env = append(env, key+"="+value)
		}
	}
	return env
}

// Replace removes any container named identity, then starts image under that name
// publishing the internal port on hostPort (0 lets the engine choose). Failures while
// removing the old container are logged and ignored.
func (m *Manager) Replace(ctx context.Context, identity, image string, hostPort int) (*domain.ContainerInstance, string, error) {
	m.removeExisting(ctx, identity)

	instance, err := m.engine.RunContainer(ctx, docker.RunSpec{
		Name:         identity,
		Image:        image,
		InternalPort: domain.InternalPort,
		HostPort:     hostPort,
		Env:          m.ForwardedEnv(),
	})
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", domain.ErrContainerLaunchFailed, err)
	}

	address := instance.Address(m.advertiseHost)
	slog.Info("Container running",
		"layer", "lifecycle",
		"operation", "replace",
		"project", identity,
		"container_id", instance.ID,
		"address", address)

	return instance, address, nil
}

func (m *Manager) removeExisting(ctx context.Context, identity string) {
	info, err := m.engine.FindContainer(ctx, identity)
	if err != nil {
		if !errors.Is(err, domain.ErrContainerNotFound) {
			slog.Warn("Container lookup failed, continuing",
				"layer", "lifecycle",
				"operation", "replace",
				"project", identity,
				"error", err)
		}
		return
	}

	if err := m.engine.StopContainer(ctx, info.ID); err != nil {
		slog.Warn("Failed to stop previous container, continuing",
			"layer", "lifecycle",
			"operation", "replace",
			"project", identity,
			"container_id", info.ID,
			"error", err)
	}
	if err := m.engine.RemoveContainer(ctx, info.ID); err != nil {
		slog.Warn("Failed to remove previous container, continuing",
			"layer", "lifecycle",
			"operation", "replace",
			"project", identity,
			"container_id", info.ID,
			"error", err)
		return
	}

	slog.Info("Previous container removed",
		"layer", "lifecycle",
		"operation", "replace",
		"project", identity,
		"container_id", info.ID)
}

// Stop stops and removes the container of identity. Unlike Replace, errors are returned.
func (m *Manager) Stop(ctx context.Context, identity string) error {
	info, err := m.engine.FindContainer(ctx, identity)
	if err != nil {
		return err
	}

	if info.Running {
		if err := m.engine.StopContainer(ctx, info.ID); err != nil {
			return err
		}
	}
	if err := m.engine.RemoveContainer(ctx, info.ID); err != nil {
		return err
	}

	slog.Info("Container stopped",
		"layer", "lifecycle",
		"operation", "stop",
		"project", identity,
		"container_id", info.ID)
	return nil
}

// Status reports the engine's view of the container of identity
func (m *Manager) Status(ctx context.Context, identity string) (*domain.ContainerInfo, error) {
	return m.engine.FindContainer(ctx, identity)
}

// Address returns the URL a container bound to hostPort is reachable at
func (m *Manager) Address(hostPort int) string {
	instance := domain.ContainerInstance{HostPort: hostPort}
	return instance.Address(m.advertiseHost)
}

// Logs returns the last tail lines of the container of identity
func (m *Manager) Logs(ctx context.Context, identity string, tail int) (string, error) {
	info, err := m.engine.FindContainer(ctx, identity)
	if err != nil {
		return "", err
	}
	return m.engine.ContainerLogs(ctx, info.ID, tail)
}
