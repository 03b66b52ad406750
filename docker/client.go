package docker

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	cerrdefs "github.com/containerd/errdefs"
	"github.com/docker/docker/api/types/build"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/archive"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/docker/go-connections/nat"

	"github.com/oar-cd/skiff/domain"
)

const (
	// stopTimeoutSeconds is the grace period before the engine kills a stopping container
	stopTimeoutSeconds = 10
	hostPortAttempts   = 10
	hostPortInterval   = 200 * time.Millisecond
)

// Client implements Engine with the Docker SDK
type Client struct {
	cli *client.Client
}

// NewClient connects to the engine at host, or to the one named by DOCKER_HOST when host is empty
func NewClient(host string) (*Client, error) {
	opts := []client.Opt{client.FromEnv, client.WithAPIVersionNegotiation()}
	if host != "" {
		opts = append(opts, client.WithHost(host))
	}

	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Docker client: %w", err)
	}
	return &Client{cli: cli}, nil
}

// Close closes the Docker client
func (c *Client) Close() error {
	if c.cli != nil {
		return c.cli.Close()
	}
	return nil
}

// BuildImage sends dir as the build context and returns the engine's event stream.
// The caller must drain or close the stream.
func (c *Client) BuildImage(ctx context.Context, dir, tag string) (BuildStream, error) {
	if dir == "" {
		return nil, fmt.Errorf("build directory cannot be empty")
	}
	if tag == "" {
		return nil, fmt.Errorf("image tag cannot be empty")
	}

	buildCtx, err := archive.TarWithOptions(dir, &archive.TarOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to create build context: %w", err)
	}
	defer func() {
		if closeErr := buildCtx.Close(); closeErr != nil {
			slog.Debug("Failed to close build context", "layer", "docker", "error", closeErr)
		}
	}()

	resp, err := c.cli.ImageBuild(ctx, buildCtx, build.ImageBuildOptions{
		Tags:        []string{tag},
		Dockerfile:  domain.BuildDefinitionFile,
		Remove:      true,
		ForceRemove: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start image build: %w", err)
	}

	return newJSONStream(resp.Body), nil
}

// ImageExists reports whether ref resolves to a local image
func (c *Client) ImageExists(ctx context.Context, ref string) (bool, error) {
	if _, err := c.cli.ImageInspect(ctx, ref); err != nil {
		if cerrdefs.IsNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to inspect image %s: %w", ref, err)
	}
	return true, nil
}

// FindContainer looks a container up by name or ID. A miss returns domain.ErrContainerNotFound.
func (c *Client) FindContainer(ctx context.Context, name string) (*domain.ContainerInfo, error) {
	inspect, err := c.cli.ContainerInspect(ctx, name)
	if err != nil {
		if cerrdefs.IsNotFound(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrContainerNotFound, name)
		}
		return nil, fmt.Errorf("failed to inspect container %s: %w", name, err)
	}

	info := &domain.ContainerInfo{}
	if inspect.ContainerJSONBase != nil {
		info.ID = inspect.ID
		info.Name = strings.TrimPrefix(inspect.Name, "/")
		if inspect.State != nil {
			info.State = inspect.State.Status
			info.Running = inspect.State.Running
		}
	}
	if inspect.Config != nil {
		info.Image = inspect.Config.Image
	}
	if inspect.NetworkSettings != nil {
		info.HostPort = firstHostPort(inspect.NetworkSettings.Ports)
	}

	return info, nil
}

// StopContainer stops a running container, giving it a short grace period
func (c *Client) StopContainer(ctx context.Context, id string) error {
	timeout := stopTimeoutSeconds
	if err := c.cli.ContainerStop(ctx, id, container.StopOptions{Timeout: &timeout}); err != nil {
		return fmt.Errorf("failed to stop container %s: %w", id, err)
	}
	return nil
}

// RemoveContainer force-removes a container
func (c *Client) RemoveContainer(ctx context.Context, id string) error {
	if err := c.cli.ContainerRemove(ctx, id, container.RemoveOptions{Force: true}); err != nil {
		return fmt.Errorf("failed to remove container %s: %w", id, err)
	}
	return nil
}

// RunContainer creates and starts a detached container publishing spec.InternalPort,
// then waits briefly for the engine to report the bound host port.
func (c *Client) RunContainer(ctx context.Context, spec RunSpec) (*domain.ContainerInstance, error) {
	if strings.TrimSpace(spec.Name) == "" {
		return nil, fmt.Errorf("container name cannot be empty")
	}
	if strings.TrimSpace(spec.Image) == "" {
		return nil, fmt.Errorf("image name cannot be empty")
	}

	port, err := nat.NewPort("tcp", strconv.Itoa(spec.InternalPort))
	if err != nil {
		return nil, fmt.Errorf("invalid internal port %d: %w", spec.InternalPort, err)
	}

	hostPort := ""
	if spec.HostPort > 0 {
		hostPort = strconv.Itoa(spec.HostPort)
	}

	cfg := &container.Config{
		Image:        spec.Image,
		Env:          spec.Env,
		ExposedPorts: nat.PortSet{port: struct{}{}},
		Labels:       map[string]string{LabelIdentity: spec.Name},
	}
	hostCfg := &container.HostConfig{
		PortBindings: nat.PortMap{port: []nat.PortBinding{{HostPort: hostPort}}},
	}

	created, err := c.cli.ContainerCreate(ctx, cfg, hostCfg, nil, nil, spec.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to create container %s: %w", spec.Name, err)
	}

	if err := c.cli.ContainerStart(ctx, created.ID, container.StartOptions{}); err != nil {
		return nil, fmt.Errorf("failed to start container %s: %w", spec.Name, err)
	}

	bound, err := c.waitForHostPort(ctx, created.ID, port)
	if err != nil {
		return nil, err
	}

	slog.Debug("Container started",
		"layer", "docker",
		"operation", "run",
		"container", spec.Name,
		"container_id", created.ID,
		"host_port", bound)

	return &domain.ContainerInstance{
		ID:           created.ID,
		Name:         spec.Name,
		Image:        spec.Image,
		HostPort:     bound,
		InternalPort: spec.InternalPort,
	}, nil
}

func (c *Client) waitForHostPort(ctx context.Context, id string, port nat.Port) (int, error) {
	for attempt := 0; attempt < hostPortAttempts; attempt++ {
		inspect, err := c.cli.ContainerInspect(ctx, id)
		if err != nil {
			return 0, fmt.Errorf("failed to inspect container %s: %w", id, err)
		}
		if inspect.NetworkSettings != nil {
			if p := hostPortFor(inspect.NetworkSettings.Ports, port); p > 0 {
				return p, nil
			}
		}

		select {
		case <-ctx.Done():
			return 0, fmt.Errorf("waiting for host port: %w", ctx.Err())
		case <-time.After(hostPortInterval):
		}
	}
	return 0, fmt.Errorf("container %s did not publish port %s", id, port)
}

// ContainerLogs returns the last tail lines of combined stdout and stderr
func (c *Client) ContainerLogs(ctx context.Context, id string, tail int) (string, error) {
	opts := container.LogsOptions{ShowStdout: true, ShowStderr: true}
	if tail > 0 {
		opts.Tail = strconv.Itoa(tail)
	}

	logs, err := c.cli.ContainerLogs(ctx, id, opts)
	if err != nil {
		if cerrdefs.IsNotFound(err) {
			return "", fmt.Errorf("%w: %s", domain.ErrContainerNotFound, id)
		}
		return "", fmt.Errorf("failed to read logs of %s: %w", id, err)
	}
	defer func() {
		if closeErr := logs.Close(); closeErr != nil {
			slog.Debug("Failed to close container logs reader", "layer", "docker", "error", closeErr)
		}
	}()

	// Demultiplex Docker logs to remove headers
	var out bytes.Buffer
	if _, err := stdcopy.StdCopy(&out, &out, logs); err != nil {
		return "", fmt.Errorf("failed to read logs of %s: %w", id, err)
	}
	return out.String(), nil
}

func hostPortFor(ports nat.PortMap, port nat.Port) int {
	for _, binding := range ports[port] {
		if p, err := strconv.Atoi(strings.TrimSpace(binding.HostPort)); err == nil && p > 0 {
			return p
		}
	}
	return 0
}

func firstHostPort(ports nat.PortMap) int {
	for port := range ports {
		if p := hostPortFor(ports, port); p > 0 {
			return p
		}
	}
	return 0
}
