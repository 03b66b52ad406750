// Package docker wraps the container engine operations Skiff needs.
package docker

import (
	"context"

	"github.com/oar-cd/skiff/domain"
)

// LabelIdentity marks containers started by Skiff with the project identity
const LabelIdentity = "dev.skiff.identity"

// BuildStream yields build events in engine order. Next returns io.EOF once the
// stream has ended normally.
type BuildStream interface {
	Next() (domain.BuildEvent, error)
	Close() error
}

// RunSpec describes a container to launch
type RunSpec struct {
	Name         string
	Image        string
	InternalPort int
	HostPort     int // 0 lets the engine choose
	Env          []string
}

// Engine is the subset of container engine operations used by the builder and lifecycle manager
type Engine interface {
	BuildImage(ctx context.Context, dir, tag string) (BuildStream, error)
	ImageExists(ctx context.Context, ref string) (bool, error)
	FindContainer(ctx context.Context, name string) (*domain.ContainerInfo, error)
	StopContainer(ctx context.Context, id string) error
	RemoveContainer(ctx context.Context, id string) error
	RunContainer(ctx context.Context, spec RunSpec) (*domain.ContainerInstance, error)
	ContainerLogs(ctx context.Context, id string, tail int) (string, error)
	Close() error
}
