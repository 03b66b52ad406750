// Package domain provides core domain types and entities for Skiff.
package domain

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

const (
	// EntrypointFile is the bootstrap script written into every project directory
	EntrypointFile = "docker_entrypoint.py"
	// BuildDefinitionFile is the container build recipe written into every project directory
	BuildDefinitionFile = "Dockerfile"
	// InternalPort is the port the bootstrap script binds inside the container
	InternalPort = 5000
)

// Project is a directory on disk being deployed in the current run.
// Identity is used both as the image tag and as the container name.
type Project struct {
	Path     string
	Identity string
}

// NewProject resolves dir to an absolute path and derives the identity from its base name.
// The identity is computed once here and must not be recomputed during a run.
func NewProject(dir string) (*Project, error) {
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project path %s: %w", dir, err)
	}

	identity, err := DeriveIdentity(filepath.Base(filepath.Clean(absPath)))
	if err != nil {
		return nil, err
	}

	return &Project{
		Path:     absPath,
		Identity: identity,
	}, nil
}

// DeriveIdentity turns a project name into a lowercase container-tag token
func DeriveIdentity(name string) (string, error) {
	// slug keeps underscores; identities use dashes only
	identity := slug.Make(strings.ReplaceAll(name, "_", " "))
	if identity == "" {
		return "", fmt.Errorf("cannot derive identity from project name %q", name)
	}
	return identity, nil
}

// EntrypointPath returns the location of the bootstrap script inside the project
func (p *Project) EntrypointPath() string {
	return filepath.Join(p.Path, EntrypointFile)
}

// BuildDefinitionPath returns the location of the build definition inside the project
func (p *Project) BuildDefinitionPath() string {
	return filepath.Join(p.Path, BuildDefinitionFile)
}

// ProjectRecord is the persisted view of a project across runs
type ProjectRecord struct {
	ID          uuid.UUID
	Identity    string
	Path        string
	GitURL      string
	Branch      string
	LastCommit  string // last commit deployed from GitURL
	Status      ProjectStatus
	Address     string
	ContainerID string
	CreatedAt   time.Time
	UpdatedAt   time.Time

	// LastAttemptedCommit is the last commit a run started from, whatever its outcome
	LastAttemptedCommit string
}

func NewProjectRecord(project *Project, gitURL string) ProjectRecord {
	return ProjectRecord{
		ID:       uuid.New(),
		Identity: project.Identity,
		Path:     project.Path,
		GitURL:   gitURL,
		Status:   ProjectStatusUnknown,
	}
}
