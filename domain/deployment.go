package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Deployment struct {
	ID                  uuid.UUID
	ProjectID           uuid.UUID
	Status              DeploymentStatus
	Stage               Stage
	Error               string
	BuildDefinitionPath string
	Address             string
	ContainerID         string
	Output              string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

func NewDeployment(projectID uuid.UUID) Deployment {
	return Deployment{
		ID:        uuid.New(),
		ProjectID: projectID,
		Status:    DeploymentStatusStarted,
	}
}

// DeployResult is the terminal value of a pipeline run
type DeployResult struct {
	Success             bool
	Identity            string
	BuildDefinitionPath string
	Address             string
	ContainerID         string

	// Set only on failure
	Stage Stage
	Cause string
}

// Report renders the result as [build-definition location, status-or-error]
func (r *DeployResult) Report() []string {
	definition := "Build definition: not written"
	if r.BuildDefinitionPath != "" {
		definition = fmt.Sprintf("Build definition: %s", r.BuildDefinitionPath)
	}

	if r.Success {
		return []string{definition, fmt.Sprintf("Deployed! Access at: %s", r.Address)}
	}
	return []string{definition, fmt.Sprintf("Deployment failed at %s: %s", r.Stage, r.Cause)}
}
