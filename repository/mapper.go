// Package repository provides data access layer for projects and deployments.
package repository

import (
	"github.com/oar-cd/skiff/db"
	"github.com/oar-cd/skiff/domain"
)

type ProjectMapper struct{}

func (m *ProjectMapper) ToDomain(p *db.ProjectModel) *domain.ProjectRecord {
	status, err := domain.ParseProjectStatus(p.Status)
	if err != nil {
		status = domain.ProjectStatusUnknown
	}

	return &domain.ProjectRecord{
		ID:          p.ID,
		Identity:    p.Identity,
		Path:        p.Path,
		GitURL:      p.GitURL,
		Branch:      p.GitBranch,
		LastCommit:  p.LastCommit,
		Status:      status,
		Address:     p.Address,
		ContainerID: p.ContainerID,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,

		LastAttemptedCommit: p.LastAttemptedCommit,
	}
}

func (m *ProjectMapper) ToModel(p *domain.ProjectRecord) *db.ProjectModel {
	return &db.ProjectModel{
		BaseModel: db.BaseModel{
			ID:        p.ID,
			CreatedAt: p.CreatedAt,
			UpdatedAt: p.UpdatedAt,
		},
		Identity:    p.Identity,
		Path:        p.Path,
		GitURL:      p.GitURL,
		GitBranch:   p.Branch,
		LastCommit:  p.LastCommit,
		Status:      p.Status.String(),
		Address:     p.Address,
		ContainerID: p.ContainerID,

		LastAttemptedCommit: p.LastAttemptedCommit,
	}
}

type DeploymentMapper struct{}

func (m *DeploymentMapper) ToDomain(d *db.DeploymentModel) *domain.Deployment {
	status, err := domain.ParseDeploymentStatus(d.Status)
	if err != nil {
		status = domain.DeploymentStatusUnknown
	}

	return &domain.Deployment{
		ID:                  d.ID,
		ProjectID:           d.ProjectID,
		Status:              status,
		Stage:               domain.Stage(d.Stage),
		Error:               d.Error,
		BuildDefinitionPath: d.BuildDefinitionPath,
		Address:             d.Address,
		ContainerID:         d.ContainerID,
		Output:              d.Output,
		CreatedAt:           d.CreatedAt,
		UpdatedAt:           d.UpdatedAt,
	}
}

func (m *DeploymentMapper) ToModel(d *domain.Deployment) *db.DeploymentModel {
	return &db.DeploymentModel{
		BaseModel: db.BaseModel{
			ID:        d.ID,
			CreatedAt: d.CreatedAt,
			UpdatedAt: d.UpdatedAt,
		},
		ProjectID:           d.ProjectID,
		Status:              d.Status.String(),
		Stage:               string(d.Stage),
		Error:               d.Error,
		BuildDefinitionPath: d.BuildDefinitionPath,
		Address:             d.Address,
		ContainerID:         d.ContainerID,
		Output:              d.Output,
	}
}
