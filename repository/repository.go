package repository

import (
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/oar-cd/skiff/db"
	"github.com/oar-cd/skiff/domain"
)

// IsNotFound reports whether err means the requested record does not exist
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

type ProjectRepository interface {
	FindByIdentity(identity string) (*domain.ProjectRecord, error)
	Create(project *domain.ProjectRecord) (*domain.ProjectRecord, error)
	Update(project *domain.ProjectRecord) error
	List() ([]*domain.ProjectRecord, error)
}

type projectRepository struct {
	db     *gorm.DB
	mapper *ProjectMapper
}

func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &projectRepository{
		db:     db,
		mapper: &ProjectMapper{},
	}
}

func (r *projectRepository) List() ([]*domain.ProjectRecord, error) {
	var models []db.ProjectModel
	if err := r.db.Order("identity").Find(&models).Error; err != nil {
		return nil, err
	}

	projects := make([]*domain.ProjectRecord, len(models))
	for i := range models {
		projects[i] = r.mapper.ToDomain(&models[i])
	}
	return projects, nil
}

func (r *projectRepository) FindByIdentity(identity string) (*domain.ProjectRecord, error) {
	var m db.ProjectModel
	if err := r.db.Where("identity = ?", identity).First(&m).Error; err != nil {
		return nil, err // Pass through as-is
	}
	return r.mapper.ToDomain(&m), nil
}

func (r *projectRepository) Create(project *domain.ProjectRecord) (*domain.ProjectRecord, error) {
	m := r.mapper.ToModel(project)
	if err := r.db.Create(m).Error; err != nil {
		slog.Error("Database operation failed",
			"layer", "repository",
			"operation", "create_project",
			"project", project.Identity,
			"error", err)
		return nil, err
	}
	return r.mapper.ToDomain(m), nil
}

func (r *projectRepository) Update(project *domain.ProjectRecord) error {
	m := r.mapper.ToModel(project)

	// Select("*") so clearing a field to "" is persisted; CreatedAt never changes
	return r.db.Model(&db.ProjectModel{}).
		Where("id = ?", m.ID).
		Select("*").
		Omit("created_at").
		Updates(m).
		Error
}

type DeploymentRepository interface {
	Create(deployment *domain.Deployment) error
	Update(deployment *domain.Deployment) error
	ListByProjectID(projectID uuid.UUID) ([]*domain.Deployment, error)
}

type deploymentRepository struct {
	db     *gorm.DB
	mapper *DeploymentMapper
}

func NewDeploymentRepository(db *gorm.DB) DeploymentRepository {
	return &deploymentRepository{
		db:     db,
		mapper: &DeploymentMapper{},
	}
}

func (r *deploymentRepository) Create(deployment *domain.Deployment) error {
	m := r.mapper.ToModel(deployment)
	if err := r.db.Omit("Project").Create(m).Error; err != nil {
		return err
	}
	// Copy back the timestamps GORM populated
	*deployment = *r.mapper.ToDomain(m)
	return nil
}

func (r *deploymentRepository) Update(deployment *domain.Deployment) error {
	m := r.mapper.ToModel(deployment)
	if err := r.db.Omit("Project").Save(m).Error; err != nil {
		return err
	}
	*deployment = *r.mapper.ToDomain(m)
	return nil
}

func (r *deploymentRepository) ListByProjectID(projectID uuid.UUID) ([]*domain.Deployment, error) {
	var models []db.DeploymentModel
	if err := r.db.Where("project_id = ?", projectID).Order("created_at DESC").Find(&models).Error; err != nil {
		return nil, err
	}

	deployments := make([]*domain.Deployment, len(models))
	for i := range models {
		deployments[i] = r.mapper.ToDomain(&models[i])
	}
	return deployments, nil
}
