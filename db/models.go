// Package db provides database models and utilities for Skiff.
package db

import (
	"time"

	"github.com/google/uuid"
)

type BaseModel struct {
	ID        uuid.UUID `gorm:"type:char(36);primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// MigrationModel records applied manual migrations
type MigrationModel struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"not null;unique"`
	AppliedAt time.Time
}

func (MigrationModel) TableName() string {
	return "migrations"
}

type ProjectModel struct {
	BaseModel
	Identity    string `gorm:"not null;unique;check:identity <> ''"`
	Path        string `gorm:"not null;check:path <> ''"`   // absolute project directory
	GitURL      string `gorm:"not null;default:''"`         // empty for local directories
	GitBranch   string `gorm:"not null;default:''"`         // empty means the remote default
	LastCommit  string `gorm:"not null;default:''"`
	Status      string `gorm:"not null;check:status <> ''"` // running, stopped, error, unknown
	Address     string `gorm:"not null;default:''"`
	ContainerID string `gorm:"not null;default:''"`

	LastAttemptedCommit string `gorm:"not null;default:''"`

	Deployments []DeploymentModel `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE"`
}

func (ProjectModel) TableName() string {
	return "projects"
}

type DeploymentModel struct {
	BaseModel
	ProjectID           uuid.UUID `gorm:"not null;index"`
	Status              string    `gorm:"not null;check:status <> ''"` // started, completed, failed
	Stage               string    `gorm:"not null;default:''"`          // last stage entered
	Error               string    `gorm:"type:text"`
	BuildDefinitionPath string    `gorm:"not null;default:''"`
	Address             string    `gorm:"not null;default:''"`
	ContainerID         string    `gorm:"not null;default:''"`
	Output              string    `gorm:"type:text"` // build log

	Project ProjectModel `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE"`
}

func (DeploymentModel) TableName() string {
	return "deployments"
}
