// Package app wires the configuration into the services used by the CLI and the HTTP server.
package app

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"gorm.io/gorm"

	"github.com/oar-cd/skiff/builder"
	"github.com/oar-cd/skiff/config"
	"github.com/oar-cd/skiff/db"
	"github.com/oar-cd/skiff/definition"
	"github.com/oar-cd/skiff/docker"
	"github.com/oar-cd/skiff/git"
	"github.com/oar-cd/skiff/lease"
	"github.com/oar-cd/skiff/lifecycle"
	"github.com/oar-cd/skiff/llm"
	"github.com/oar-cd/skiff/pipeline"
	"github.com/oar-cd/skiff/portalloc"
	"github.com/oar-cd/skiff/repository"
)

// Version is set at build time via -ldflags
var Version = "dev"

// App holds the long-lived services of one process
type App struct {
	Config      *config.Config
	Engine      docker.Engine
	Projects    repository.ProjectRepository
	Deployments repository.DeploymentRepository
	Containers  *lifecycle.Manager
	Git         *git.GitService

	database  *gorm.DB
	generator llm.Generator
}

type Option func(*App)

// WithEngine replaces the Docker client, for tests
func WithEngine(engine docker.Engine) Option {
	return func(a *App) { a.Engine = engine }
}

// WithGenerator replaces the generation service client, for tests
func WithGenerator(generator llm.Generator) Option {
	return func(a *App) { a.generator = generator }
}

// New creates the data directories, opens the database and connects the engine client.
// The generation service is created on first use by Pipeline.
func New(cfg *config.Config, opts ...Option) (*App, error) {
	a := &App{Config: cfg}
	for _, opt := range opts {
		opt(a)
	}

	for _, dir := range []string{cfg.DataDir, cfg.WorkspaceDir, cfg.LocksDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	database, err := db.InitDB(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	a.database = database

	if a.Engine == nil {
		client, err := docker.NewClient(cfg.DockerHost)
		if err != nil {
			_ = db.Close(database)
			return nil, err
		}
		a.Engine = client
	}

	a.Projects = repository.NewProjectRepository(database)
	a.Deployments = repository.NewDeploymentRepository(database)
	a.Containers = lifecycle.NewManager(a.Engine, cfg.AdvertiseHost, cfg.ForwardEnv).WithLookup(cfg.LookupEnv)
	a.Git = git.NewGitService(cfg.WorkspaceDir, cfg.GitTimeout, cfg.GitToken)

	slog.Debug("Application initialized",
		"layer", "app",
		"data_dir", cfg.DataDir,
		"port_mode", cfg.PortMode)

	return a, nil
}

// Pipeline returns a deploy pipeline bound to this App. It fails when the generation
// service settings are incomplete.
func (a *App) Pipeline() (*pipeline.Pipeline, error) {
	if a.generator == nil {
		if err := a.Config.ValidateLLM(); err != nil {
			return nil, err
		}
		generator, err := llm.NewOpenAIGenerator(a.Config.LLM)
		if err != nil {
			return nil, fmt.Errorf("failed to create generation service client: %w", err)
		}
		a.generator = generator
	}

	return pipeline.New(pipeline.Deps{
		Definitions:    definition.NewWriter(a.generator),
		Builder:        builder.NewBuilder(a.Engine, a.Config.BuildTimeout),
		Containers:     a.Containers,
		Fetcher:        a.Git,
		Locker:         lease.NewLocker(a.Config.LocksDir, a.Config.LockTimeout),
		FindPort:       portalloc.Find,
		Projects:       a.Projects,
		Deployments:    a.Deployments,
		PortMode:       a.Config.PortMode,
		PortRangeStart: a.Config.PortRangeStart,
		PortRangeSize:  a.Config.PortRangeSize,
		ScanSkipDirs:   a.Config.ScanSkipDirs,
	}), nil
}

// Close releases the engine client and the database
func (a *App) Close() error {
	var errs []error
	if a.Engine != nil {
		errs = append(errs, a.Engine.Close())
	}
	if a.database != nil {
		errs = append(errs, db.Close(a.database))
	}
	return errors.Join(errs...)
}
