// Package pipeline runs the deploy stages for one project in order.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/oar-cd/skiff/builder"
	"github.com/oar-cd/skiff/config"
	"github.com/oar-cd/skiff/domain"
	"github.com/oar-cd/skiff/entrypoint"
	"github.com/oar-cd/skiff/git"
	"github.com/oar-cd/skiff/lease"
	"github.com/oar-cd/skiff/repository"
	"github.com/oar-cd/skiff/scanner"
)

type DefinitionWriter interface {
	Write(ctx context.Context, dir string, bundle domain.ContextBundle) (string, error)
}

type ImageBuilder interface {
	Build(ctx context.Context, dir, tag string, out io.Writer) (*domain.BuildResult, error)
}

type ContainerReplacer interface {
	Replace(ctx context.Context, identity, image string, hostPort int) (*domain.ContainerInstance, string, error)
}

type SourceFetcher interface {
	WorkspacePath(gitURL string) (string, error)
	Clone(ctx context.Context, gitURL, branch string) (*git.CloneResult, error)
}

// PortFinder returns a free host port in [start, start+attempts)
type PortFinder func(start, attempts int) (int, error)

// Deps are the collaborators of a Pipeline. Locker, Fetcher and the repositories are
// optional: a nil Locker disables the lease, a nil Fetcher rejects Git requests and
// nil repositories disable history.
type Deps struct {
	Definitions DefinitionWriter
	Builder     ImageBuilder
	Containers  ContainerReplacer
	Fetcher     SourceFetcher
	Locker      *lease.Locker
	FindPort    PortFinder
	Projects    repository.ProjectRepository
	Deployments repository.DeploymentRepository

	PortMode       string
	PortRangeStart int
	PortRangeSize  int

	// ScanSkipDirs defaults to scanner.DefaultSkipDirs when nil
	ScanSkipDirs []string
}

type Pipeline struct {
	deps Deps
}

func New(deps Deps) *Pipeline {
	if deps.PortMode == "" {
		deps.PortMode = config.PortModeEngine
	}
	if deps.ScanSkipDirs == nil {
		deps.ScanSkipDirs = scanner.DefaultSkipDirs
	}
	return &Pipeline{deps: deps}
}

// DeployRequest names the project to deploy: a local directory, or a Git URL that is
// cloned into the workspace first. Build progress is written to Out when set.
type DeployRequest struct {
	Dir    string
	GitURL string
	Branch string
	Out    io.Writer
}

// run carries the per-invocation values through the stages
type run struct {
	project    *domain.Project
	gitURL     string
	branch     string
	commit     string
	record     *domain.ProjectRecord
	deployment *domain.Deployment
	build      *domain.BuildResult
	result     *domain.DeployResult
	replacing  bool
}

// Deploy runs every stage in order and stops at the first failure. The returned result
// is never nil; on failure the error is a *StageError and the result names the stage
// and its cause. Side effects of completed stages are kept.
func (p *Pipeline) Deploy(ctx context.Context, req DeployRequest) (*domain.DeployResult, error) {
	out := req.Out
	if out == nil {
		out = io.Discard
	}

	project, err := p.resolveProject(req)
	if err != nil {
		r := &run{result: &domain.DeployResult{}}
		return p.fail(r, domain.StageResolveProject, err)
	}

	r := &run{
		project: project,
		gitURL:  req.GitURL,
		branch:  req.Branch,
		result:  &domain.DeployResult{Identity: project.Identity},
	}

	slog.Info("Deployment started",
		"layer", "pipeline",
		"operation", "deploy",
		"project", project.Identity,
		"path", project.Path,
		"git_url", req.GitURL)

	if p.deps.Locker != nil {
		held, err := p.deps.Locker.Acquire(ctx, project.Identity)
		if err != nil {
			return p.fail(r, domain.StageAcquireLease, err)
		}
		defer held.Release()
	}

	p.recordStart(r)

	if req.GitURL != "" {
		checkout, err := p.deps.Fetcher.Clone(ctx, req.GitURL, req.Branch)
		if err != nil {
			return p.fail(r, domain.StageFetchSource, err)
		}
		r.commit = checkout.Commit
	}

	if _, err := entrypoint.Write(project.Path); err != nil {
		return p.fail(r, domain.StageWriteEntrypoint, err)
	}

	bundle, err := scanner.New(p.deps.ScanSkipDirs).Scan(project.Path)
	if err != nil {
		return p.fail(r, domain.StageScanContext, err)
	}
	if bundle.IsEmpty() {
		slog.Warn("No recognized project files found",
			"layer", "pipeline",
			"operation", "deploy",
			"project", project.Identity)
	}

	definitionPath, err := p.deps.Definitions.Write(ctx, project.Path, bundle)
	if err != nil {
		return p.fail(r, domain.StageWriteBuildDefinition, err)
	}
	r.result.BuildDefinitionPath = definitionPath

	r.build, err = p.deps.Builder.Build(ctx, project.Path, project.Identity, out)
	if err != nil {
		return p.fail(r, domain.StageBuildImage, err)
	}

	hostPort, err := p.hostPort()
	if err != nil {
		return p.fail(r, domain.StageReplaceContainer, err)
	}

	r.replacing = true
	instance, address, err := p.deps.Containers.Replace(ctx, project.Identity, project.Identity, hostPort)
	if err != nil {
		return p.fail(r, domain.StageReplaceContainer, err)
	}

	r.result.Success = true
	r.result.Stage = domain.StageDone
	r.result.Address = address
	r.result.ContainerID = instance.ID
	p.recordFinish(r)

	slog.Info("Deployment completed",
		"layer", "pipeline",
		"operation", "deploy",
		"project", project.Identity,
		"address", address)

	return r.result, nil
}

func (p *Pipeline) resolveProject(req DeployRequest) (*domain.Project, error) {
	if req.GitURL == "" {
		info, err := os.Stat(req.Dir)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("%s is not a directory", req.Dir)
		}
		return domain.NewProject(req.Dir)
	}

	if p.deps.Fetcher == nil {
		return nil, fmt.Errorf("git sources are not configured")
	}
	dir, err := p.deps.Fetcher.WorkspacePath(req.GitURL)
	if err != nil {
		return nil, err
	}
	return domain.NewProject(dir)
}

// hostPort returns 0 in engine mode so the engine picks the port
func (p *Pipeline) hostPort() (int, error) {
	if p.deps.PortMode != config.PortModeAllocate {
		return 0, nil
	}
	return p.deps.FindPort(p.deps.PortRangeStart, p.deps.PortRangeSize)
}

func (p *Pipeline) fail(r *run, stage domain.Stage, err error) (*domain.DeployResult, error) {
	r.result.Success = false
	r.result.Stage = stage
	r.result.Cause = err.Error()

	slog.Error("Deployment failed",
		"layer", "pipeline",
		"operation", "deploy",
		"project", r.result.Identity,
		"stage", stage,
		"error", err)

	p.recordFinish(r)
	return r.result, &StageError{Stage: stage, Err: err}
}

// recordStart makes sure a project record exists and opens a deployment record.
// History is best-effort: failures are logged and the run continues.
func (p *Pipeline) recordStart(r *run) {
	if p.deps.Projects == nil {
		return
	}

	record, err := p.deps.Projects.FindByIdentity(r.project.Identity)
	switch {
	case repository.IsNotFound(err):
		created := domain.NewProjectRecord(r.project, r.gitURL)
		created.Branch = r.branch
		record, err = p.deps.Projects.Create(&created)
	case err == nil:
		record.Path = r.project.Path
		if r.gitURL != "" {
			record.GitURL = r.gitURL
			record.Branch = r.branch
		}
	}
	if err != nil {
		logHistoryError(r, "record_project", err)
		return
	}
	r.record = record

	if p.deps.Deployments == nil {
		return
	}
	deployment := domain.NewDeployment(record.ID)
	if err := p.deps.Deployments.Create(&deployment); err != nil {
		logHistoryError(r, "create_deployment", err)
		return
	}
	r.deployment = &deployment
}

func (p *Pipeline) recordFinish(r *run) {
	if r.deployment != nil {
		r.deployment.Stage = r.result.Stage
		r.deployment.BuildDefinitionPath = r.result.BuildDefinitionPath
		r.deployment.Output = builder.Output(r.build)
		if r.result.Success {
			r.deployment.Status = domain.DeploymentStatusCompleted
			r.deployment.Address = r.result.Address
			r.deployment.ContainerID = r.result.ContainerID
		} else {
			r.deployment.Status = domain.DeploymentStatusFailed
			r.deployment.Error = r.result.Cause
		}
		if err := p.deps.Deployments.Update(r.deployment); err != nil {
			logHistoryError(r, "update_deployment", err)
		}
	}

	if r.record != nil {
		if r.commit != "" {
			r.record.LastAttemptedCommit = r.commit
		}
		if r.result.Success {
			r.record.Status = domain.ProjectStatusRunning
			r.record.Address = r.result.Address
			r.record.ContainerID = r.result.ContainerID
			if r.commit != "" {
				r.record.LastCommit = r.commit
			}
		} else if r.replacing {
			// The previous container is already gone
			r.record.Status = domain.ProjectStatusError
			r.record.Address = ""
			r.record.ContainerID = ""
		}
		if err := p.deps.Projects.Update(r.record); err != nil {
			logHistoryError(r, "update_project", err)
		}
	}
}

func logHistoryError(r *run, operation string, err error) {
	slog.Warn("Failed to record deployment history",
		"layer", "pipeline",
		"operation", operation,
		"project", r.result.Identity,
		"error", err)
}
