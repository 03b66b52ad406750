// Package watcher keeps project records in line with the container engine and
// redeploys Git projects when their branch moves.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/oar-cd/skiff/domain"
	"github.com/oar-cd/skiff/pipeline"
	"github.com/oar-cd/skiff/repository"
)

type ContainerStatus interface {
	Status(ctx context.Context, identity string) (*domain.ContainerInfo, error)
}

type RemoteChecker interface {
	RemoteHead(ctx context.Context, gitURL, branch string) (string, error)
}

type Deployer interface {
	Deploy(ctx context.Context, req pipeline.DeployRequest) (*domain.DeployResult, error)
}

type WatcherService struct {
	projects     repository.ProjectRepository
	containers   ContainerStatus
	remote       RemoteChecker
	deployer     Deployer
	pollInterval time.Duration
}

func NewWatcherService(
	projects repository.ProjectRepository,
	containers ContainerStatus,
	remote RemoteChecker,
	deployer Deployer,
	pollInterval time.Duration,
) *WatcherService {
	return &WatcherService{
		projects:     projects,
		containers:   containers,
		remote:       remote,
		deployer:     deployer,
		pollInterval: pollInterval,
	}
}

// Start checks every project once, then again on each tick until ctx is cancelled
func (w *WatcherService) Start(ctx context.Context) error {
	slog.Info("Watcher service starting", "layer", "watcher", "poll_interval", w.pollInterval)

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	if err := w.checkAllProjects(ctx); err != nil {
		slog.Error("Initial project check failed", "layer", "watcher", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			slog.Info("Watcher service shutting down", "layer", "watcher")
			return nil
		case <-ticker.C:
			if err := w.checkAllProjects(ctx); err != nil {
				slog.Error("Project check failed", "layer", "watcher", "error", err)
			}
		}
	}
}

func (w *WatcherService) checkAllProjects(ctx context.Context) error {
	records, err := w.projects.List()
	if err != nil {
		return fmt.Errorf("failed to list projects: %w", err)
	}

	checked := 0
	for _, record := range records {
		if ctx.Err() != nil {
			return nil
		}

		if err := w.syncProjectStatus(ctx, record); err != nil {
			slog.Error("Failed to sync project status",
				"layer", "watcher",
				"project", record.Identity,
				"error", err)
		}

		if record.GitURL == "" {
			continue
		}
		// A stopped project stays stopped until deployed by hand
		if record.Status == domain.ProjectStatusStopped {
			slog.Debug("Project is stopped, skipping git check",
				"layer", "watcher",
				"project", record.Identity)
			continue
		}

		checked++
		if err := w.checkProject(ctx, record); err != nil {
			slog.Error("Failed to check project",
				"layer", "watcher",
				"project", record.Identity,
				"error", err)
		}
	}

	slog.Debug("Project check cycle completed",
		"layer", "watcher",
		"total_projects", len(records),
		"projects_checked", checked)
	return nil
}

// checkProject redeploys record when the remote branch points at a commit other than
// the last one deployed. Failed runs are not retried until the branch moves again.
func (w *WatcherService) checkProject(ctx context.Context, record *domain.ProjectRecord) error {
	remoteCommit, err := w.remote.RemoteHead(ctx, record.GitURL, record.Branch)
	if err != nil {
		return fmt.Errorf("failed to get remote commit: %w", err)
	}

	hasUpdates := remoteCommit != record.LastCommit && remoteCommit != record.LastAttemptedCommit
	slog.Info("Git check completed",
		"layer", "watcher",
		"project", record.Identity,
		"current_commit", record.LastCommit,
		"attempted_commit", record.LastAttemptedCommit,
		"remote_commit", remoteCommit,
		"has_updates", hasUpdates)

	if !hasUpdates {
		return nil
	}

	slog.Info("New commit detected, triggering automatic deployment",
		"layer", "watcher",
		"project", record.Identity,
		"old_commit", record.LastCommit,
		"new_commit", remoteCommit)

	result, err := w.deployer.Deploy(ctx, pipeline.DeployRequest{
		GitURL: record.GitURL,
		Branch: record.Branch,
	})
	if err != nil {
		// A held lease means another run owns the project and will record its own commit
		if result.Stage != domain.StageAcquireLease {
			w.markAttempted(record.Identity, remoteCommit)
		}
		return fmt.Errorf("automatic deployment failed at %s: %w", result.Stage, err)
	}

	slog.Info("Automatic deployment completed successfully",
		"layer", "watcher",
		"project", record.Identity,
		"deployed_commit", remoteCommit,
		"address", result.Address)
	return nil
}

// markAttempted stores commit as attempted so a failing commit is deployed once.
// The record is reloaded because the failed run may have updated it.
func (w *WatcherService) markAttempted(identity, commit string) {
	record, err := w.projects.FindByIdentity(identity)
	if err != nil {
		slog.Warn("Failed to load project to record attempted commit",
			"layer", "watcher",
			"project", identity,
			"error", err)
		return
	}
	if record.LastAttemptedCommit == commit {
		return
	}

	record.LastAttemptedCommit = commit
	if err := w.projects.Update(record); err != nil {
		slog.Warn("Failed to record attempted commit",
			"layer", "watcher",
			"project", identity,
			"commit", commit,
			"error", err)
	}
}

// syncProjectStatus updates the stored status when it disagrees with the engine
func (w *WatcherService) syncProjectStatus(ctx context.Context, record *domain.ProjectRecord) error {
	info, err := w.containers.Status(ctx, record.Identity)

	expected := record.Status
	switch {
	case errors.Is(err, domain.ErrContainerNotFound):
		// Only a container that was running can have gone away; error and unknown
		// records never had one to lose
		if record.Status == domain.ProjectStatusRunning {
			expected = domain.ProjectStatusStopped
			record.ContainerID = ""
		}
		err = nil
	case err != nil:
		expected = domain.ProjectStatusUnknown
	case info.Running:
		expected = domain.ProjectStatusRunning
	default:
		expected = domain.ProjectStatusStopped
	}

	if record.Status == expected {
		return err
	}

	slog.Warn("Project status mismatch detected, updating record",
		"layer", "watcher",
		"project", record.Identity,
		"recorded_status", record.Status.String(),
		"updating_to", expected.String())

	record.Status = expected
	if expected != domain.ProjectStatusRunning {
		record.Address = ""
	}
	if updateErr := w.projects.Update(record); updateErr != nil {
		return fmt.Errorf("failed to update project status: %w", updateErr)
	}
	if err != nil {
		return fmt.Errorf("failed to get container status: %w", err)
	}
	return nil
}
