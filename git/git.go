// Package git fetches project sources from Git repositories into the workspace.
package git

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/storage/memory"

	"github.com/oar-cd/skiff/domain"
)

// CloneResult describes a fresh checkout
type CloneResult struct {
	Dir    string
	Commit string
}

type GitService struct {
	workspaceDir string
	timeout      time.Duration
	token        string
	depth        int
}

// NewGitService clones into subdirectories of workspaceDir. A non-empty token is sent
// as HTTP basic auth password.
func NewGitService(workspaceDir string, timeout time.Duration, token string) *GitService {
	return &GitService{
		workspaceDir: workspaceDir,
		timeout:      timeout,
		token:        token,
		depth:        1,
	}
}

// RepositoryName extracts the repository name from an HTTPS, SSH or local URL.
// It is empty when the URL does not parse or names no path after the host.
func RepositoryName(gitURL string) string {
	endpoint, err := transport.NewEndpoint(strings.TrimSpace(gitURL))
	if err != nil {
		return ""
	}
	// scp-style URLs without a slash parse as local paths, so ':' also separates
	path := strings.Trim(endpoint.Path, "/")
	return strings.TrimSuffix(path[strings.LastIndexAny(path, "/:")+1:], ".git")
}

// WorkspacePath returns the checkout directory for gitURL
func (s *GitService) WorkspacePath(gitURL string) (string, error) {
	name, err := domain.DeriveIdentity(RepositoryName(gitURL))
	if err != nil {
		return "", fmt.Errorf("cannot derive workspace directory from %q: %w", gitURL, err)
	}
	return filepath.Join(s.workspaceDir, name), nil
}

func (s *GitService) authMethod() transport.AuthMethod {
	if s.token == "" {
		return nil // Public repo
	}
	return &http.BasicAuth{
		Username: "x-access-token",
		Password: s.token,
	}
}

// Clone makes a fresh checkout of gitURL. Any previous checkout of the same
// repository is removed first. An empty branch means the remote default.
func (s *GitService) Clone(ctx context.Context, gitURL, branch string) (*CloneResult, error) {
	dir, err := s.WorkspacePath(gitURL)
	if err != nil {
		return nil, err
	}

	slog.Info("Cloning repository",
		"layer", "git",
		"operation", "git_clone",
		"git_url", gitURL,
		"git_branch", branch,
		"working_dir", dir)

	if err := os.RemoveAll(dir); err != nil {
		return nil, fmt.Errorf("failed to clear previous checkout %s: %w", dir, err)
	}
	if err := os.MkdirAll(s.workspaceDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create workspace %s: %w", s.workspaceDir, err)
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	cloneOptions := &git.CloneOptions{
		URL:          gitURL,
		SingleBranch: true,
		Depth:        s.depth,
		Auth:         s.authMethod(),
	}
	if branch != "" {
		cloneOptions.ReferenceName = plumbing.NewBranchReferenceName(branch)
	}

	repo, err := git.PlainCloneContext(ctx, dir, false, cloneOptions)
	if err != nil {
		slog.Error("Service operation failed",
			"layer", "git",
			"operation", "git_clone",
			"git_url", gitURL,
			"git_branch", branch,
			"working_dir", dir,
			"error", err)
		_ = os.RemoveAll(dir)
		return nil, fmt.Errorf("failed to clone repository: %w", err)
	}

	head, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("failed to get HEAD: %w", err)
	}

	slog.Info("Repository cloned successfully",
		"layer", "git",
		"operation", "git_clone",
		"git_url", gitURL,
		"commit", head.Hash().String(),
		"working_dir", dir)

	return &CloneResult{Dir: dir, Commit: head.Hash().String()}, nil
}

// RemoteHead returns the commit branch points at on the remote without cloning.
// An empty branch means the remote HEAD.
func (s *GitService) RemoteHead(ctx context.Context, gitURL, branch string) (string, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	remote := git.NewRemote(memory.NewStorage(), &gitconfig.RemoteConfig{
		Name: "origin",
		URLs: []string{gitURL},
	})
	refs, err := remote.ListContext(ctx, &git.ListOptions{Auth: s.authMethod()})
	if err != nil {
		slog.Error("Service operation failed",
			"layer", "git",
			"operation", "git_ls_remote",
			"git_url", gitURL,
			"git_branch", branch,
			"error", err)
		return "", fmt.Errorf("failed to list remote references: %w", err)
	}

	byName := make(map[plumbing.ReferenceName]*plumbing.Reference, len(refs))
	for _, ref := range refs {
		byName[ref.Name()] = ref
	}

	want := plumbing.HEAD
	if branch != "" {
		want = plumbing.NewBranchReferenceName(branch)
	}
	ref := byName[want]
	if ref != nil && ref.Type() == plumbing.SymbolicReference {
		ref = byName[ref.Target()]
	}
	if ref == nil {
		return "", fmt.Errorf("reference %s not found on %s", want, gitURL)
	}

	return ref.Hash().String(), nil
}
