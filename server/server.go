// Package server exposes the deploy pipeline and project state over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/oar-cd/skiff/domain"
	"github.com/oar-cd/skiff/pipeline"
	"github.com/oar-cd/skiff/repository"
)

const shutdownTimeout = 30 * time.Second

type Deployer interface {
	Deploy(ctx context.Context, req pipeline.DeployRequest) (*domain.DeployResult, error)
}

type StatusReader interface {
	Status(ctx context.Context, identity string) (*domain.ContainerInfo, error)
	Address(hostPort int) string
}

// Handlers serves the JSON API
type Handlers struct {
	deployer    Deployer
	projects    repository.ProjectRepository
	deployments repository.DeploymentRepository
	containers  StatusReader
	version     string
}

func NewHandlers(
	deployer Deployer,
	projects repository.ProjectRepository,
	deployments repository.DeploymentRepository,
	containers StatusReader,
	version string,
) *Handlers {
	return &Handlers{
		deployer:    deployer,
		projects:    projects,
		deployments: deployments,
		containers:  containers,
		version:     version,
	}
}

// NewRouter returns the router with every route registered
func NewRouter(h *Handlers) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	h.RegisterRoutes(r)
	return r
}

func (h *Handlers) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.Health)
	r.Route("/api", func(r chi.Router) {
		r.Post("/deploy", h.Deploy)
		r.Get("/projects", h.ListProjects)
		r.Route("/projects/{identity}", func(r chi.Router) {
			r.Get("/deployments", h.ListDeployments)
			r.Get("/status", h.Status)
		})
	})
}

type deployRequest struct {
	RepoURL string `json:"repo_url"`
	Branch  string `json:"branch"`
	Path    string `json:"path"`
}

type deployResponse struct {
	Success             bool     `json:"success"`
	Report              []string `json:"report"`
	Identity            string   `json:"identity,omitempty"`
	BuildDefinitionPath string   `json:"build_definition_path,omitempty"`
	Address             string   `json:"address,omitempty"`
	Stage               string   `json:"stage,omitempty"`
	Hint                string   `json:"hint,omitempty"`
}

type projectResponse struct {
	Identity    string    `json:"identity"`
	Path        string    `json:"path"`
	GitURL      string    `json:"git_url,omitempty"`
	Status      string    `json:"status"`
	Address     string    `json:"address,omitempty"`
	ContainerID string    `json:"container_id,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type deploymentResponse struct {
	ID                  string    `json:"id"`
	Status              string    `json:"status"`
	Stage               string    `json:"stage"`
	Error               string    `json:"error,omitempty"`
	BuildDefinitionPath string    `json:"build_definition_path,omitempty"`
	Address             string    `json:"address,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
}

type statusResponse struct {
	Identity    string `json:"identity"`
	ContainerID string `json:"container_id"`
	Image       string `json:"image"`
	State       string `json:"state"`
	Running     bool   `json:"running"`
	Address     string `json:"address,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, "health", http.StatusOK, map[string]string{"status": "ok", "version": h.version})
}

// Deploy runs the pipeline synchronously. A failed run is still a 200 response with
// success=false; only malformed requests are client errors.
func (h *Handlers) Deploy(w http.ResponseWriter, r *http.Request) {
	var req deployRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "deploy", http.StatusBadRequest, "invalid JSON body")
		return
	}
	if (req.RepoURL == "") == (req.Path == "") {
		writeError(w, "deploy", http.StatusBadRequest, "exactly one of repo_url or path is required")
		return
	}
	if req.Path != "" && req.Branch != "" {
		writeError(w, "deploy", http.StatusBadRequest, "branch requires repo_url")
		return
	}

	result, err := h.deployer.Deploy(r.Context(), pipeline.DeployRequest{
		Dir:    req.Path,
		GitURL: req.RepoURL,
		Branch: req.Branch,
	})

	resp := deployResponse{
		Success:             result.Success,
		Report:              result.Report(),
		Identity:            result.Identity,
		BuildDefinitionPath: result.BuildDefinitionPath,
		Address:             result.Address,
	}
	if err != nil {
		slog.Error("Handler operation failed",
			"layer", "handler",
			"operation", "deploy",
			"repo_url", req.RepoURL,
			"path", req.Path,
			"error", err)
		resp.Stage = result.Stage.String()
		resp.Hint = pipeline.FormatErrorForUser(err)
	}

	writeJSON(w, "deploy", http.StatusOK, resp)
}

func (h *Handlers) ListProjects(w http.ResponseWriter, r *http.Request) {
	records, err := h.projects.List()
	if err != nil {
		logOperationError("list_projects", err)
		writeError(w, "list_projects", http.StatusInternalServerError, "failed to list projects")
		return
	}

	resp := make([]projectResponse, 0, len(records))
	for _, p := range records {
		resp = append(resp, projectResponse{
			Identity:    p.Identity,
			Path:        p.Path,
			GitURL:      p.GitURL,
			Status:      p.Status.String(),
			Address:     p.Address,
			ContainerID: p.ContainerID,
			UpdatedAt:   p.UpdatedAt,
		})
	}
	writeJSON(w, "list_projects", http.StatusOK, resp)
}

func (h *Handlers) ListDeployments(w http.ResponseWriter, r *http.Request) {
	identity := chi.URLParam(r, "identity")

	record, err := h.projects.FindByIdentity(identity)
	if repository.IsNotFound(err) {
		writeError(w, "list_deployments", http.StatusNotFound, "project not found")
		return
	}
	if err != nil {
		logOperationError("list_deployments", err, "project", identity)
		writeError(w, "list_deployments", http.StatusInternalServerError, "failed to find project")
		return
	}

	history, err := h.deployments.ListByProjectID(record.ID)
	if err != nil {
		logOperationError("list_deployments", err, "project", identity)
		writeError(w, "list_deployments", http.StatusInternalServerError, "failed to list deployments")
		return
	}

	resp := make([]deploymentResponse, 0, len(history))
	for _, d := range history {
		resp = append(resp, deploymentResponse{
			ID:                  d.ID.String(),
			Status:              d.Status.String(),
			Stage:               d.Stage.String(),
			Error:               d.Error,
			BuildDefinitionPath: d.BuildDefinitionPath,
			Address:             d.Address,
			CreatedAt:           d.CreatedAt,
		})
	}
	writeJSON(w, "list_deployments", http.StatusOK, resp)
}

func (h *Handlers) Status(w http.ResponseWriter, r *http.Request) {
	identity := chi.URLParam(r, "identity")

	info, err := h.containers.Status(r.Context(), identity)
	if errors.Is(err, domain.ErrContainerNotFound) {
		writeError(w, "status", http.StatusNotFound, "container not found")
		return
	}
	if err != nil {
		logOperationError("status", err, "project", identity)
		writeError(w, "status", http.StatusBadGateway, pipeline.FormatErrorForUser(err))
		return
	}

	resp := statusResponse{
		Identity:    identity,
		ContainerID: info.ID,
		Image:       info.Image,
		State:       info.State,
		Running:     info.Running,
	}
	if info.Running && info.HostPort > 0 {
		resp.Address = h.containers.Address(info.HostPort)
	}
	writeJSON(w, "status", http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, operation string, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logOperationError(operation, fmt.Errorf("failed to write response: %w", err))
	}
}

func writeError(w http.ResponseWriter, operation string, status int, message string) {
	writeJSON(w, operation, status, errorResponse{Error: message})
}

func logOperationError(operation string, err error, context ...any) {
	slog.Error("Handler operation failed",
		append([]any{"layer", "handler", "operation", operation, "error", err}, context...)...)
}

// Serve listens on addr until ctx is cancelled, then shuts down gracefully
func Serve(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server starting", "layer", "server", "address", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("Shutting down HTTP server", "layer", "server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown failed: %w", err)
	}

	slog.Info("HTTP server stopped", "layer", "server")
	return nil
}
