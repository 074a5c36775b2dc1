package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"vidpipe/internal/api"
	"vidpipe/internal/config"
	"vidpipe/internal/logging"
	"vidpipe/internal/queue"
)

type apiServer struct {
	bind     string
	baseURL  string
	mediaDir string
	logger   *slog.Logger
	daemon   *Daemon
	jobs     *api.JobService
	handler  http.Handler

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	srv := &apiServer{
		bind:     strings.TrimSpace(cfg.API.Bind),
		baseURL:  cfg.API.PublicBaseURL,
		mediaDir: cfg.Paths.MediaDir,
		logger:   logging.NewComponentLogger(logger, "api-server"),
		daemon:   d,
		jobs:     d.jobs,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/status", srv.handleStatus)
	mux.HandleFunc("GET /api/jobs", srv.handleJobs)
	mux.HandleFunc("GET /api/jobs/{id}", srv.handleJob)
	mux.HandleFunc("GET /view/{file}", srv.handleView)
	mux.Handle("GET /metrics", d.metrics.Handler())
	srv.handler = mux
	return srv
}

func (s *apiServer) start(ctx context.Context) error {
	if s.bind == "" {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	server := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	s.mu.Lock()
	s.listener = listener
	s.server = server
	s.mu.Unlock()

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	s.mu.Lock()
	server := s.server
	s.server = nil
	s.listener = nil
	s.mu.Unlock()
	if server == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
}

func (s *apiServer) address() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := s.daemon.Status(r.Context())
	depsOut := make([]api.DependencyStatus, len(status.Dependencies))
	for i, dep := range status.Dependencies {
		depsOut[i] = api.DependencyStatus{
			Name:        dep.Name,
			Command:     dep.Command,
			Description: dep.Description,
			Available:   dep.Available,
			Detail:      dep.Detail,
		}
	}
	s.writeJSON(w, http.StatusOK, api.DaemonStatus{
		Running:      status.Running,
		PID:          status.PID,
		StoreDriver:  status.Store.Driver,
		StoreTarget:  status.Store.Location,
		LockFilePath: status.LockFilePath,
		Workflow:     api.FromStatusSummary(status.Workflow, s.baseURL),
		Dependencies: depsOut,
	})
}

func (s *apiServer) handleJobs(w http.ResponseWriter, r *http.Request) {
	var statuses []queue.Status
	for _, value := range r.URL.Query()["status"] {
		for _, part := range strings.Split(value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			status, ok := queue.ParseStatus(part)
			if !ok {
				s.writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown status %q", part))
				return
			}
			statuses = append(statuses, status)
		}
	}

	reports, err := s.jobs.List(r.Context(), statuses...)
	if err != nil {
		s.logger.Warn("job list failed", logging.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to list jobs")
		return
	}
	if reports == nil {
		reports = []api.Report{}
	}
	s.writeJSON(w, http.StatusOK, api.JobListResponse{Jobs: reports})
}

func (s *apiServer) handleJob(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("id"))
	report, err := s.jobs.Describe(r.Context(), id)
	if err != nil {
		s.logger.Warn("job lookup failed", logging.Error(err), logging.String(logging.FieldJobID, id))
		s.writeError(w, http.StatusInternalServerError, "failed to load job")
		return
	}
	if report == nil {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}
	s.writeJSON(w, http.StatusOK, api.JobResponse{Job: *report})
}

func (s *apiServer) handleView(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("file")
	_, err := s.jobs.ResolveArtifact(r.Context(), name, s.daemon.now())
	switch {
	case errors.Is(err, api.ErrArtifactExpired):
		s.writeError(w, http.StatusGone, "file expired")
		return
	case errors.Is(err, api.ErrArtifactNotFound):
		s.writeError(w, http.StatusNotFound, "file not found")
		return
	case err != nil:
		s.logger.Warn("artifact lookup failed", logging.Error(err), logging.String("file", name))
		s.writeError(w, http.StatusInternalServerError, "failed to resolve file")
		return
	}

	file, err := os.Open(filepath.Join(s.mediaDir, name))
	if err != nil {
		s.writeError(w, http.StatusNotFound, "file not found")
		return
	}
	defer file.Close()
	info, err := file.Stat()
	if err != nil || !info.Mode().IsRegular() {
		s.writeError(w, http.StatusNotFound, "file not found")
		return
	}
	w.Header().Set("Content-Type", api.ContentType(name))
	http.ServeContent(w, r, name, info.ModTime(), file)
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
