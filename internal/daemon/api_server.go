package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"encore/internal/api"
	"encore/internal/competition"
	"encore/internal/config"
	"encore/internal/logging"
)

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon
	svc    *api.CompetitionService

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) (*apiServer, error) {
	if cfg == nil || d == nil {
		return nil, nil
	}
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil, nil
	}

	srv := &apiServer{
		bind:   bind,
		logger: logger,
		daemon: d,
		svc:    api.NewCompetitionService(cfg, d.store),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", srv.handleStatus)
	mux.HandleFunc("/api/competitions", srv.handleCompetitions)
	mux.HandleFunc("/api/competitions/", srv.handleCompetition)

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.log().Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	status := s.daemon.Status()
	payload := api.DaemonStatus{
		Running:      status.Running,
		PID:          status.PID,
		DatabasePath: status.DatabasePath,
		LockFilePath: status.LockFilePath,
		Scheduler:    api.FromSchedulerStatus(status.Scheduler),
	}
	s.writeJSON(w, http.StatusOK, payload)
}

func (s *apiServer) handleCompetitions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		var statuses []string
		for _, value := range r.URL.Query()["status"] {
			if trimmed := strings.TrimSpace(value); trimmed != "" {
				statuses = append(statuses, trimmed)
			}
		}
		comps, err := s.svc.List(r.Context(), statuses...)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, api.CompetitionListResponse{Competitions: comps})
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleCompetition routes /api/competitions/{ref} and its sub-resources:
// {ref}/results, {ref}/resolve, {ref}/cancel.
func (s *apiServer) handleCompetition(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/competitions/")
	ref, action, _ := strings.Cut(rest, "/")
	if ref == "" || strings.Contains(action, "/") {
		s.writeError(w, http.StatusNotFound, "competition not found")
		return
	}

	switch action {
	case "":
		if r.Method != http.MethodGet {
			s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		detail, err := s.svc.Describe(r.Context(), ref)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, detail)

	case "results":
		if r.Method != http.MethodGet {
			s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		results, err := s.svc.Results(r.Context(), ref)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, results)

	case "resolve":
		if r.Method != http.MethodPost {
			s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		var req api.ResolveRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		comp, err := s.svc.Resolve(r.Context(), ref)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		if err := s.daemon.scheduler.ResolveManualWinner(r.Context(), comp.ID, req.WinnerSubmissionID); err != nil {
			s.writeServiceError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]string{"status": string(competition.StatusCompleted)})

	case "cancel":
		if r.Method != http.MethodPost {
			s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		var req api.CancelRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			s.writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		comp, err := s.svc.Resolve(r.Context(), ref)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		if err := s.daemon.scheduler.Cancel(r.Context(), comp.ID, req.Reason); err != nil {
			s.writeServiceError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]string{"status": string(competition.StatusCancelled)})

	default:
		s.writeError(w, http.StatusNotFound, "competition not found")
	}
}

// writeServiceError maps domain errors onto HTTP status codes.
func (s *apiServer) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, competition.ErrNotFound):
		s.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, competition.ErrInvalidTransition),
		errors.Is(err, competition.ErrVotingClosed),
		errors.Is(err, competition.ErrDuplicateVote):
		s.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, competition.ErrConcurrencyConflict):
		s.writeError(w, http.StatusConflict, err.Error())
	default:
		s.writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *apiServer) log() *slog.Logger {
	if s.logger != nil {
		return logging.NewComponentLogger(s.logger, "api-server")
	}
	return logging.NewNop()
}
