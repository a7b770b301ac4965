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
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"shrink/internal/api"
	"shrink/internal/compress"
	"shrink/internal/config"
	"shrink/internal/deps"
	"shrink/internal/history"
	"shrink/internal/logging"
	"shrink/internal/logs"
	"shrink/internal/media"
	"shrink/internal/preflight"
	"shrink/internal/services"
)

type apiServer struct {
	bind       string
	logger     *slog.Logger
	daemon     *Daemon
	historySvc *api.HistoryService

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	srv := &apiServer{
		bind:       strings.TrimSpace(cfg.API.Bind),
		logger:     logger,
		daemon:     d,
		historySvc: api.NewHistoryService(d.store),
	}
	srv.server = &http.Server{
		Handler:           srv.handler(cfg.API),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

// handler builds the routed, authenticated and CORS-wrapped API.
func (s *apiServer) handler(cfg config.API) http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/api/health", s.handleHealth).Methods("GET")
	r.HandleFunc("/api/status", s.handleStatus).Methods("GET")
	r.HandleFunc("/api/jobs", s.handleSubmitJobs).Methods("POST")
	r.HandleFunc("/api/jobs", s.handleHistory).Methods("GET")
	r.HandleFunc("/api/jobs", s.handleClearHistory).Methods("DELETE")
	r.HandleFunc("/api/preview", s.handlePreview).Methods("GET")
	r.HandleFunc("/api/files", s.handleFiles).Methods("GET")
	r.HandleFunc("/api/dependencies", s.handleDependencies).Methods("GET")
	r.HandleFunc("/api/dependencies/install", s.handleInstall).Methods("POST")
	r.HandleFunc("/api/notifications/test", s.handleTestNotification).Methods("POST")
	r.HandleFunc("/api/logs", s.handleLogs).Methods("GET")
	r.Use(requestIDMiddleware)
	r.Use(authMiddleware(cfg.Token, "/api/health"))

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:*", "http://127.0.0.1:*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type", requestIDHeader},
		ExposedHeaders: []string{requestIDHeader},
	})
	return c.Handler(r)
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
	s.server.BaseContext = func(net.Listener) context.Context { return ctx }

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("api server error", logging.Error(err))
		}
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

func (s *apiServer) addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	checks := preflight.RunAll(r.Context(), s.daemon.cfg, s.daemon.resolver)
	s.writeJSON(w, http.StatusOK, api.HealthResponse{
		Ready:   preflight.Ready(checks),
		Version: Version,
		Checks:  checks,
	})
}

func (s *apiServer) handleStatus(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.daemon.Status())
}

func (s *apiServer) handleSubmitJobs(w http.ResponseWriter, r *http.Request) {
	reqs, err := api.DecodeJobs(r.Body)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	stream := newEventStream(w)
	_, err = s.daemon.RunJobs(r.Context(), reqs, func(ev compress.Event) {
		stream.send(ev)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logging.WithContext(r.Context(), s.log()).Debug("job batch finished with failures", logging.Int("jobs", len(reqs)), logging.Error(err))
	}
}

func (s *apiServer) handleHistory(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	status, err := api.ParseStatus(query.Get("status"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit := 0
	if raw := strings.TrimSpace(query.Get("limit")); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 {
			s.writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
	}
	resp, err := s.historySvc.List(r.Context(), history.ListOptions{Limit: limit, Status: status})
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// maxLogWait keeps long-polls inside the server write timeout.
const maxLogWait = 20 * time.Second

func (s *apiServer) handleLogs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	offset, err := queryInt(query.Get("offset"), -1)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid offset")
		return
	}
	limit, err := queryInt(query.Get("limit"), 200)
	if err != nil || limit < 0 {
		s.writeError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	waitMs, err := queryInt(query.Get("wait_ms"), 0)
	if err != nil || waitMs < 0 {
		s.writeError(w, http.StatusBadRequest, "invalid wait_ms")
		return
	}
	wait := min(time.Duration(waitMs)*time.Millisecond, maxLogWait)

	path, err := logs.Latest(s.daemon.cfg.Paths.LogDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.writeError(w, http.StatusNotFound, "no daemon log available")
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	result, err := logs.Tail(r.Context(), path, logs.TailOptions{Offset: int64(offset), Limit: limit, Wait: wait})
	if err != nil && !errors.Is(err, context.Canceled) {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.LogsResponse{Path: path, Lines: result.Lines, Offset: result.Offset})
}

func queryInt(raw string, fallback int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}

func (s *apiServer) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	removed, err := s.daemon.store.Clear(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.ClearResponse{Removed: removed})
}

func (s *apiServer) handlePreview(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	path := strings.TrimSpace(query.Get("path"))
	if path == "" {
		s.writeError(w, http.StatusBadRequest, "path is required")
		return
	}
	kind, err := media.ParseKind(query.Get("kind"), path)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	dataURL, _ := s.daemon.previews.Get(r.Context(), path, kind)
	s.writeJSON(w, http.StatusOK, api.PreviewResponse{Path: path, DataURL: dataURL})
}

func (s *apiServer) handleFiles(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	paths := query["path"]
	if len(paths) == 0 {
		s.writeError(w, http.StatusBadRequest, "path is required")
		return
	}
	recursive := query.Get("recursive") == "1" || strings.EqualFold(query.Get("recursive"), "true")
	collection, err := media.Collect(paths, recursive)
	if err != nil {
		s.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.FilesResponse(collection))
}

func (s *apiServer) handleDependencies(w http.ResponseWriter, _ *http.Request) {
	resolver := s.daemon.resolver
	report := resolver.Check()
	s.writeJSON(w, http.StatusOK, api.DependenciesResponse{
		Platform:    resolver.Platform().Name,
		Directory:   resolver.Dir(),
		IsInstalled: report.IsInstalled,
		Missing:     report.Missing,
		Binaries:    api.FromDependencyStatuses(deps.CheckBinaries(resolver.Requirements())),
	})
}

func (s *apiServer) handleInstall(w http.ResponseWriter, r *http.Request) {
	stream := newEventStream(w)
	err := s.daemon.InstallDependencies(r.Context(), func(ev deps.InstallEvent) {
		stream.send(ev)
	})
	if err != nil {
		s.log().Warn("dependency install failed", logging.Error(err))
	}
}

func (s *apiServer) handleTestNotification(w http.ResponseWriter, r *http.Request) {
	sent, message, err := s.daemon.TestNotification(r.Context())
	if err != nil {
		s.writeError(w, http.StatusBadGateway, fmt.Sprintf("%s: %v", message, err))
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"sent": sent, "message": message})
}

// eventStream writes newline-delimited JSON and flushes after every value.
type eventStream struct {
	w       http.ResponseWriter
	enc     *json.Encoder
	ctrl    *http.ResponseController
	started bool
}

func newEventStream(w http.ResponseWriter) *eventStream {
	return &eventStream{w: w, enc: json.NewEncoder(w), ctrl: http.NewResponseController(w)}
}

func (e *eventStream) send(v any) {
	if !e.started {
		e.started = true
		_ = e.ctrl.SetWriteDeadline(time.Time{})
		e.w.Header().Set("Content-Type", "application/x-ndjson")
		e.w.Header().Set("Cache-Control", "no-cache")
		e.w.WriteHeader(http.StatusOK)
	}
	if err := e.enc.Encode(v); err != nil {
		return
	}
	_ = e.ctrl.Flush()
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
	s.writeJSON(w, status, api.ErrorResponse{Error: message})
}

func (s *apiServer) writeServiceError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, services.ErrNotFound):
		status = http.StatusNotFound
	}
	s.writeJSON(w, status, api.ErrorResponse{Error: err.Error(), Kind: services.Kind(err)})
}

func (s *apiServer) log() *slog.Logger {
	if s.logger != nil {
		return s.logger.With(logging.String("component", "api-server"))
	}
	return logging.NewNop()
}
