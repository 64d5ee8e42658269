package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"fileslink/internal/config"
	"fileslink/internal/linkcodec"
	"fileslink/internal/logging"
	"fileslink/internal/metrics"
	"fileslink/internal/retrieval"
	"fileslink/internal/services"
)

const (
	indexPage = `<h1>Server working</h1><div><a href="https://github.com/bytetrix/fileslink">GitHub</a></div>`

	notFoundPage = `<h1>404 Not Found</h1><p>The page you are looking for does not exist.</p><a href="/">Go back to the homepage</a>`

	emptyListingPage = `<h1>Files in storage</h1><p>No files uploaded yet.</p>`
)

type metricsExporter interface {
	Handler() http.Handler
}

type httpServer struct {
	bind   string
	cfg    *config.Config
	logger *slog.Logger
	daemon *Daemon

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
}

func newHTTPServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *httpServer {
	srv := &httpServer{
		bind:   strings.TrimSpace(cfg.HTTP.Bind),
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "http-server"),
		daemon: d,
	}
	srv.server = &http.Server{
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

func (s *httpServer) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /files", s.handleListing)
	mux.HandleFunc("GET /files/{path...}", s.handleFile)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	if exporter, ok := s.daemon.c.Metrics.(metricsExporter); ok && s.cfg.Metrics.Enabled {
		handler := exporter.Handler()
		mux.HandleFunc("GET /metrics", func(w http.ResponseWriter, r *http.Request) {
			s.daemon.c.Metrics.SetArtifacts(s.daemon.c.Files.Len())
			handler.ServeHTTP(w, r)
		})
	}
	mux.HandleFunc("/", s.handleNotFound)
	return mux
}

func (s *httpServer) start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("http listen: %w", err)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.ErrorWithContext(s.logger, "http server error", "http_server_failed", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("http server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *httpServer) stop() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *httpServer) address() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *httpServer) handleIndex(w http.ResponseWriter, _ *http.Request) {
	writeHTML(w, http.StatusOK, indexPage)
}

func (s *httpServer) handleNotFound(w http.ResponseWriter, _ *http.Request) {
	writeHTML(w, http.StatusNotFound, notFoundPage)
}

func (s *httpServer) handleListing(w http.ResponseWriter, r *http.Request) {
	if !s.cfg.HTTP.EnableFilesRoute {
		s.handleNotFound(w, r)
		return
	}
	files := s.daemon.c.Files.List()
	if len(files) == 0 {
		writeHTML(w, http.StatusOK, emptyListingPage)
		return
	}
	var b strings.Builder
	b.WriteString("<h1>Files in storage</h1><ul>")
	for _, f := range files {
		href := "/files/" + url.PathEscape(linkcodec.Encode(f.UniqueID, f.FileName))
		fmt.Fprintf(&b, `<li><a href="%s">%s</a> (%d bytes)</li>`,
			html.EscapeString(href), html.EscapeString(f.FileName), f.FileSize)
	}
	b.WriteString("</ul>")
	writeHTML(w, http.StatusOK, b.String())
}

func (s *httpServer) handleFile(w http.ResponseWriter, r *http.Request) {
	path := r.PathValue("path")
	if path == "" {
		s.handleListing(w, r)
		return
	}

	ctx := services.WithRequestID(r.Context(), requestID(r))
	payload, err := s.daemon.c.Retrieval.Resolve(ctx, path)
	if err != nil {
		s.daemon.c.Metrics.ObserveRetrieval(failedRoute(err), metrics.OutcomeFailure)
		if errors.Is(err, services.ErrNotFound) {
			s.logger.Info("file not found", logging.String("path", path))
			writeHTML(w, http.StatusNotFound, notFoundPage)
			return
		}
		writeText(w, services.HTTPStatus(err), retrieval.PublicMessage(err))
		return
	}

	rendered, err := payload.Render(retrieval.ModeFromQuery(r.URL.Query()))
	if err != nil {
		s.daemon.c.Metrics.ObserveRetrieval(string(payload.Route), metrics.OutcomeFailure)
		logging.ErrorWithContext(s.logger, "render failed", "render_failed", logging.Error(err))
		writeText(w, http.StatusInternalServerError, "Failed to prepare file")
		return
	}
	s.daemon.c.Metrics.ObserveRetrieval(string(payload.Route), metrics.OutcomeSuccess)

	header := w.Header()
	header.Set("Content-Type", rendered.ContentType)
	if rendered.Disposition != "" {
		header.Set("Content-Disposition", rendered.Disposition)
	}
	header.Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(rendered.Body); err != nil {
		s.logger.Debug("client went away", logging.Error(err))
	}
}

type healthResponse struct {
	Status     string `json:"status"`
	QueueDepth int    `json:"queue_depth"`
	Files      int    `json:"files"`
}

func (s *httpServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	status := s.daemon.Status()
	s.writeJSON(w, http.StatusOK, healthResponse{Status: "ok", QueueDepth: status.QueueDepth, Files: status.Files})
}

func (s *httpServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func writeHTML(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

// failedRoute labels a retrieval failure by the path that produced it.
func failedRoute(err error) string {
	switch {
	case errors.Is(err, services.ErrUnavailable), errors.Is(err, services.ErrUpstream), errors.Is(err, services.ErrNotAvailable):
		return string(retrieval.RouteProxy)
	default:
		return string(retrieval.RouteDirect)
	}
}

func requestID(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get("X-Request-Id")); id != "" {
		return id
	}
	return uuid.NewString()
}
