package http

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	nethttp "net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/user/thermaldash/internal/config"
	"github.com/user/thermaldash/internal/dashboard"
	"github.com/user/thermaldash/internal/session"
	"github.com/user/thermaldash/web"
)

// Server wraps an HTTP server and route handlers.
type Server struct {
	httpServer *nethttp.Server
	app        *dashboard.App
	store      *session.Store
	page       *template.Template
	logger     *zap.Logger
}

// NewServer creates the dashboard HTTP server.
func NewServer(cfg config.Config, app *dashboard.App, store *session.Store, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	assets, err := web.Assets()
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded assets: %w", err)
	}
	page, err := template.ParseFS(assets, "dashboard.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse dashboard template: %w", err)
	}
	static, err := fs.Sub(assets, "static")
	if err != nil {
		return nil, fmt.Errorf("failed to open static assets: %w", err)
	}

	s := &Server{app: app, store: store, page: page, logger: logger}

	mux := nethttp.NewServeMux()
	mux.HandleFunc("GET /{$}", s.dashboardHandler)
	mux.Handle("GET /static/", nethttp.StripPrefix("/static/", nethttp.FileServerFS(static)))
	mux.HandleFunc("GET /favicon.ico", faviconHandler)
	mux.HandleFunc("GET /health", healthHandler)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("POST /hosts", s.addHostHandler)
	mux.HandleFunc("POST /hosts/{idx}", s.setHostHandler)
	mux.HandleFunc("POST /hosts/{idx}/remove", s.removeHostHandler)
	mux.HandleFunc("POST /hosts/{idx}/select", s.selectHandler)
	mux.HandleFunc("GET /hosts/{idx}/chart.png", s.chartHandler)
	mux.HandleFunc("GET /hosts/{idx}/report.pdf", s.reportHandler)
	mux.HandleFunc("GET /hosts/{idx}/data.csv", s.dataHandler)

	s.httpServer = &nethttp.Server{
		Addr:         cfg.ListenAddr,
		Handler:      s.loggingMiddleware(mux),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s, nil
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() nethttp.Handler {
	return s.httpServer.Handler
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	s.logger.Info("listening", zap.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func healthHandler(w nethttp.ResponseWriter, _ *nethttp.Request) {
	writeJSON(w, nethttp.StatusOK, map[string]any{
		"status": "ok",
		"time":   time.Now().UTC(),
	})
}

func faviconHandler(w nethttp.ResponseWriter, _ *nethttp.Request) {
	w.WriteHeader(nethttp.StatusNoContent)
}

func writeJSON(w nethttp.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}
