// Package api exposes the daemon's host surface over HTTP: device
// reachability for display and a command endpoint for the UI layer.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"kodicec/pkg/plugin"

	"go.uber.org/zap"
)

// Server provides the HTTP endpoints for the kodicec daemon.
type Server struct {
	plugins []plugin.Plugin
	logger  *zap.Logger
	server  *http.Server
}

// NewServer creates an API server over the given plugins.
func NewServer(plugins []plugin.Plugin, logger *zap.Logger, port int) *Server {
	s := &Server{
		plugins: plugins,
		logger:  logger.Named("api"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleSitemap)
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/command", s.handleCommand)
	mux.HandleFunc("/health", s.handleHealth)

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// StatusResponse is the JSON body of the status endpoint.
type StatusResponse struct {
	Devices map[string]plugin.StatusReport `json:"devices"`
}

// CommandRequest is the JSON body accepted by the command endpoint.
type CommandRequest struct {
	// Plugin selects the target plugin; may be omitted when only one
	// plugin accepts commands.
	Plugin  string `json:"plugin,omitempty"`
	Command string `json:"command"`
}

// handleStatus returns the reachability of every status-reporting plugin.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := StatusResponse{Devices: make(map[string]plugin.StatusReport)}
	for _, p := range s.plugins {
		reporter, ok := p.(plugin.StatusReporter)
		if !ok {
			continue
		}
		response.Devices[p.Name()] = reporter.ReportStatus()
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		s.logger.Error("Failed to encode status response", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	s.logger.Debug("Status request served", zap.String("remote_addr", r.RemoteAddr))
}

// handleCommand forwards a command to the selected plugin. Delivery errors
// come back as 502 so the UI can surface them.
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req CommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Command == "" {
		http.Error(w, "Missing command", http.StatusBadRequest)
		return
	}

	sender := s.findSender(req.Plugin)
	if sender == nil {
		http.Error(w, "No such command plugin", http.StatusNotFound)
		return
	}

	if err := sender.SendCommand(req.Command); err != nil {
		s.logger.Warn("Command failed",
			zap.String("command", req.Command),
			zap.Error(err))
		http.Error(w, fmt.Sprintf("Command failed: %v", err), http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})

	s.logger.Debug("Command relayed",
		zap.String("command", req.Command),
		zap.String("remote_addr", r.RemoteAddr))
}

// findSender resolves the target plugin by name, or picks the sole
// command-accepting plugin when no name was given.
func (s *Server) findSender(name string) plugin.CommandSender {
	var sole plugin.CommandSender
	senders := 0
	for _, p := range s.plugins {
		sender, ok := p.(plugin.CommandSender)
		if !ok {
			continue
		}
		if name != "" && p.Name() == name {
			return sender
		}
		sole = sender
		senders++
	}
	if name == "" && senders == 1 {
		return sole
	}
	return nil
}

// handleHealth returns a simple health check response.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status": "ok",
	})
}

// handleSitemap lists the available endpoints for anyone poking at the root.
func (s *Server) handleSitemap(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	fmt.Fprintf(w, "kodicec API\n")
	fmt.Fprintf(w, "===========\n\n")
	fmt.Fprintf(w, "  GET  /api/status   Device reachability and version\n")
	fmt.Fprintf(w, "  POST /api/command  Relay a CEC command, body {\"command\": \"...\"}\n")
	fmt.Fprintf(w, "  GET  /health       Health check\n")
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	s.logger.Info("Starting HTTP API server", zap.String("addr", s.server.Addr))

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	return nil
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop() error {
	s.logger.Info("Stopping HTTP API server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}

	return nil
}
