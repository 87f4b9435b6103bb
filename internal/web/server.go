package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fibnas/metazap/internal/config"
	"github.com/fibnas/metazap/internal/optimizer"
	"github.com/fibnas/metazap/internal/pipeline"
	"github.com/fibnas/metazap/internal/report"
	"github.com/fibnas/metazap/internal/stripper"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Server exposes the strip pipeline over HTTP with a websocket channel
// for live per-file progress.
type Server struct {
	cfg        *config.Config
	log        *logrus.Logger
	router     *mux.Router
	httpServer *http.Server
	wsUpgrader websocket.Upgrader
	wsClients  map[*websocket.Conn]bool
	wsMutex    sync.RWMutex

	// Current operation state
	operationMutex sync.RWMutex
	isRunning      bool
	cancelRun      context.CancelFunc
	currentReport  *report.Report
}

type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

type ScanRequest struct {
	Directory string `json:"directory"`
	Recursive *bool  `json:"recursive,omitempty"`
}

type StripRequest struct {
	InputDirectory  string `json:"input_directory"`
	OutputDirectory string `json:"output_directory,omitempty"`
	Recursive       *bool  `json:"recursive,omitempty"`
	DryRun          bool   `json:"dry_run"`
	Backup          bool   `json:"backup"`
	Optimize        bool   `json:"optimize"`
}

type PlanEntry struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
	Format      string `json:"format"`
	Size        int64  `json:"size"`
	Backup      bool   `json:"backup"`
	Optimize    bool   `json:"optimize"`
}

type WSMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// NewServer returns a Server bound to the given base configuration.
func NewServer(cfg *config.Config, log *logrus.Logger) *Server {
	s := &Server{
		cfg:       cfg,
		log:       log,
		router:    mux.NewRouter(),
		wsClients: make(map[*websocket.Conn]bool),
		wsUpgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins in development
			},
		},
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	// API routes
	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/status", s.handleStatus).Methods("GET")
	api.HandleFunc("/scan", s.handleScan).Methods("POST")
	api.HandleFunc("/strip", s.handleStrip).Methods("POST")
	api.HandleFunc("/stop", s.handleStop).Methods("POST")
	api.HandleFunc("/report", s.handleGetReport).Methods("GET")

	// WebSocket endpoint
	s.router.HandleFunc("/ws", s.handleWebSocket)

	// Static files
	s.router.PathPrefix("/static/").Handler(
		http.StripPrefix("/static/", http.FileServer(http.Dir("web/static/"))),
	)

	// Main page
	s.router.HandleFunc("/", s.handleIndex).Methods("GET")
}

// Router returns the HTTP handler, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) Start(port int) error {
	addr := fmt.Sprintf(":%d", port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	s.log.Infof("Starting web server on http://localhost%s", addr)
	return s.httpServer.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	s.operationMutex.Lock()
	if s.cancelRun != nil {
		s.cancelRun()
	}
	s.operationMutex.Unlock()

	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	http.ServeFile(w, r, "web/templates/index.html")
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.operationMutex.RLock()
	running := s.isRunning
	rep := s.currentReport
	s.operationMutex.RUnlock()

	s.writeJSON(w, APIResponse{
		Success: true,
		Data: map[string]interface{}{
			"running": running,
			"report":  reportData(rep),
		},
	})
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	var req ScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.Directory == "" {
		s.writeError(w, "Directory is required", http.StatusBadRequest)
		return
	}

	if _, err := os.Stat(req.Directory); os.IsNotExist(err) {
		s.writeError(w, "Directory does not exist", http.StatusBadRequest)
		return
	}

	cfg := *s.cfg
	cfg.InputDirectory = req.Directory
	if req.Recursive != nil {
		cfg.Recursive = *req.Recursive
	}

	rep := report.New()
	p := pipeline.New(&cfg, s.log, rep, stripper.NewChunkStripper(), s.recompressor(&cfg))

	entries, err := p.Scan(r.Context())
	if err != nil {
		s.writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	plan := make([]PlanEntry, 0, len(entries))
	for _, e := range entries {
		plan = append(plan, PlanEntry{
			Source:      e.SourcePath,
			Destination: e.DestPath,
			Format:      e.Type.String(),
			Size:        e.Size,
			Backup:      e.NeedsBackup,
			Optimize:    e.Optimize,
		})
	}

	s.writeJSON(w, APIResponse{
		Success: true,
		Data: map[string]interface{}{
			"entries": plan,
			"skipped": rep.GetFilesSkipped(),
		},
	})
}

func (s *Server) handleStrip(w http.ResponseWriter, r *http.Request) {
	var req StripRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.InputDirectory == "" {
		s.writeError(w, "Input directory is required", http.StatusBadRequest)
		return
	}

	// Check if already running
	s.operationMutex.RLock()
	if s.isRunning {
		s.operationMutex.RUnlock()
		s.writeError(w, "Operation already in progress", http.StatusConflict)
		return
	}
	s.operationMutex.RUnlock()

	if _, err := os.Stat(req.InputDirectory); os.IsNotExist(err) {
		s.writeError(w, "Input directory does not exist", http.StatusBadRequest)
		return
	}

	go s.runStripAsync(req)

	s.writeJSON(w, APIResponse{
		Success: true,
		Message: "Strip run started",
	})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	s.operationMutex.Lock()
	if s.cancelRun != nil {
		s.cancelRun()
	}
	s.operationMutex.Unlock()

	s.broadcastWSMessage("operation_stopped", map[string]interface{}{
		"message": "Operation stopped by user",
	})

	s.writeJSON(w, APIResponse{
		Success: true,
		Message: "Operation stopped",
	})
}

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	s.operationMutex.RLock()
	rep := s.currentReport
	s.operationMutex.RUnlock()

	s.writeJSON(w, APIResponse{
		Success: true,
		Data:    reportData(rep),
	})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Errorf("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	s.wsMutex.Lock()
	s.wsClients[conn] = true
	s.wsMutex.Unlock()

	s.log.Debug("WebSocket client connected")

	// Remove client on disconnect
	defer func() {
		s.wsMutex.Lock()
		delete(s.wsClients, conn)
		s.wsMutex.Unlock()
		s.log.Debug("WebSocket client disconnected")
	}()

	// Keep connection alive
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (s *Server) runStripAsync(req StripRequest) {
	ctx, cancel := context.WithCancel(context.Background())
	rep := report.New()

	s.operationMutex.Lock()
	s.isRunning = true
	s.cancelRun = cancel
	s.currentReport = rep
	s.operationMutex.Unlock()

	s.broadcastWSMessage("strip_started", map[string]interface{}{
		"input_directory":  req.InputDirectory,
		"output_directory": req.OutputDirectory,
		"dry_run":          req.DryRun,
	})

	cfg := *s.cfg
	cfg.InputDirectory = req.InputDirectory
	if req.OutputDirectory != "" {
		cfg.OutputDirectory = &req.OutputDirectory
	}
	if req.Recursive != nil {
		cfg.Recursive = *req.Recursive
	}
	cfg.Processing.DryRun = req.DryRun
	cfg.Processing.CreateBackups = req.Backup
	cfg.Optimizer.Enabled = req.Optimize

	hook := func(level, message string) {
		s.broadcastWSMessage("log", map[string]interface{}{
			"level":   level,
			"message": message,
		})
	}

	p := pipeline.NewWithLogHook(&cfg, s.log, rep, stripper.NewChunkStripper(), s.recompressor(&cfg), hook)
	err := p.Run(ctx)

	s.operationMutex.Lock()
	s.isRunning = false
	s.cancelRun = nil
	s.operationMutex.Unlock()
	cancel()

	if err != nil {
		s.broadcastWSMessage("strip_error", map[string]interface{}{
			"error": err.Error(),
		})
	} else {
		s.broadcastWSMessage("strip_completed", map[string]interface{}{
			"report": reportData(rep),
		})
	}
}

func (s *Server) recompressor(cfg *config.Config) optimizer.Recompressor {
	return optimizer.NewExecRecompressor(cfg.Optimizer.Command, cfg.Optimizer.ExtraArgs, cfg.OptimizerTimeout())
}

func (s *Server) broadcastWSMessage(messageType string, data interface{}) {
	message := WSMessage{
		Type: messageType,
		Data: data,
	}

	msgBytes, err := json.Marshal(message)
	if err != nil {
		s.log.Errorf("Failed to marshal WebSocket message: %v", err)
		return
	}

	s.wsMutex.RLock()
	defer s.wsMutex.RUnlock()

	for conn := range s.wsClients {
		if err := conn.WriteMessage(websocket.TextMessage, msgBytes); err != nil {
			s.log.Errorf("Failed to write WebSocket message: %v", err)
			// Remove failed connection
			go func(c *websocket.Conn) {
				s.wsMutex.Lock()
				delete(s.wsClients, c)
				s.wsMutex.Unlock()
				c.Close()
			}(conn)
		}
	}
}

func reportData(rep *report.Report) interface{} {
	if rep == nil {
		return nil
	}
	return map[string]interface{}{
		"summary": rep.Summary(),
		"files": map[string]interface{}{
			"found":             atomic.LoadInt64(&rep.FilesFound),
			"processed":         atomic.LoadInt64(&rep.FilesProcessed),
			"stripped":          atomic.LoadInt64(&rep.FilesStripped),
			"planned":           atomic.LoadInt64(&rep.FilesPlanned),
			"skipped":           atomic.LoadInt64(&rep.FilesSkipped),
			"failed":            atomic.LoadInt64(&rep.FilesFailed),
			"optimized":         atomic.LoadInt64(&rep.FilesOptimized),
			"optimize_warnings": atomic.LoadInt64(&rep.OptimizeWarnings),
		},
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func (s *Server) writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(APIResponse{
		Success: false,
		Error:   message,
	})
}
