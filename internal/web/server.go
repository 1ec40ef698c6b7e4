package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"image-squeeze-go/internal/compressor"
	"image-squeeze-go/internal/config"
	"image-squeeze-go/internal/files"
	"image-squeeze-go/internal/logger"
	"image-squeeze-go/internal/metadata"
	"image-squeeze-go/internal/statistics"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// SelectedFile is the currently accepted source file.
type SelectedFile struct {
	Name    string
	Size    int64
	MIME    string
	TakenAt *time.Time
}

// Artifact is the binary result of a successful compression.
type Artifact struct {
	Data []byte
	Name string
	MIME string
}

// Server hosts the compressor view: one selected file, at most one
// artifact, and at most one compression in flight.
type Server struct {
	cfg        *config.Config
	log        *logrus.Logger
	router     *mux.Router
	httpServer *http.Server
	comp       compressor.Compressor
	probe      *metadata.Probe
	stats      *statistics.Statistics

	wsUpgrader websocket.Upgrader
	wsClients  map[*websocket.Conn]bool
	wsMutex    sync.RWMutex

	// View state
	stateMutex sync.RWMutex
	selected   *SelectedFile
	artifact   *Artifact
	busy       bool
}

type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

type WSMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

func NewServer(cfg *config.Config, log *logrus.Logger, comp compressor.Compressor) *Server {
	s := &Server{
		cfg:       cfg,
		log:       log,
		router:    mux.NewRouter(),
		comp:      comp,
		probe:     metadata.NewProbe(log),
		stats:     statistics.NewStatistics(),
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
	api.HandleFunc("/compress", s.handleCompress).Methods("POST")
	api.HandleFunc("/status", s.handleStatus).Methods("GET")
	api.HandleFunc("/artifact", s.handleArtifact).Methods("GET")
	api.HandleFunc("/statistics", s.handleGetStatistics).Methods("GET")

	// WebSocket endpoint
	s.router.HandleFunc("/ws", s.handleWebSocket)

	// Static files
	s.router.PathPrefix("/static/").Handler(
		http.StripPrefix("/static/", http.FileServer(http.Dir(filepath.Join(s.cfg.Server.WebDir, "static")))),
	)

	// Main page
	s.router.HandleFunc("/", s.handleIndex).Methods("GET")
}

func (s *Server) Start(port int) error {
	addr := fmt.Sprintf(":%d", port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.cfg.Server.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(s.cfg.Server.WriteTimeoutSec) * time.Second,
		IdleTimeout:  time.Duration(s.cfg.Server.IdleTimeoutSec) * time.Second,
	}

	s.log.Infof("Starting web server on http://localhost%s", addr)
	return s.httpServer.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	http.ServeFile(w, r, filepath.Join(s.cfg.Server.WebDir, "templates", "index.html"))
}

// handleCompress accepts one multipart file, validates it, and either
// starts an image compression or refuses the upload. The busy flag
// guarantees at most one compression in flight.
func (s *Server) handleCompress(w http.ResponseWriter, r *http.Request) {
	src, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, "file parameter is required", http.StatusBadRequest)
		return
	}
	defer src.Close()

	cand := files.Candidate{
		Name: header.Filename,
		Size: header.Size,
		MIME: header.Header.Get("Content-Type"),
	}

	s.stats.RecordReceived()
	logger.WithUpload(s.log, cand.Name, cand.Size).WithField("mime", cand.MIME).Info("Processing file")

	if err := cand.Validate(s.cfg.Limits.MaxUploadBytes); err != nil {
		if errors.Is(err, files.ErrFileTooLarge) {
			s.stats.RecordRejectedSize()
		} else {
			s.stats.RecordRejectedType()
		}
		s.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(src)
	if err != nil {
		s.log.Errorf("Failed to read uploaded file: %v", err)
		s.writeError(w, "failed to read uploaded file", http.StatusInternalServerError)
		return
	}

	selected := &SelectedFile{
		Name: cand.Name,
		Size: cand.Size,
		MIME: cand.MIME,
	}
	if cand.IsImage() {
		if takenAt, err := s.probe.TakenAt(data); err == nil {
			selected.TakenAt = takenAt
		}
	}

	// Check-and-set under one lock: refusing re-entry and claiming the
	// busy flag must be atomic or two uploads can race past each other.
	// Accepting a candidate replaces the selection and clears any prior
	// artifact before the new attempt begins.
	s.stateMutex.Lock()
	if s.busy {
		s.stateMutex.Unlock()
		s.writeError(w, "Compression already in progress", http.StatusConflict)
		return
	}
	s.selected = selected
	s.artifact = nil
	s.busy = true
	s.stateMutex.Unlock()

	if cand.IsPDF() {
		s.stateMutex.Lock()
		s.busy = false
		s.stateMutex.Unlock()

		s.stats.RecordPDFRefused()
		s.writeJSON(w, APIResponse{
			Success: false,
			Error:   files.NoticePDFUnsupported,
			Data: map[string]interface{}{
				"status": "unsupported",
				"file":   s.fileInfo(selected),
			},
		})
		return
	}

	s.broadcastWSMessage("processing_started", map[string]interface{}{
		"file": selected.Name,
		"size": selected.Size,
	})

	go s.runCompressAsync(selected, data)

	s.writeJSON(w, APIResponse{
		Success: true,
		Message: "Compression started",
		Data: map[string]interface{}{
			"status": "compressing",
			"file":   s.fileInfo(selected),
		},
	})
}

// runCompressAsync performs the compression off the request path. The busy
// flag is released on every exit path.
func (s *Server) runCompressAsync(selected *SelectedFile, data []byte) {
	defer func() {
		s.stateMutex.Lock()
		s.busy = false
		s.stateMutex.Unlock()
	}()

	params := compressor.CompressionParams{
		TargetBytes:    s.cfg.Compression.TargetBytes,
		MaxDimension:   s.cfg.Compression.MaxDimension,
		InitialQuality: s.cfg.Compression.InitialQuality,
		MinQuality:     s.cfg.Compression.MinQuality,
	}

	res, err := s.comp.Compress(context.Background(), data, params)
	if err != nil {
		s.log.WithField("file", selected.Name).Errorf("Compression failed: %v", err)
		s.stats.RecordCompressionError()
		s.broadcastWSMessage("compress_failed", map[string]interface{}{
			"notice": files.NoticeCompressFailed,
			"file":   selected.Name,
			"error":  err.Error(),
		})
		return
	}

	artifact := &Artifact{
		Data: res.Data,
		Name: files.ArtifactName(selected.Name),
		MIME: artifactMIME(selected.MIME, res),
	}

	s.stateMutex.Lock()
	// The busy flag blocks new uploads, so the selection cannot have
	// changed under us; guard anyway.
	if s.selected == selected {
		s.artifact = artifact
	}
	s.stateMutex.Unlock()

	s.stats.RecordCompressed(res.OriginalSize, res.CompressedSize)
	s.broadcastWSMessage("compress_completed", map[string]interface{}{
		"notice":           files.NoticeCompressOK,
		"file":             selected.Name,
		"filename":         artifact.Name,
		"original_size":    res.OriginalSize,
		"compressed_size":  res.CompressedSize,
		"percentage_saved": res.PercentageSaved,
		"width":            res.Width,
		"height":           res.Height,
		"duration_ms":      res.Duration.Milliseconds(),
	})
}

// artifactMIME returns the MIME type of the artifact bytes. A re-encoded
// artifact is always JPEG; when the original bytes were kept, so was the
// original type.
func artifactMIME(originalMIME string, res *compressor.Result) string {
	if res.CompressedSize == res.OriginalSize {
		return originalMIME
	}
	return "image/jpeg"
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.stateMutex.RLock()
	busy := s.busy
	selected := s.selected
	artifact := s.artifact
	s.stateMutex.RUnlock()

	data := map[string]interface{}{
		"busy": busy,
	}
	if selected != nil {
		data["file"] = s.fileInfo(selected)
	}
	if artifact != nil {
		data["artifact"] = map[string]interface{}{
			"present":  true,
			"size":     len(artifact.Data),
			"filename": artifact.Name,
		}
	} else {
		data["artifact"] = map[string]interface{}{
			"present": false,
		}
	}

	s.writeJSON(w, APIResponse{
		Success: true,
		Data:    data,
	})
}

// handleArtifact serves the compressed bytes as an attachment named
// "compressed-<original-name>". No artifact, no download.
func (s *Server) handleArtifact(w http.ResponseWriter, r *http.Request) {
	s.stateMutex.RLock()
	artifact := s.artifact
	s.stateMutex.RUnlock()

	if artifact == nil {
		s.writeError(w, "no compressed artifact available", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", artifact.MIME)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", artifact.Name))
	w.Header().Set("Content-Length", fmt.Sprintf("%d", len(artifact.Data)))
	if _, err := w.Write(artifact.Data); err != nil {
		s.log.Errorf("Failed to write artifact: %v", err)
	}
}

func (s *Server) handleGetStatistics(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, APIResponse{
		Success: true,
		Data: map[string]interface{}{
			"summary":  s.stats.GetSummary(),
			"counters": s.stats.Snapshot(),
		},
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
		_, _, err := conn.ReadMessage()
		if err != nil {
			break
		}
	}
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
		err := conn.WriteMessage(websocket.TextMessage, msgBytes)
		if err != nil {
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

func (s *Server) fileInfo(f *SelectedFile) map[string]interface{} {
	info := map[string]interface{}{
		"name":    f.Name,
		"size":    f.Size,
		"size_mb": files.SizeMB(f.Size),
		"mime":    f.MIME,
	}
	if f.TakenAt != nil {
		info["taken_at"] = f.TakenAt.Format(time.RFC3339)
	}
	return info
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
