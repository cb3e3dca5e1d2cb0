package api

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/dixieflatline76/Retouch/pkg/editor"
	"github.com/dixieflatline76/Retouch/pkg/export"
	"github.com/dixieflatline76/Retouch/util/log"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

// Options configures the server.
type Options struct {
	Addr              string
	RequestsPerSecond float64
	RequestBurst      int
	// UpscaleFactor is used when an upscale request names no factor.
	UpscaleFactor float64
	MaxUploadMB   int
}

// Server is the local REST/WebSocket surface over one editing session.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	upgrader   websocket.Upgrader
	opts       Options

	hub      *Hub
	session  *editor.Session
	enhancer *editor.Enhancer
	previews *export.PreviewStore
	limiter  *rate.Limiter

	previewMu   sync.Mutex
	lastPreview string
}

// NewServer creates a new API server. Status changes of enhancer are pushed
// to hub clients.
func NewServer(session *editor.Session, enhancer *editor.Enhancer, previews *export.PreviewStore, hub *Hub, opts Options) *Server {
	if hub == nil {
		hub = NewHub()
	}
	if opts.UpscaleFactor == 0 {
		opts.UpscaleFactor = 2
	}
	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}

	s := &Server{
		mux: http.NewServeMux(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		opts:     opts,
		hub:      hub,
		session:  session,
		enhancer: enhancer,
		previews: previews,
		limiter:  rate.NewLimiter(limit, max(opts.RequestBurst, 1)),
	}
	if enhancer != nil {
		enhancer.OnStatus(s.onStatus)
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("OPTIONS /", s.enableCORS(func(http.ResponseWriter, *http.Request) {}))
	s.mux.HandleFunc("GET /health", s.enableCORS(s.handleHealth))
	s.mux.HandleFunc("GET /ws", s.handleWebSocket)

	s.mux.HandleFunc("GET /session", s.enableCORS(s.handleSession))
	s.mux.HandleFunc("POST /image", s.enableCORS(s.limit(s.handleUpload)))
	s.mux.HandleFunc("PUT /adjustments", s.enableCORS(s.limit(s.handleAdjustments)))
	s.mux.HandleFunc("POST /reset", s.enableCORS(s.limit(s.handleReset)))

	s.mux.HandleFunc("POST /overlays", s.enableCORS(s.limit(s.handleAddOverlay)))
	s.mux.HandleFunc("PATCH /overlays/{id}", s.enableCORS(s.limit(s.handleUpdateOverlay)))
	s.mux.HandleFunc("DELETE /overlays/{id}", s.enableCORS(s.limit(s.handleDeleteOverlay)))

	s.mux.HandleFunc("PUT /background", s.enableCORS(s.limit(s.handleBackground)))
	s.mux.HandleFunc("GET /background/suggest", s.enableCORS(s.handleSuggestBackground))

	s.mux.HandleFunc("PUT /export", s.enableCORS(s.limit(s.handleExportSettings)))
	s.mux.HandleFunc("GET /export/formats", s.enableCORS(s.handleCompareFormats))

	s.mux.HandleFunc("POST /enhance/{op}", s.enableCORS(s.limit(s.handleEnhance)))
	s.mux.HandleFunc("GET /enhance", s.enableCORS(s.handleEnhanceStatus))

	s.mux.HandleFunc("GET "+export.PreviewPrefix+"{token}", s.enableCORS(s.handlePreview))
	s.mux.HandleFunc("GET /download", s.enableCORS(s.handleDownload))
}

// enableCORS adds CORS headers to the handler.
func (s *Server) enableCORS(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Allow browser front ends on other local ports
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Expose-Headers", "Content-Disposition")

		// Handle preflight requests
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next(w, r)
	}
}

// limit rejects requests beyond the configured rate with 429.
func (s *Server) limit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "too many requests", Kind: "rate_limited"})
			return
		}
		next(w, r)
	}
}

func (s *Server) onStatus(st editor.Status) {
	s.hub.PublishStatus(st)
	s.publishPreview()
}

// publishPreview pushes the session's preview URL if it changed since the
// last push.
func (s *Server) publishPreview() {
	url := s.session.PreviewURL()

	s.previewMu.Lock()
	changed := url != s.lastPreview
	s.lastPreview = url
	s.previewMu.Unlock()

	if changed {
		s.hub.PublishPreview(url, s.session.Stats())
	}
}

// Hub returns the WebSocket hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start starts the server. It blocks until the server stops.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Printf("API: listening on %s", s.opts.Addr)
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop gracefully stops the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
