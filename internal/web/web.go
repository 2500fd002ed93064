package web

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"ganttline/internal/config"
	"ganttline/internal/datemath"
	"ganttline/internal/layout"
	appLog "ganttline/internal/log"
	"ganttline/internal/model"
	"ganttline/internal/render"
	"ganttline/internal/store"
)

// APISource is the store source for items created over the API.
const APISource = "api"

const layoutCacheTTL = 30 * time.Second

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// Server serves the timeline views and the item/layout API.
type Server struct {
	cfg    *config.Config
	store  *store.Store
	engine *layout.Engine
	style  render.Style
	mux    *http.ServeMux

	// refresh re-imports external item sources; nil disables /api/refresh.
	refresh func(ctx context.Context) error
	// onListening runs once the listener is bound, before requests are served.
	onListening func(addr string)

	// The layout is recomputed from a fresh snapshot whenever the store
	// version moves; the TTL only bounds how long an unchanged result is
	// reused.
	layoutMu    sync.RWMutex
	layoutCache *layoutCache
}

type layoutCache struct {
	version   uint64
	res       *layout.Result
	updatedAt time.Time
}

// Option customizes a Server.
type Option func(*Server)

// WithRefresh enables POST /api/refresh.
func WithRefresh(fn func(ctx context.Context) error) Option {
	return func(s *Server) { s.refresh = fn }
}

// WithOnListening registers fn to run with the bound address once the HTTP
// listener is up.
func WithOnListening(fn func(addr string)) Option {
	return func(s *Server) { s.onListening = fn }
}

// NewServer constructs a new Server.
func NewServer(cfg *config.Config, st *store.Store, engine *layout.Engine, opts ...Option) *Server {
	style := render.DefaultStyle()
	style.AxisHeight = cfg.Layout.AxisHeight

	s := &Server{
		cfg:    cfg,
		store:  st,
		engine: engine,
		style:  style,
		mux:    http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}
	st.OnChange(func(uint64) { s.invalidate() })
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="ganttline", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// ListenAndServe serves until ctx is canceled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ln, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return err
	}
	appLog.Info("starting HTTP server", "listen", "http://"+ln.Addr().String())
	if s.onListening != nil {
		s.onListening(ln.Addr().String())
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/layout", s.handleLayout)
	s.mux.HandleFunc("GET /api/items", s.handleListItems)
	s.mux.HandleFunc("POST /api/items", s.handleAddItem)
	s.mux.HandleFunc("PATCH /api/items/{id}", s.handleRenameItem)
	s.mux.HandleFunc("POST /api/refresh", s.handleRefresh)
	s.mux.HandleFunc("GET /timeline", s.handleTimelineHTML)
	s.mux.HandleFunc("GET /timeline.svg", s.handleTimelineSVG)
	s.mux.HandleFunc("GET /preview.png", s.handlePreview)
	s.mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/timeline", http.StatusFound)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) invalidate() {
	s.layoutMu.Lock()
	s.layoutCache = nil
	s.layoutMu.Unlock()
}

// currentLayout returns the layout of the current store snapshot.
func (s *Server) currentLayout() (*layout.Result, error) {
	version := s.store.Version()
	now := time.Now()

	s.layoutMu.RLock()
	lc := s.layoutCache
	s.layoutMu.RUnlock()
	if lc != nil && lc.version == version && now.Sub(lc.updatedAt) < layoutCacheTTL {
		return lc.res, nil
	}

	res, err := s.engine.Layout(s.store.Snapshot())
	if err != nil {
		return nil, err
	}

	s.layoutMu.Lock()
	s.layoutCache = &layoutCache{version: version, res: res, updatedAt: now}
	s.layoutMu.Unlock()
	return res, nil
}

func (s *Server) handleLayout(w http.ResponseWriter, _ *http.Request) {
	res, err := s.currentLayout()
	if err != nil {
		appLog.Error("layout failed", err)
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleListItems(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, itemsResponse{Items: s.store.Snapshot()})
}

type itemsResponse struct {
	Items []model.Item `json:"items"`
}

func (s *Server) handleAddItem(w http.ResponseWriter, r *http.Request) {
	var it model.Item
	if err := decodeJSON(r, &it); err != nil {
		writeDecodeError(w, err)
		return
	}
	added, err := s.store.Add(APISource, it)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, added)
}

type renameRequest struct {
	Name string `json:"name"`
}

type renameResponse struct {
	Item   model.Item     `json:"item"`
	Layout *layout.Result `json:"layout"`
}

// handleRenameItem commits an inline edit and answers with the recomputed
// layout.
func (s *Server) handleRenameItem(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req renameRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	it, err := s.store.Rename(id, req.Name)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	res, err := s.currentLayout()
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, renameResponse{Item: it, Layout: res})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if s.refresh == nil {
		writeError(w, http.StatusNotFound, "refresh not configured")
		return
	}
	if err := s.refresh(r.Context()); err != nil {
		appLog.Error("refresh failed", err)
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"items": s.store.Len()})
}

func (s *Server) handleTimelineHTML(w http.ResponseWriter, _ *http.Request) {
	res, err := s.currentLayout()
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	var buf bytes.Buffer
	if err := render.HTML(&buf, res, render.Page{Title: "Timeline", ItemsAPI: "/api/items", Style: s.style}); err != nil {
		appLog.Error("html render failed", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleTimelineSVG(w http.ResponseWriter, _ *http.Request) {
	res, err := s.currentLayout()
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	var buf bytes.Buffer
	if err := render.SVG(&buf, res, s.style); err != nil {
		appLog.Error("svg render failed", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	_, _ = w.Write(buf.Bytes())
}

// handlePreview serves the last captured PNG from disk.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	http.ServeFile(w, r, s.cfg.Capture.OutputPath)
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func writeDecodeError(w http.ResponseWriter, err error) {
	var dateErr *datemath.InvalidDateError
	if errors.As(err, &dateErr) {
		writeError(w, http.StatusBadRequest, dateErr.Error())
		return
	}
	writeError(w, http.StatusBadRequest, "invalid JSON body")
}

func writeStoreError(w http.ResponseWriter, err error) {
	var (
		rangeErr *model.InvalidRangeError
		dateErr  *datemath.InvalidDateError
	)
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrEmptyName), errors.As(err, &rangeErr), errors.As(err, &dateErr):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, model.ErrDuplicateID):
		writeError(w, http.StatusConflict, err.Error())
	default:
		appLog.Error("store operation failed", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
