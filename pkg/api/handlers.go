package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/dixieflatline76/Retouch/config"
	"github.com/dixieflatline76/Retouch/pkg/editor"
	"github.com/dixieflatline76/Retouch/pkg/export"
	"github.com/dixieflatline76/Retouch/pkg/render"
	"github.com/dixieflatline76/Retouch/util/log"
)

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("API: writing response: %v", err)
	}
}

// statusFor maps an editor error kind onto an HTTP status.
func statusFor(kind editor.ErrorKind) int {
	switch kind {
	case editor.KindInvalidInput:
		return http.StatusBadRequest
	case editor.KindNotFound:
		return http.StatusNotFound
	case editor.KindBusy:
		return http.StatusConflict
	case editor.KindRenderingUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	kind := editor.KindOf(err)
	writeJSON(w, statusFor(kind), errorResponse{Error: err.Error(), Kind: kind.String()})
}

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: request body: %v", editor.ErrInvalidInput, err)
	}
	return nil
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "running",
		"version":       config.Version(),
		"max_upload_mb": s.opts.MaxUploadMB,
		"formats":       export.Formats(),
		"upscale":       editor.UpscaleFactors,
		"previews": map[string]any{
			"live":    s.previews.Len(),
			"revoked": s.previews.Revoked(),
			"current": s.previews.Current(),
		},
	})
}

// handleWebSocket upgrades the connection to WebSocket.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	s.hub.add(conn)
	defer s.hub.remove(conn)

	for {
		// Clients only send keepalives.
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (s *Server) respondSnapshot(w http.ResponseWriter, err error) {
	if err != nil {
		writeError(w, err)
		return
	}
	s.publishPreview()
	writeJSON(w, http.StatusOK, s.session.Snapshot())
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.session.Snapshot())
}

// handleUpload accepts either a multipart form with a "file" field or a raw
// image body named by the "name" query parameter.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	name, data, err := readUpload(r)
	if err != nil {
		writeError(w, err)
		return
	}
	s.respondSnapshot(w, s.session.Load(r.Context(), name, data))
}

func readUpload(r *http.Request) (string, []byte, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		data, err := io.ReadAll(r.Body)
		if err != nil {
			return "", nil, err
		}
		return r.URL.Query().Get("name"), data, nil
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", editor.ErrInvalidInput, err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return "", nil, err
	}
	return header.Filename, data, nil
}

func (s *Server) handleAdjustments(w http.ResponseWriter, r *http.Request) {
	adj := s.session.Adjustments()
	if err := decodeBody(r, &adj); err != nil {
		writeError(w, err)
		return
	}
	s.respondSnapshot(w, s.session.SetAdjustments(r.Context(), adj))
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.respondSnapshot(w, s.session.Reset(r.Context()))
}

func (s *Server) handleAddOverlay(w http.ResponseWriter, r *http.Request) {
	o, err := s.session.AddOverlay(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	s.publishPreview()
	writeJSON(w, http.StatusCreated, o)
}

func (s *Server) handleUpdateOverlay(w http.ResponseWriter, r *http.Request) {
	var patch editor.OverlayPatch
	if err := decodeBody(r, &patch); err != nil {
		writeError(w, err)
		return
	}
	o, err := s.session.UpdateOverlay(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		writeError(w, err)
		return
	}
	s.publishPreview()
	writeJSON(w, http.StatusOK, o)
}

func (s *Server) handleDeleteOverlay(w http.ResponseWriter, r *http.Request) {
	if err := s.session.DeleteOverlay(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	s.publishPreview()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleBackground(w http.ResponseWriter, r *http.Request) {
	mode := s.session.Background()
	if err := decodeBody(r, &mode); err != nil {
		writeError(w, err)
		return
	}
	s.respondSnapshot(w, s.session.SetBackground(r.Context(), mode))
}

func (s *Server) handleSuggestBackground(w http.ResponseWriter, r *http.Request) {
	hex, err := s.session.SuggestBackground()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"color": hex})
}

func (s *Server) handleExportSettings(w http.ResponseWriter, r *http.Request) {
	settings := s.session.ExportSettings()
	if err := decodeBody(r, &settings); err != nil {
		writeError(w, err)
		return
	}
	s.respondSnapshot(w, s.session.SetExportSettings(r.Context(), settings))
}

func (s *Server) handleCompareFormats(w http.ResponseWriter, r *http.Request) {
	sizes, err := s.session.CompareFormats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sizes)
}

func (s *Server) handleEnhance(w http.ResponseWriter, r *http.Request) {
	if s.enhancer == nil {
		writeError(w, render.ErrRenderingUnavailable)
		return
	}
	op, err := editor.ParseOperation(r.PathValue("op"))
	if err != nil {
		writeError(w, err)
		return
	}

	req := struct {
		Factor float64 `json:"factor"`
	}{Factor: s.opts.UpscaleFactor}
	// The body is optional.
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, fmt.Errorf("%w: request body: %v", editor.ErrInvalidInput, err))
		return
	}

	if err := s.enhancer.Start(op, req.Factor); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, s.enhancer.Status())
}

func (s *Server) handleEnhanceStatus(w http.ResponseWriter, r *http.Request) {
	if s.enhancer == nil {
		writeError(w, render.ErrRenderingUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, s.enhancer.Status())
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	p, ok := s.previews.Lookup(r.PathValue("token"))
	if !ok {
		http.Error(w, "Preview not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", p.MIMEType)
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(p.Data)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	result, err := s.session.Download(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", result.MIMEType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": result.Filename}))
	_, _ = w.Write(result.Data)
}
