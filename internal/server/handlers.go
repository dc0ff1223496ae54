package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lotmap/internal/export"
	"github.com/sells-group/lotmap/internal/ingest"
	"github.com/sells-group/lotmap/internal/merge"
	"github.com/sells-group/lotmap/internal/store"
)

// HeaderRunID carries the run ID of an upload response.
const HeaderRunID = "X-Run-ID"

// uploadField is the multipart field holding the register export.
const uploadField = "file"

// Health handles GET /health.
func (s *Server) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Upload handles POST /api/upload.
func (s *Server) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			writeError(w, http.StatusRequestEntityTooLarge, "upload exceeds size limit")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll() //nolint:errcheck

	limit, err := s.limit(r.URL.Query().Get("limit"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file")
		return
	}
	defer file.Close() //nolint:errcheck

	rows, err := ingest.ReadUpload(header.Filename, file, s.cfg.Ingest)
	if err != nil {
		zap.L().Warn("server: unreadable upload",
			zap.String("filename", header.Filename),
			zap.Error(err),
		)
		writeError(w, http.StatusBadRequest, "unreadable file")
		return
	}

	lots := merge.FromRows(rows)
	if len(lots) == 0 {
		writeError(w, http.StatusBadRequest, "no lots with cadastral numbers")
		return
	}

	run := store.NewRun(header.Filename)
	log := zap.L().With(zap.String("run_id", run.ID))
	res, err := s.runner.ResolveAll(r.Context(), lots, limit)
	if err != nil {
		log.Warn("server: batch interrupted", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "batch interrupted")
		return
	}

	run.FinishedAt = time.Now().UTC()
	run.Total, run.Resolved, run.Failed = len(res.Lots), res.Resolved, res.Failed
	if s.store != nil {
		if err := s.store.SaveRun(r.Context(), run, res.Lots); err != nil {
			log.Error("server: save run", zap.Error(err))
		}
	}

	w.Header().Set(HeaderRunID, run.ID)
	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	if err := export.WriteGeoJSON(w, res.Lots); err != nil {
		log.Error("server: write response", zap.Error(err))
	}
}

// limit parses the limit query parameter and caps it at MaxLots.
func (s *Server) limit(raw string) (int, error) {
	if raw == "" {
		return s.cfg.MaxLots, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, eris.New("limit must be a non-negative integer")
	}
	if n == 0 || n > s.cfg.MaxLots {
		return s.cfg.MaxLots, nil
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
