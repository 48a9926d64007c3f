package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/mkweon/searchlayer/internal/ocr"
	"github.com/mkweon/searchlayer/internal/output"
	"github.com/mkweon/searchlayer/internal/vision"
)

const version = "0.1.0"

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": version,
	})
}

// Server status
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"version":   version,
		"engine":    s.cfg.OCR.Engine,
		"active":    len(s.gate) > 0,
		"processed": s.processed.Load(),
		"failed":    s.failed.Load(),
		"uptime":    time.Since(s.started).String(),
	})
}

// handleOCR accepts a PDF upload, runs the recognition pipeline and
// returns the searchable document. Requests are processed one at a
// time; later uploads wait on the gate.
func (s *Server) handleOCR(w http.ResponseWriter, r *http.Request) {
	maxBytes := s.cfg.Limits.MaxFileBytes
	if maxBytes <= 0 {
		maxBytes = 40 << 20
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	if err := r.ParseMultipartForm(maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("file exceeds %d byte limit", maxBytes))
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart request")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "read upload: "+err.Error())
		return
	}
	if len(data) == 0 {
		writeError(w, http.StatusBadRequest, "empty document")
		return
	}

	name := r.FormValue("name")
	if name == "" {
		name = header.Filename
	}

	select {
	case s.gate <- struct{}{}:
	case <-r.Context().Done():
		return
	}
	defer func() { <-s.gate }()

	slog.Info("processing document", "name", name, "size", len(data))

	res, err := s.engine.Process(r.Context(), data, name)
	if err != nil {
		s.failed.Add(1)
		s.respondProcessError(w, name, err)
		return
	}
	s.processed.Add(1)

	s.archive(r, res)

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("X-Output-Filename", res.Filename)
	w.Header().Set("X-Extracted-Chars", strconv.Itoa(len(res.Text)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(res.PDF); err != nil {
		slog.Error("failed to write response", "error", err)
	}

	slog.Info("document processed",
		"name", name,
		"output", res.Filename,
		"chars", len(res.Text))
}

func (s *Server) respondProcessError(w http.ResponseWriter, name string, err error) {
	slog.Error("processing failed", "name", name, "error", err)

	if errors.Is(err, ocr.ErrNoTextDetected) {
		writeError(w, http.StatusUnprocessableEntity, "no text detected in document")
		return
	}

	var provErr *vision.ProviderError
	if errors.As(err, &provErr) {
		writeError(w, http.StatusBadGateway, "geometry provider: "+provErr.Message)
		return
	}

	writeError(w, http.StatusInternalServerError, err.Error())
}

// archive best-effort copies the result to the configured target. A
// failure is logged but never fails the request; the caller already
// has the document in the response.
func (s *Server) archive(r *http.Request, res *ocr.Result) {
	if !s.cfg.Output.Archive.Enabled {
		return
	}
	target := s.cfg.Output.Archive.Target
	if target == "" {
		target = "filesystem"
	}
	doc := &output.Document{
		Filename: res.Filename,
		Reader:   bytes.NewReader(res.PDF),
		Size:     int64(len(res.PDF)),
	}
	if err := s.outputs.Send(r.Context(), target, doc); err != nil {
		slog.Warn("archive failed", "target", target, "error", err)
	}
}
