// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/pdiddy/paperpress/internal/convert"
	"github.com/pdiddy/paperpress/internal/epub"
	"github.com/pdiddy/paperpress/internal/store"
	"github.com/pdiddy/paperpress/internal/treat"
	"github.com/pdiddy/paperpress/pkg/types"
)

// countPages is a package-level hook so tests can avoid crafting
// structurally valid PDFs.
var countPages = api.PageCountFile

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, types.HealthResponse{
		Status:          "healthy",
		MarkerAvailable: s.markerOK,
		EpubAvailable:   true,
		AIAvailable:     s.backend != nil,
	})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	file, header, ok := s.formPDF(w, r)
	if !ok {
		return
	}
	defer file.Close()

	tmpPath, err := saveTemp(s.store.Dir(), "upload-*.pdf", file)
	if err != nil {
		s.logger.Error("staging upload", "error", err)
		writeError(w, http.StatusInternalServerError, "Could not store upload")
		return
	}

	pages, err := countPages(tmpPath)
	if err != nil {
		os.Remove(tmpPath)
		writeError(w, http.StatusBadRequest, "Invalid or corrupted PDF: "+err.Error())
		return
	}

	up, err := s.store.Put(r.Context(), header.Filename, tmpPath, pages)
	if err != nil {
		os.Remove(tmpPath)
		s.logger.Error("registering upload", "error", err)
		writeError(w, http.StatusInternalServerError, "Could not store upload")
		return
	}

	s.logger.Info("stored upload",
		"file_id", up.ID, "filename", up.Filename, "size", up.Size, "pages", up.Pages)

	writeJSON(w, http.StatusOK, types.UploadResponse{
		FileID:   up.ID,
		Filename: up.Filename,
		Size:     up.Size,
		Pages:    up.Pages,
		Status:   "uploaded",
	})
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	fileID := chi.URLParam(r, "fileID")

	up, err := s.store.Get(r.Context(), fileID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "File not found")
			return
		}
		s.logger.Error("loading upload", "file_id", fileID, "error", err)
		writeError(w, http.StatusInternalServerError, "Could not load upload")
		return
	}

	s.logger.Info("converting upload", "file_id", up.ID, "filename", up.Filename, "pages", up.Pages)
	start := time.Now()

	res, err := s.converter.Convert(up.Path)
	if err != nil {
		s.logger.Error("conversion failed", "file_id", up.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "Conversion failed: "+err.Error())
		return
	}

	urls, err := s.writeImages(up.ID, res.Images)
	if err != nil {
		s.logger.Error("storing figures", "file_id", up.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "Could not store extracted images")
		return
	}

	markdown := convert.Clean(res.Markdown, up.Filename, func(name string) string {
		return urls[name]
	})

	served := make([]string, 0, len(res.Images))
	for _, img := range res.Images {
		served = append(served, urls[img.Name])
	}

	s.logger.Info("converted upload",
		"file_id", up.ID, "images", len(served), "duration_ms", time.Since(start).Milliseconds())

	writeJSON(w, http.StatusOK, types.ConvertResponse{
		Status:     "converted",
		Markdown:   markdown,
		Images:     served,
		ImageCount: len(served),
	})
}

func (s *Server) handleTreatment(w http.ResponseWriter, r *http.Request) {
	var req types.TreatmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Markdown) == "" {
		writeError(w, http.StatusBadRequest, "No markdown content provided")
		return
	}

	backend := s.backend
	if req.UseLLM != nil && !*req.UseLLM {
		backend = nil
	}

	treated, fallback, err := treat.Apply(r.Context(), backend, req.Markdown, req.Prompt)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Treatment failed: "+err.Error())
		return
	}
	if fallback {
		s.logger.Warn("AI treatment failed, applied basic treatment")
	}

	writeJSON(w, http.StatusOK, types.TreatmentResponse{
		TreatedMarkdown: treated,
		Fallback:        fallback,
	})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req types.EPUBRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Markdown) == "" {
		writeError(w, http.StatusBadRequest, "No markdown content provided")
		return
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = convert.ExtractTitle(req.Markdown)
	}

	book, err := epub.Build(req.Markdown, title, epub.Options{
		Author:   s.cfg.EPUB.Author,
		Language: s.cfg.EPUB.Language,
	})
	if err != nil {
		s.logger.Error("building epub", "title", title, "error", err)
		writeError(w, http.StatusInternalServerError, "EPUB generation failed: "+err.Error())
		return
	}

	s.logger.Info("generated epub", "title", title, "bytes", len(book))

	w.Header().Set("Content-Type", "application/epub+zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", epub.Filename(title)))
	w.Header().Set("Content-Length", strconv.Itoa(len(book)))
	w.Write(book)
}

// handleLegacyConvert is the single-shot upload+convert endpoint kept for
// the old UI. Nothing is registered in the store; extracted figures are
// dropped and only their count is reported.
func (s *Server) handleLegacyConvert(w http.ResponseWriter, r *http.Request) {
	file, header, ok := s.formPDF(w, r)
	if !ok {
		return
	}
	defer file.Close()

	tmpPath, err := saveTemp(s.workDir, "convert-*.pdf", file)
	if err != nil {
		s.logger.Error("staging upload", "error", err)
		writeError(w, http.StatusInternalServerError, "Could not store upload")
		return
	}
	defer os.Remove(tmpPath)

	res, err := s.converter.Convert(tmpPath)
	if err != nil {
		s.logger.Error("conversion failed", "filename", header.Filename, "error", err)
		writeError(w, http.StatusInternalServerError, "Conversion failed: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, types.LegacyConvertResponse{
		Markdown: convert.Clean(res.Markdown, header.Filename, nil),
		Images:   len(res.Images),
	})
}

// formPDF pulls the "pdf" part out of the multipart body, enforcing the
// upload size limit and the PDF type check. On failure the error response
// has been written and ok is false.
func (s *Server) formPDF(w http.ResponseWriter, r *http.Request) (multipart.File, *multipart.FileHeader, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Server.MaxUploadMB<<20)

	file, header, err := r.FormFile("pdf")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("File too large (limit %d MB)", s.cfg.Server.MaxUploadMB))
		} else {
			writeError(w, http.StatusBadRequest, "Request must include a PDF in the 'pdf' field")
		}
		return nil, nil, false
	}

	if !looksLikePDF(header, file) {
		file.Close()
		writeError(w, http.StatusBadRequest, "File must be a PDF")
		return nil, nil, false
	}
	return file, header, true
}

// looksLikePDF accepts the part when the file name, the declared content
// type, or the content magic says PDF. Browsers are inconsistent about
// which of the three they get right.
func looksLikePDF(header *multipart.FileHeader, file multipart.File) bool {
	if strings.EqualFold(filepath.Ext(header.Filename), ".pdf") {
		return true
	}
	if header.Header.Get("Content-Type") == "application/pdf" {
		return true
	}

	buf := make([]byte, 512)
	n, _ := io.ReadFull(file, buf)
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return false
	}
	return http.DetectContentType(buf[:n]) == "application/pdf"
}

// saveTemp copies src into a fresh temp file under dir and returns its
// path. The caller owns the file.
func saveTemp(dir, pattern string, src io.Reader) (string, error) {
	tmp, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	_, err = io.Copy(tmp, src)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("writing upload: %w", err)
	}
	return tmp.Name(), nil
}

// writeImages stores extracted figures under the upload's image directory
// and returns a map from figure name to served URL.
func (s *Server) writeImages(fileID string, images []convert.Image) (map[string]string, error) {
	urls := make(map[string]string, len(images))
	if len(images) == 0 {
		return urls, nil
	}

	dir := s.store.ImageDir(fileID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating image directory: %w", err)
	}
	for _, img := range images {
		if err := os.WriteFile(filepath.Join(dir, img.Name), img.Data, 0o644); err != nil {
			return nil, fmt.Errorf("writing image %s: %w", img.Name, err)
		}
		urls[img.Name] = "/temp-images/" + fileID + "/" + img.Name
	}
	return urls, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError sends the error envelope used by every non-2xx API response.
func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, types.ErrorResponse{Detail: detail})
}
