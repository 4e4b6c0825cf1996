// Package server exposes the extraction and reconstruction services over
// HTTP (server mode) and MCP stdio (stdio mode). Files are handled
// transiently, in memory, per request; nothing is persisted.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/structdoc/pdfmarkup/internal/config"
	"github.com/structdoc/pdfmarkup/internal/extract"
	"github.com/structdoc/pdfmarkup/internal/markup"
	"github.com/structdoc/pdfmarkup/internal/model"
	"github.com/structdoc/pdfmarkup/internal/reconstruct"
	"github.com/structdoc/pdfmarkup/internal/worker"
)

// Server wires the HTTP surface to the underlying services.
type Server struct {
	config       *config.Config
	extractor    *extract.Service
	reconstructs *reconstruct.Service
	serializer   *markup.Serializer
}

// NewServer creates a Server from configured services.
func NewServer(cfg *config.Config, extractor *extract.Service, rec *reconstruct.Service, serializer *markup.Serializer) (*Server, error) {
	if extractor == nil || rec == nil || serializer == nil {
		return nil, fmt.Errorf("all services must be provided")
	}
	return &Server{
		config:       cfg,
		extractor:    extractor,
		reconstructs: rec,
		serializer:   serializer,
	}, nil
}

// Router builds the chi router with all routes registered.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": s.config.Version})
	})
	r.Post("/extract", s.handleExtract)
	r.Post("/reconstruct-from-model", s.handleReconstructFromModel)
	r.Post("/reconstruct-from-markup", s.handleReconstructFromMarkup)

	return r
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.Address(),
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("HTTP server listening on %s", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// extractResponse is the JSON body returned by POST /extract.
type extractResponse struct {
	Success    bool            `json:"success"`
	Document   *model.Document `json:"document"`
	XMLContent string          `json:"xml_content"`
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(s.config.MaxFileSize); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", fmt.Sprintf("invalid multipart upload: %v", err))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "no file uploaded")
		return
	}
	defer file.Close()

	pdfBytes, err := io.ReadAll(io.LimitReader(file, s.config.MaxFileSize+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", fmt.Sprintf("failed to read upload: %v", err))
		return
	}

	doc, err := s.extractor.Extract(r.Context(), pdfBytes, header.Filename)
	if err != nil {
		status, kind := classifyError(err)
		writeError(w, status, kind, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, extractResponse{
		Success:    true,
		Document:   doc,
		XMLContent: s.serializer.SerializeDocument(doc),
	})
}

func (s *Server) handleReconstructFromModel(w http.ResponseWriter, r *http.Request) {
	var doc model.Document
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", fmt.Sprintf("invalid JSON body: %v", err))
		return
	}
	if doc.Original == nil {
		writeError(w, http.StatusBadRequest, "validation_error", "request carries no original payload")
		return
	}

	result, err := s.reconstructs.FromModel(&doc)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}
	writeAttachment(w, result)
}

// reconstructRequest matches the worker-facing envelope so clients can use
// one shape for both paths.
type reconstructRequest struct {
	XMLContent string `json:"xmlContent"`
	FileName   string `json:"fileName"`
}

func (s *Server) handleReconstructFromMarkup(w http.ResponseWriter, r *http.Request) {
	var req reconstructRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", fmt.Sprintf("invalid JSON body: %v", err))
		return
	}
	if req.XMLContent == "" {
		writeError(w, http.StatusBadRequest, "validation_error", "no markup content provided")
		return
	}

	result, err := s.reconstructs.FromMarkup(r.Context(), req.XMLContent, req.FileName)
	var unavailable *reconstruct.UnavailableError
	if err != nil && !errors.As(err, &unavailable) {
		status, kind := classifyError(err)
		writeError(w, status, kind, err.Error())
		return
	}
	// On UnavailableError the markup itself comes back as a degraded
	// substitute; still a download, just not a PDF.
	writeAttachment(w, result)
}

func writeAttachment(w http.ResponseWriter, result *reconstruct.Result) {
	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": result.FileName})
	w.Header().Set("Content-Type", result.ContentType)
	w.Header().Set("Content-Disposition", disposition)
	w.Header().Set("X-Conversion-Method", result.Method)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.Data)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, map[string]string{"error": message, "kind": kind})
}

// classifyError maps service failures onto status codes: worker-boundary
// failures are 5xx, anything else from the extraction input checks is a
// caller problem.
func classifyError(err error) (int, string) {
	var we *worker.Error
	if errors.As(err, &we) {
		return http.StatusBadGateway, string(we.Kind)
	}
	return http.StatusBadRequest, "validation_error"
}
