// Package reconstruct turns a structural model or its markup back into
// document bytes. The verbatim original payload, when present, is always
// authoritative. Markup goes to the external worker when one is configured,
// otherwise a best-effort PDF is synthesized in process; when neither path
// can produce a PDF the markup itself is returned as a degraded substitute.
package reconstruct

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"strings"

	"github.com/structdoc/pdfmarkup/internal/markup"
	"github.com/structdoc/pdfmarkup/internal/model"
	"github.com/structdoc/pdfmarkup/internal/worker"
)

// Conversion method tags reported in results.
const (
	MethodVerbatim = "verbatim-original"
	MethodWorker   = "worker"
	MethodNative   = "native-fpdf"
	MethodMarkup   = "markup-passthrough"
)

// Result is the outcome of a reconstruction.
type Result struct {
	Data        []byte
	FileName    string
	ContentType string
	Method      string
}

// UnavailableError reports that no true reconstruction path could run; the
// caller receives the markup itself instead of a failure.
type UnavailableError struct {
	Reason string
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("reconstruction unavailable: %s", e.Reason)
}

// Service performs reconstruction. orchestrator may be nil.
type Service struct {
	orchestrator *worker.Orchestrator
}

// NewService creates a reconstruction service.
func NewService(orchestrator *worker.Orchestrator) *Service {
	return &Service{orchestrator: orchestrator}
}

// FromModel returns the verbatim source bytes embedded in the document.
// The structural fields are a best-effort index, never a substitute for the
// original payload on this path.
func (s *Service) FromModel(doc *model.Document) (*Result, error) {
	if doc.Original == nil {
		return nil, fmt.Errorf("document carries no original payload")
	}
	raw, err := doc.OriginalBytes()
	if err != nil {
		return nil, err
	}

	contentType := doc.Original.ContentType
	if contentType == "" {
		contentType = "application/pdf"
	}
	return &Result{
		Data:        raw,
		FileName:    doc.Original.FileName,
		ContentType: contentType,
		Method:      MethodVerbatim,
	}, nil
}

// FromMarkup synthesizes a PDF from markup text. The worker runs first when
// configured; in-process fpdf synthesis is the fallback. When both fail the
// markup comes back unchanged with an UnavailableError so the caller can
// serve it as a downloadable attachment.
func (s *Service) FromMarkup(ctx context.Context, xmlContent, fileName string) (*Result, error) {
	if strings.TrimSpace(xmlContent) == "" {
		return nil, fmt.Errorf("no markup content provided")
	}
	if fileName == "" {
		fileName = "reconstructed.pdf"
	}

	if s.orchestrator.Available() {
		result, err := s.fromMarkupViaWorker(ctx, xmlContent, fileName)
		if err == nil {
			return result, nil
		}
		log.Printf("worker reconstruction failed, trying native synthesis: %v", err)
	}

	doc, err := markup.Parse(xmlContent)
	if err == nil {
		pdfBytes, buildErr := buildPDF(doc)
		if buildErr == nil {
			return &Result{
				Data:        pdfBytes,
				FileName:    fileName,
				ContentType: "application/pdf",
				Method:      MethodNative,
			}, nil
		}
		err = buildErr
	}
	log.Printf("native reconstruction failed, returning markup as-is: %v", err)

	return &Result{
		Data:        []byte(xmlContent),
		FileName:    strings.TrimSuffix(fileName, ".pdf") + ".xml",
		ContentType: "application/xml",
		Method:      MethodMarkup,
	}, &UnavailableError{Reason: err.Error()}
}

func (s *Service) fromMarkupViaWorker(ctx context.Context, xmlContent, fileName string) (*Result, error) {
	result, err := s.orchestrator.InvokeReconstruct(ctx, worker.ReconstructRequest{
		XMLContent: xmlContent,
		FileName:   fileName,
	})
	if err != nil {
		return nil, err
	}

	pdfBytes, err := base64.StdEncoding.DecodeString(result.PDFData)
	if err != nil {
		return nil, &worker.Error{
			Kind:    worker.KindOutputParse,
			Message: "worker returned invalid base64 pdf_data",
			Err:     err,
		}
	}
	if result.Size > 0 && result.Size != len(pdfBytes) {
		return nil, &worker.Error{
			Kind:    worker.KindOutputParse,
			Message: fmt.Sprintf("worker reported size %d but sent %d bytes", result.Size, len(pdfBytes)),
		}
	}

	name := result.Filename
	if name == "" {
		name = fileName
	}
	return &Result{
		Data:        pdfBytes,
		FileName:    name,
		ContentType: "application/pdf",
		Method:      MethodWorker,
	}, nil
}
