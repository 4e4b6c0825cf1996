// Package extract builds the structural model of a PDF. Three tiers are
// tried in order of fidelity: the external worker (glyph boxes, fonts,
// colors, images), in-process positioned text extraction, and finally flat
// content-stream text fed through the layout synthesizer. Every page records
// which tier produced it.
package extract

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	pdfcpumodel "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/structdoc/pdfmarkup/internal/layout"
	"github.com/structdoc/pdfmarkup/internal/markup"
	"github.com/structdoc/pdfmarkup/internal/model"
	"github.com/structdoc/pdfmarkup/internal/worker"
)

// Default page geometry when the document does not report dimensions
// (US Letter in points).
const (
	defaultPageWidth  = 612.0
	defaultPageHeight = 792.0
)

// Service performs document extraction. The worker orchestrator is
// optional; without it only the native tiers run.
type Service struct {
	maxFileSize  int64
	orchestrator *worker.Orchestrator
	synthesizer  *layout.Synthesizer
}

// NewService creates an extraction service. orchestrator may be nil when no
// worker command is configured.
func NewService(maxFileSize int64, orchestrator *worker.Orchestrator) *Service {
	return &Service{
		maxFileSize:  maxFileSize,
		orchestrator: orchestrator,
		synthesizer:  layout.NewSynthesizer(),
	}
}

// ValidateInput checks the uploaded bytes before any extraction work.
func (s *Service) ValidateInput(pdfBytes []byte) error {
	if len(pdfBytes) == 0 {
		return fmt.Errorf("file is empty")
	}
	if int64(len(pdfBytes)) > s.maxFileSize {
		return fmt.Errorf("file too large: %d bytes (max: %d bytes)", len(pdfBytes), s.maxFileSize)
	}
	if !bytes.HasPrefix(pdfBytes, []byte("%PDF-")) {
		return fmt.Errorf("file is not a PDF: missing %%PDF header")
	}
	return nil
}

// Extract produces the structural model for the given PDF bytes, embedding
// the verbatim original so exact reconstruction stays possible regardless
// of extraction fidelity.
func (s *Service) Extract(ctx context.Context, pdfBytes []byte, fileName string) (*model.Document, error) {
	if err := s.ValidateInput(pdfBytes); err != nil {
		return nil, err
	}

	doc, err := s.extractStructure(ctx, pdfBytes)
	if err != nil {
		return nil, err
	}

	return doc.AttachOriginal(pdfBytes, fileName, "application/pdf"), nil
}

func (s *Service) extractStructure(ctx context.Context, pdfBytes []byte) (*model.Document, error) {
	if s.orchestrator.Available() {
		doc, err := s.extractViaWorker(ctx, pdfBytes)
		if err == nil {
			return doc, nil
		}
		// The worker is the highest-fidelity tier but not the only one;
		// fall through to native extraction rather than failing the
		// whole document.
		log.Printf("worker extraction failed, falling back to native tiers: %v", err)
	}
	return s.extractNative(pdfBytes)
}

// extractViaWorker streams the PDF to the external worker and parses the
// markup it returns.
func (s *Service) extractViaWorker(ctx context.Context, pdfBytes []byte) (*model.Document, error) {
	result, err := s.orchestrator.InvokeExtract(ctx, pdfBytes)
	if err != nil {
		return nil, err
	}

	doc, err := markup.Parse(result.XMLContent)
	if err != nil {
		return nil, &worker.Error{
			Kind:    worker.KindOutputParse,
			Message: "worker returned unparsable markup",
			Err:     err,
		}
	}

	mergeWorkerMetadata(doc, result)
	for i := range doc.Pages {
		if doc.Pages[i].ExtractionMethod == "" {
			doc.Pages[i].ExtractionMethod = result.ExtractionMethod
		}
	}
	if err := doc.Validate(); err != nil {
		return nil, &worker.Error{
			Kind:    worker.KindOutputParse,
			Message: "worker returned an inconsistent document",
			Err:     err,
		}
	}
	return doc, nil
}

// mergeWorkerMetadata prefers envelope metadata over whatever the markup
// carried; the envelope reflects the worker's own document probe.
func mergeWorkerMetadata(doc *model.Document, result *worker.ExtractResult) {
	meta := &doc.Metadata
	setIfPresent(&meta.Title, result.Metadata.Title)
	setIfPresent(&meta.Author, result.Metadata.Author)
	setIfPresent(&meta.Subject, result.Metadata.Subject)
	setIfPresent(&meta.Creator, result.Metadata.Creator)
	setIfPresent(&meta.Producer, result.Metadata.Producer)
	setIfPresent(&meta.CreationDate, result.Metadata.CreationDate)
	setIfPresent(&meta.ModificationDate, result.Metadata.ModificationDate)
	// The page list is what gets served; an envelope page_count that
	// disagrees with it must not win over the parsed pages.
	meta.NumPages = len(doc.Pages)
}

func setIfPresent(dst **string, value string) {
	if value != "" {
		*dst = model.StringPtr(value)
	}
}

// extractNative runs the in-process tiers: pdfcpu for document structure
// and metadata, ledongthuc for positioned text, layout synthesis for pages
// where no positioned text came back.
func (s *Service) extractNative(pdfBytes []byte) (*model.Document, error) {
	conf := pdfcpumodel.NewDefaultConfiguration()
	conf.ValidationMode = pdfcpumodel.ValidationRelaxed

	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(pdfBytes), conf)
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF: %w", err)
	}

	dims, err := ctx.PageDims()
	if err != nil {
		dims = nil
	}

	// Positioned extraction may fail outright on encrypted or malformed
	// files; the flat-text tier still gets a chance below.
	positioned, openErr := openPositionedReader(pdfBytes)
	if openErr != nil {
		log.Printf("positioned extraction unavailable: %v", openErr)
	}

	pages := make([]model.PageData, 0, ctx.PageCount)
	for pageNr := 1; pageNr <= ctx.PageCount; pageNr++ {
		width, height := defaultPageWidth, defaultPageHeight
		if pageNr-1 < len(dims) {
			width, height = dims[pageNr-1].Width, dims[pageNr-1].Height
		}

		if positioned != nil {
			page, err := extractPositionedPage(positioned, pageNr, width, height)
			if err == nil && len(page.TextBlocks) > 0 {
				pages = append(pages, page)
				continue
			}
		}

		pages = append(pages, s.synthesizer.SynthesizePage(pageNr, pageText(ctx, pageNr), width, height))
	}

	return model.NewDocument(metadataFromContext(ctx, ctx.PageCount), pages)
}

// metadataFromContext copies the info dictionary fields pdfcpu surfaces
// after validation.
func metadataFromContext(ctx *pdfcpumodel.Context, numPages int) model.DocumentMetadata {
	meta := model.DocumentMetadata{NumPages: numPages}
	setIfPresent(&meta.Title, ctx.Title)
	setIfPresent(&meta.Author, ctx.Author)
	setIfPresent(&meta.Subject, ctx.Subject)
	setIfPresent(&meta.Creator, ctx.Creator)
	setIfPresent(&meta.Producer, ctx.Producer)
	setIfPresent(&meta.CreationDate, ctx.XRefTable.CreationDate)
	setIfPresent(&meta.ModificationDate, ctx.ModDate)
	for _, kw := range strings.Split(ctx.Keywords, ",") {
		if kw = strings.TrimSpace(kw); kw != "" {
			meta.Keywords = append(meta.Keywords, kw)
		}
	}
	return meta
}
