package reconstruct

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"codeberg.org/go-pdf/fpdf"

	"github.com/structdoc/pdfmarkup/internal/model"
)

// placeholderColor marks synthesized "no text content" blocks; they are
// skipped during rebuild so placeholders never end up in output documents.
const placeholderColor = "#888888"

// buildPDF renders a best-effort PDF from the structural model. Text blocks
// keep their position, size, and color; embedded images are placed at their
// recorded geometry. Fidelity is bounded by the core PDF fonts.
func buildPDF(doc *model.Document) ([]byte, error) {
	if len(doc.Pages) == 0 {
		return nil, fmt.Errorf("document has no pages")
	}

	pdf := fpdf.New("P", "pt", "A4", "")
	pdf.SetAutoPageBreak(false, 0)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	for _, page := range doc.Pages {
		width, height := page.Width, page.Height
		if width <= 0 || height <= 0 {
			width, height = 612, 792
		}
		pdf.AddPageFormat("P", fpdf.SizeType{Wd: width, Ht: height})

		for i, img := range page.Images {
			if img.Data == "" {
				continue
			}
			if err := placeImage(pdf, &page, i, &img, height); err != nil {
				return nil, err
			}
		}

		for _, block := range page.TextBlocks {
			if block.Color == placeholderColor {
				continue
			}
			drawTextBlock(pdf, &block, height, tr)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}
	return buf.Bytes(), nil
}

func drawTextBlock(pdf *fpdf.Fpdf, block *model.TextBlock, pageHeight float64, tr func(string) string) {
	size := block.FontSize
	if size <= 0 {
		size = 12
	}
	pdf.SetFont(coreFontFamily(block.FontFamily), fontStyleCode(block), size)

	r, g, b := parseHexColor(block.Color)
	pdf.SetTextColor(r, g, b)

	// Model coordinates are bottom-left origin; fpdf draws from the top.
	// Text places the baseline, so the block's own y works directly.
	pdf.Text(block.X, pageHeight-block.Y, tr(block.Text))
}

func placeImage(pdf *fpdf.Fpdf, page *model.PageData, ordinal int, img *model.ImageBlock, pageHeight float64) error {
	raw, err := img.DecodedData()
	if err != nil {
		return fmt.Errorf("page %d image %d: %w", page.PageNumber, ordinal+1, err)
	}

	format := img.Format
	if format == "" {
		if format, err = detectImageFormat(raw); err != nil {
			return fmt.Errorf("page %d image %d: %w", page.PageNumber, ordinal+1, err)
		}
	}

	name := fmt.Sprintf("img-%d-%d", page.PageNumber, ordinal+1)
	opts := fpdf.ImageOptions{ImageType: strings.ToUpper(format), ReadDpi: false}
	pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(raw))
	pdf.ImageOptions(name, img.X, pageHeight-img.Y-img.Height, img.Width, img.Height, false, opts, 0, "")
	return nil
}

// detectImageFormat sniffs the raster format from the decoded bytes.
func detectImageFormat(data []byte) (string, error) {
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to detect image format: %w", err)
	}
	return strings.ToUpper(format), nil
}

// coreFontFamily maps extracted families onto the PDF core fonts fpdf
// ships with.
func coreFontFamily(family string) string {
	lower := strings.ToLower(family)
	switch {
	case strings.Contains(lower, "times"):
		return "Times"
	case strings.Contains(lower, "courier"), strings.Contains(lower, "mono"):
		return "Courier"
	default:
		return "Helvetica"
	}
}

func fontStyleCode(block *model.TextBlock) string {
	var style string
	if block.FontWeight == "bold" {
		style += "B"
	}
	if block.FontStyle == "italic" {
		style += "I"
	}
	return style
}

func parseHexColor(hex string) (int, int, int) {
	if len(hex) != 7 || hex[0] != '#' {
		return 0, 0, 0
	}
	var r, g, b int
	if _, err := fmt.Sscanf(hex[1:], "%02x%02x%02x", &r, &g, &b); err != nil {
		return 0, 0, 0
	}
	return r, g, b
}
