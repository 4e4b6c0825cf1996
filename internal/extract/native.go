package extract

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/structdoc/pdfmarkup/internal/model"
)

// MethodNative tags pages produced by in-process glyph-level extraction.
const MethodNative = "native-positioned"

const defaultFontSize = 12.0

// extractPositionedPage reads one page's glyph runs and groups them into
// line-level text blocks. Runs are clustered by baseline, then merged left
// to right while font and spacing stay consistent.
func extractPositionedPage(reader *pdf.Reader, pageNumber int, width, height float64) (model.PageData, error) {
	page := model.PageData{
		PageNumber:       pageNumber,
		Width:            width,
		Height:           height,
		ExtractionMethod: MethodNative,
	}

	p := reader.Page(pageNumber)
	if p.V.IsNull() {
		return page, fmt.Errorf("page %d is missing", pageNumber)
	}

	content := p.Content()
	blocks := groupIntoBlocks(content.Text)
	page.TextBlocks = blocks
	return page, nil
}

// line collects glyph runs sharing a baseline.
type line struct {
	y     float64
	texts []pdf.Text
}

// groupIntoBlocks clusters glyph runs into per-line text blocks. Baselines
// are bucketed at 0.1pt to absorb rounding jitter; within a line, runs merge
// while the horizontal gap stays under twice the font size and the font
// matches, with a space inserted for word-sized gaps.
func groupIntoBlocks(texts []pdf.Text) []model.TextBlock {
	lines := map[float64]*line{}
	for _, t := range texts {
		if strings.TrimSpace(t.S) == "" && t.S != " " {
			continue
		}
		key := float64(int(t.Y*10)) / 10
		if lines[key] == nil {
			lines[key] = &line{y: t.Y}
		}
		lines[key].texts = append(lines[key].texts, t)
	}

	sorted := make([]*line, 0, len(lines))
	for _, ln := range lines {
		sorted = append(sorted, ln)
	}
	// Top to bottom in PDF coordinates (origin bottom-left).
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].y > sorted[j].y })

	var blocks []model.TextBlock
	for _, ln := range sorted {
		sort.Slice(ln.texts, func(i, j int) bool { return ln.texts[i].X < ln.texts[j].X })
		blocks = append(blocks, mergeLine(ln)...)
	}

	// A block ends a line when the next block sits on a different
	// baseline; the final block never carries a break.
	for i := range blocks {
		blocks[i].HasEOL = i < len(blocks)-1 && blocks[i+1].Y != blocks[i].Y
	}
	return blocks
}

func mergeLine(ln *line) []model.TextBlock {
	var blocks []model.TextBlock

	var sb strings.Builder
	var startX, endX, size float64
	var font string

	flush := func() {
		text := strings.TrimSpace(sb.String())
		if text != "" {
			blocks = append(blocks, newNativeBlock(text, startX, ln.y, endX-startX, size, font))
		}
		sb.Reset()
	}

	for _, t := range ln.texts {
		fs := t.FontSize
		if fs <= 0 {
			fs = defaultFontSize
		}
		if sb.Len() == 0 {
			startX, endX, size, font = t.X, t.X+t.W, fs, t.Font
			sb.WriteString(t.S)
			continue
		}

		gap := t.X - endX
		sameFont := t.Font == font && abs(fs-size) < 2
		if gap < size*2 && sameFont {
			if gap > size*0.2 {
				sb.WriteByte(' ')
			}
			sb.WriteString(t.S)
			endX = t.X + t.W
			continue
		}

		flush()
		startX, endX, size, font = t.X, t.X+t.W, fs, t.Font
		sb.WriteString(t.S)
	}
	flush()

	return blocks
}

func newNativeBlock(text string, x, y, width, fontSize float64, fontName string) model.TextBlock {
	return model.TextBlock{
		Text:       text,
		X:          x,
		Y:          y,
		Width:      width,
		Height:     fontSize,
		FontSize:   fontSize,
		FontFamily: cleanFontFamily(fontName),
		FontWeight: fontWeight(fontName),
		FontStyle:  fontStyle(fontName),
		Color:      "#000000",
		Direction:  model.DirectionLTR,
	}
}

// cleanFontFamily strips subset prefixes ("ABCDEF+Helvetica-Bold") and
// style suffixes, mapping the common base families to canonical names.
func cleanFontFamily(name string) string {
	family := name
	if idx := strings.Index(family, "+"); idx >= 0 {
		family = family[idx+1:]
	}
	if idx := strings.Index(family, "-"); idx > 0 {
		family = family[:idx]
	}
	switch {
	case strings.Contains(strings.ToLower(family), "times"):
		return "Times-Roman"
	case strings.Contains(strings.ToLower(family), "helvetica"):
		return "Helvetica"
	case strings.Contains(strings.ToLower(family), "arial"):
		return "Arial"
	case strings.Contains(strings.ToLower(family), "courier"):
		return "Courier"
	}
	if len(family) < 2 {
		return "Helvetica"
	}
	return family
}

func fontWeight(name string) string {
	lower := strings.ToLower(name)
	for _, w := range []string{"bold", "black", "heavy"} {
		if strings.Contains(lower, w) {
			return "bold"
		}
	}
	return "normal"
}

func fontStyle(name string) string {
	lower := strings.ToLower(name)
	if strings.Contains(lower, "italic") || strings.Contains(lower, "oblique") {
		return "italic"
	}
	return "normal"
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// openPositionedReader opens the PDF bytes for glyph-level access.
func openPositionedReader(pdfBytes []byte) (*pdf.Reader, error) {
	reader, err := pdf.NewReader(bytes.NewReader(pdfBytes), int64(len(pdfBytes)))
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF for positioned extraction: %w", err)
	}
	return reader, nil
}
