// Package layout synthesizes positioned text blocks for pages where the
// extraction tier could only supply a flat text stream. It is a degraded
// fallback and tags its pages accordingly; its output must never be mistaken
// for glyph-level extraction.
package layout

import (
	"fmt"
	"strings"

	"github.com/structdoc/pdfmarkup/internal/model"
)

// Method is the extraction-method tag written on synthesized pages.
const Method = "layout-synthesis"

// Fallback geometry and styling applied uniformly to synthesized blocks.
const (
	leftMargin   = 50.0
	topMargin    = 50.0
	linePitch    = 20.0
	lineHeight   = 14.0
	fontSize     = 12.0
	fontFamily   = "Helvetica"
	textColor    = "#000000"
	mutedColor   = "#888888"
	charWidthEst = 0.6 // width per character as a fraction of font size
)

// Synthesizer converts per-page raw text into stacked text blocks.
type Synthesizer struct{}

// NewSynthesizer creates a layout synthesizer.
func NewSynthesizer() *Synthesizer {
	return &Synthesizer{}
}

// SynthesizePage builds a PageData from the raw text of one page. Lines that
// are empty after trimming are discarded. When no line survives, the page
// gets exactly one muted placeholder block. Every page is paired with one
// whole-page image placeholder describing unrasterized visual content.
func (s *Synthesizer) SynthesizePage(pageNumber int, rawText string, width, height float64) model.PageData {
	page := model.PageData{
		PageNumber:       pageNumber,
		Width:            width,
		Height:           height,
		ExtractionMethod: Method,
	}

	var lines []string
	for _, line := range strings.Split(rawText, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}

	if len(lines) == 0 {
		page.TextBlocks = []model.TextBlock{placeholderBlock(pageNumber, width, height)}
	} else {
		for i, line := range lines {
			block := model.TextBlock{
				Text:       line,
				X:          leftMargin,
				Y:          height - topMargin - float64(i)*linePitch,
				Width:      estimateWidth(line, width),
				Height:     lineHeight,
				FontSize:   fontSize,
				FontFamily: fontFamily,
				FontWeight: "normal",
				FontStyle:  "normal",
				Color:      textColor,
				Direction:  model.DirectionLTR,
				HasEOL:     i < len(lines)-1,
			}
			page.TextBlocks = append(page.TextBlocks, block)
		}
	}

	page.Images = []model.ImageBlock{{
		X:           0,
		Y:           0,
		Width:       width,
		Height:      height,
		Description: fmt.Sprintf("page %d visual content", pageNumber),
	}}

	return page
}

// placeholderBlock marks a page that produced no usable text. The muted
// color lets consumers tell synthesized placeholders from real content.
func placeholderBlock(pageNumber int, width, height float64) model.TextBlock {
	return model.TextBlock{
		Text:       fmt.Sprintf("No text content detected on page %d", pageNumber),
		X:          leftMargin,
		Y:          height - topMargin,
		Width:      estimateWidth("No text content detected", width),
		Height:     lineHeight,
		FontSize:   fontSize,
		FontFamily: fontFamily,
		FontWeight: "normal",
		FontStyle:  "italic",
		Color:      mutedColor,
		Direction:  model.DirectionLTR,
		HasEOL:     false,
	}
}

// estimateWidth approximates rendered width from character count, capped at
// the writable area between the margins.
func estimateWidth(line string, pageWidth float64) float64 {
	est := float64(len([]rune(line))) * fontSize * charWidthEst
	if maxWidth := pageWidth - 2*leftMargin; est > maxWidth && maxWidth > 0 {
		return maxWidth
	}
	return est
}
