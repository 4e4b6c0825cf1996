// Package markup serializes the structural document model to its XML wire
// format and parses that format back. The serializer is the single source of
// truth for derived page statistics and element identifiers; serializing the
// same model twice yields byte-identical output.
package markup

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/structdoc/pdfmarkup/internal/model"
)

// Verbosity selects which attribute set the serializer writes. The two
// historical generator variants are folded into this single policy.
type Verbosity string

const (
	// VerbosityRich writes per-page statistics and has-eol attributes.
	// This is the long-term contract and the default.
	VerbosityRich Verbosity = "rich"
	// VerbosityMinimal omits derived statistics and has-eol attributes.
	VerbosityMinimal Verbosity = "minimal"
)

// escaper replaces the five reserved markup characters with named entities.
// Every interpolated value goes through this one replacer, attribute and
// element content alike.
var escaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

// Escape applies the shared entity escaping to s.
func Escape(s string) string {
	return escaper.Replace(s)
}

// Serializer renders a structural model as markup text.
type Serializer struct {
	verbosity Verbosity
}

// NewSerializer creates a Serializer with the given verbosity policy. An
// unrecognized value falls back to VerbosityRich.
func NewSerializer(v Verbosity) *Serializer {
	if v != VerbosityMinimal {
		v = VerbosityRich
	}
	return &Serializer{verbosity: v}
}

// SerializeDocument renders a full document including its format version.
func (s *Serializer) SerializeDocument(doc *model.Document) string {
	version := doc.FormatVersion
	if version == "" {
		version = model.FormatVersion
	}
	return s.serialize(version, doc.Metadata, doc.Pages)
}

// Serialize renders metadata and pages at the current format version. It is
// total: malformed values are passed through as-is, validation being the
// model constructor's responsibility.
func (s *Serializer) Serialize(meta model.DocumentMetadata, pages []model.PageData) string {
	return s.serialize(model.FormatVersion, meta, pages)
}

func (s *Serializer) serialize(version string, meta model.DocumentMetadata, pages []model.PageData) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	fmt.Fprintf(&b, "<pdf-document version=%q>\n", Escape(version))

	s.writeMetadata(&b, meta)
	s.writePages(&b, pages)

	b.WriteString("</pdf-document>\n")
	return b.String()
}

func (s *Serializer) writeMetadata(b *strings.Builder, meta model.DocumentMetadata) {
	b.WriteString("  <metadata>\n")
	writeTextElement(b, "title", deref(meta.Title))
	writeTextElement(b, "author", deref(meta.Author))
	writeTextElement(b, "subject", deref(meta.Subject))
	writeTextElement(b, "keywords", strings.Join(meta.Keywords, ", "))
	writeTextElement(b, "creator", deref(meta.Creator))
	writeTextElement(b, "producer", deref(meta.Producer))
	writeTextElement(b, "creation-date", deref(meta.CreationDate))
	writeTextElement(b, "modification-date", deref(meta.ModificationDate))
	writeTextElement(b, "page-count", strconv.Itoa(meta.NumPages))
	b.WriteString("  </metadata>\n")
}

func (s *Serializer) writePages(b *strings.Builder, pages []model.PageData) {
	b.WriteString("  <pages>\n")
	for i := range pages {
		s.writePage(b, &pages[i])
	}
	b.WriteString("  </pages>\n")
}

func (s *Serializer) writePage(b *strings.Builder, page *model.PageData) {
	fmt.Fprintf(b, "    <page number=\"%d\" width=\"%s\" height=\"%s\"",
		page.PageNumber, num(page.Width), num(page.Height))
	if page.ExtractionMethod != "" {
		fmt.Fprintf(b, " extraction-method=\"%s\"", Escape(page.ExtractionMethod))
	}
	if page.Background != "" {
		fmt.Fprintf(b, " background=\"%s\"", Escape(page.Background))
	}
	if s.verbosity == VerbosityRich {
		// Stats are recomputed here rather than trusted from upstream.
		fmt.Fprintf(b, " text-length=\"%d\" line-count=\"%d\"", page.TextLength(), page.LineCount())
	}
	b.WriteString(">\n")

	fmt.Fprintf(b, "      <text-blocks count=\"%d\">\n", len(page.TextBlocks))
	for i := range page.TextBlocks {
		s.writeTextBlock(b, page.PageNumber, i+1, &page.TextBlocks[i])
	}
	b.WriteString("      </text-blocks>\n")

	// An empty marker distinguishes "no images on this page" from an
	// element that was never written.
	if len(page.Images) == 0 {
		b.WriteString("      <images count=\"0\"/>\n")
	} else {
		fmt.Fprintf(b, "      <images count=\"%d\">\n", len(page.Images))
		for i := range page.Images {
			s.writeImage(b, page.PageNumber, i+1, &page.Images[i])
		}
		b.WriteString("      </images>\n")
	}

	b.WriteString("    </page>\n")
}

func (s *Serializer) writeTextBlock(b *strings.Builder, pageNumber, ordinal int, block *model.TextBlock) {
	fmt.Fprintf(b, "        <text-block id=\"block-%d-%d\"", pageNumber, ordinal)
	fmt.Fprintf(b, " x=\"%s\" y=\"%s\" width=\"%s\" height=\"%s\"",
		num(block.X), num(block.Y), num(block.Width), num(block.Height))
	fmt.Fprintf(b, " font-size=\"%s\" font-family=\"%s\" font-weight=\"%s\" font-style=\"%s\"",
		num(block.FontSize), Escape(block.FontFamily), Escape(block.FontWeight), Escape(block.FontStyle))
	fmt.Fprintf(b, " color=\"%s\" rotation=\"%s\" direction=\"%s\"",
		Escape(block.Color), num(block.Rotation), Escape(block.Direction))
	if s.verbosity == VerbosityRich {
		fmt.Fprintf(b, " has-eol=\"%t\"", block.HasEOL)
	}
	fmt.Fprintf(b, ">%s</text-block>\n", Escape(block.Text))
}

func (s *Serializer) writeImage(b *strings.Builder, pageNumber, ordinal int, img *model.ImageBlock) {
	fmt.Fprintf(b, "        <image id=\"image-%d-%d\"", pageNumber, ordinal)
	fmt.Fprintf(b, " x=\"%s\" y=\"%s\" width=\"%s\" height=\"%s\" rotation=\"%s\"",
		num(img.X), num(img.Y), num(img.Width), num(img.Height), num(img.Rotation))
	if img.Encoding != "" {
		fmt.Fprintf(b, " encoding=\"%s\"", Escape(img.Encoding))
	}
	if img.Format != "" {
		fmt.Fprintf(b, " format=\"%s\"", Escape(img.Format))
	}
	if img.Description != "" {
		fmt.Fprintf(b, " description=\"%s\"", Escape(img.Description))
	}
	if img.Data == "" {
		b.WriteString("/>\n")
		return
	}
	fmt.Fprintf(b, ">%s</image>\n", Escape(img.Data))
}

func writeTextElement(b *strings.Builder, name, value string) {
	fmt.Fprintf(b, "    <%s>%s</%s>\n", name, Escape(value), name)
}

// num formats a coordinate without exponent notation or trailing zeros so
// output stays stable across runs.
func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
