// Package model defines the structural representation of a parsed PDF
// document: metadata, pages, positioned text blocks, image regions, and an
// optional verbatim copy of the source bytes.
//
// A Document is built once by an extraction tier and never mutated
// afterwards. All relationships are positional (slice index, page number),
// never pointer-based, so the model serializes cleanly and has no cycles.
package model

import (
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"
)

// FormatVersion is the current markup schema version written by the
// serializer and accepted by the parser.
const FormatVersion = "1.1"

// Text directions carried by TextBlock.Direction. Values outside this set
// are passed through unmodified.
const (
	DirectionLTR = "ltr"
	DirectionRTL = "rtl"
	DirectionTTB = "ttb"
	DirectionBTT = "btt"
)

var colorRe = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// DocumentMetadata holds document-level properties. Pointer fields
// distinguish "unknown" from "present but empty".
type DocumentMetadata struct {
	Title            *string  `json:"title"`
	Author           *string  `json:"author"`
	Subject          *string  `json:"subject"`
	Keywords         []string `json:"keywords,omitempty"`
	Creator          *string  `json:"creator"`
	Producer         *string  `json:"producer"`
	CreationDate     *string  `json:"creation_date"`
	ModificationDate *string  `json:"modification_date"`
	NumPages         int      `json:"num_pages"`
}

// TextBlock is a run of text with position and font attributes in page
// space. Coordinates follow the page coordinate system of the extraction
// tier that produced the block.
type TextBlock struct {
	Text       string  `json:"text"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	FontSize   float64 `json:"font_size"`
	FontFamily string  `json:"font_family"`
	FontWeight string  `json:"font_weight"`
	FontStyle  string  `json:"font_style"`
	Color      string  `json:"color"`
	Rotation   float64 `json:"rotation"`
	Direction  string  `json:"direction"`
	HasEOL     bool    `json:"has_eol"`
}

// ImageBlock is an image region on a page. Data carries base64-encoded
// raster bytes when the tier extracted them; Description stands in when
// raster data is withheld.
type ImageBlock struct {
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Width       float64 `json:"width"`
	Height      float64 `json:"height"`
	Rotation    float64 `json:"rotation"`
	Encoding    string  `json:"encoding,omitempty"` // "base64" when Data is set
	Format      string  `json:"format,omitempty"`   // "PNG", "JPEG", ...
	Data        string  `json:"data,omitempty"`
	Description string  `json:"description,omitempty"`
}

// PageData is one page of the document. TextBlocks are in reading order as
// produced by the extraction tier, which is not necessarily spatial order.
type PageData struct {
	PageNumber       int          `json:"page_number"`
	Width            float64      `json:"width"`
	Height           float64      `json:"height"`
	TextBlocks       []TextBlock  `json:"text_blocks"`
	Images           []ImageBlock `json:"images"`
	Background       string       `json:"background,omitempty"`
	ExtractionMethod string       `json:"extraction_method,omitempty"`
}

// OriginalPayload embeds a verbatim copy of the source bytes. When present
// it is the authoritative source for exact reconstruction and is preferred
// over any structural path.
type OriginalPayload struct {
	Data        string `json:"data"` // base64
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
	ByteLength  int    `json:"byte_length"`
}

// Document is the complete structural model of one parsed PDF.
type Document struct {
	FormatVersion string           `json:"format_version"`
	Metadata      DocumentMetadata `json:"metadata"`
	Pages         []PageData       `json:"pages"`
	Original      *OriginalPayload `json:"original,omitempty"`
}

// NewDocument assembles and validates a Document. NumPages is derived from
// the page slice; a mismatching caller-supplied value is rejected by
// Validate rather than silently overwritten.
func NewDocument(meta DocumentMetadata, pages []PageData) (*Document, error) {
	doc := &Document{
		FormatVersion: FormatVersion,
		Metadata:      meta,
		Pages:         pages,
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return doc, nil
}

// Validate checks the model invariants. It is called by NewDocument; the
// serializer does not re-validate.
func (d *Document) Validate() error {
	if d.Metadata.NumPages != len(d.Pages) {
		return fmt.Errorf("metadata reports %d pages but document has %d", d.Metadata.NumPages, len(d.Pages))
	}
	for i, page := range d.Pages {
		if page.PageNumber != i+1 {
			return fmt.Errorf("page at index %d has number %d, want %d", i, page.PageNumber, i+1)
		}
		for j, block := range page.TextBlocks {
			if strings.TrimSpace(block.Text) == "" {
				return fmt.Errorf("page %d text block %d is empty after trimming", page.PageNumber, j+1)
			}
			if block.Color != "" && !colorRe.MatchString(block.Color) {
				return fmt.Errorf("page %d text block %d has invalid color %q", page.PageNumber, j+1, block.Color)
			}
			if block.FontSize <= 0 {
				return fmt.Errorf("page %d text block %d has non-positive font size", page.PageNumber, j+1)
			}
		}
	}
	if d.Original != nil {
		decoded, err := base64.StdEncoding.DecodeString(d.Original.Data)
		if err != nil {
			return fmt.Errorf("original payload is not valid base64: %w", err)
		}
		if len(decoded) != d.Original.ByteLength {
			return fmt.Errorf("original payload byte length %d does not match decoded size %d",
				d.Original.ByteLength, len(decoded))
		}
	}
	return nil
}

// AttachOriginal embeds the verbatim source bytes and returns a new
// Document; the receiver is left untouched.
func (d *Document) AttachOriginal(raw []byte, fileName, contentType string) *Document {
	out := *d
	out.Original = &OriginalPayload{
		Data:        base64.StdEncoding.EncodeToString(raw),
		FileName:    fileName,
		ContentType: contentType,
		ByteLength:  len(raw),
	}
	return &out
}

// OriginalBytes decodes the embedded verbatim payload.
func (d *Document) OriginalBytes() ([]byte, error) {
	if d.Original == nil {
		return nil, fmt.Errorf("document carries no original payload")
	}
	decoded, err := base64.StdEncoding.DecodeString(d.Original.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode original payload: %w", err)
	}
	return decoded, nil
}

// DecodedData returns the raster bytes of an embedded image payload.
func (b *ImageBlock) DecodedData() ([]byte, error) {
	if b.Data == "" {
		return nil, fmt.Errorf("image block carries no raster data")
	}
	decoded, err := base64.StdEncoding.DecodeString(b.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image data: %w", err)
	}
	return decoded, nil
}

// TextLength returns the summed text length of all blocks on the page.
func (p *PageData) TextLength() int {
	total := 0
	for _, block := range p.TextBlocks {
		total += len(block.Text)
	}
	return total
}

// LineCount returns the number of lines on the page. Blocks with
// HasEOL == false act as line terminators, so lines are counted as blocks
// not followed by a break.
func (p *PageData) LineCount() int {
	count := 0
	for _, block := range p.TextBlocks {
		if !block.HasEOL {
			count++
		}
	}
	return count
}

// HasContent reports whether the page carries any text or images.
func (p *PageData) HasContent() bool {
	return len(p.TextBlocks) > 0 || len(p.Images) > 0
}

// StringPtr returns a pointer to s, for optional metadata fields.
func StringPtr(s string) *string {
	return &s
}
