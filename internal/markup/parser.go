package markup

import (
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/structdoc/pdfmarkup/internal/model"
)

// Wire structs mirror the markup schema for decoding only; the serializer
// writes by hand to keep output byte-stable.

type xmlDocument struct {
	XMLName  xml.Name    `xml:"pdf-document"`
	Version  string      `xml:"version,attr"`
	Metadata xmlMetadata `xml:"metadata"`
	Pages    []xmlPage   `xml:"pages>page"`
}

type xmlMetadata struct {
	Title            string `xml:"title"`
	Author           string `xml:"author"`
	Subject          string `xml:"subject"`
	Keywords         string `xml:"keywords"`
	Creator          string `xml:"creator"`
	Producer         string `xml:"producer"`
	CreationDate     string `xml:"creation-date"`
	ModificationDate string `xml:"modification-date"`
	PageCount        int    `xml:"page-count"`
}

type xmlPage struct {
	Number           int            `xml:"number,attr"`
	Width            float64        `xml:"width,attr"`
	Height           float64        `xml:"height,attr"`
	ExtractionMethod string         `xml:"extraction-method,attr"`
	Background       string         `xml:"background,attr"`
	TextBlocks       []xmlTextBlock `xml:"text-blocks>text-block"`
	Images           []xmlImage     `xml:"images>image"`
}

type xmlTextBlock struct {
	X          float64 `xml:"x,attr"`
	Y          float64 `xml:"y,attr"`
	Width      float64 `xml:"width,attr"`
	Height     float64 `xml:"height,attr"`
	FontSize   float64 `xml:"font-size,attr"`
	FontFamily string  `xml:"font-family,attr"`
	FontWeight string  `xml:"font-weight,attr"`
	FontStyle  string  `xml:"font-style,attr"`
	Color      string  `xml:"color,attr"`
	Rotation   float64 `xml:"rotation,attr"`
	Direction  string  `xml:"direction,attr"`
	HasEOL     bool    `xml:"has-eol,attr"`
	Text       string  `xml:",chardata"`
}

type xmlImage struct {
	X           float64 `xml:"x,attr"`
	Y           float64 `xml:"y,attr"`
	Width       float64 `xml:"width,attr"`
	Height      float64 `xml:"height,attr"`
	Rotation    float64 `xml:"rotation,attr"`
	Encoding    string  `xml:"encoding,attr"`
	Format      string  `xml:"format,attr"`
	Description string  `xml:"description,attr"`
	Data        string  `xml:",chardata"`
}

// Parse decodes markup text into a structural model. The result is not
// passed through full invariant validation: parsed markup may legitimately
// come from older or degraded producers, and reconstruction should stay
// best-effort.
func Parse(markupText string) (*model.Document, error) {
	var wire xmlDocument
	if err := xml.Unmarshal([]byte(markupText), &wire); err != nil {
		return nil, fmt.Errorf("failed to parse markup: %w", err)
	}

	doc := &model.Document{
		FormatVersion: wire.Version,
		Metadata: model.DocumentMetadata{
			Title:            optional(wire.Metadata.Title),
			Author:           optional(wire.Metadata.Author),
			Subject:          optional(wire.Metadata.Subject),
			Keywords:         splitKeywords(wire.Metadata.Keywords),
			Creator:          optional(wire.Metadata.Creator),
			Producer:         optional(wire.Metadata.Producer),
			CreationDate:     optional(wire.Metadata.CreationDate),
			ModificationDate: optional(wire.Metadata.ModificationDate),
			NumPages:         wire.Metadata.PageCount,
		},
	}
	if doc.FormatVersion == "" {
		doc.FormatVersion = model.FormatVersion
	}

	for _, p := range wire.Pages {
		page := model.PageData{
			PageNumber:       p.Number,
			Width:            p.Width,
			Height:           p.Height,
			ExtractionMethod: p.ExtractionMethod,
			Background:       p.Background,
		}
		for _, tb := range p.TextBlocks {
			page.TextBlocks = append(page.TextBlocks, model.TextBlock{
				Text:       strings.TrimSpace(tb.Text),
				X:          tb.X,
				Y:          tb.Y,
				Width:      tb.Width,
				Height:     tb.Height,
				FontSize:   tb.FontSize,
				FontFamily: tb.FontFamily,
				FontWeight: tb.FontWeight,
				FontStyle:  tb.FontStyle,
				Color:      tb.Color,
				Rotation:   tb.Rotation,
				Direction:  tb.Direction,
				HasEOL:     tb.HasEOL,
			})
		}
		for _, img := range p.Images {
			page.Images = append(page.Images, model.ImageBlock{
				X:           img.X,
				Y:           img.Y,
				Width:       img.Width,
				Height:      img.Height,
				Rotation:    img.Rotation,
				Encoding:    img.Encoding,
				Format:      img.Format,
				Data:        strings.TrimSpace(img.Data),
				Description: img.Description,
			})
		}
		doc.Pages = append(doc.Pages, page)
	}

	if doc.Metadata.NumPages == 0 {
		doc.Metadata.NumPages = len(doc.Pages)
	}
	return doc, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return model.StringPtr(s)
}

func splitKeywords(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	var out []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
