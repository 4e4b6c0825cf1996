package markup

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/structdoc/pdfmarkup/internal/model"
)

func sampleDocument(t *testing.T) *model.Document {
	t.Helper()
	doc, err := model.NewDocument(
		model.DocumentMetadata{
			Title:    model.StringPtr("Quarterly Report"),
			Author:   model.StringPtr("Jane Doe"),
			Keywords: []string{"finance", "q3"},
			NumPages: 1,
		},
		[]model.PageData{{
			PageNumber:       1,
			Width:            612,
			Height:           792,
			ExtractionMethod: "native-positioned",
			Background:       "#FFFFFF",
			TextBlocks: []model.TextBlock{
				{Text: "Hello", X: 50, Y: 742, Width: 36, Height: 14, FontSize: 12,
					FontFamily: "Helvetica", FontWeight: "normal", FontStyle: "normal",
					Color: "#000000", Direction: "ltr", HasEOL: true},
				{Text: "World", X: 50, Y: 722, Width: 36, Height: 14, FontSize: 12,
					FontFamily: "Helvetica", FontWeight: "normal", FontStyle: "normal",
					Color: "#000000", Direction: "ltr", HasEOL: false},
			},
		}},
	)
	require.NoError(t, err)
	return doc
}

func TestEscape(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"no reserved characters", "plain text", "plain text"},
		{"all five entities", `<b>&"quote"'</b>`, "&lt;b&gt;&amp;&quot;quote&quot;&apos;&lt;/b&gt;"},
		{"ampersand first", "a & b < c", "a &amp; b &lt; c"},
		{"already escaped input is escaped again", "&amp;", "&amp;amp;"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Escape(tt.input))
		})
	}
}

func TestSerializeDocumentRich(t *testing.T) {
	s := NewSerializer(VerbosityRich)
	out := s.SerializeDocument(sampleDocument(t))

	assert.True(t, strings.HasPrefix(out, `<?xml version="1.0" encoding="UTF-8"?>`+"\n"))
	assert.Contains(t, out, `<pdf-document version="1.1">`)
	assert.Contains(t, out, "<title>Quarterly Report</title>")
	assert.Contains(t, out, "<keywords>finance, q3</keywords>")
	assert.Contains(t, out, "<page-count>1</page-count>")

	// Derived statistics are recomputed: two 5-char blocks, one line
	// terminator.
	assert.Contains(t, out, `text-length="10" line-count="1"`)

	assert.Contains(t, out, `background="#FFFFFF"`)

	assert.Contains(t, out, `<text-block id="block-1-1"`)
	assert.Contains(t, out, `<text-block id="block-1-2"`)
	assert.Contains(t, out, `has-eol="true"`)
	assert.Contains(t, out, `has-eol="false"`)

	// No images on the page, so the empty marker must be present.
	assert.Contains(t, out, `<images count="0"/>`)
}

func TestSerializeDocumentMinimal(t *testing.T) {
	s := NewSerializer(VerbosityMinimal)
	out := s.SerializeDocument(sampleDocument(t))

	assert.NotContains(t, out, "text-length=")
	assert.NotContains(t, out, "line-count=")
	assert.NotContains(t, out, "has-eol=")
	assert.Contains(t, out, `<text-block id="block-1-1"`)
}

func TestSerializeIsDeterministic(t *testing.T) {
	s := NewSerializer(VerbosityRich)
	doc := sampleDocument(t)

	first := s.SerializeDocument(doc)
	second := s.SerializeDocument(doc)
	assert.Equal(t, first, second, "serializing the same model twice must be byte-identical")
}

func TestSerializeEscapesContentAndAttributes(t *testing.T) {
	doc, err := model.NewDocument(
		model.DocumentMetadata{Title: model.StringPtr(`Tom & "Jerry" <draft>`), NumPages: 1},
		[]model.PageData{{
			PageNumber: 1,
			Width:      612,
			Height:     792,
			TextBlocks: []model.TextBlock{
				{Text: "1 < 2 && 3 > 2", FontSize: 12, FontFamily: `Weird "Font"`, Color: "#112233"},
			},
		}},
	)
	require.NoError(t, err)

	out := NewSerializer(VerbosityRich).SerializeDocument(doc)

	assert.Contains(t, out, "<title>Tom &amp; &quot;Jerry&quot; &lt;draft&gt;</title>")
	assert.Contains(t, out, ">1 &lt; 2 &amp;&amp; 3 &gt; 2</text-block>")
	assert.Contains(t, out, `font-family="Weird &quot;Font&quot;"`)
	assert.NotContains(t, out, `<draft>`)
}

func TestSerializeDerivedStats(t *testing.T) {
	// Three blocks of lengths 5, 0-EOL-run, and 12; only blocks without a
	// trailing EOL count as lines.
	doc := &model.Document{
		FormatVersion: model.FormatVersion,
		Metadata:      model.DocumentMetadata{NumPages: 1},
		Pages: []model.PageData{{
			PageNumber: 1,
			Width:      612,
			Height:     792,
			TextBlocks: []model.TextBlock{
				{Text: "Hello", HasEOL: true},
				{Text: "twelve chars", HasEOL: false},
			},
		}},
	}

	out := NewSerializer(VerbosityRich).SerializeDocument(doc)
	assert.Contains(t, out, `text-length="17" line-count="1"`)
}

func TestSerializeImageBody(t *testing.T) {
	doc := &model.Document{
		FormatVersion: model.FormatVersion,
		Metadata:      model.DocumentMetadata{NumPages: 1},
		Pages: []model.PageData{{
			PageNumber: 1,
			Width:      612,
			Height:     792,
			Images: []model.ImageBlock{
				{X: 10, Y: 20, Width: 100, Height: 50, Encoding: "base64", Format: "PNG", Data: "aGVsbG8="},
				{X: 0, Y: 0, Width: 612, Height: 792, Description: "page 1 visual content"},
			},
		}},
	}

	out := NewSerializer(VerbosityRich).SerializeDocument(doc)

	assert.Contains(t, out, `<images count="2">`)
	assert.Contains(t, out, `<image id="image-1-1"`)
	assert.Contains(t, out, `>aGVsbG8=</image>`)
	// Data-less image regions self-close.
	assert.Contains(t, out, `description="page 1 visual content"/>`)
}

func TestNumFormatting(t *testing.T) {
	assert.Equal(t, "612", num(612))
	assert.Equal(t, "841.89", num(841.89))
	assert.Equal(t, "0.5", num(0.5))
}
