package layout

import (
	"strings"
	"testing"
)

func TestSynthesizePage(t *testing.T) {
	s := NewSynthesizer()

	page := s.SynthesizePage(1, "Hello\n\nWorld\n", 612, 792)

	if page.PageNumber != 1 {
		t.Errorf("expected page number 1, got %d", page.PageNumber)
	}
	if page.ExtractionMethod != Method {
		t.Errorf("expected extraction method %q, got %q", Method, page.ExtractionMethod)
	}

	// Blank lines are discarded, so two blocks survive.
	if len(page.TextBlocks) != 2 {
		t.Fatalf("expected 2 text blocks, got %d", len(page.TextBlocks))
	}

	first, second := page.TextBlocks[0], page.TextBlocks[1]
	if first.Text != "Hello" || second.Text != "World" {
		t.Errorf("unexpected block texts: %q, %q", first.Text, second.Text)
	}
	if second.Y >= first.Y {
		t.Errorf("lines must stack downward: y1=%v y2=%v", first.Y, second.Y)
	}
	if !first.HasEOL {
		t.Error("non-final lines must carry an EOL")
	}
	if second.HasEOL {
		t.Error("the last line must not carry an EOL")
	}
	if first.Color != "#000000" {
		t.Errorf("expected default text color, got %q", first.Color)
	}
}

func TestSynthesizePageEmpty(t *testing.T) {
	s := NewSynthesizer()

	tests := []struct {
		name    string
		rawText string
	}{
		{"empty string", ""},
		{"only whitespace", "   \n\t\n  "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := s.SynthesizePage(3, tt.rawText, 612, 792)

			if len(page.TextBlocks) != 1 {
				t.Fatalf("expected exactly one placeholder block, got %d", len(page.TextBlocks))
			}

			placeholder := page.TextBlocks[0]
			if !strings.Contains(placeholder.Text, "page 3") {
				t.Errorf("placeholder should name the page: %q", placeholder.Text)
			}
			if placeholder.Color != "#888888" {
				t.Errorf("placeholder must use the muted color, got %q", placeholder.Color)
			}
			if placeholder.FontStyle != "italic" {
				t.Errorf("placeholder must be italic, got %q", placeholder.FontStyle)
			}
			if placeholder.HasEOL {
				t.Error("placeholder must not carry an EOL")
			}
		})
	}
}

func TestSynthesizePageImagePlaceholder(t *testing.T) {
	s := NewSynthesizer()

	page := s.SynthesizePage(2, "some text", 595, 842)

	if len(page.Images) != 1 {
		t.Fatalf("expected one whole-page image placeholder, got %d", len(page.Images))
	}

	img := page.Images[0]
	if img.Width != 595 || img.Height != 842 {
		t.Errorf("image placeholder should span the page, got %vx%v", img.Width, img.Height)
	}
	if img.Description != "page 2 visual content" {
		t.Errorf("unexpected placeholder description: %q", img.Description)
	}
	if img.Data != "" {
		t.Error("placeholder must carry no raster data")
	}
}

func TestEstimateWidth(t *testing.T) {
	short := estimateWidth("ab", 612)
	if want := 2 * fontSize * charWidthEst; short != want {
		t.Errorf("expected width %v for two characters, got %v", want, short)
	}

	long := estimateWidth(strings.Repeat("x", 500), 612)
	if max := 612 - 2*leftMargin; long != max {
		t.Errorf("expected width capped at %v, got %v", max, long)
	}
}
