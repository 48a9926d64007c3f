package synth

import (
	"bytes"
	"strings"
	"testing"

	"github.com/go-pdf/fpdf"

	"github.com/mkweon/searchlayer/internal/vision"
)

func word(text string, v0x, v0y, v2x, v2y float64) vision.Word {
	symbols := make([]vision.Symbol, 0, len(text))
	for _, r := range text {
		symbols = append(symbols, vision.Symbol{Text: string(r)})
	}
	return vision.Word{
		Symbols: symbols,
		BoundingBox: vision.BoundingQuad{
			Vertices: []vision.Vertex{
				{X: v0x, Y: v0y},
				{X: v2x, Y: v0y},
				{X: v2x, Y: v2y},
				{X: v0x, Y: v2y},
			},
		},
	}
}

func TestPlaceWordCoordinateTransform(t *testing.T) {
	// 1000x2000 px page mapped onto a 500x1000 pt page.
	scaleX := 500.0 / 1000.0
	scaleY := 1000.0 / 2000.0

	w := word("hello", 100, 200, 300, 400)

	pl, ok := placeWord(w, scaleX, scaleY, 1000, 0.82, 2)
	if !ok {
		t.Fatal("expected word to be placeable")
	}
	if pl.x != 50 {
		t.Fatalf("expected x=50, got %v", pl.x)
	}
	if pl.y != 800 {
		t.Fatalf("expected y=800, got %v", pl.y)
	}
	// Box height 200px at scale 0.5 with calibration in [0.8, 0.85].
	if pl.size < 80 || pl.size > 85 {
		t.Fatalf("expected font size in [80,85], got %v", pl.size)
	}
	if pl.text != "hello" {
		t.Fatalf("expected text hello, got %q", pl.text)
	}
}

func TestPlaceWordSkips(t *testing.T) {
	tests := []struct {
		name string
		w    vision.Word
	}{
		{"empty text", word("", 10, 10, 50, 30)},
		{"whitespace only", word("  \t ", 10, 10, 50, 30)},
		{"zero height", word("x", 10, 10, 50, 10)},
		{"zero width", word("x", 10, 10, 10, 30)},
		{"missing vertices", vision.Word{Symbols: []vision.Symbol{{Text: "x"}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := placeWord(tt.w, 1, 1, 100, 0.82, 2); ok {
				t.Fatal("expected word to be skipped")
			}
		})
	}
}

func TestPlaceWordMinimumSize(t *testing.T) {
	// 1px tall box still produces a positive font size.
	w := word("dot", 10, 10, 14, 11)
	pl, ok := placeWord(w, 1, 1, 100, 0.82, 2)
	if !ok {
		t.Fatal("expected word to be placeable")
	}
	if pl.size != 2 {
		t.Fatalf("expected floor size 2, got %v", pl.size)
	}
}

func TestLatin1Renderable(t *testing.T) {
	if !latin1Renderable("hello, wörld") {
		t.Fatal("latin text should be renderable")
	}
	if latin1Renderable("안녕하세요") {
		t.Fatal("hangul should not be renderable by the core font")
	}
}

// blankPDF builds a minimal n-page document to overlay in tests.
func blankPDF(t *testing.T, pages int, wPt, hPt float64) []byte {
	t.Helper()
	pdf := fpdf.New("P", "pt", "A4", "")
	pdf.SetAutoPageBreak(false, 0)
	for i := 0; i < pages; i++ {
		pdf.AddPageFormat("P", fpdf.SizeType{Wd: wPt, Ht: hPt})
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		t.Fatalf("build test pdf: %v", err)
	}
	return buf.Bytes()
}

func geometryPage(text string, pxW, pxH float64, words ...vision.Word) vision.GeometryPage {
	return vision.GeometryPage{
		PixelWidth:  pxW,
		PixelHeight: pxH,
		RawText:     text,
		Blocks: []vision.Block{{
			Paragraphs: []vision.Paragraph{{Words: words}},
		}},
	}
}

func TestOverlayProducesDocumentAndText(t *testing.T) {
	s, err := New(Config{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	original := blankPDF(t, 3, 500, 1000)
	geometry := []vision.GeometryPage{
		geometryPage("first page\n", 1000, 2000, word("first", 100, 200, 300, 400)),
		geometryPage("second page\n", 1000, 2000, word("second", 50, 50, 200, 90)),
	}

	out, text, err := s.Overlay(original, geometry)
	if err != nil {
		t.Fatalf("Overlay: %v", err)
	}

	if !bytes.HasPrefix(out, []byte("%PDF")) {
		t.Fatal("output is not a PDF")
	}
	want := "first page\n\n\nsecond page\n\n\n"
	if text != want {
		t.Fatalf("extracted text %q, want %q", text, want)
	}
}

func TestOverlayToleratesShortGeometry(t *testing.T) {
	s, err := New(Config{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	// 4 pages, geometry for 1: remaining pages pass through untouched.
	original := blankPDF(t, 4, 595, 842)
	geometry := []vision.GeometryPage{
		geometryPage("only\n", 1190, 1684, word("only", 10, 10, 80, 40)),
	}

	out, text, err := s.Overlay(original, geometry)
	if err != nil {
		t.Fatalf("Overlay: %v", err)
	}
	if len(out) == 0 {
		t.Fatal("empty output")
	}
	if !strings.HasPrefix(text, "only\n") {
		t.Fatalf("unexpected text %q", text)
	}
}

func TestOverlayIdempotentOnOwnOutput(t *testing.T) {
	s, err := New(Config{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	original := blankPDF(t, 1, 500, 1000)
	geometry := []vision.GeometryPage{
		geometryPage("pass one\n", 1000, 2000, word("pass", 100, 200, 300, 400)),
	}

	first, _, err := s.Overlay(original, geometry)
	if err != nil {
		t.Fatalf("first Overlay: %v", err)
	}

	// The second run overlays based solely on the geometry passed in;
	// it must succeed on its own output without compounding errors.
	second, text, err := s.Overlay(first, geometry)
	if err != nil {
		t.Fatalf("second Overlay: %v", err)
	}
	if len(second) == 0 {
		t.Fatal("empty second output")
	}
	if text != "pass one\n\n\n" {
		t.Fatalf("unexpected text %q", text)
	}
}

func TestOverlayRejectsEmptyDocument(t *testing.T) {
	s, err := New(Config{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, _, err := s.Overlay([]byte("not a pdf"), nil); err == nil {
		t.Fatal("expected error for invalid document")
	}
}
