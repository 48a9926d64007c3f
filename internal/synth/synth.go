// Package synth builds the searchable output document: the original
// page imagery is imported untouched and an invisible text layer is
// drawn over it from the provider's pixel-space word geometry.
package synth

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/go-pdf/fpdf/contrib/gofpdi"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/mkweon/searchlayer/internal/vision"
)

// Config tunes the overlay.
type Config struct {
	// FontFile is a TTF embedded for the text layer. Empty means the
	// core Helvetica font (latin coverage only).
	FontFile string
	// Calibration scales detected box height to font size so rendered
	// cap height approximates the box. Sensible range 0.8-0.85.
	Calibration float64
	// MinFontSize is the floor that keeps degenerate boxes from
	// producing zero-size text objects.
	MinFontSize float64
	// Producer is written into the output document metadata.
	Producer string
}

const (
	defaultCalibration = 0.82
	defaultMinFontSize = 2.0
	defaultProducer    = "searchlayer"
)

// Synthesizer overlays invisible word-level text onto existing PDF
// pages. Safe for concurrent use; all mutable state is per call.
type Synthesizer struct {
	calibration float64
	minFontSize float64
	producer    string
	font        []byte
}

// New creates a synthesizer, loading the configured font once
// process-wide.
func New(cfg Config) (*Synthesizer, error) {
	s := &Synthesizer{
		calibration: cfg.Calibration,
		minFontSize: cfg.MinFontSize,
		producer:    cfg.Producer,
	}
	if s.calibration <= 0 {
		s.calibration = defaultCalibration
	}
	if s.minFontSize <= 0 {
		s.minFontSize = defaultMinFontSize
	}
	if s.producer == "" {
		s.producer = defaultProducer
	}
	if cfg.FontFile != "" {
		font, err := loadFont(cfg.FontFile)
		if err != nil {
			return nil, fmt.Errorf("load overlay font: %w", err)
		}
		s.font = font
	}
	return s, nil
}

// placement is the resolved draw position of one word in PDF point
// space (origin bottom-left).
type placement struct {
	text string
	x    float64
	y    float64
	size float64
}

// placeWord maps a word's pixel-space bounding quad to PDF point
// space. Vertex 0 gives the left edge, vertex 2 the bottom edge; the
// Y axis flips because provider space is top-left/Y-down and PDF
// space is bottom-left/Y-up. Empty or whitespace-only words and
// degenerate quads yield ok=false and are not drawn.
func placeWord(w vision.Word, scaleX, scaleY, pageHeight, calibration, minSize float64) (placement, bool) {
	text := w.Text()
	if strings.TrimSpace(text) == "" {
		return placement{}, false
	}
	if !w.BoundingBox.Valid() {
		return placement{}, false
	}

	v0 := w.BoundingBox.TopLeft()
	v2 := w.BoundingBox.BottomRight()

	heightPx := math.Abs(v2.Y - v0.Y)
	widthPx := math.Abs(v2.X - v0.X)
	if heightPx <= 0 || widthPx <= 0 {
		return placement{}, false
	}

	size := heightPx * scaleY * calibration
	if size < minSize {
		size = minSize
	}

	return placement{
		text: text,
		x:    v0.X * scaleX,
		y:    pageHeight - v2.Y*scaleY,
		size: size,
	}, true
}

// Overlay produces new document bytes plus the concatenated extracted
// text. geometry may be shorter than the document's page count; pages
// beyond it keep their imagery and simply get no text layer. The
// output depends only on the inputs, so re-running the synthesizer on
// its own output never compounds layers.
func (s *Synthesizer) Overlay(original []byte, geometry []vision.GeometryPage) ([]byte, string, error) {
	dims, err := api.PageDims(bytes.NewReader(original), model.NewDefaultConfiguration())
	if err != nil {
		return nil, "", fmt.Errorf("read page dimensions: %w", err)
	}
	if len(dims) == 0 {
		return nil, "", fmt.Errorf("document has no pages")
	}
	if len(geometry) > len(dims) {
		geometry = geometry[:len(dims)]
	}

	pdf := fpdf.New("P", "pt", "A4", "")
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetMargins(0, 0, 0)

	fontName := "Helvetica"
	coreFont := true
	if s.font != nil {
		pdf.AddUTF8FontFromBytes(overlayFontFamily, "", s.font)
		fontName = overlayFontFamily
		coreFont = false
	}
	translate := func(t string) string { return t }
	if coreFont {
		translate = pdf.UnicodeTranslatorFromDescriptor("")
	}

	importer := gofpdi.NewImporter()
	rs := io.ReadSeeker(bytes.NewReader(original))

	var text strings.Builder

	for i, dim := range dims {
		pageW, pageH := dim.Width, dim.Height

		pdf.AddPageFormat("P", fpdf.SizeType{Wd: pageW, Ht: pageH})
		tpl := importer.ImportPageFromStream(pdf, &rs, i+1, "/MediaBox")
		importer.UseImportedTemplate(pdf, tpl, 0, 0, pageW, 0)

		if i >= len(geometry) {
			continue
		}
		page := geometry[i]

		text.WriteString(page.RawText)
		text.WriteString("\n\n")

		if page.PixelWidth <= 0 || page.PixelHeight <= 0 {
			continue
		}
		scaleX := pageW / page.PixelWidth
		scaleY := pageH / page.PixelHeight

		pdf.SetFont(fontName, "", s.minFontSize)
		pdf.SetAlpha(0, "Normal")

		for _, block := range page.Blocks {
			for _, par := range block.Paragraphs {
				for _, word := range par.Words {
					pl, ok := placeWord(word, scaleX, scaleY, pageH, s.calibration, s.minFontSize)
					if !ok {
						continue
					}
					if coreFont && !latin1Renderable(pl.text) {
						continue
					}
					pdf.SetFontSize(pl.size)
					// fpdf's unit origin is top-left, so the
					// bottom-up Y flips back here.
					pdf.Text(pl.x, pageH-pl.y, translate(pl.text))
				}
			}
		}

		pdf.SetAlpha(1, "Normal")
	}

	pdf.SetProducer(s.producer, true)
	pdf.SetCreationDate(time.Now())

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, "", fmt.Errorf("serialize document: %w", err)
	}
	return buf.Bytes(), text.String(), nil
}
