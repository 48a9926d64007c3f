package ocr

import (
	"context"
	"errors"
)

// ErrNoTextDetected is reported when the geometry provider succeeded
// but found no recognizable text on any page. It is a content
// condition, not a system fault: the input was probably not a scanned
// document.
var ErrNoTextDetected = errors.New("no text detected in document")

// Result is the output of a completed OCR run.
type Result struct {
	// PDF is the new document: original imagery with an invisible
	// searchable text layer.
	PDF []byte
	// Text is the extracted plain text, page texts joined by blank
	// lines in page order.
	Text string
	// Filename is the derived output name (originalname_OCR.pdf).
	Filename string
}

// Engine produces a searchable document from raw input bytes and a
// logical name. Implementations: VisionEngine (geometry provider +
// overlay synthesis) and CommandEngine (external ocrmypdf binary).
type Engine interface {
	Process(ctx context.Context, input []byte, name string) (*Result, error)
}
