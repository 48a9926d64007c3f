package vision

import "strings"

// Vertex is a point in the provider's pixel coordinate space
// (origin top-left, Y grows downward).
type Vertex struct {
	X float64 `json:"x,omitempty"`
	Y float64 `json:"y,omitempty"`
}

// BoundingQuad is the four-vertex polygon around a recognized word,
// clockwise starting at the top-left corner. Only vertices 0 and 2
// (top-left and bottom-right) are used for placement.
type BoundingQuad struct {
	Vertices []Vertex `json:"vertices"`
}

// TopLeft returns vertex 0, or a zero vertex if the quad is malformed.
func (q BoundingQuad) TopLeft() Vertex {
	if len(q.Vertices) < 1 {
		return Vertex{}
	}
	return q.Vertices[0]
}

// BottomRight returns vertex 2, or a zero vertex if the quad is malformed.
func (q BoundingQuad) BottomRight() Vertex {
	if len(q.Vertices) < 3 {
		return Vertex{}
	}
	return q.Vertices[2]
}

// Valid reports whether the quad carries the two vertices the
// synthesizer needs.
func (q BoundingQuad) Valid() bool {
	return len(q.Vertices) >= 3
}

// Symbol is a single recognized glyph.
type Symbol struct {
	Text string `json:"text"`
}

// Word is a run of symbols with a shared bounding quad.
type Word struct {
	BoundingBox BoundingQuad `json:"boundingBox"`
	Symbols     []Symbol     `json:"symbols"`
}

// Text concatenates the word's symbols in provider order.
func (w Word) Text() string {
	var b strings.Builder
	for _, s := range w.Symbols {
		b.WriteString(s.Text)
	}
	return b.String()
}

// Paragraph groups words in reading order.
type Paragraph struct {
	Words []Word `json:"words"`
}

// Block is the top level of the provider's layout hierarchy.
type Block struct {
	Paragraphs []Paragraph `json:"paragraphs"`
}

// GeometryPage is the provider's result for a single page: the full
// recognized text plus the Block > Paragraph > Word > Symbol layout
// tree in pixel space.
type GeometryPage struct {
	PixelWidth  float64
	PixelHeight float64
	Blocks      []Block
	RawText     string
}

// HasText reports whether the provider detected anything on the page.
func (p GeometryPage) HasText() bool {
	return len(p.Blocks) > 0 || strings.TrimSpace(p.RawText) != ""
}
