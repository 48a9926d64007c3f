package synth

import (
	"os"
	"sync"
)

// The overlay font is loaded once and shared read-only across every
// synthesis run in the process. A deployment must embed a font that
// covers all languages it is configured to OCR; without one, the core
// Helvetica font is used and words outside its coverage are skipped.
var (
	fontOnce sync.Once
	fontData []byte
	fontErr  error
)

const overlayFontFamily = "overlay"

func loadFont(path string) ([]byte, error) {
	fontOnce.Do(func() {
		fontData, fontErr = os.ReadFile(path)
	})
	return fontData, fontErr
}

// latin1Renderable reports whether every rune of s falls inside the
// range the built-in core font can encode. Words that fail this check
// are skipped rather than drawn as garbage.
func latin1Renderable(s string) bool {
	for _, r := range s {
		if r > 0xFF {
			return false
		}
	}
	return true
}
