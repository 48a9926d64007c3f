package ocr

import "strings"

const outputSuffix = "_OCR.pdf"

// OutputName derives the output filename from the original name: the
// part before the last dot plus "_OCR.pdf", regardless of the original
// extension. Names without a dot get the suffix appended whole.
func OutputName(original string) string {
	if idx := strings.LastIndex(original, "."); idx >= 0 {
		return original[:idx] + outputSuffix
	}
	return original + outputSuffix
}
