package ocr

import "testing"

func TestOutputName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"report.pdf", "report_OCR.pdf"},
		{"report.PDF", "report_OCR.pdf"},
		{"report", "report_OCR.pdf"},
		{"archive.tar.gz", "archive.tar_OCR.pdf"},
		{"scan.docx", "scan_OCR.pdf"},
		{"", "_OCR.pdf"},
	}

	for _, tt := range tests {
		if got := OutputName(tt.in); got != tt.want {
			t.Errorf("OutputName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
