package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
)

// CommandEngine delegates the whole recognize-and-embed job to an
// external ocrmypdf binary. It exists so deployments without a
// geometry provider key can still produce searchable output; the
// submission layer treats both engines identically.
type CommandEngine struct {
	binary   string
	language string
}

// NewCommandEngine creates an engine around the given ocrmypdf path.
// An empty path resolves via $PATH.
func NewCommandEngine(binary, language string) *CommandEngine {
	if binary == "" {
		binary = "ocrmypdf"
	}
	if language == "" {
		language = "eng"
	}
	return &CommandEngine{binary: binary, language: language}
}

var _ Engine = (*CommandEngine)(nil)

// Process writes the input to a temp file, runs ocrmypdf with a
// sidecar text file, and reads both results back.
func (e *CommandEngine) Process(ctx context.Context, input []byte, name string) (*Result, error) {
	path, err := exec.LookPath(e.binary)
	if err != nil {
		return nil, fmt.Errorf("ocrmypdf not found: %w", err)
	}

	dir, err := os.MkdirTemp("", "searchlayer-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	inFile := filepath.Join(dir, "input.pdf")
	outFile := filepath.Join(dir, "output.pdf")
	sidecar := filepath.Join(dir, "output.txt")

	if err := os.WriteFile(inFile, input, 0o644); err != nil {
		return nil, fmt.Errorf("write input: %w", err)
	}

	args := []string{
		"--language", e.language,
		"--skip-text",
		"--optimize", "1",
		"--sidecar", sidecar,
		inFile,
		outFile,
	}

	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Stderr = os.Stderr

	slog.Debug("running ocrmypdf", "args", args)
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ocrmypdf failed: %w", err)
	}

	pdf, err := os.ReadFile(outFile)
	if err != nil {
		return nil, fmt.Errorf("read output: %w", err)
	}

	// Sidecar is best effort; an empty text layer is not an error here.
	text, _ := os.ReadFile(sidecar)

	return &Result{
		PDF:      pdf,
		Text:     string(text),
		Filename: OutputName(name),
	}, nil
}
