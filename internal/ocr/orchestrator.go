package ocr

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mkweon/searchlayer/internal/vision"
)

// GeometryFetcher is the provider boundary: one network call per page
// range, results in ascending page order.
type GeometryFetcher interface {
	AnnotateRange(ctx context.Context, pdf []byte, first, last int) ([]vision.GeometryPage, error)
}

// Overlayer turns original document bytes plus per-page geometry into
// a searchable document and its extracted text.
type Overlayer interface {
	Overlay(original []byte, pages []vision.GeometryPage) (pdf []byte, text string, err error)
}

// ProgressFunc receives pipeline stage updates. done/total count
// geometry batches during the fetch stage and are zero otherwise.
type ProgressFunc func(ctx context.Context, stage string, done, total int)

// VisionEngine drives the geometry provider in sequential page
// batches and synthesizes the searchable output. Batches are never
// fetched in parallel: that bounds peak memory and respects provider
// throughput limits. The engine performs no retries of its own; it is
// idempotent per invocation and the submission layer re-runs it from
// scratch on failure.
type VisionEngine struct {
	fetcher   GeometryFetcher
	overlayer Overlayer
	batchSize int
	progress  ProgressFunc

	// overridable in tests
	pageCount func([]byte) (int, error)
}

// DefaultBatchSize is the provider's per-call page limit.
const DefaultBatchSize = 5

// NewVisionEngine creates the engine. batchSize values below 1 fall
// back to DefaultBatchSize.
func NewVisionEngine(f GeometryFetcher, o Overlayer, batchSize int, progress ProgressFunc) *VisionEngine {
	if batchSize < 1 {
		batchSize = DefaultBatchSize
	}
	return &VisionEngine{
		fetcher:   f,
		overlayer: o,
		batchSize: batchSize,
		progress:  progress,
		pageCount: pageCount,
	}
}

var _ Engine = (*VisionEngine)(nil)

// Process runs the full pipeline for one document: page count, batched
// geometry fetch, overlay synthesis, output naming. A single batch
// failure aborts the whole document; no partial results are returned.
func (e *VisionEngine) Process(ctx context.Context, input []byte, name string) (*Result, error) {
	n, err := e.pageCount(input)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, fmt.Errorf("document %q has no pages", name)
	}

	batches := (n + e.batchSize - 1) / e.batchSize
	slog.Info("starting geometry fetch", "name", name, "pages", n, "batches", batches)

	geometry := make([]vision.GeometryPage, 0, n)
	for first := 1; first <= n; first += e.batchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		last := first + e.batchSize - 1
		if last > n {
			last = n
		}

		pages, err := e.fetcher.AnnotateRange(ctx, input, first, last)
		if err != nil {
			return nil, fmt.Errorf("pages %d-%d: %w", first, last, err)
		}
		geometry = append(geometry, pages...)

		e.report(ctx, "geometry", (first-1)/e.batchSize+1, batches)
	}

	detected := 0
	for _, p := range geometry {
		if p.HasText() {
			detected++
		}
	}
	if detected == 0 {
		return nil, ErrNoTextDetected
	}

	e.report(ctx, "synthesis", 0, 0)

	pdf, text, err := e.overlayer.Overlay(input, geometry)
	if err != nil {
		return nil, fmt.Errorf("synthesize overlay: %w", err)
	}

	slog.Info("document processed", "name", name, "pages", n, "pages_with_text", detected, "bytes", len(pdf))

	return &Result{
		PDF:      pdf,
		Text:     text,
		Filename: OutputName(name),
	}, nil
}

func (e *VisionEngine) report(ctx context.Context, stage string, done, total int) {
	if e.progress != nil {
		e.progress(ctx, stage, done, total)
	}
}
