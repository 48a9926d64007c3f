package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mkweon/searchlayer/internal/client"
	"github.com/mkweon/searchlayer/internal/jobs"
)

var submitCmd = &cobra.Command{
	Use:   "submit [files...]",
	Short: "Submit documents for text recognition",
	Long:  "Upload one or more PDFs to the backend and save the searchable results.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSubmit,
}

func init() {
	submitCmd.Flags().StringP("output", "o", "", "Output directory (default: from config)")
}

func runSubmit(cmd *cobra.Command, args []string) error {
	outDir, _ := cmd.Flags().GetString("output")
	if outDir == "" {
		outDir = cfg.Output.Directory
	}
	if outDir == "" {
		outDir = "."
	}

	queue := jobs.NewQueue()
	sub := client.NewSubmitter(getClient(), queue, client.DefaultSchedule(), cfg.Limits)
	sub.SetNotify(func(job *jobs.Job) {
		switch job.CurrentStatus() {
		case jobs.StatusProcessing:
			fmt.Printf("  %s: %s\n", job.OriginalName, job.StatusMessage)
		case jobs.StatusCompleted:
			fmt.Printf("  %s: done -> %s\n", job.OriginalName, job.Result.Filename)
		case jobs.StatusError:
			fmt.Printf("  %s: failed: %s\n", job.OriginalName, job.Error)
		}
	})

	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		if _, err := sub.Enqueue(filepath.Base(path), data); err != nil {
			return fmt.Errorf("queue %s: %w", path, err)
		}
	}

	fmt.Printf("Submitting %d document(s) to %s\n", len(args), cfg.Server.URL)
	sub.Drain(cmd.Context())

	var failed int
	for _, job := range queue.List() {
		switch job.CurrentStatus() {
		case jobs.StatusCompleted:
			path := filepath.Join(outDir, job.Result.Filename)
			if err := os.WriteFile(path, job.Result.PDF, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", path, err)
			}
			fmt.Printf("Saved %s\n", path)
		case jobs.StatusError:
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d document(s) failed", failed)
	}
	return nil
}
