package cmd

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kubev2v/pdf-extractor/internal/config"
	"github.com/kubev2v/pdf-extractor/pkg/pool"
)

const previewLength = 200

func NewExtractCommand(cfg *config.Configuration) *cobra.Command {
	var full bool

	extractCmd := &cobra.Command{
		Use:     "extract FILE...",
		Short:   "Extract text from local PDF files",
		Args:    cobra.MinimumNArgs(1),
		PreRunE: preRun(cfg),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			p, err := newPool(cfg, nil)
			if err != nil {
				return err
			}
			defer p.Close()

			failed := extractFiles(cmd.Context(), p, args, cmd.OutOrStdout(), full)
			if failed > 0 {
				return fmt.Errorf("%d of %d files failed", failed, len(args))
			}
			return nil
		},
	}
	registerPoolFlags(extractCmd, cfg)
	extractCmd.Flags().BoolVar(&full, "full", false, "print the whole text instead of a preview")

	return extractCmd
}

// extractFiles submits every file, prints results in argument order and
// returns the number of failures.
func extractFiles(ctx context.Context, p *pool.Pool, files []string, out io.Writer, full bool) int {
	futures := make([]*pool.Future, 0, len(files))
	for _, f := range files {
		futures = append(futures, p.Submit(pool.Job{Locator: f, Label: filepath.Base(f)}))
	}

	ok := color.New(color.FgGreen, color.Bold).SprintFunc()
	ko := color.New(color.FgRed, color.Bold).SprintFunc()
	dim := color.New(color.Faint).SprintFunc()

	failed := 0
	for i, future := range futures {
		result, err := future.Wait(ctx)
		if err != nil {
			fmt.Fprintf(out, "%s %s: %v\n", ko("✗"), files[i], err)
			failed++
			continue
		}
		if result.Failed() {
			fmt.Fprintf(out, "%s %s %s: %v\n", ko("✗"), files[i], dim("["+result.WorkerID+"]"), result.Err)
			failed++
			continue
		}
		fmt.Fprintf(out, "%s %s %s %s\n", ok("✓"), files[i], dim("["+result.WorkerID+"]"), dim(result.Elapsed.Round(time.Millisecond).String()))
		fmt.Fprintln(out, preview(result.Text, full))
	}
	return failed
}

func preview(text string, full bool) string {
	text = strings.TrimSpace(text)
	if full {
		return text
	}
	runes := []rune(text)
	if len(runes) <= previewLength {
		return text
	}
	return string(runes[:previewLength]) + "…"
}
