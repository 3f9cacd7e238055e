package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/kubev2v/pdf-extractor/internal/config"
	"github.com/kubev2v/pdf-extractor/internal/extractor"
	"github.com/kubev2v/pdf-extractor/internal/worker"
)

// NewWorkerCommand runs one worker unit speaking the line protocol on
// stdin/stdout. It is spawned by the pool and not meant for direct use.
func NewWorkerCommand(cfg *config.Configuration) *cobra.Command {
	workerCmd := &cobra.Command{
		Use:     "worker",
		Short:   "Run a worker unit on stdin/stdout",
		Hidden:  true,
		PreRunE: preRun(cfg),
		RunE: func(cmd *cobra.Command, args []string) error {
			ext := extractor.WithFailureRate(extractor.NewPDF(), cfg.Pool.FailureRate, nil)
			return worker.Serve(cmd.Context(), os.Stdin, os.Stdout, ext)
		},
	}
	workerCmd.Flags().Float64Var(&cfg.Pool.FailureRate, "failure-rate", cfg.Pool.FailureRate, "probability of a simulated extraction failure, for testing")

	return workerCmd
}
