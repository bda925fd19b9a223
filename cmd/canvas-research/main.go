package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ericmjl/canvas-research/pkg/config"
	"github.com/ericmjl/canvas-research/pkg/fetch"
	"github.com/ericmjl/canvas-research/pkg/llm"
	"github.com/ericmjl/canvas-research/pkg/research"
	"github.com/ericmjl/canvas-research/pkg/search"
)

var (
	instructions  string
	researchCtx   string
	model         string
	maxIterations int
	maxSources    int
	outputFile    string
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	// Missing .env is fine as long as env vars are set.
	_ = godotenv.Load()

	cfg := config.Load()

	rootCmd := &cobra.Command{
		Use:   "canvas-research",
		Short: "Run iterative web research from the terminal",
		Long: `canvas-research searches the web, reads and summarizes sources over
multiple iterations, and synthesizes a cited markdown report.`,
		Run: func(cmd *cobra.Command, args []string) {
			if instructions == "" {
				slog.Error("--instructions must not be empty")
				os.Exit(1)
			}

			if model == "" {
				model = cfg.Model
			}

			completer := llm.NewClient(cfg.Model, cfg.LLMApiKey, cfg.LLMBaseURL)
			orch := research.NewOrchestrator(completer, search.NewClient(), fetch.NewClient())
			orch.Options.MinIterations = cfg.MinIterations

			req := research.Request{
				Instructions:  instructions,
				Context:       researchCtx,
				Model:         model,
				MaxIterations: maxIterations,
				MaxSources:    maxSources,
			}

			var report string
			failed := false

			for event := range orch.Stream(context.Background(), req) {
				switch event.Type {
				case research.EventStatus:
					fmt.Fprintln(os.Stderr, event.Message)
				case research.EventSource:
					fmt.Fprintf(os.Stderr, "  [%d] %s  %s\n", event.Source.Iteration, event.Source.Title, event.Source.URL)
				case research.EventContent:
					report = event.Message
				case research.EventError:
					slog.Error("Research failed", "error", event.Message)
					failed = true
				}
			}

			if failed {
				os.Exit(1)
			}

			if outputFile != "" {
				if err := os.WriteFile(outputFile, []byte(report), 0644); err != nil {
					slog.Error("Failed to write report", "file", outputFile, "error", err)
					os.Exit(1)
				}
				slog.Info("Report written", "file", outputFile)
			} else {
				fmt.Println(report)
			}
		},
	}

	rootCmd.Flags().StringVarP(&instructions, "instructions", "i", "", "The research instructions")
	rootCmd.Flags().StringVarP(&researchCtx, "context", "c", "", "Optional context the instructions refer to")
	rootCmd.Flags().StringVarP(&model, "model", "m", "", "Completion model to use")
	rootCmd.Flags().IntVar(&maxIterations, "max-iterations", 0, "Maximum research iterations (clamped to 1-8)")
	rootCmd.Flags().IntVar(&maxSources, "max-sources", 0, "Maximum sources to collect (clamped to 5-80)")
	rootCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Write the report to a file instead of stdout")

	if err := rootCmd.Execute(); err != nil {
		slog.Error("Command execution failed", "error", err)
		os.Exit(1)
	}
}
