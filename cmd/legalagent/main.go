package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cizz1/legal-agent/internal/agent"
	"github.com/cizz1/legal-agent/internal/config"
	"github.com/cizz1/legal-agent/internal/extract"
	"github.com/cizz1/legal-agent/internal/report"
)

var (
	rootCmd = &cobra.Command{
		Use:   "legalagent",
		Short: "AI-powered legal document analysis",
	}
	configPath     string
	outputPath     string
	cachePath      string
	chunkSummsPath string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "Path to the YAML configuration file")

	analyzeCmd.Flags().StringVarP(&outputPath, "output", "o", "output.json", "Path for the analysis report")
	analyzeCmd.Flags().StringVar(&cachePath, "cache", "", "Override the chunk cache path")
	analyzeCmd.Flags().StringVar(&chunkSummsPath, "chunk-summaries", "", "Also export chunk summaries to this path")
	rootCmd.AddCommand(analyzeCmd)
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <document>",
	Short: "Analyze a legal document and write a structured report",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		cfg, err := config.LoadConfig(configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		if cachePath != "" {
			cfg.Cache.Path = cachePath
		}

		data, err := os.ReadFile(args[0])
		if err != nil {
			log.Fatalf("Failed to read document: %v", err)
		}

		extractor, err := extractorFor(args[0])
		if err != nil {
			log.Fatalf("Unsupported input: %v", err)
		}
		rawText, err := extractor.Extract(ctx, data)
		if err != nil {
			log.Fatalf("Text extraction failed: %v", err)
		}

		progress := make(chan agent.Progress, 16)
		done := make(chan struct{})
		go func() {
			defer close(done)
			for p := range progress {
				fmt.Printf("... %s: %s\n", p.Step, p.Msg)
			}
		}()

		a, err := agent.FromConfig(ctx, cfg, agent.WithProgress(progress), agent.WithLogger(slog.Default()))
		if err != nil {
			log.Fatalf("Setup failed: %v\nCheck your config.yaml and API key.", err)
		}
		defer a.Close()

		fmt.Printf("Analyzing %s...\n", filepath.Base(args[0]))
		result, err := a.Analyze(ctx, agent.Document{RawText: rawText})
		close(progress)
		<-done
		if err != nil {
			log.Fatalf("Analysis failed: %v", err)
		}

		if err := report.Export(outputPath, result); err != nil {
			log.Fatalf("Failed to write report: %v", err)
		}
		if chunkSummsPath != "" {
			if err := report.ExportChunkSummaries(chunkSummsPath, result.ChunkSummaries); err != nil {
				log.Fatalf("Failed to write chunk summaries: %v", err)
			}
		}

		fmt.Printf("Report written to %s (%d rule checks, %d chunks).\n",
			outputPath, len(result.RuleChecks), len(result.ChunkSummaries))
	},
}

// extractorFor picks the text-extraction collaborator by file extension.
// PDF byte extraction is an external concern; plain text and markdown
// are handled natively.
func extractorFor(path string) (extract.Extractor, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return nil, fmt.Errorf("PDF extraction is not built in; convert %s to text first", filepath.Base(path))
	default:
		return extract.PlainText{}, nil
	}
}
