// Package agent wires the analysis pipeline: clean, chunk, then three
// concurrent tracks (hierarchical summarization, section extraction,
// rule checking) joined into one report.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/cizz1/legal-agent/internal/cache"
	"github.com/cizz1/legal-agent/internal/config"
	"github.com/cizz1/legal-agent/internal/llm"
	"github.com/cizz1/legal-agent/internal/report"
	"github.com/cizz1/legal-agent/internal/rules"
	"github.com/cizz1/legal-agent/internal/sections"
	"github.com/cizz1/legal-agent/internal/summarize"
	"github.com/cizz1/legal-agent/internal/textproc"
)

// FailedSummaryMarker replaces the final summary when the combine tier
// exhausts its retries. Section and rule results are still assembled.
const FailedSummaryMarker = "Summary generation failed"

// Document is the unit of one analysis run. CleanedText is derived from
// RawText when empty.
type Document struct {
	RawText     string
	CleanedText string
}

// Progress is a pipeline step notification for an interactive caller.
type Progress struct {
	RunID string
	Step  string
	Msg   string
}

// Agent runs the full analysis pipeline over one document at a time.
type Agent struct {
	gen          llm.Generator
	store        cache.Store
	summarizer   *summarize.Summarizer
	sections     *sections.Extractor
	rules        *rules.Checker
	log          *slog.Logger
	progress     chan<- Progress
	chunkMaxSize int
}

// Option configures an Agent.
type Option func(*Agent)

// WithProgress registers a channel receiving step notifications. Sends
// never block; a slow consumer just misses events.
func WithProgress(ch chan<- Progress) Option {
	return func(a *Agent) { a.progress = ch }
}

func WithLogger(l *slog.Logger) Option {
	return func(a *Agent) {
		if l != nil {
			a.log = l
		}
	}
}

func WithChunkMaxSize(n int) Option {
	return func(a *Agent) {
		if n > 0 {
			a.chunkMaxSize = n
		}
	}
}

// New builds an Agent from an already-constructed generator and cache
// store. Used directly by tests; production callers go through FromConfig.
func New(gen llm.Generator, store cache.Store, temperature float32, workers int, opts ...Option) *Agent {
	a := &Agent{
		gen:          gen,
		store:        store,
		log:          slog.Default(),
		chunkMaxSize: textproc.DefaultMaxChunkSize,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.summarizer = summarize.New(gen, store,
		summarize.WithTemperature(temperature),
		summarize.WithWorkers(workers),
		summarize.WithChunkMaxSize(a.chunkMaxSize),
		summarize.WithLogger(a.log),
	)
	a.sections = sections.New(gen, temperature, a.log)
	a.rules = rules.New(gen, temperature, a.log)
	return a
}

// FromConfig builds the production Agent: Gemini client wrapped in the
// retry/rate-limit layer, plus the configured cache backend.
func FromConfig(ctx context.Context, cfg *config.Config, opts ...Option) (*Agent, error) {
	if cfg.AI.APIKey == "" {
		return nil, fmt.Errorf("AI API key not configured")
	}

	gemini, err := llm.NewGeminiClient(ctx, cfg.AI.APIKey, cfg.AI.Model)
	if err != nil {
		return nil, fmt.Errorf("failed to create generation client: %w", err)
	}

	policy := llm.DefaultRetryPolicy()
	policy.MaxAttempts = cfg.Pipeline.MaxAttempts
	gen := llm.NewRetryingGenerator(gemini, policy, cfg.Pipeline.RequestsPerSecond, slog.Default())

	store, err := cache.Open(cfg.Cache.Backend, cfg.Cache.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open chunk cache: %w", err)
	}

	opts = append([]Option{WithChunkMaxSize(cfg.Chunk.MaxSize)}, opts...)
	return New(gen, store, cfg.AI.Temperature, cfg.Pipeline.Workers, opts...), nil
}

// Close releases the cache store.
func (a *Agent) Close() error {
	return a.store.Close()
}

// Analyze runs the pipeline on doc and returns the assembled report.
// Summarization, section extraction, and rule checking run concurrently;
// a combine-tier failure degrades the summary to FailedSummaryMarker but
// never suppresses the other two tracks.
func (a *Agent) Analyze(ctx context.Context, doc Document) (*report.AnalysisResult, error) {
	runID := uuid.New().String()

	cleaned := doc.CleanedText
	if cleaned == "" {
		a.notify(runID, "clean", "cleaning extracted text")
		cleaned = textproc.Clean(doc.RawText)
	}
	if cleaned == "" {
		return nil, fmt.Errorf("document contains no analyzable text")
	}

	a.notify(runID, "chunk", "splitting text into chunks")
	chunks := textproc.Split(cleaned, a.chunkMaxSize)
	a.log.Info("agent.analyze.start", "run_id", runID, "text_len", len(cleaned), "chunks", len(chunks))

	var (
		wg             sync.WaitGroup
		finalSummary   string
		chunkSummaries []summarize.ChunkSummary
		summaryErr     error
		sectionSet     map[string]string
		ruleResults    []rules.Result
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		a.notify(runID, "summarize", "summarizing chunks")
		finalSummary, chunkSummaries, summaryErr = a.summarizer.Summarize(ctx, chunks)
	}()
	go func() {
		defer wg.Done()
		a.notify(runID, "sections", "extracting sections")
		sectionSet = a.sections.Extract(ctx, cleaned)
	}()
	go func() {
		defer wg.Done()
		a.notify(runID, "rules", "applying compliance rule checks")
		ruleResults = a.rules.CheckAll(ctx, cleaned)
	}()
	wg.Wait()

	if summaryErr != nil {
		a.log.Error("agent.analyze.summary_failed", "run_id", runID, "error", summaryErr)
		finalSummary = FailedSummaryMarker
	}

	a.notify(runID, "assemble", "assembling analysis result")
	result := report.Assemble(finalSummary, sectionSet, ruleResults, chunkSummaries)
	a.log.Info("agent.analyze.done", "run_id", runID,
		"summary_failed", summaryErr != nil,
		"rule_checks", len(result.RuleChecks),
		"chunk_summaries", len(result.ChunkSummaries),
	)
	return result, nil
}

func (a *Agent) notify(runID, step, msg string) {
	if a.progress == nil {
		return
	}
	select {
	case a.progress <- Progress{RunID: runID, Step: step, Msg: msg}:
	default:
	}
}
