package summarize

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/cizz1/legal-agent/internal/cache"
	"github.com/cizz1/legal-agent/internal/llm"
	"github.com/cizz1/legal-agent/internal/textproc"
)

// ChunkSummary is the per-chunk tier result, ordered by chunk index.
type ChunkSummary struct {
	ChunkIndex int
	Hash       string
	Bullets    []string
	Status     string
}

// Summarizer runs two-tier hierarchical summarization: independent
// per-chunk summaries first, then one combine call over the joined
// bullets. The per-chunk tier consults the content-addressed cache, so a
// hash seen before never reaches the generation service again.
type Summarizer struct {
	gen     llm.Generator
	store   cache.Store
	prompts PromptBuilder
	log     *slog.Logger

	temperature  float32
	workers      int
	chunkMaxSize int
	// combineMaxInput bounds the joined bullet text handed to the combine
	// call; anything larger is re-chunked and summarized one level up.
	combineMaxInput int
}

// Option configures a Summarizer.
type Option func(*Summarizer)

func WithWorkers(n int) Option {
	return func(s *Summarizer) {
		if n > 0 {
			s.workers = n
		}
	}
}

func WithTemperature(t float32) Option {
	return func(s *Summarizer) { s.temperature = t }
}

func WithChunkMaxSize(n int) Option {
	return func(s *Summarizer) {
		if n > 0 {
			s.chunkMaxSize = n
		}
	}
}

func WithCombineMaxInput(n int) Option {
	return func(s *Summarizer) {
		if n > 0 {
			s.combineMaxInput = n
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Summarizer) {
		if l != nil {
			s.log = l
		}
	}
}

func New(gen llm.Generator, store cache.Store, opts ...Option) *Summarizer {
	s := &Summarizer{
		gen:             gen,
		store:           store,
		log:             slog.Default(),
		temperature:     0.3,
		workers:         4,
		chunkMaxSize:    textproc.DefaultMaxChunkSize,
		combineMaxInput: 4 * textproc.DefaultMaxChunkSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Summarize runs both tiers and returns the final summary together with
// the per-chunk results. A combine-tier failure is returned as an error;
// per-chunk failures are recorded in the returned summaries and never
// abort the run.
func (s *Summarizer) Summarize(ctx context.Context, chunks []textproc.Chunk) (string, []ChunkSummary, error) {
	summaries := s.SummarizeChunks(ctx, chunks)
	final, err := s.Combine(ctx, summaries)
	return final, summaries, err
}

// SummarizeChunks resolves the per-chunk tier for every chunk under a
// bounded worker pool. Results are returned in chunk-index order
// regardless of completion order.
func (s *Summarizer) SummarizeChunks(ctx context.Context, chunks []textproc.Chunk) []ChunkSummary {
	results := make([]ChunkSummary, len(chunks))

	jobs := make(chan textproc.Chunk)
	var wg sync.WaitGroup
	for w := 0; w < s.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for c := range jobs {
				results[c.Index] = s.summarizeChunk(ctx, c)
			}
		}()
	}
	for _, c := range chunks {
		jobs <- c
	}
	close(jobs)
	wg.Wait()

	return results
}

// summarizeChunk resolves one chunk: cache hit short-circuits the
// generation service entirely; a miss generates, parses, and writes the
// entry through to the store.
func (s *Summarizer) summarizeChunk(ctx context.Context, c textproc.Chunk) ChunkSummary {
	if entry, ok, err := s.store.Get(ctx, c.Hash); err == nil && ok {
		s.log.Debug("summarize.chunk.cache_hit", "chunk", c.Index, "hash", c.Hash)
		return ChunkSummary{ChunkIndex: c.Index, Hash: c.Hash, Bullets: entry.Bullets, Status: entry.Status}
	} else if err != nil {
		s.log.Warn("summarize.chunk.cache_error", "chunk", c.Index, "error", err)
	}

	entry := cache.Entry{Status: cache.StatusOK}
	resp, err := s.gen.Generate(ctx, s.prompts.BuildChunkPrompt(c.Text), s.temperature)
	if err != nil {
		s.log.Warn("summarize.chunk.failed", "chunk", c.Index, "hash", c.Hash, "error", err)
		entry = cache.Entry{Status: cache.StatusFailed}
	} else {
		entry.Bullets = ParseBullets(resp)
		if len(entry.Bullets) == 0 {
			s.log.Warn("summarize.chunk.no_bullets", "chunk", c.Index, "hash", c.Hash)
			entry = cache.Entry{Status: cache.StatusFailed}
		}
	}

	if err := s.store.Put(ctx, c.Hash, entry); err != nil {
		s.log.Warn("summarize.chunk.cache_put_failed", "chunk", c.Index, "error", err)
	}
	return ChunkSummary{ChunkIndex: c.Index, Hash: c.Hash, Bullets: entry.Bullets, Status: entry.Status}
}

// Combine joins the ok bullets in chunk-index order and asks the service
// for the document-level summary. Joined text over the input bound is
// re-chunked and summarized through the same cache-aware tier before the
// final call.
func (s *Summarizer) Combine(ctx context.Context, summaries []ChunkSummary) (string, error) {
	return s.combine(ctx, joinBullets(summaries), 0)
}

const maxCombineDepth = 3

func (s *Summarizer) combine(ctx context.Context, bullets string, depth int) (string, error) {
	if bullets == "" {
		return "", fmt.Errorf("no chunk summaries available to combine")
	}
	if len(bullets) > s.combineMaxInput && depth < maxCombineDepth {
		s.log.Info("summarize.combine.rechunk", "input_len", len(bullets), "depth", depth)
		rechunked := textproc.Split(bullets, s.chunkMaxSize)
		return s.combine(ctx, joinBullets(s.SummarizeChunks(ctx, rechunked)), depth+1)
	}
	if len(bullets) > s.combineMaxInput {
		// Model bullets may carry multibyte runes; back the cut up to a
		// rune boundary so the prompt stays valid UTF-8.
		cut := s.combineMaxInput
		for cut > 0 && !utf8.RuneStart(bullets[cut]) {
			cut--
		}
		bullets = bullets[:cut]
	}

	resp, err := s.gen.Generate(ctx, s.prompts.BuildCombinePrompt(bullets), s.temperature)
	if err != nil {
		return "", fmt.Errorf("combine summaries: %w", err)
	}
	return llm.StripFences(resp), nil
}

func joinBullets(summaries []ChunkSummary) string {
	var sb strings.Builder
	for _, cs := range summaries {
		if cs.Status != cache.StatusOK {
			continue
		}
		for _, b := range cs.Bullets {
			if sb.Len() > 0 {
				sb.WriteByte('\n')
			}
			sb.WriteString("- ")
			sb.WriteString(b)
		}
	}
	return sb.String()
}

// ParseBullets extracts bullet lines from model output. Lines without a
// list marker are kept as-is so a slightly off-format reply still yields
// usable bullets.
func ParseBullets(resp string) []string {
	var bullets []string
	for _, line := range strings.Split(llm.StripFences(resp), "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "-*• \t")
		if line == "" {
			continue
		}
		bullets = append(bullets, line)
	}
	return bullets
}
