package agent

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cizz1/legal-agent/internal/cache"
	"github.com/cizz1/legal-agent/internal/rules"
	"github.com/cizz1/legal-agent/internal/sections"
)

// pipelineGenerator answers all three prompt families. It counts chunk
// prompts separately so tests can assert cache behavior across runs.
type pipelineGenerator struct {
	mu         sync.Mutex
	chunkCalls int
	totalCalls int
	failAll    bool
}

func (g *pipelineGenerator) Generate(ctx context.Context, prompt string, temperature float32) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.totalCalls++
	if g.failAll {
		return "", assert.AnError
	}
	switch {
	case strings.Contains(prompt, "Sub-summaries:"):
		return "combined document summary", nil
	case strings.Contains(prompt, "Extract the following sections"):
		return `{"definitions": "terms defined", "obligations": "must register",
			"responsibilities": "authority administers", "eligibility": "over 18",
			"payments": "monthly", "penalties": "fines", "record_keeping": "7 years"}`, nil
	case strings.Contains(prompt, "Check the following legal document"):
		return `{"status": "pass", "evidence": "Section 3", "confidence": 90}`, nil
	default:
		g.chunkCalls++
		return "- alpha\n- beta\n- gamma", nil
	}
}

func (g *pipelineGenerator) chunkCallCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.chunkCalls
}

func actText(n int) string {
	var sb strings.Builder
	for sb.Len() < n {
		sb.WriteString("the authority shall maintain records of every payment made under this act ")
	}
	return strings.TrimSpace(sb.String()[:n])
}

func TestAnalyze_EndToEnd(t *testing.T) {
	gen := &pipelineGenerator{}
	a := New(gen, cache.NewMemoryStore(), 0.3, 2)

	result, err := a.Analyze(context.Background(), Document{RawText: actText(5000)})
	require.NoError(t, err)

	assert.Equal(t, "combined document summary", result.Summary)
	assert.Len(t, result.Sections, len(sections.Keys))
	assert.Equal(t, "terms defined", result.Sections["definitions"])
	require.Len(t, result.RuleChecks, 6)
	for i, rc := range result.RuleChecks {
		assert.Equal(t, rules.All[i].Name, rc.Rule)
		assert.Equal(t, rules.StatusPass, rc.Status)
	}
	// 5,000 cleaned characters fit in a single default-size chunk.
	require.Len(t, result.ChunkSummaries, 1)
	assert.Equal(t, "- alpha\n- beta\n- gamma", result.ChunkSummaries[0])
}

func TestAnalyze_SecondRunReusesChunkCache(t *testing.T) {
	gen := &pipelineGenerator{}
	store := cache.NewMemoryStore()
	a := New(gen, store, 0.3, 2)
	ctx := context.Background()
	doc := Document{RawText: actText(13000)}

	first, err := a.Analyze(ctx, doc)
	require.NoError(t, err)
	require.Len(t, first.ChunkSummaries, 3)
	callsAfterFirst := gen.chunkCallCount()
	require.Equal(t, 3, callsAfterFirst)

	second, err := a.Analyze(ctx, doc)
	require.NoError(t, err)
	assert.Equal(t, callsAfterFirst, gen.chunkCallCount(), "second run must not re-summarize cached chunks")
	assert.Equal(t, first.ChunkSummaries, second.ChunkSummaries)
	assert.Equal(t, first.Summary, second.Summary)
}

func TestAnalyze_SummaryFailureStillAssembles(t *testing.T) {
	gen := &pipelineGenerator{failAll: true}
	a := New(gen, cache.NewMemoryStore(), 0.3, 2)

	result, err := a.Analyze(context.Background(), Document{RawText: actText(2000)})
	require.NoError(t, err)

	assert.Equal(t, FailedSummaryMarker, result.Summary)
	assert.Len(t, result.Sections, len(sections.Keys))
	for _, key := range sections.Keys {
		assert.Equal(t, sections.Placeholder, result.Sections[key])
	}
	require.Len(t, result.RuleChecks, 6)
	for _, rc := range result.RuleChecks {
		assert.Equal(t, rules.StatusFail, rc.Status)
		assert.Equal(t, 0, rc.Confidence)
	}
}

func TestAnalyze_EmptyDocumentIsFatal(t *testing.T) {
	a := New(&pipelineGenerator{}, cache.NewMemoryStore(), 0.3, 2)

	_, err := a.Analyze(context.Background(), Document{RawText: "  \n 42 \n "})
	require.Error(t, err)
}

func TestAnalyze_EmitsProgress(t *testing.T) {
	progress := make(chan Progress, 32)
	gen := &pipelineGenerator{}
	a := New(gen, cache.NewMemoryStore(), 0.3, 2, WithProgress(progress))

	_, err := a.Analyze(context.Background(), Document{RawText: actText(1000)})
	require.NoError(t, err)
	close(progress)

	steps := map[string]bool{}
	for p := range progress {
		steps[p.Step] = true
		assert.NotEmpty(t, p.RunID)
	}
	for _, step := range []string{"clean", "chunk", "assemble"} {
		assert.True(t, steps[step], "missing progress step %q", step)
	}
}
