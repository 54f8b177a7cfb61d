package report

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/cizz1/legal-agent/internal/cache"
	"github.com/cizz1/legal-agent/internal/rules"
	"github.com/cizz1/legal-agent/internal/sections"
	"github.com/cizz1/legal-agent/internal/summarize"
)

// AnalysisResult is the canonical report: one summary, the seven fixed
// sections, the six rule checks in rule order, and the per-chunk
// summaries in index order. Immutable once assembled.
type AnalysisResult struct {
	Summary        string            `json:"summary"`
	Sections       map[string]string `json:"sections"`
	RuleChecks     []rules.Result    `json:"rule_checks"`
	ChunkSummaries []string          `json:"chunk_summaries"`
}

// Assemble merges the three track outputs into one result. It is a pure
// merge: no generation calls, no mutation of its inputs. Structural
// invariants are enforced here so the caller always receives all seven
// section keys and one chunk summary string per chunk.
func Assemble(summary string, sectionSet map[string]string, ruleChecks []rules.Result, chunkSummaries []summarize.ChunkSummary) *AnalysisResult {
	secs := make(map[string]string, len(sections.Keys))
	for _, key := range sections.Keys {
		if v, ok := sectionSet[key]; ok {
			secs[key] = v
		} else {
			secs[key] = sections.Placeholder
		}
	}

	checks := make([]rules.Result, len(ruleChecks))
	copy(checks, ruleChecks)

	flat := make([]string, len(chunkSummaries))
	for i, cs := range chunkSummaries {
		flat[i] = formatChunkSummary(cs)
	}

	return &AnalysisResult{
		Summary:        summary,
		Sections:       secs,
		RuleChecks:     checks,
		ChunkSummaries: flat,
	}
}

// formatChunkSummary renders one chunk's bullets as a single string. A
// failed chunk yields the empty string, keeping the slice index-aligned
// with the chunk sequence.
func formatChunkSummary(cs summarize.ChunkSummary) string {
	if cs.Status != cache.StatusOK {
		return ""
	}
	var sb strings.Builder
	for i, b := range cs.Bullets {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString("- ")
		sb.WriteString(b)
	}
	return sb.String()
}

// Export writes the result as indented JSON. Go's encoder emits map keys
// sorted, so the section object is byte-stable across runs.
func Export(path string, result *AnalysisResult) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ExportChunkSummaries writes just the per-chunk summaries, matching the
// standalone chunk-summaries artifact of earlier pipeline versions.
func ExportChunkSummaries(path string, summaries []string) error {
	data, err := json.MarshalIndent(map[string][]string{"chunk_summaries": summaries}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
