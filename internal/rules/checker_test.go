package rules

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ruleKeyedGenerator answers per-rule prompts from a map keyed by the
// rule criterion; rules without an entry get err.
type ruleKeyedGenerator struct {
	responses map[string]string
	err       error
	calls     int
}

func (g *ruleKeyedGenerator) Generate(ctx context.Context, prompt string, temperature float32) (string, error) {
	g.calls++
	for criterion, resp := range g.responses {
		if strings.Contains(prompt, criterion) {
			return resp, nil
		}
	}
	if g.err != nil {
		return "", g.err
	}
	return `{"status": "pass", "evidence": "Section 1", "confidence": 80}`, nil
}

func TestCheckAll_FixedCardinalityAndOrder(t *testing.T) {
	gen := &ruleKeyedGenerator{}
	results := New(gen, 0.3, nil).CheckAll(context.Background(), "act text")

	require.Len(t, results, 6)
	for i, r := range results {
		assert.Equal(t, All[i].Name, r.Rule)
		assert.GreaterOrEqual(t, r.Confidence, 0)
		assert.LessOrEqual(t, r.Confidence, 100)
	}
	assert.Equal(t, 6, gen.calls, "one generation call per rule")
}

func TestCheckAll_SingleRuleFailureDoesNotBlockOthers(t *testing.T) {
	gen := &ruleKeyedGenerator{
		responses: map[string]string{
			All[0].Criterion: `{"status": "pass", "evidence": "Section 2 - Definitions", "confidence": 95}`,
			All[1].Criterion: "no json at all",
			All[2].Criterion: `{"status": "pass", "evidence": "Section 5", "confidence": 88}`,
			All[3].Criterion: `{"status": "fail", "evidence": "", "confidence": 70}`,
			All[4].Criterion: `{"status": "pass", "evidence": "Section 9", "confidence": 91}`,
			All[5].Criterion: `{"status": "pass", "evidence": "Section 12", "confidence": 85}`,
		},
	}
	results := New(gen, 0.3, nil).CheckAll(context.Background(), "act text")

	require.Len(t, results, 6)
	assert.Equal(t, StatusPass, results[0].Status)
	assert.Equal(t, StatusFail, results[1].Status)
	assert.Equal(t, "Could not process", results[1].Evidence)
	assert.Equal(t, 0, results[1].Confidence)
	assert.Equal(t, StatusPass, results[2].Status)
	assert.Equal(t, StatusFail, results[3].Status)
	assert.Equal(t, 70, results[3].Confidence)
}

func TestCheckAll_ServiceFailureYieldsFailResults(t *testing.T) {
	gen := &ruleKeyedGenerator{err: errors.New("timeout")}
	results := New(gen, 0.3, nil).CheckAll(context.Background(), "act text")

	require.Len(t, results, 6)
	for _, r := range results {
		assert.Equal(t, StatusFail, r.Status)
		assert.Equal(t, 0, r.Confidence)
	}
}

func TestParse_ConfidenceNormalization(t *testing.T) {
	c := New(&ruleKeyedGenerator{}, 0.3, nil)
	rule := All[0]

	cases := []struct {
		name       string
		resp       string
		status     string
		confidence int
	}{
		{"clamped above", `{"status": "pass", "evidence": "e", "confidence": 250}`, StatusPass, 100},
		{"clamped below", `{"status": "pass", "evidence": "e", "confidence": -5}`, StatusPass, 0},
		{"float coerced", `{"status": "pass", "evidence": "e", "confidence": 87.6}`, StatusPass, 87},
		{"non-numeric forces fail", `{"status": "pass", "evidence": "e", "confidence": "high"}`, StatusFail, 0},
		{"missing forces fail", `{"status": "pass", "evidence": "e"}`, StatusFail, 0},
		{"unknown status is fail", `{"status": "maybe", "evidence": "e", "confidence": 50}`, StatusFail, 50},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := c.parse(rule, tc.resp)
			assert.Equal(t, tc.status, got.Status)
			assert.Equal(t, tc.confidence, got.Confidence)
			assert.Equal(t, rule.Name, got.Rule)
		})
	}
}

func TestParse_SchemaViolatingShapes(t *testing.T) {
	c := New(&ruleKeyedGenerator{}, 0.3, nil)
	rule := All[1]

	// Wrong types everywhere: validation flags it and the salvage path
	// still yields a well-formed fail result.
	got := c.parse(rule, `{"status": 5, "evidence": [], "confidence": {}}`)
	assert.Equal(t, StatusFail, got.Status)
	assert.Equal(t, 0, got.Confidence)
	assert.Equal(t, rule.Name, got.Rule)

	// Out-of-range confidence violates the schema but is salvaged by
	// clamping rather than discarded.
	got = c.parse(rule, `{"status": "pass", "evidence": "Section 4", "confidence": 250}`)
	assert.Equal(t, StatusPass, got.Status)
	assert.Equal(t, "Section 4", got.Evidence)
	assert.Equal(t, 100, got.Confidence)
}

func TestRuleResultSchemaCompiles(t *testing.T) {
	s, err := compiledSchema()
	require.NoError(t, err)
	require.NotNil(t, s)

	var valid any
	require.NoError(t, json.Unmarshal([]byte(`{"status": "pass", "evidence": "e", "confidence": 90}`), &valid))
	assert.NoError(t, s.Validate(valid))

	var invalid any
	require.NoError(t, json.Unmarshal([]byte(`{"status": "maybe", "evidence": "e", "confidence": 90}`), &invalid))
	assert.Error(t, s.Validate(invalid))
}

func TestParse_FencedResponse(t *testing.T) {
	c := New(&ruleKeyedGenerator{}, 0.3, nil)
	got := c.parse(All[2], "```json\n{\"status\": \"pass\", \"evidence\": \"Section 4\", \"confidence\": 90}\n```")
	assert.Equal(t, StatusPass, got.Status)
	assert.Equal(t, "Section 4", got.Evidence)
	assert.Equal(t, 90, got.Confidence)
}
