package rules

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/cizz1/legal-agent/internal/llm"
)

// Rule is one fixed compliance criterion.
type Rule struct {
	Name      string
	Criterion string
}

// All is the fixed rule set. Order is part of the contract: CheckAll
// returns results in exactly this order.
var All = [6]Rule{
	{Name: "Key Terms Definition", Criterion: "The Act must define key terms."},
	{Name: "Eligibility Criteria", Criterion: "The Act must specify eligibility criteria."},
	{Name: "Authority Responsibilities", Criterion: "The Act must specify what the authority (government) must do."},
	{Name: "Enforcement Methods", Criterion: "The Act must list penalties or enforcement methods."},
	{Name: "Payment Calculations", Criterion: "The Act must explain how to calculate payments."},
	{Name: "Record-keeping Requirements", Criterion: "The Act must require records or reporting."},
}

// Result statuses.
const (
	StatusPass = "pass"
	StatusFail = "fail"
)

const schemaJSON = `{
	"type": "object",
	"properties": {
		"status":     {"type": "string", "enum": ["pass", "fail"]},
		"evidence":   {"type": "string"},
		"confidence": {"type": "number", "minimum": 0, "maximum": 100}
	},
	"required": ["status", "evidence", "confidence"]
}`

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("rule_result.json", bytes.NewReader([]byte(schemaJSON))); err != nil {
			schemaErr = err
			return
		}
		schema, schemaErr = compiler.Compile("rule_result.json")
	})
	return schema, schemaErr
}

// Result is the outcome of evaluating one rule. Confidence is always in
// [0,100].
type Result struct {
	Rule       string `json:"rule"`
	Status     string `json:"status"`
	Evidence   string `json:"evidence"`
	Confidence int    `json:"confidence"`
}

// Checker evaluates the fixed compliance rules, one generation call per
// rule, so a single rule's failure never taints the other five.
type Checker struct {
	gen         llm.Generator
	temperature float32
	log         *slog.Logger
}

func New(gen llm.Generator, temperature float32, logger *slog.Logger) *Checker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Checker{gen: gen, temperature: temperature, log: logger}
}

// CheckAll evaluates every rule against the cleaned text. It always
// returns exactly len(All) results in the fixed rule order; a rule whose
// call or parse fails yields a fail result with zero confidence.
func (c *Checker) CheckAll(ctx context.Context, cleanedText string) []Result {
	results := make([]Result, len(All))
	for i, rule := range All {
		results[i] = c.check(ctx, rule, cleanedText)
	}
	return results
}

func (c *Checker) check(ctx context.Context, rule Rule, text string) Result {
	resp, err := c.gen.Generate(ctx, c.buildPrompt(rule, text), c.temperature)
	if err != nil {
		c.log.Warn("rules.check.failed", "rule", rule.Name, "error", err)
		return failResult(rule)
	}
	return c.parse(rule, resp)
}

// parse validates the model's answer against the rule-result schema and
// normalizes it into a well-formed Result: unknown status strings become
// fail, confidence is clamped to [0,100], and a missing or non-numeric
// confidence forces fail with 0.
func (c *Checker) parse(rule Rule, resp string) Result {
	body := llm.ExtractJSON(resp)

	var v any
	if err := json.Unmarshal([]byte(body), &v); err != nil {
		c.log.Warn("rules.parse.invalid_json", "rule", rule.Name, "error", err)
		return failResult(rule)
	}
	if s, err := compiledSchema(); err == nil {
		if err := s.Validate(v); err != nil {
			c.log.Warn("rules.parse.schema_violation", "rule", rule.Name, "error", err)
		}
	}

	var raw struct {
		Status     string          `json:"status"`
		Evidence   string          `json:"evidence"`
		Confidence json.RawMessage `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		c.log.Warn("rules.parse.malformed_shape", "rule", rule.Name, "error", err)
		return failResult(rule)
	}

	result := Result{
		Rule:     rule.Name,
		Evidence: raw.Evidence,
	}

	switch strings.ToLower(strings.TrimSpace(raw.Status)) {
	case StatusPass:
		result.Status = StatusPass
	default:
		result.Status = StatusFail
	}

	var conf float64
	if err := json.Unmarshal(raw.Confidence, &conf); err != nil {
		c.log.Warn("rules.parse.bad_confidence", "rule", rule.Name, "raw", string(raw.Confidence))
		result.Status = StatusFail
		result.Confidence = 0
		return result
	}
	result.Confidence = clamp(int(conf), 0, 100)
	return result
}

func (c *Checker) buildPrompt(rule Rule, text string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Check the following legal document/Act text against this rule: %s\n\n", rule.Criterion)
	sb.WriteString("Determine whether the document passes or fails the rule, quote the specific text snippet that proves it, and give a confidence score from 0 to 100.\n\n")
	sb.WriteString("Return JSON exactly in this format:\n")
	sb.WriteString(`{"status": "pass", "evidence": "Section 2 - Definitions: ...", "confidence": 95}`)
	sb.WriteString("\n\nAct text:\n")
	sb.WriteString(text)
	return sb.String()
}

func failResult(rule Rule) Result {
	return Result{
		Rule:       rule.Name,
		Status:     StatusFail,
		Evidence:   "Could not process",
		Confidence: 0,
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
