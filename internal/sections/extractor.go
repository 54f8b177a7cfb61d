package sections

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

// Placeholder is the value substituted for any section the model failed
// to produce. Callers always receive all seven keys.
const Placeholder = "Not specified"

// Keys is the fixed section schema, in canonical order.
var Keys = []string{
	"definitions",
	"obligations",
	"responsibilities",
	"eligibility",
	"payments",
	"penalties",
	"record_keeping",
}

const schemaJSON = `{
	"type": "object",
	"properties": {
		"definitions":      {"type": "string"},
		"obligations":      {"type": "string"},
		"responsibilities": {"type": "string"},
		"eligibility":      {"type": "string"},
		"payments":         {"type": "string"},
		"penalties":        {"type": "string"},
		"record_keeping":   {"type": "string"}
	},
	"required": ["definitions", "obligations", "responsibilities", "eligibility", "payments", "penalties", "record_keeping"]
}`

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("sections.json", bytes.NewReader([]byte(schemaJSON))); err != nil {
			schemaErr = err
			return
		}
		schema, schemaErr = compiler.Compile("sections.json")
	})
	return schema, schemaErr
}

// Extractor pulls the seven fixed sections out of the cleaned document
// text with one schema-constrained prompt.
type Extractor struct {
	gen         llm.Generator
	temperature float32
	log         *slog.Logger
}

func New(gen llm.Generator, temperature float32, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{gen: gen, temperature: temperature, log: logger}
}

// Extract never fails structurally: any generation or schema problem
// degrades the affected keys to the placeholder, and the returned map
// always holds exactly the seven fixed keys.
func (e *Extractor) Extract(ctx context.Context, cleanedText string) map[string]string {
	resp, err := e.gen.Generate(ctx, e.buildPrompt(cleanedText), e.temperature)
	if err != nil {
		e.log.Warn("sections.extract.failed", "error", err)
		return defaults()
	}
	return e.parse(resp)
}

// parse validates the response against the section schema and falls back
// to key-by-key salvage when validation fails.
func (e *Extractor) parse(resp string) map[string]string {
	raw := llm.ExtractJSON(resp)

	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		e.log.Warn("sections.parse.invalid_json", "error", err)
		return defaults()
	}

	if s, err := compiledSchema(); err == nil {
		if err := s.Validate(v); err != nil {
			e.log.Warn("sections.parse.schema_violation", "error", err)
		}
	}

	obj, ok := v.(map[string]any)
	if !ok {
		e.log.Warn("sections.parse.not_an_object")
		return defaults()
	}

	out := defaults()
	for _, key := range Keys {
		if s, ok := obj[key].(string); ok && strings.TrimSpace(s) != "" {
			out[key] = s
		}
	}
	return out
}

func (e *Extractor) buildPrompt(text string) string {
	var sb strings.Builder
	sb.WriteString("Extract the following sections from the legal document/Act text below:\n\n")
	for _, key := range Keys {
		fmt.Fprintf(&sb, "- %s\n", key)
	}
	sb.WriteString("\nReturn JSON exactly in this format, with every key present:\n{\n")
	for i, key := range Keys {
		fmt.Fprintf(&sb, "  %q: \"...\"", key)
		if i < len(Keys)-1 {
			sb.WriteString(",")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("}\n\nAct text:\n")
	sb.WriteString(text)
	return sb.String()
}

func defaults() map[string]string {
	out := make(map[string]string, len(Keys))
	for _, key := range Keys {
		out[key] = Placeholder
	}
	return out
}
