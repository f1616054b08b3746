package rag

import (
	"context"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"hive/internal/generation"
	"hive/internal/logging"
)

// DefaultConfidence is used when the generator gives no usable confidence.
const DefaultConfidence = 0.5

// Classifier asks the generator for a structured verdict on a claim.
type Classifier struct {
	generator generation.Generator
}

// NewClassifier creates a classifier backed by g.
func NewClassifier(g generation.Generator) *Classifier {
	return &Classifier{generator: g}
}

// Classify returns a verdict for claim given the generated answer and the
// retrieved evidence. Unparseable completions yield the fallback verdict;
// only a generator call failure is an error.
func (c *Classifier) Classify(ctx context.Context, claim, answer string, evidence []string) (Verdict, error) {
	v, _, err := c.classify(ctx, claim, answer, evidence)
	return v, err
}

// classify also reports whether the fallback verdict was used.
func (c *Classifier) classify(ctx context.Context, claim, answer string, evidence []string) (Verdict, bool, error) {
	resp, err := c.generator.Generate(ctx, buildClassifyPrompt(claim, answer, evidence))
	if err != nil {
		return Verdict{}, false, &GenerationError{Purpose: "classify", Err: err}
	}
	raw := strings.TrimSpace(generation.ExtractText(resp))

	v, ok := parseVerdict(raw)
	if !ok {
		logging.RAGDebug("Classify: unparseable completion (%d chars), using fallback verdict", len(raw))
	}
	return v, !ok, nil
}

// ParseVerdict interprets a classifier completion. It never fails: anything
// that does not contain a JSON object yields {other, 0.5, raw}.
func ParseVerdict(raw string) Verdict {
	v, _ := parseVerdict(raw)
	return v
}

// parseVerdict reports whether a JSON object was found in raw.
func parseVerdict(raw string) (Verdict, bool) {
	fallback := Verdict{Label: LabelOther, Confidence: DefaultConfidence, Rationale: raw}

	obj, ok := decodeObject(raw)
	if !ok {
		return fallback, false
	}

	v := fallback
	if s, ok := obj["label"].(string); ok {
		v.Label = ParseLabel(s)
	}
	if c, ok := toFloat(obj["confidence"]); ok {
		v.Confidence = clamp01(c)
	}
	if s, ok := obj["rationale"].(string); ok && strings.TrimSpace(s) != "" {
		v.Rationale = s
	}
	return v, true
}

// decodeObject looks for a JSON object in the whole text, then inside a
// fenced code block, then in the first balanced {...} span.
func decodeObject(raw string) (map[string]interface{}, bool) {
	candidates := []string{strings.TrimSpace(raw)}
	if block := extractFencedBlock(raw); block != "" {
		candidates = append(candidates, block)
	}
	if span := extractObjectSpan(raw); span != "" {
		candidates = append(candidates, span)
	}

	for _, c := range candidates {
		var obj map[string]interface{}
		if err := json.Unmarshal([]byte(c), &obj); err == nil && obj != nil {
			return obj, true
		}
	}
	return nil, false
}

// extractFencedBlock returns the body of the first ``` fenced block,
// dropping an optional language tag.
func extractFencedBlock(s string) string {
	start := strings.Index(s, "```")
	if start == -1 {
		return ""
	}
	rest := s[start+3:]
	end := strings.Index(rest, "```")
	if end == -1 {
		return ""
	}
	body := rest[:end]
	if nl := strings.IndexByte(body, '\n'); nl != -1 && !strings.Contains(body[:nl], "{") {
		body = body[nl+1:]
	}
	return strings.TrimSpace(body)
}

// extractObjectSpan returns the first balanced {...} span, ignoring braces
// inside JSON strings.
func extractObjectSpan(s string) string {
	start := strings.IndexByte(s, '{')
	if start == -1 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

func toFloat(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, !math.IsNaN(x)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil || math.IsNaN(f) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
