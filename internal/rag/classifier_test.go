package rag

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hive/internal/generation"
)

func TestParseLabel(t *testing.T) {
	tests := []struct {
		in   string
		want Label
	}{
		{"verified", LabelVerified},
		{"VERIFIED", LabelVerified},
		{"  Personal_Opinion ", LabelPersonalOpinion},
		{"factual_error", LabelFactualError},
		{"misinformation", LabelMisinformation},
		{"unverified", LabelUnverified},
		{"other", LabelOther},
		{"true", LabelOther},
		{"personal opinion", LabelOther},
		{"", LabelOther},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := ParseLabel(tt.in)
			assert.Equal(t, tt.want, got)
			assert.True(t, got.IsValid())
		})
	}

	assert.False(t, Label("maybe").IsValid())
	labels := Labels()
	require.Len(t, labels, 6)
	labels[0] = "mutated"
	assert.Equal(t, LabelUnverified, Labels()[0], "Labels returns a copy")
}

func TestParseVerdict(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Verdict
	}{
		{
			name: "plain json",
			raw:  `{"label": "verified", "confidence": 0.92, "rationale": "Context states it directly."}`,
			want: Verdict{Label: LabelVerified, Confidence: 0.92, Rationale: "Context states it directly."},
		},
		{
			name: "label case insensitive",
			raw:  `{"label": "Factual_Error", "confidence": 0.4, "rationale": "r"}`,
			want: Verdict{Label: LabelFactualError, Confidence: 0.4, Rationale: "r"},
		},
		{
			name: "confidence above range",
			raw:  `{"label": "verified", "confidence": 1.7, "rationale": "r"}`,
			want: Verdict{Label: LabelVerified, Confidence: 1.0, Rationale: "r"},
		},
		{
			name: "confidence below range",
			raw:  `{"label": "misinformation", "confidence": -0.3, "rationale": "r"}`,
			want: Verdict{Label: LabelMisinformation, Confidence: 0.0, Rationale: "r"},
		},
		{
			name: "confidence as numeric string",
			raw:  `{"label": "verified", "confidence": "0.8", "rationale": "r"}`,
			want: Verdict{Label: LabelVerified, Confidence: 0.8, Rationale: "r"},
		},
		{
			name: "confidence missing",
			raw:  `{"label": "verified", "rationale": "r"}`,
			want: Verdict{Label: LabelVerified, Confidence: 0.5, Rationale: "r"},
		},
		{
			name: "confidence non numeric",
			raw:  `{"label": "verified", "confidence": "high", "rationale": "r"}`,
			want: Verdict{Label: LabelVerified, Confidence: 0.5, Rationale: "r"},
		},
		{
			name: "unknown label",
			raw:  `{"label": "probably true", "confidence": 0.6, "rationale": "r"}`,
			want: Verdict{Label: LabelOther, Confidence: 0.6, Rationale: "r"},
		},
		{
			name: "non string label",
			raw:  `{"label": 3, "confidence": 0.6, "rationale": "r"}`,
			want: Verdict{Label: LabelOther, Confidence: 0.6, Rationale: "r"},
		},
		{
			name: "rationale missing uses raw",
			raw:  `{"label": "verified", "confidence": 0.9}`,
			want: Verdict{Label: LabelVerified, Confidence: 0.9, Rationale: `{"label": "verified", "confidence": 0.9}`},
		},
		{
			name: "fenced block",
			raw:  "Here is my verdict:\n```json\n{\"label\": \"verified\", \"confidence\": 0.7, \"rationale\": \"ok\"}\n```",
			want: Verdict{Label: LabelVerified, Confidence: 0.7, Rationale: "ok"},
		},
		{
			name: "object embedded in prose",
			raw:  `Verdict: {"label": "personal_opinion", "confidence": 0.3, "rationale": "uses {braces} inside"} thanks`,
			want: Verdict{Label: LabelPersonalOpinion, Confidence: 0.3, Rationale: "uses {braces} inside"},
		},
		{
			name: "plain prose falls back",
			raw:  "The claim appears to be accurate based on the context.",
			want: Verdict{Label: LabelOther, Confidence: 0.5, Rationale: "The claim appears to be accurate based on the context."},
		},
		{
			name: "json array falls back",
			raw:  `["verified", 0.9]`,
			want: Verdict{Label: LabelOther, Confidence: 0.5, Rationale: `["verified", 0.9]`},
		},
		{
			name: "truncated json falls back",
			raw:  `{"label": "verified", "confidence": 0.9`,
			want: Verdict{Label: LabelOther, Confidence: 0.5, Rationale: `{"label": "verified", "confidence": 0.9`},
		},
		{
			name: "empty completion falls back",
			raw:  "",
			want: Verdict{Label: LabelOther, Confidence: 0.5, Rationale: ""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseVerdict(tt.raw)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParseVerdict() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestClassifier_Classify(t *testing.T) {
	t.Run("prose completion yields fallback verdict", func(t *testing.T) {
		prose := "I think this is probably true."
		gen := scriptedGenerator("", prose)
		v, err := NewClassifier(gen).Classify(context.Background(), "claim", "answer", nil)
		require.NoError(t, err)
		assert.Equal(t, Verdict{Label: LabelOther, Confidence: 0.5, Rationale: prose}, v)
	})

	t.Run("clamps confidence", func(t *testing.T) {
		gen := scriptedGenerator("", `{"label":"verified","confidence":1.7,"rationale":"x"}`)
		v, err := NewClassifier(gen).Classify(context.Background(), "claim", "answer", nil)
		require.NoError(t, err)
		assert.Equal(t, 1.0, v.Confidence)

		gen = scriptedGenerator("", `{"label":"verified","confidence":-0.3,"rationale":"x"}`)
		v, err = NewClassifier(gen).Classify(context.Background(), "claim", "answer", nil)
		require.NoError(t, err)
		assert.Equal(t, 0.0, v.Confidence)
	})

	t.Run("falls back to first candidate part", func(t *testing.T) {
		gen := &mockGenerator{GenerateFunc: func(context.Context, string) (*generation.Response, error) {
			return &generation.Response{Candidates: []generation.Candidate{{
				Parts: []generation.Part{{Text: ` {"label":"misinformation","confidence":0.8,"rationale":"contradicted"} `}},
			}}}, nil
		}}
		v, err := NewClassifier(gen).Classify(context.Background(), "claim", "answer", nil)
		require.NoError(t, err)
		assert.Equal(t, LabelMisinformation, v.Label)
	})

	t.Run("nil response yields fallback", func(t *testing.T) {
		gen := &mockGenerator{GenerateFunc: func(context.Context, string) (*generation.Response, error) {
			return nil, nil
		}}
		v, err := NewClassifier(gen).Classify(context.Background(), "claim", "answer", nil)
		require.NoError(t, err)
		assert.Equal(t, Verdict{Label: LabelOther, Confidence: 0.5}, v)
	})

	t.Run("generator failure is a GenerationError", func(t *testing.T) {
		cause := errors.New("403 permission denied")
		gen := &mockGenerator{GenerateFunc: func(context.Context, string) (*generation.Response, error) {
			return nil, cause
		}}
		_, err := NewClassifier(gen).Classify(context.Background(), "claim", "answer", nil)
		var genErr *GenerationError
		require.ErrorAs(t, err, &genErr)
		assert.Equal(t, "classify", genErr.Purpose)
		assert.ErrorIs(t, err, cause)
	})

	t.Run("prompt lists labels and inputs", func(t *testing.T) {
		gen := scriptedGenerator("", "{}")
		_, err := NewClassifier(gen).Classify(context.Background(), "Delhi is a union territory", "Yes it is.", []string{"c1", "c2"})
		require.NoError(t, err)
		require.Len(t, gen.prompts, 1)
		p := gen.prompts[0]
		assert.Contains(t, p, "Choose one of: unverified, verified, personal_opinion, misinformation, factual_error, other.")
		assert.Contains(t, p, "Return a JSON object with keys: label, confidence (0-1), rationale.")
		assert.Contains(t, p, "Claim: Delhi is a union territory\n")
		assert.Contains(t, p, "Answer: Yes it is.\n")
		assert.Contains(t, p, "Context: c1\n\nc2")
	})
}
