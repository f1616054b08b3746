package rag

import "strings"

// Label is the closed set of verification outcomes.
type Label string

const (
	LabelUnverified      Label = "unverified"
	LabelVerified        Label = "verified"
	LabelPersonalOpinion Label = "personal_opinion"
	LabelMisinformation  Label = "misinformation"
	LabelFactualError    Label = "factual_error"
	LabelOther           Label = "other"
)

var allLabels = []Label{
	LabelUnverified,
	LabelVerified,
	LabelPersonalOpinion,
	LabelMisinformation,
	LabelFactualError,
	LabelOther,
}

// Labels returns every label in declaration order.
func Labels() []Label {
	out := make([]Label, len(allLabels))
	copy(out, allLabels)
	return out
}

// ParseLabel maps free text onto the label set. Matching is case-insensitive
// after trimming; anything unrecognized becomes LabelOther.
func ParseLabel(s string) Label {
	normalized := strings.ToLower(strings.TrimSpace(s))
	for _, l := range allLabels {
		if string(l) == normalized {
			return l
		}
	}
	return LabelOther
}

// IsValid reports whether l is one of the enumerated labels.
func (l Label) IsValid() bool {
	for _, known := range allLabels {
		if l == known {
			return true
		}
	}
	return false
}

func (l Label) String() string { return string(l) }

func labelList() string {
	names := make([]string, len(allLabels))
	for i, l := range allLabels {
		names[i] = string(l)
	}
	return strings.Join(names, ", ")
}
