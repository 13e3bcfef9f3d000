package service

import (
	"strings"

	"github.com/agnivade/levenshtein"
)

// Normalize canonicalizes a free-text subject or QP-code token: trimmed and
// upper-cased, empty string for missing input. Its output is the exact-match
// join key used across the pipeline.
func Normalize(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// SplitSubjects splits a raw comma-separated subject list, normalizing each
// token and dropping empties.
func SplitSubjects(raw string) []string {
	parts := strings.Split(raw, ",")
	subjects := make([]string, 0, len(parts))
	for _, part := range parts {
		if token := Normalize(part); token != "" {
			subjects = append(subjects, token)
		}
	}
	return subjects
}

// SubjectMatcher resolves a candidate subject token against the known
// mapping subjects. Implementations must be deterministic.
type SubjectMatcher interface {
	Match(candidate string, known []string) (string, bool)
}

// ExactMatcher matches on normalized string equality only. This is the
// canonical strategy.
type ExactMatcher struct{}

// Match returns the first known subject equal to the normalized candidate.
func (ExactMatcher) Match(candidate string, known []string) (string, bool) {
	normalized := Normalize(candidate)
	if normalized == "" {
		return "", false
	}
	for _, subject := range known {
		if subject == normalized {
			return subject, true
		}
	}
	return "", false
}

// FuzzyMatcher tries an exact match first and falls back to the single best
// candidate whose similarity ratio meets the threshold. Used for subjects
// derived from PDF text, where punctuation and spacing drift.
type FuzzyMatcher struct {
	threshold float64
}

// NewFuzzyMatcher builds a FuzzyMatcher, defaulting the threshold to 0.7.
func NewFuzzyMatcher(threshold float64) FuzzyMatcher {
	if threshold <= 0 || threshold > 1 {
		threshold = 0.7
	}
	return FuzzyMatcher{threshold: threshold}
}

// Match resolves candidate against known subjects, preferring exact equality.
func (m FuzzyMatcher) Match(candidate string, known []string) (string, bool) {
	if subject, ok := (ExactMatcher{}).Match(candidate, known); ok {
		return subject, true
	}

	normalized := Normalize(candidate)
	if normalized == "" {
		return "", false
	}

	best := ""
	bestRatio := 0.0
	for _, subject := range known {
		ratio := similarityRatio(normalized, subject)
		if ratio > bestRatio {
			bestRatio = ratio
			best = subject
		}
	}
	if bestRatio >= m.threshold {
		return best, true
	}
	return "", false
}

func similarityRatio(a, b string) float64 {
	if a == b {
		return 1
	}
	longest := len([]rune(a))
	if l := len([]rune(b)); l > longest {
		longest = l
	}
	if longest == 0 {
		return 0
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/float64(longest)
}
