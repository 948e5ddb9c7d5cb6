// Package matcher decides whether a target plate is among noisy OCR candidates.
package matcher

import (
	"fmt"
	"math"
	"strings"

	"platewatch/internal/model"

	"github.com/pmezard/go-difflib/difflib"
)

// DefaultThreshold is the similarity a candidate needs to count as the target.
const DefaultThreshold = 0.70

// Result is the outcome of matching one set of candidates.
type Result struct {
	Kind       model.DecisionKind
	Plate      string  // the qualifying candidate, as the recognizer returned it
	Similarity float64 // similarity of Plate to the target
}

// Matcher compares candidates against one immutable target pattern.
type Matcher struct {
	target    string
	threshold float64
	normalize bool
}

type Option func(*Matcher)

// WithNormalization upper-cases and trims both target and candidates before
// scoring. Without it plates are compared exactly as given.
func WithNormalization() Option {
	return func(m *Matcher) { m.normalize = true }
}

func New(target string, threshold float64, opts ...Option) (*Matcher, error) {
	if strings.TrimSpace(target) == "" {
		return nil, fmt.Errorf("target plate must not be empty")
	}
	if math.IsNaN(threshold) || threshold <= 0 || threshold > 1 {
		return nil, fmt.Errorf("threshold must be in (0, 1], got %v", threshold)
	}
	m := &Matcher{target: target, threshold: threshold}
	for _, opt := range opts {
		opt(m)
	}
	m.target = m.prepare(target)
	return m, nil
}

func (m *Matcher) Target() string {
	return m.target
}

func (m *Matcher) Threshold() float64 {
	return m.threshold
}

// Match returns the first candidate, in input order, whose similarity to the
// target reaches the threshold. A better candidate later in the list does not
// replace an earlier qualifying one.
func (m *Matcher) Match(candidates []string) Result {
	if len(candidates) == 0 {
		return Result{Kind: model.NoCandidates}
	}

	for _, candidate := range candidates {
		similarity := Similarity(m.prepare(candidate), m.target)
		if similarity >= m.threshold {
			return Result{Kind: model.Matched, Plate: candidate, Similarity: similarity}
		}
	}
	return Result{Kind: model.NoMatch}
}

// Similarity is the sequence-matcher ratio 2*M/(len(a)+len(b)), where M is the
// number of characters in matching blocks, rounded to two decimals.
// Two empty strings are identical.
func Similarity(a, b string) float64 {
	if a == "" && b == "" {
		return 1
	}
	sm := difflib.NewMatcher(splitChars(a), splitChars(b))
	return math.Round(sm.Ratio()*100) / 100
}

func splitChars(s string) []string {
	chars := make([]string, 0, len(s))
	for _, r := range s {
		chars = append(chars, string(r))
	}
	return chars
}

func (m *Matcher) prepare(plate string) string {
	if !m.normalize {
		return plate
	}
	return strings.ToUpper(strings.TrimSpace(plate))
}
