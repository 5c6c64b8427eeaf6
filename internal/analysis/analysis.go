// Package analysis scores prompt difficulty from structural and lexical
// indicators. Each indicator is an independent named rule with a bounded
// contribution; the combination is a saturating sum clamped to [0,1], so the
// resulting score is deterministic, monotonic in each indicator, and bounded.
package analysis

import (
	"regexp"
	"sort"
	"strings"
)

// Bucket is the discretized difficulty tier derived from the score.
type Bucket string

const (
	BucketSimple   Bucket = "simple"
	BucketModerate Bucket = "moderate"
	BucketComplex  Bucket = "complex"
)

// Fixed bucket thresholds: score < 0.33 simple, < 0.66 moderate, else complex.
const (
	moderateThreshold = 0.33
	complexThreshold  = 0.66
)

// Indicator records one triggered rule and its numeric contribution.
type Indicator struct {
	Name         string  `json:"name"`
	Contribution float64 `json:"contribution"`
}

// Assessment is the analyzer output for one prompt.
type Assessment struct {
	Score      float64     `json:"score"`
	Bucket     Bucket      `json:"bucket"`
	Indicators []Indicator `json:"indicators"`
}

// rule is one scoring rule. strength returns a value in [0,1]; the rule's
// contribution is strength * weight.
type rule struct {
	name     string
	weight   float64
	strength func(prompt, lower string) float64
}

var (
	codeFenceRe = regexp.MustCompile("```")
	mathRe      = regexp.MustCompile(`[=+*/^<>]|\b\d+\s*[%]|\\(frac|sum|int|sqrt)|[∑∫√∂≤≥≠]`)
	stepListRe  = regexp.MustCompile(`(?m)^\s*(\d+[.)]|[-*]\s)`)
)

var reasoningMarkers = []string{
	"step by step", "analyze", "compare", "evaluate", "explain why",
	"reason", "deduce", "infer", "prove", "justify", "trade-off", "tradeoff",
}

var multiStepMarkers = []string{
	"first", "then", "next", "finally", "afterwards", "workflow", "process",
}

// rules is the fixed ordered indicator set. Weights sum to 1.0 so the
// saturating sum stays within [0,1] before clamping.
var rules = []rule{
	{
		name:   "prompt-length",
		weight: 0.25,
		strength: func(prompt, _ string) float64 {
			words := len(strings.Fields(prompt))
			return ratio(words, 300)
		},
	},
	{
		name:   "reasoning-markers",
		weight: 0.20,
		strength: func(_, lower string) float64 {
			return ratio(countMarkers(lower, reasoningMarkers), 3)
		},
	},
	{
		name:   "code-fences",
		weight: 0.15,
		strength: func(prompt, _ string) float64 {
			if codeFenceRe.MatchString(prompt) {
				return 1
			}
			return 0
		},
	},
	{
		name:   "multi-step",
		weight: 0.15,
		strength: func(prompt, lower string) float64 {
			n := countMarkers(lower, multiStepMarkers)
			if stepListRe.MatchString(prompt) {
				n += 2
			}
			return ratio(n, 4)
		},
	},
	{
		name:   "math-notation",
		weight: 0.15,
		strength: func(prompt, _ string) float64 {
			return ratio(len(mathRe.FindAllString(prompt, 5)), 5)
		},
	},
	{
		name:   "question-count",
		weight: 0.10,
		strength: func(prompt, _ string) float64 {
			return ratio(strings.Count(prompt, "?"), 4)
		},
	},
}

// Assess evaluates every indicator over the prompt and combines the
// contributions. It never fails: degenerate input yields score 0 and the
// simple bucket.
func Assess(prompt string) Assessment {
	if strings.TrimSpace(prompt) == "" {
		return Assessment{Score: 0, Bucket: BucketSimple, Indicators: []Indicator{}}
	}

	lower := strings.ToLower(prompt)

	var score float64
	indicators := make([]Indicator, 0, len(rules))
	for _, r := range rules {
		s := r.strength(prompt, lower)
		if s <= 0 {
			continue
		}
		contribution := s * r.weight
		score += contribution
		indicators = append(indicators, Indicator{Name: r.name, Contribution: contribution})
	}

	if score > 1 {
		score = 1
	}

	// Descending contribution, name ascending on ties, for stable output.
	sort.Slice(indicators, func(i, j int) bool {
		if indicators[i].Contribution != indicators[j].Contribution {
			return indicators[i].Contribution > indicators[j].Contribution
		}
		return indicators[i].Name < indicators[j].Name
	})

	return Assessment{
		Score:      score,
		Bucket:     bucketFor(score),
		Indicators: indicators,
	}
}

// bucketFor maps a score to its tier under the fixed thresholds.
func bucketFor(score float64) Bucket {
	switch {
	case score < moderateThreshold:
		return BucketSimple
	case score < complexThreshold:
		return BucketModerate
	default:
		return BucketComplex
	}
}

// ratio returns n/limit clamped to [0,1].
func ratio(n, limit int) float64 {
	if n <= 0 {
		return 0
	}
	if n >= limit {
		return 1
	}
	return float64(n) / float64(limit)
}

// countMarkers counts how many of the markers occur in the lowercased text.
func countMarkers(lower string, markers []string) int {
	n := 0
	for _, m := range markers {
		if strings.Contains(lower, m) {
			n++
		}
	}
	return n
}
