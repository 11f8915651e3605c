package security

import "strings"

// confidencePerMatch is the score contributed by each pattern occurrence.
// Two occurrences are required to cross SuspicionThreshold.
const confidencePerMatch = 0.3

// SuspicionThreshold is the confidence above which a message is blocked.
const SuspicionThreshold = 0.5

// Verdict is the outcome of prompt-injection detection.
type Verdict struct {
	Suspicious bool     `json:"is_suspicious"`
	Confidence float64  `json:"confidence"`
	Matched    []string `json:"patterns_found,omitempty"`
}

// Detector scores text against the manipulation-pattern table.
// It is stateless and safe for concurrent use.
type Detector struct {
	patterns []InjectionPattern
}

// NewDetector creates a Detector with the built-in pattern table.
func NewDetector() *Detector {
	return &Detector{patterns: injectionPatterns}
}

// Detect lower-cases the text and counts pattern occurrences across the
// whole table, duplicates included. Confidence is 0.3 per occurrence capped
// at 1.0. Text with zero matches is never flagged.
func (d *Detector) Detect(text string) Verdict {
	if text == "" {
		return Verdict{}
	}

	lower := strings.ToLower(text)

	var matched []string
	for _, p := range d.patterns {
		hits := p.Pattern.FindAllString(lower, -1)
		for range hits {
			matched = append(matched, p.ID)
		}
	}

	confidence := float64(len(matched)) * confidencePerMatch
	if confidence > 1.0 {
		confidence = 1.0
	}

	return Verdict{
		Suspicious: confidence > SuspicionThreshold,
		Confidence: confidence,
		Matched:    matched,
	}
}
