// Package security provides input sanitization and prompt-injection
// detection for the admission pipeline. Sanitization (mutate) and detection
// (flag) are independent: a message can be redacted without ever being
// flagged, and vice versa.
package security

import (
	"regexp"
	"strings"
)

// Observer is notified when sanitization modified the input. It exists so
// callers can emit telemetry without the sanitizer hiding a side effect.
type Observer func(original, cleaned string, matched []string)

// Sanitizer escapes markup and redacts the fixed threat-pattern table.
type Sanitizer struct {
	patterns []ThreatPattern
	observer Observer
}

// NewSanitizer creates a Sanitizer with the built-in pattern table.
func NewSanitizer() *Sanitizer {
	return &Sanitizer{patterns: threatPatterns}
}

// WithObserver returns the sanitizer with a modification observer attached.
func (s *Sanitizer) WithObserver(obs Observer) *Sanitizer {
	s.observer = obs
	return s
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// ampersandEntity matches ampersands that already start one of the entities
// this sanitizer emits. Escaping skips them so Sanitize is idempotent.
var ampersandEntity = regexp.MustCompile(`&(amp|lt|gt|quot|#39);`)

// Sanitize escapes the five HTML-significant characters, redacts every
// threat-pattern match with RedactionToken in table order, collapses
// whitespace runs, and trims. It never fails and is idempotent.
func (s *Sanitizer) Sanitize(text string) string {
	if text == "" {
		return ""
	}

	cleaned := escapeHTML(text)

	var matched []string
	for _, p := range s.patterns {
		if p.Pattern.MatchString(cleaned) {
			matched = append(matched, p.ID)
			cleaned = p.Pattern.ReplaceAllString(cleaned, RedactionToken)
		}
	}

	cleaned = strings.TrimSpace(whitespaceRun.ReplaceAllString(cleaned, " "))

	if s.observer != nil && cleaned != text {
		s.observer(text, cleaned, matched)
	}

	return cleaned
}

// escapeHTML escapes < > & " ' to entity form. Ampersands that already start
// an emitted entity are left alone so double application is a no-op.
func escapeHTML(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '<':
			b.WriteString("&lt;")
		case '>':
			b.WriteString("&gt;")
		case '"':
			b.WriteString("&quot;")
		case '\'':
			b.WriteString("&#39;")
		case '&':
			if loc := ampersandEntity.FindStringIndex(text[i:]); loc != nil && loc[0] == 0 {
				b.WriteByte('&')
			} else {
				b.WriteString("&amp;")
			}
		default:
			b.WriteByte(text[i])
		}
	}

	return b.String()
}
