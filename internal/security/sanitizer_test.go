package security

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeEscapesMarkup(t *testing.T) {
	s := NewSanitizer()

	out := s.Sanitize(`<script>alert(1)</script>`)
	assert.NotContains(t, out, "<script>")
	assert.NotContains(t, out, "alert(1)")
	assert.Contains(t, out, RedactionToken)
}

func TestSanitizeRedactsPatterns(t *testing.T) {
	s := NewSanitizer()

	tests := []struct {
		name    string
		input   string
		blocked string
	}{
		{"sql keyword", "please DROP TABLE users", "DROP"},
		{"sql tautology", "name OR 1=1", "OR 1=1"},
		{"destructive command", "run rm -rf /tmp", "rm"},
		{"path traversal", "open ../../etc/passwd", "../"},
		{"javascript uri", "click javascript:alert(1)", "javascript:"},
		{"shell backtick", "run `uname`", "`"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := s.Sanitize(tt.input)
			assert.NotContains(t, out, tt.blocked)
			assert.Contains(t, out, RedactionToken)
		})
	}
}

func TestSanitizeIsIdempotent(t *testing.T) {
	s := NewSanitizer()

	inputs := []string{
		"plain question about billing",
		`<script>alert("x")</script>`,
		"morning  &  evening <b>bold</b>",
		"it's O'Brien & \"friends\"",
		"SELECT * FROM accounts; rm -rf /",
		"   spaced    out\t\ttext   ",
		"how much is 65 x 3.11?",
	}

	for _, in := range inputs {
		once := s.Sanitize(in)
		twice := s.Sanitize(once)
		require.Equal(t, once, twice, "input: %q", in)
	}
}

func TestSanitizeCollapsesWhitespace(t *testing.T) {
	s := NewSanitizer()
	assert.Equal(t, "a b c", s.Sanitize("  a \t b\n\nc  "))
}

func TestSanitizeNeverLeavesRawPatterns(t *testing.T) {
	s := NewSanitizer()
	out := s.Sanitize("<iframe src=x></iframe> UNION SELECT `id` ../")
	for _, p := range threatPatterns {
		assert.False(t, p.Pattern.MatchString(out), "pattern %s still matches output %q", p.ID, out)
	}
}

func TestSanitizeObserverFiresOnModification(t *testing.T) {
	var gotMatched []string
	calls := 0
	s := NewSanitizer().WithObserver(func(original, cleaned string, matched []string) {
		calls++
		gotMatched = matched
	})

	s.Sanitize("DROP everything")
	require.Equal(t, 1, calls)
	assert.Contains(t, gotMatched, "sql_keyword")

	// Unmodified input must not notify.
	s.Sanitize("hello there")
	assert.Equal(t, 1, calls)
}

func TestSanitizeEmptyInput(t *testing.T) {
	s := NewSanitizer()
	assert.Equal(t, "", s.Sanitize(""))
	assert.Equal(t, "", s.Sanitize("   "))
}

func TestEscapeHTMLQuoting(t *testing.T) {
	out := escapeHTML(`say "hi" & don't <shout>`)
	assert.Equal(t, "say &quot;hi&quot; &amp; don&#39;t &lt;shout&gt;", out)
	// Escaping escaped text is a no-op.
	assert.Equal(t, out, escapeHTML(out))
}

func BenchmarkSanitize(b *testing.B) {
	s := NewSanitizer()
	input := strings.Repeat("how do I integrate the payment API? ", 20)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		s.Sanitize(input)
	}
}
