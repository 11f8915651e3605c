package security

import "regexp"

// ThreatType labels what a malicious pattern targets.
type ThreatType string

const (
	ThreatMarkup        ThreatType = "MARKUP"
	ThreatSQL           ThreatType = "SQL"
	ThreatCommand       ThreatType = "COMMAND"
	ThreatPathTraversal ThreatType = "PATH_TRAVERSAL"
)

// ThreatPattern defines a regex for content that is redacted during
// sanitization. Patterns apply in table order.
type ThreatPattern struct {
	ID      string
	Type    ThreatType
	Pattern *regexp.Regexp
}

// RedactionToken replaces every threat-pattern match in sanitized text.
const RedactionToken = "[BLOCKED]"

// threatPatterns is the fixed ordered redaction table.
// The table is applied after HTML escaping, so tag patterns match the
// escaped forms (&lt;script&gt;) as well as raw ones.
var threatPatterns = []ThreatPattern{
	// Markup injection
	{"script_tag", ThreatMarkup, regexp.MustCompile(`(?is)(<|&lt;)script[^>]*(>|&gt;).*?(<|&lt;)/script(>|&gt;)`)},
	{"iframe_tag", ThreatMarkup, regexp.MustCompile(`(?is)(<|&lt;)iframe[^>]*(>|&gt;).*?(<|&lt;)/iframe(>|&gt;)`)},
	{"javascript_uri", ThreatMarkup, regexp.MustCompile(`(?i)javascript:`)},
	{"vbscript_uri", ThreatMarkup, regexp.MustCompile(`(?i)vbscript:`)},
	{"data_html_uri", ThreatMarkup, regexp.MustCompile(`(?i)data:text/html`)},
	{"object_tag", ThreatMarkup, regexp.MustCompile(`(?is)(<|&lt;)object[^>]*(>|&gt;).*?(<|&lt;)/object(>|&gt;)`)},
	{"embed_tag", ThreatMarkup, regexp.MustCompile(`(?is)(<|&lt;)embed[^>]*(>|&gt;).*?(<|&lt;)/embed(>|&gt;)`)},
	{"link_tag", ThreatMarkup, regexp.MustCompile(`(?is)(<|&lt;)link[^>]*(>|&gt;)`)},
	{"meta_tag", ThreatMarkup, regexp.MustCompile(`(?is)(<|&lt;)meta[^>]*(>|&gt;)`)},
	{"style_tag", ThreatMarkup, regexp.MustCompile(`(?is)(<|&lt;)style[^>]*(>|&gt;).*?(<|&lt;)/style(>|&gt;)`)},

	// SQL injection
	{"sql_keyword", ThreatSQL, regexp.MustCompile(`(?i)\b(SELECT|INSERT|UPDATE|DELETE|DROP|CREATE|ALTER|EXEC|UNION)\b`)},
	{"sql_tautology_num", ThreatSQL, regexp.MustCompile(`(?i)\b(OR|AND)\s+\d+\s*=\s*\d+`)},
	{"sql_tautology_word", ThreatSQL, regexp.MustCompile(`(?i)\b(OR|AND)\s+\w+\s*=\s*\w+`)},

	// Command injection. The class excludes & and ; because HTML escaping
	// introduces them as entity syntax; redacting those would destroy the
	// escaped output and break sanitizer idempotency.
	{"shell_meta", ThreatCommand, regexp.MustCompile("[|`$]")},
	{"recon_command", ThreatCommand, regexp.MustCompile(`(?i)\b(cat|ls|pwd|whoami|id|uname|ps|netstat|ifconfig)\b`)},
	{"destructive_command", ThreatCommand, regexp.MustCompile(`(?i)\b(rm|del|format|shutdown|reboot)\b`)},

	// Path traversal
	{"dotdot_slash", ThreatPathTraversal, regexp.MustCompile(`\.\./`)},
	{"dotdot_backslash", ThreatPathTraversal, regexp.MustCompile(`\.\.\\`)},
	{"encoded_dotdot_slash", ThreatPathTraversal, regexp.MustCompile(`(?i)%2e%2e%2f`)},
	{"encoded_dotdot_backslash", ThreatPathTraversal, regexp.MustCompile(`(?i)%2e%2e%5c`)},
}

// InjectionPattern defines a natural-language manipulation pattern scored by
// the injection detector. Detection never mutates text.
type InjectionPattern struct {
	ID      string
	Pattern *regexp.Regexp
}

// injectionPatterns is the fixed ordered detection table. Input is
// lower-cased before matching, so the patterns are lower-case only.
var injectionPatterns = []InjectionPattern{
	{"ignore_instructions", regexp.MustCompile(`ignore\s+(previous|above|all)\s+(instructions|prompts|rules)`)},
	{"forget_everything", regexp.MustCompile(`forget\s+(everything|all|previous)`)},
	{"you_are_now", regexp.MustCompile(`you\s+are\s+now\s+(a|an)\s+\w+`)},
	{"pretend_to_be", regexp.MustCompile(`pretend\s+to\s+be\s+\w+`)},
	{"act_as", regexp.MustCompile(`act\s+as\s+(if\s+)?\w+`)},
	{"system_prefix", regexp.MustCompile(`system\s*:\s*`)},
	{"admin_prefix", regexp.MustCompile(`admin\s*:\s*`)},
	{"root_prefix", regexp.MustCompile(`root\s*:\s*`)},
	{"override_safety", regexp.MustCompile(`override\s+(safety|security|rules)`)},
	{"jailbreak", regexp.MustCompile(`jailbreak`)},
	{"bypass_safety", regexp.MustCompile(`bypass\s+(safety|security|rules)`)},
	{"ignore_guidelines", regexp.MustCompile(`ignore\s+safety\s+guidelines`)},
	{"must_never", regexp.MustCompile(`you\s+must\s+(not|never)\s+`)},
	{"test_pretext", regexp.MustCompile(`this\s+is\s+(a\s+)?(test|experiment)`)},
	{"roleplay_as", regexp.MustCompile(`roleplay\s+as\s+\w+`)},
	{"simulate_being", regexp.MustCompile(`simulate\s+being\s+\w+`)},
}
