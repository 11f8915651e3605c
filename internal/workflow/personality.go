package workflow

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// knowledgeClosing and mathClosing are appended verbatim; the framing layer
// never touches the answer's content, only its surroundings.
const (
	knowledgeClosing = " Se precisar de mais alguma coisa, estou aqui para ajudar! 😊"
	mathOpening      = "Perfeito! Aqui está a solução:\n\n"
	mathClosing      = "\n\nMatemática é incrível, não é? 🧮✨"
)

// addKnowledgePersonality frames a knowledge answer with a greeting and a
// helpful closing.
func addKnowledgePersonality(answer string) string {
	out := answer
	if !strings.HasPrefix(out, "Olá") && !strings.HasPrefix(out, "Oi") {
		out = "Olá! " + lowerFirst(out)
	}
	if !strings.HasSuffix(out, ".") && !strings.HasSuffix(out, "!") {
		out += "."
	}
	return out + knowledgeClosing
}

// addMathPersonality frames a math answer with enthusiasm.
func addMathPersonality(answer string) string {
	out := answer
	lower := strings.ToLower(out)
	if !strings.Contains(lower, "resultado") && !strings.Contains(lower, "resposta") && !strings.Contains(lower, "result") {
		out = mathOpening + out
	}
	return out + mathClosing
}

// lowerFirst lowers only the first rune, keeping the rest of the text
// untouched so the greeting joins the answer as one sentence.
func lowerFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToLower(r)) + s[size:]
}
