package agents

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatgate/internal/core"
)

type stubGenerator struct {
	reply string
	err   error
}

func (s *stubGenerator) Generate(context.Context, *core.GenerateRequest) (string, error) {
	return s.reply, s.err
}

type stubRetriever struct {
	result *core.RetrievalResult
	err    error
}

func (s *stubRetriever) RetrieveAndAnswer(context.Context, string) (*core.RetrievalResult, error) {
	return s.result, s.err
}

func TestEvalExpression(t *testing.T) {
	cases := []struct {
		expr string
		want float64
	}{
		{"2 + 2", 4},
		{"65 * 3.11", 202.15},
		{"10 - 3 * 2", 4},
		{"(10 - 3) * 2", 14},
		{"-5 + 3", -2},
		{"100 / 4 / 5", 5},
		{"2 × 3", 6},
		{"10 ÷ 4", 2.5},
		{"3.5", 3.5},
	}
	for _, tc := range cases {
		got, err := evalExpression(tc.expr)
		require.NoError(t, err, "expr %q", tc.expr)
		assert.InDelta(t, tc.want, got, 1e-9, "expr %q", tc.expr)
	}
}

func TestEvalExpressionErrors(t *testing.T) {
	for _, expr := range []string{
		"1 / 0",
		"2 +",
		"(1 + 2",
		"abc",
		"2 ; rm",
		"",
	} {
		_, err := evalExpression(expr)
		assert.Error(t, err, "expr %q", expr)
	}
}

func TestExtractExpression(t *testing.T) {
	cases := []struct {
		message string
		want    string
	}{
		{"How much is 65 x 3.11?", "65 * 3.11"},
		{"what is 2+2", "2+2"},
		{"calculate (10 - 3) * 2", "(10 - 3) * 2"},
		{"42", "42"},
		{"solve 70 + 12 please", "70 + 12"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, extractExpression(tc.message), "message %q", tc.message)
	}
}

func TestMathAgentSolves(t *testing.T) {
	agent := NewMathAgent(&stubGenerator{reply: "Multiply 65 by 3.11 to get 202.15."})

	res, err := agent.Handle(t.Context(), "How much is 65 x 3.11?")
	require.NoError(t, err)
	assert.Contains(t, res.Answer, "202.15")
	assert.Contains(t, res.Answer, "Multiply 65 by 3.11")
	assert.Equal(t, true, res.Metadata["calculation_successful"])
	assert.Equal(t, "65 * 3.11", res.Metadata["expression"])
}

func TestMathAgentExplanationDegradesWithoutBackend(t *testing.T) {
	agent := NewMathAgent(&stubGenerator{err: errors.New("down")})

	res, err := agent.Handle(t.Context(), "2 + 2")
	require.NoError(t, err)
	assert.Contains(t, res.Answer, "**Result:** 4")
	assert.Contains(t, res.Answer, "trouble generating a detailed explanation")
}

func TestMathAgentDivisionByZero(t *testing.T) {
	agent := NewMathAgent(nil)

	res, err := agent.Handle(t.Context(), "calculate 5 / 0")
	require.NoError(t, err)
	assert.Contains(t, res.Answer, "Division by zero")
	assert.Equal(t, false, res.Metadata["calculation_successful"])
}

func TestMathAgentNoExpression(t *testing.T) {
	agent := NewMathAgent(nil)

	res, err := agent.Handle(t.Context(), "tell me a joke")
	require.NoError(t, err)
	assert.Contains(t, res.Answer, "couldn't find a mathematical expression")
}

func TestKnowledgeAgentUsesRetriever(t *testing.T) {
	agent := NewKnowledgeAgent(&stubRetriever{result: &core.RetrievalResult{
		Answer:  "Use the webhook endpoint.",
		Sources: []string{"https://docs.example.com"},
	}}, &stubGenerator{reply: "should not be used"})

	res, err := agent.Handle(t.Context(), "how do webhooks work?")
	require.NoError(t, err)
	assert.Equal(t, "Use the webhook endpoint.", res.Answer)
	assert.Equal(t, []string{"https://docs.example.com"}, res.Metadata["sources"])
	assert.Equal(t, true, res.Metadata["retrieval"])
}

func TestKnowledgeAgentFallsBackToGenerator(t *testing.T) {
	agent := NewKnowledgeAgent(
		&stubRetriever{err: errors.New("index down")},
		&stubGenerator{reply: "Generated answer."})

	res, err := agent.Handle(t.Context(), "how do webhooks work?")
	require.NoError(t, err)
	assert.Equal(t, "Generated answer.", res.Answer)
	assert.Equal(t, false, res.Metadata["retrieval"])
}

func TestKnowledgeAgentFailsWhenEverythingIsDown(t *testing.T) {
	agent := NewKnowledgeAgent(
		&stubRetriever{err: errors.New("index down")},
		&stubGenerator{err: errors.New("backend down")})

	_, err := agent.Handle(t.Context(), "anything")
	require.Error(t, err)
}

func TestAgentNames(t *testing.T) {
	assert.Equal(t, "MathAgent", NewMathAgent(nil).Name())
	assert.Equal(t, "KnowledgeAgent", NewKnowledgeAgent(nil, nil).Name())
}
