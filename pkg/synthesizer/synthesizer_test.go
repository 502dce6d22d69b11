package synthesizer

import (
	"context"
	"errors"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatrag/chatrag/pkg/llms"
	"github.com/chatrag/chatrag/pkg/models"
	"github.com/chatrag/chatrag/pkg/testutils"
)

func TestGenerate(t *testing.T) {
	llm := &testutils.FakeLLM{Answer: "  They argue about chores.  "}
	s := NewSynthesizer(llm, nil, 0, "")

	answer, err := s.Generate(context.Background(), "be kind", "what is wrong?", "[01/01/2020, 10:00:00] A: dishes")
	require.NoError(t, err)
	assert.Equal(t, "  They argue about chores.  ", answer, "the answer is not altered")
	require.Equal(t, 1, llm.Calls())
	assert.Equal(t, "be kind", llm.System[0])
	assert.Equal(t, "Context:\n[01/01/2020, 10:00:00] A: dishes\n\nQuestion: what is wrong?", llm.User[0])
}

func TestGenerateWithoutContext(t *testing.T) {
	llm := &testutils.FakeLLM{Answer: "ok"}
	s := NewSynthesizer(llm, nil, 0, "")

	_, err := s.Generate(context.Background(), "", "hello?", "   ")
	require.NoError(t, err)
	assert.Equal(t, "hello?", llm.User[0])
}

func TestGenerateErrors(t *testing.T) {
	llm := &testutils.FakeLLM{Err: models.NewLLMError("down", errors.New("503"))}
	s := NewSynthesizer(llm, nil, 0, "")

	_, err := s.Generate(context.Background(), "", " ", "ctx")
	assert.ErrorIs(t, err, models.ErrPrecondition)
	assert.Zero(t, llm.Calls())

	_, err = s.Generate(context.Background(), "", "q", "ctx")
	var llmErr *models.LLMError
	assert.ErrorAs(t, err, &llmErr)
	assert.Equal(t, 1, llm.Calls(), "no retry")

	bad := NewSynthesizer(&testutils.FakeLLM{}, nil, 0, "{{ .Nope ")
	_, err = bad.Generate(context.Background(), "", "q", "ctx")
	assert.Error(t, err)
}

func TestCustomTemplateWithSprig(t *testing.T) {
	llm := &testutils.FakeLLM{}
	s := NewSynthesizer(llm, nil, 0, "{{ .Question | upper }}\n---\n{{ .Context | trim }}")

	_, err := s.Generate(context.Background(), "", "why", "  some context \n")
	require.NoError(t, err)
	assert.Equal(t, "WHY\n---\nsome context", llm.User[0])
}

func TestTrimContext(t *testing.T) {
	s := NewSynthesizer(&testutils.FakeLLM{}, testutils.NewWordCounter(), 3, "")
	assert.Equal(t, "one two three", s.TrimContext("one two three four five"))
	assert.Equal(t, "one two", s.TrimContext("one two"))

	unbounded := NewSynthesizer(&testutils.FakeLLM{}, testutils.NewWordCounter(), 0, "")
	assert.Equal(t, "one two three four", unbounded.TrimContext("one two three four"))
}

func TestTrimContextTiktoken(t *testing.T) {
	counter, err := llms.NewTiktokenCounter()
	if err != nil {
		t.Skipf("tiktoken encoding unavailable: %v", err)
	}
	s := NewSynthesizer(&testutils.FakeLLM{}, counter, 5, "")

	text := "The quick brown fox jumps over the lazy dog again and again"
	trimmed := s.TrimContext(text)
	assert.Len(t, counter.Encode(trimmed), 5)
	assert.True(t, len(trimmed) < len(text))
	assert.Equal(t, text[:len(trimmed)], trimmed)
}

type byteCounter struct{}

func (byteCounter) Encode(text string) []int {
	tokens := make([]int, len(text))
	for i := 0; i < len(text); i++ {
		tokens[i] = int(text[i])
	}
	return tokens
}

func (byteCounter) Decode(tokens []int) string {
	b := make([]byte, len(tokens))
	for i, t := range tokens {
		b[i] = byte(t)
	}
	return string(b)
}

func TestTrimContextKeepsWholeRunes(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		budget int
		want   string
	}{
		{name: "cyrillic cut mid rune", text: "привет мир", budget: 5, want: "пр"},
		{name: "cyrillic cut on boundary", text: "привет мир", budget: 4, want: "пр"},
		{name: "emoji cut mid rune", text: "ok 👍 done", budget: 5, want: "ok "},
		{name: "ascii", text: "hello world", budget: 5, want: "hello"},
		{name: "first rune split", text: "ж", budget: 1, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSynthesizer(&testutils.FakeLLM{}, byteCounter{}, tt.budget, "")
			got := s.TrimContext(tt.text)
			assert.True(t, utf8.ValidString(got), "%q", got)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTrimContextKeepsEncodedReplacementChar(t *testing.T) {
	s := NewSynthesizer(&testutils.FakeLLM{}, byteCounter{}, 5, "")
	assert.Equal(t, "ab\uFFFD", s.TrimContext("ab\uFFFDcdef"))
}
