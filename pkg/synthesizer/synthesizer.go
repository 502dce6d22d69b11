package synthesizer

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/chatrag/chatrag/internal"
	"github.com/chatrag/chatrag/pkg/models"
)

var log = internal.GetLogger()

const DefaultUserTemplate = "Context:\n{{ .Context }}\n\nQuestion: {{ .Question }}"

type promptData struct {
	Context  string
	Question string
}

// Synthesizer turns a question and its reranked context into a single LLM call.
type Synthesizer struct {
	LLM models.LLM
	// Counter is required when MaxContextTokens is set.
	Counter          models.TokenCounter
	MaxContextTokens int
	UserTemplate     string
}

func NewSynthesizer(
	llm models.LLM,
	counter models.TokenCounter,
	maxContextTokens int,
	userTemplate string,
) *Synthesizer {
	if userTemplate == "" {
		userTemplate = DefaultUserTemplate
	}
	return &Synthesizer{
		LLM:              llm,
		Counter:          counter,
		MaxContextTokens: maxContextTokens,
		UserTemplate:     userTemplate,
	}
}

// Generate asks the LLM once and returns its answer untouched.
func (s *Synthesizer) Generate(ctx context.Context, systemPrompt, query, contextText string) (string, error) {
	if strings.TrimSpace(query) == "" {
		return "", models.NewPreconditionError("query is empty")
	}

	user, err := s.UserMessage(query, contextText)
	if err != nil {
		return "", err
	}

	log.Debugf("generating answer for %q", internal.Truncate(query, 80))

	answer, err := s.LLM.Complete(ctx, systemPrompt, user)
	if err != nil {
		return "", err
	}
	return answer, nil
}

// UserMessage renders the user turn. Without context the query is sent as is.
func (s *Synthesizer) UserMessage(query, contextText string) (string, error) {
	contextText = s.TrimContext(contextText)
	if strings.TrimSpace(contextText) == "" {
		return query, nil
	}

	user, err := internal.ParsePrompt(s.UserTemplate, promptData{Context: contextText, Question: query})
	if err != nil {
		return "", fmt.Errorf("failed to render user prompt: %w", err)
	}
	return user, nil
}

// TrimContext cuts text to MaxContextTokens tokens. A zero budget leaves it whole.
// Bytes of a character split by the cut are dropped from the end.
func (s *Synthesizer) TrimContext(text string) string {
	if s.MaxContextTokens <= 0 || s.Counter == nil {
		return text
	}
	tokens := s.Counter.Encode(text)
	if len(tokens) <= s.MaxContextTokens {
		return text
	}
	log.Infof("trimming context from %d to %d tokens", len(tokens), s.MaxContextTokens)
	return trimPartialRune(s.Counter.Decode(tokens[:s.MaxContextTokens]))
}

func trimPartialRune(text string) string {
	for i := 0; i < utf8.UTFMax && text != ""; i++ {
		r, size := utf8.DecodeLastRuneInString(text)
		if r != utf8.RuneError || size != 1 {
			break
		}
		text = text[:len(text)-1]
	}
	return text
}
