package llms

import (
	"context"
	"time"

	"github.com/pkoukk/tiktoken-go"
	"github.com/sashabaranov/go-openai"

	"github.com/chatrag/chatrag/pkg/models"
)

var _ models.LLM = &OpenAILLM{}

// OpenAILLM is a chat completion model behind an OpenAI compatible API.
// Completion errors are returned on first failure.
type OpenAILLM struct {
	client      *openai.Client
	model       string
	temperature float32
}

func NewOpenAILLM(apiKey, baseURL, model string, temperature float32, timeout time.Duration) (*OpenAILLM, error) {
	client, err := newOpenAIClient(apiKey, baseURL, timeout)
	if err != nil {
		return nil, err
	}
	return &OpenAILLM{client: client, model: model, temperature: temperature}, nil
}

func (l *OpenAILLM) Complete(ctx context.Context, system, user string) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if system != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: system,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: user,
	})

	resp, err := l.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       l.model,
		Messages:    messages,
		Temperature: l.temperature,
	})
	if err != nil {
		return "", models.NewLLMError("chat completion failed", err)
	}
	if len(resp.Choices) == 0 {
		return "", models.NewLLMError("chat completion returned no choices", nil)
	}

	return resp.Choices[0].Message.Content, nil
}

var _ models.TokenCounter = &TiktokenCounter{}

// TiktokenCounter counts tokens with the cl100k_base encoding.
type TiktokenCounter struct {
	tkm *tiktoken.Tiktoken
}

func NewTiktokenCounter() (*TiktokenCounter, error) {
	tkm, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, err
	}
	return &TiktokenCounter{tkm: tkm}, nil
}

func (t *TiktokenCounter) Encode(text string) []int {
	return t.tkm.Encode(text, nil, nil)
}

func (t *TiktokenCounter) Decode(tokens []int) string {
	return t.tkm.Decode(tokens)
}
