package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/dvloznov/monomind/internal/domain"
	openai "github.com/sashabaranov/go-openai"
)

// OpenAIModel generates text with an OpenAI-compatible chat completion API.
// Setting a base URL points it at a local server such as Ollama
// (http://localhost:11434/v1).
type OpenAIModel struct {
	client *openai.Client
	model  string
}

// NewOpenAIModel creates a chat completion client.
func NewOpenAIModel(apiKey, baseURL, model string) *OpenAIModel {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAIModel{client: openai.NewClientWithConfig(cfg), model: model}
}

// Generate implements Model. Web search is not available on this backend;
// the model answers from its own knowledge.
func (m *OpenAIModel) Generate(ctx context.Context, p Prompt) (string, error) {
	resp, err := m.client.CreateChatCompletion(ctx, chatRequest(m.model, p))
	if err != nil {
		return "", fmt.Errorf("OpenAIModel.Generate: create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("OpenAIModel.Generate: %w", ErrEmptyResponse)
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("OpenAIModel.Generate: %w", ErrEmptyResponse)
	}
	return text, nil
}

func chatRequest(model string, p Prompt) openai.ChatCompletionRequest {
	msgs := make([]openai.ChatCompletionMessage, 0, len(p.History)+2)
	if p.System != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: p.System})
	}
	for _, msg := range p.History {
		role := openai.ChatMessageRoleUser
		if msg.Role == domain.RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: role, Content: msg.Content})
	}
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: p.User})

	req := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    msgs,
		Temperature: p.Temperature,
		MaxTokens:   p.MaxTokens,
	}
	if p.JSON {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}
	return req
}
