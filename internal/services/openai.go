package services

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// PromptService rewrites raw shot descriptions into provider-ready video
// prompts before dispatch. Optional: when nil, the raw prompt is sent as-is.
type PromptService struct {
	client *openai.Client
}

func NewPromptService(apiKey string) *PromptService {
	return &PromptService{
		client: openai.NewClient(apiKey),
	}
}

const promptSystemMessage = `You are a film cinematography assistant. Rewrite the given shot description as a single prompt for a generative video model.

Rules:
- Describe camera movement, framing, lighting, and subject action concretely.
- Keep the motion subtle and grounded; no morphing, no style changes mid-shot.
- One paragraph, under 120 words, no preamble, no quotes.
- Silent video only, never mention audio or dialogue.`

// EnhanceVideoPrompt turns a shot description into a cinematic video prompt.
// The project's visual style, when set, is woven into the instruction.
// Callers absorb errors and fall back to the raw prompt.
func (s *PromptService) EnhanceVideoPrompt(ctx context.Context, rawPrompt string, visualStyle *string) (string, error) {
	userPrompt := rawPrompt
	if visualStyle != nil && *visualStyle != "" {
		userPrompt = fmt.Sprintf("%s\n\nVisual style: %s", rawPrompt, *visualStyle)
	}

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: "gpt-4o-mini",
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: promptSystemMessage,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: userPrompt,
			},
		},
		Temperature: 0.7,
	})

	if err != nil {
		return "", fmt.Errorf("openai request failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from openai")
	}

	enhanced := strings.TrimSpace(resp.Choices[0].Message.Content)
	if enhanced == "" {
		return "", fmt.Errorf("empty prompt from openai")
	}

	return enhanced, nil
}
