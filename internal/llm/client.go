// Package llm implements the question generation collaborator on top of an
// OpenAI-compatible chat completion API.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/placehub/placement-backend/internal/generator"
	openai "github.com/sashabaranov/go-openai"
)

// Client wraps an OpenAI-compatible API client as a generator.Collaborator.
type Client struct {
	api   *openai.Client
	model string
}

// New creates a new collaborator client. baseURL may be empty for the
// default OpenAI endpoint.
func New(baseURL, apiKey, modelName string) *Client {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &Client{
		api:   openai.NewClientWithConfig(config),
		model: modelName,
	}
}

// GenerateQuestions asks the model for a JSON array of multiple choice
// questions matching the request. The response is parsed but not validated
// here; the generator owns the validation and fallback policy.
func (c *Client) GenerateQuestions(ctx context.Context, req generator.Request) ([]generator.GeneratedQuestion, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildPrompt(req)},
		},
		Temperature: 0.4,
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("model returned no choices")
	}

	raw := extractJSONArray(resp.Choices[0].Message.Content)

	var questions []generator.GeneratedQuestion
	if err := json.Unmarshal([]byte(raw), &questions); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	return questions, nil
}

const systemPrompt = "You are a question author for an institutional placement portal. " +
	"You respond ONLY with a JSON array, no prose and no markdown fences."

func buildPrompt(req generator.Request) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Write exactly %d single-best-answer multiple choice questions.\n\n", req.Count)
	fmt.Fprintf(&sb, "SUBJECT: %s\n", req.Subject)
	fmt.Fprintf(&sb, "CATEGORY: %s\n", req.Category)
	fmt.Fprintf(&sb, "DIFFICULTY: %s\n", req.Difficulty)
	fmt.Fprintf(&sb, "MARKS PER QUESTION: %d\n\n", req.MarksPerQuestion)
	sb.WriteString("Each element of the JSON array must have exactly these fields:\n")
	sb.WriteString(`{"question_text": "<text>", "options": ["<a>", "<b>", "<c>", "<d>"], "correct_answer": <0-3>, "explanation": "<why>"}`)
	sb.WriteString("\n\nRules:\n")
	sb.WriteString("- exactly 4 options per question\n")
	sb.WriteString("- correct_answer is the zero-based index of the right option\n")
	sb.WriteString("- no duplicate questions\n")
	return sb.String()
}

// extractJSONArray trims everything outside the outermost JSON array. Models
// occasionally wrap output in markdown fences despite instructions.
func extractJSONArray(s string) string {
	start := strings.Index(s, "[")
	end := strings.LastIndex(s, "]")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}
