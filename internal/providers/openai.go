package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/haasonsaas/agentrt/pkg/models"
)

// OpenAIProvider implements LLMProvider against the Chat Completions API.
type OpenAIProvider struct {
	client       *openai.Client
	maxRetries   int
	retryDelay   time.Duration
	defaultModel string
}

// NewOpenAIProvider builds a provider. An empty apiKey yields a provider
// whose Complete always errors, matching the teacher's "configured but
// unusable" shape rather than panicking at construction time.
func NewOpenAIProvider(apiKey, defaultModel string) *OpenAIProvider {
	if defaultModel == "" {
		defaultModel = "gpt-4o"
	}
	p := &OpenAIProvider{maxRetries: 3, retryDelay: time.Second, defaultModel: defaultModel}
	if apiKey != "" {
		p.client = openai.NewClient(apiKey)
	}
	return p
}

func (p *OpenAIProvider) Name() string { return "openai" }

func (p *OpenAIProvider) Models() []Model {
	return []Model{
		{ID: "gpt-4o", Name: "GPT-4o", ContextSize: 128000, SupportsVision: true},
		{ID: "gpt-4-turbo", Name: "GPT-4 Turbo", ContextSize: 128000, SupportsVision: true},
		{ID: "gpt-4", Name: "GPT-4", ContextSize: 8192, SupportsVision: false},
	}
}

func (p *OpenAIProvider) SupportsTools() bool { return true }

func (p *OpenAIProvider) Complete(ctx context.Context, req *CompletionRequest) (<-chan *CompletionChunk, error) {
	if p.client == nil {
		return nil, errors.New("openai: API key not configured")
	}

	messages, err := convertMessagesOpenAI(req.Messages, req.System)
	if err != nil {
		return nil, fmt.Errorf("openai: convert messages: %w", err)
	}

	model := req.Model
	if model == "" {
		model = p.defaultModel
	}
	chatReq := openai.ChatCompletionRequest{Model: model, Messages: messages, Stream: true}
	if req.MaxTokens > 0 {
		chatReq.MaxTokens = req.MaxTokens
	}
	if len(req.Tools) > 0 {
		chatReq.Tools = convertToolsOpenAI(req.Tools)
	}

	var stream *openai.ChatCompletionStream
	var lastErr error
	for attempt := 0; attempt < p.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(p.retryDelay * time.Duration(attempt)):
			}
		}
		stream, lastErr = p.client.CreateChatCompletionStream(ctx, chatReq)
		if lastErr == nil {
			break
		}
		if !isRetryableOpenAIErr(lastErr) {
			return nil, fmt.Errorf("openai: non-retryable error: %w", lastErr)
		}
	}
	if lastErr != nil {
		return nil, fmt.Errorf("openai: max retries exceeded: %w", lastErr)
	}

	chunks := make(chan *CompletionChunk)
	go processOpenAIStream(ctx, stream, chunks)
	return chunks, nil
}

func processOpenAIStream(ctx context.Context, stream *openai.ChatCompletionStream, chunks chan<- *CompletionChunk) {
	defer close(chunks)
	defer stream.Close()

	toolCalls := make(map[int]*models.ToolCall)
	for {
		select {
		case <-ctx.Done():
			chunks <- &CompletionChunk{Error: ctx.Err()}
			return
		default:
		}

		resp, err := stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				flushOpenAIToolCalls(toolCalls, chunks)
				chunks <- &CompletionChunk{Done: true}
				return
			}
			chunks <- &CompletionChunk{Error: err}
			return
		}
		if len(resp.Choices) == 0 {
			continue
		}
		delta := resp.Choices[0].Delta
		if delta.Content != "" {
			chunks <- &CompletionChunk{Text: delta.Content}
		}
		for _, tc := range delta.ToolCalls {
			idx := 0
			if tc.Index != nil {
				idx = *tc.Index
			}
			if toolCalls[idx] == nil {
				toolCalls[idx] = &models.ToolCall{}
			}
			if tc.ID != "" {
				toolCalls[idx].ID = tc.ID
			}
			if tc.Function.Name != "" {
				toolCalls[idx].Name = tc.Function.Name
			}
			if tc.Function.Arguments != "" {
				toolCalls[idx].Arguments = json.RawMessage(string(toolCalls[idx].Arguments) + tc.Function.Arguments)
			}
		}
		if resp.Choices[0].FinishReason == "tool_calls" {
			flushOpenAIToolCalls(toolCalls, chunks)
			toolCalls = make(map[int]*models.ToolCall)
		}
	}
}

func flushOpenAIToolCalls(toolCalls map[int]*models.ToolCall, chunks chan<- *CompletionChunk) {
	for _, tc := range toolCalls {
		if tc.ID != "" && tc.Name != "" {
			chunks <- &CompletionChunk{ToolCall: tc}
		}
	}
}

func convertMessagesOpenAI(messages []models.Message, system string) ([]openai.ChatCompletionMessage, error) {
	out := make([]openai.ChatCompletionMessage, 0, len(messages)+1)
	if system != "" {
		out = append(out, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	}
	for _, m := range messages {
		switch m.Role {
		case models.RoleTool:
			out = append(out, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    m.Content,
				ToolCallID: m.ToolCallID,
			})
		case models.RoleAssistant:
			oaiMsg := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: m.Content}
			for _, tc := range m.ToolCalls {
				oaiMsg.ToolCalls = append(oaiMsg.ToolCalls, openai.ToolCall{
					ID:   tc.ID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      tc.Name,
						Arguments: string(tc.Arguments),
					},
				})
			}
			out = append(out, oaiMsg)
		default:
			out = append(out, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: m.Content})
		}
	}
	return out, nil
}

func convertToolsOpenAI(tools []models.ToolDescriptor) []openai.Tool {
	out := make([]openai.Tool, len(tools))
	for i, t := range tools {
		out[i] = openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Schema,
			},
		}
	}
	return out
}

func isRetryableOpenAIErr(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, needle := range []string{"rate limit", "429", "500", "502", "503", "504", "timeout", "connection reset"} {
		if strings.Contains(msg, needle) {
			return true
		}
	}
	return false
}
