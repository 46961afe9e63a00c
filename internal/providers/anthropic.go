package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"

	"github.com/haasonsaas/agentrt/pkg/models"
)

// AnthropicProvider implements LLMProvider against Anthropic's Messages API.
type AnthropicProvider struct {
	client       anthropic.Client
	maxRetries   int
	retryDelay   time.Duration
	defaultModel string
}

// AnthropicConfig configures an AnthropicProvider.
type AnthropicConfig struct {
	APIKey       string
	BaseURL      string
	MaxRetries   int
	RetryDelay   time.Duration
	DefaultModel string
}

// NewAnthropicProvider validates config and builds a ready-to-use provider.
func NewAnthropicProvider(cfg AnthropicConfig) (*AnthropicProvider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("anthropic: API key is required")
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = "claude-sonnet-4-20250514"
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &AnthropicProvider{
		client:       anthropic.NewClient(opts...),
		maxRetries:   cfg.MaxRetries,
		retryDelay:   cfg.RetryDelay,
		defaultModel: cfg.DefaultModel,
	}, nil
}

func (p *AnthropicProvider) Name() string { return "anthropic" }

func (p *AnthropicProvider) Models() []Model {
	return []Model{
		{ID: "claude-sonnet-4-20250514", Name: "Claude Sonnet 4", ContextSize: 200000, SupportsVision: true},
		{ID: "claude-opus-4-20250514", Name: "Claude Opus 4", ContextSize: 200000, SupportsVision: true},
		{ID: "claude-3-5-sonnet-20241022", Name: "Claude 3.5 Sonnet", ContextSize: 200000, SupportsVision: true},
		{ID: "claude-3-haiku-20240307", Name: "Claude 3 Haiku", ContextSize: 200000, SupportsVision: true},
	}
}

func (p *AnthropicProvider) SupportsTools() bool { return true }

func (p *AnthropicProvider) model(requested string) string {
	if requested != "" {
		return requested
	}
	return p.defaultModel
}

func (p *AnthropicProvider) maxTokens(n int) int64 {
	if n <= 0 {
		return 4096
	}
	return int64(n)
}

// Complete streams a completion, retrying stream creation with exponential
// backoff on transient failures. The retry constants are this adapter's
// own; the agent loop does not retry the call again on top.
func (p *AnthropicProvider) Complete(ctx context.Context, req *CompletionRequest) (<-chan *CompletionChunk, error) {
	chunks := make(chan *CompletionChunk)

	go func() {
		defer close(chunks)

		messages, err := convertMessagesAnthropic(req.Messages)
		if err != nil {
			chunks <- &CompletionChunk{Error: fmt.Errorf("anthropic: convert messages: %w", err)}
			return
		}
		params := anthropic.MessageNewParams{
			Model:     anthropic.Model(p.model(req.Model)),
			Messages:  messages,
			MaxTokens: p.maxTokens(req.MaxTokens),
		}
		if req.System != "" {
			params.System = []anthropic.TextBlockParam{{Type: "text", Text: req.System}}
		}
		if len(req.Tools) > 0 {
			params.Tools = convertToolsAnthropic(req.Tools)
		}

		var stream *ssestream.Stream[anthropic.MessageStreamEventUnion]
		for attempt := 0; attempt <= p.maxRetries; attempt++ {
			stream = p.client.Messages.NewStreaming(ctx, params)
			if stream.Err() == nil {
				break
			}
			if !isRetryableAnthropicErr(stream.Err()) || attempt == p.maxRetries {
				err = stream.Err()
				break
			}
			backoff := p.retryDelay * time.Duration(math.Pow(2, float64(attempt)))
			select {
			case <-ctx.Done():
				chunks <- &CompletionChunk{Error: ctx.Err()}
				return
			case <-time.After(backoff):
			}
		}
		if err != nil {
			chunks <- &CompletionChunk{Error: fmt.Errorf("anthropic: max retries exceeded: %w", err)}
			return
		}

		p.processStream(stream, chunks)
	}()

	return chunks, nil
}

func (p *AnthropicProvider) processStream(stream *ssestream.Stream[anthropic.MessageStreamEventUnion], chunks chan<- *CompletionChunk) {
	var toolCall *models.ToolCall
	var toolInput strings.Builder
	var inputTokens, outputTokens int

	for stream.Next() {
		event := stream.Current()
		switch event.Type {
		case "message_start":
			if ms := event.AsMessageStart(); ms.Message.Usage.InputTokens > 0 {
				inputTokens = int(ms.Message.Usage.InputTokens)
			}
		case "content_block_start":
			block := event.AsContentBlockStart().ContentBlock
			if block.Type == "tool_use" {
				use := block.AsToolUse()
				toolCall = &models.ToolCall{ID: use.ID, Name: use.Name}
				toolInput.Reset()
			}
		case "content_block_delta":
			delta := event.AsContentBlockDelta().Delta
			switch delta.Type {
			case "text_delta":
				if delta.Text != "" {
					chunks <- &CompletionChunk{Text: delta.Text}
				}
			case "input_json_delta":
				toolInput.WriteString(delta.PartialJSON)
			}
		case "content_block_stop":
			if toolCall != nil {
				toolCall.Arguments = json.RawMessage(toolInput.String())
				chunks <- &CompletionChunk{ToolCall: toolCall}
				toolCall = nil
			}
		case "message_delta":
			if md := event.AsMessageDelta(); md.Usage.OutputTokens > 0 {
				outputTokens = int(md.Usage.OutputTokens)
			}
		case "message_stop":
			chunks <- &CompletionChunk{Done: true, InputTokens: inputTokens, OutputTokens: outputTokens}
			return
		case "error":
			chunks <- &CompletionChunk{Error: errors.New("anthropic: stream error")}
			return
		}
	}
	if err := stream.Err(); err != nil {
		chunks <- &CompletionChunk{Error: fmt.Errorf("anthropic: stream error: %w", err)}
	}
}

func convertMessagesAnthropic(messages []models.Message) ([]anthropic.MessageParam, error) {
	out := make([]anthropic.MessageParam, 0, len(messages))
	for _, m := range messages {
		if m.Role == models.RoleSystem {
			continue
		}
		var content []anthropic.ContentBlockParamUnion
		switch m.Role {
		case models.RoleTool:
			content = append(content, anthropic.NewToolResultBlock(m.ToolCallID, m.Content, false))
		default:
			if m.Content != "" {
				content = append(content, anthropic.NewTextBlock(m.Content))
			}
			for _, tc := range m.ToolCalls {
				var input map[string]any
				if len(tc.Arguments) > 0 {
					if err := json.Unmarshal(tc.Arguments, &input); err != nil {
						return nil, fmt.Errorf("invalid tool call arguments: %w", err)
					}
				}
				content = append(content, anthropic.NewToolUseBlock(tc.ID, input, tc.Name))
			}
		}
		if len(content) == 0 {
			continue
		}
		if m.Role == models.RoleAssistant {
			out = append(out, anthropic.NewAssistantMessage(content...))
		} else {
			out = append(out, anthropic.NewUserMessage(content...))
		}
	}
	return out, nil
}

func convertToolsAnthropic(tools []models.ToolDescriptor) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, 0, len(tools))
	for _, t := range tools {
		schema := anthropic.ToolInputSchemaParam{
			Properties: t.Schema["properties"],
		}
		out = append(out, anthropic.ToolUnionParamOfTool(schema, t.Name))
	}
	return out
}

func isRetryableAnthropicErr(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case 429, 500, 502, 503, 504:
			return true
		}
		return false
	}
	return true
}
