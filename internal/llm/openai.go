package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/sqlpilot/sqlpilot/internal/observability"
)

// OpenAIConfig configures the OpenAI-compatible completion client.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// OpenAIClient implements Client over the OpenAI chat completions API.
type OpenAIClient struct {
	client       openai.Client
	defaultModel string
}

func NewOpenAIClient(cfg OpenAIConfig) (*OpenAIClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("openai api key is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	opts := []option.RequestOption{
		option.WithAPIKey(strings.TrimSpace(cfg.APIKey)),
		option.WithRequestTimeout(timeout),
	}
	if baseURL := strings.TrimSpace(cfg.BaseURL); baseURL != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimRight(baseURL, "/")))
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAIClient{
		client:       openai.NewClient(opts...),
		defaultModel: model,
	}, nil
}

func (c *OpenAIClient) Complete(ctx context.Context, req Request) (string, error) {
	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = c.defaultModel
	}

	completion, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: shared.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.SystemPrompt),
			openai.UserMessage(req.UserPrompt),
		},
		Temperature: openai.Float(req.Temperature),
	})
	if err != nil {
		categorized := categorize(err)
		observability.ObserveLLMRequest(string(categorized.Category))
		return "", categorized
	}

	if len(completion.Choices) == 0 || strings.TrimSpace(completion.Choices[0].Message.Content) == "" {
		emptyErr := &Error{Category: CategoryEmptyResponse, Message: "empty response from model"}
		observability.ObserveLLMRequest(string(CategoryEmptyResponse))
		return "", emptyErr
	}

	observability.ObserveLLMRequest("ok")
	return strings.TrimSpace(completion.Choices[0].Message.Content), nil
}

func categorize(err error) *Error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == http.StatusTooManyRequests {
			return &Error{
				Category:   CategoryRateLimited,
				StatusCode: apiErr.StatusCode,
				Message:    "rate limit exceeded",
				Err:        err,
			}
		}
		return &Error{
			Category:   CategoryProvider,
			StatusCode: apiErr.StatusCode,
			Message:    "provider request failed",
			Err:        err,
		}
	}
	return &Error{
		Category: CategoryConnection,
		Message:  "failed to reach completion provider",
		Err:      err,
	}
}
