package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"character-chat/backend/internal/transcript"
	"character-chat/backend/pkg/logger"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const (
	DefaultBaseURL     = "https://api.groq.com/openai/v1"
	DefaultModel       = "llama-3.3-70b-versatile"
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 1024
)

// Options configures a GroqClient
type Options struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int64
	HTTPClient  *http.Client
}

// GroqClient calls an OpenAI-compatible chat completions endpoint (Groq by default).
// It makes exactly one attempt per call and sets no timeout of its own.
type GroqClient struct {
	client      openai.Client
	model       string
	temperature float64
	maxTokens   int64
	log         *logger.Logger
}

// NewGroqClient creates a completion client
func NewGroqClient(opts Options, log *logger.Logger) (*GroqClient, error) {
	if opts.APIKey == "" {
		return nil, errors.New("completion API key is required")
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = DefaultMaxTokens
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		option.WithBaseURL(opts.BaseURL),
		option.WithMaxRetries(0),
	}
	if opts.HTTPClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(opts.HTTPClient))
	}

	return &GroqClient{
		client:      openai.NewClient(reqOpts...),
		model:       opts.Model,
		temperature: opts.Temperature,
		maxTokens:   opts.MaxTokens,
		log:         log,
	}, nil
}

// Complete sends the transcript and returns the first choice's text
func (g *GroqClient) Complete(ctx context.Context, turns []transcript.Turn) (string, error) {
	messages, err := toMessages(turns)
	if err != nil {
		return "", err
	}

	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       g.model,
		Messages:    messages,
		Temperature: openai.Float(g.temperature),
		MaxTokens:   openai.Int(g.maxTokens),
	})
	if err != nil {
		g.log.Error("Completion request failed", "model", g.model, "error", err.Error())
		return "", newUpstreamError(err)
	}

	if resp == nil || len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		g.log.Warn("Completion returned no content, using fallback reply", "model", g.model)
		return FallbackReply, nil
	}

	return resp.Choices[0].Message.Content, nil
}

func toMessages(turns []transcript.Turn) ([]openai.ChatCompletionMessageParamUnion, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(turns))
	for _, turn := range turns {
		switch turn.Role {
		case transcript.TurnSystem:
			messages = append(messages, openai.SystemMessage(turn.Content))
		case transcript.TurnUser:
			messages = append(messages, openai.UserMessage(turn.Content))
		case transcript.TurnAssistant:
			messages = append(messages, openai.AssistantMessage(turn.Content))
		default:
			return nil, fmt.Errorf("unsupported turn role %q", turn.Role)
		}
	}
	return messages, nil
}

func newUpstreamError(err error) *UpstreamError {
	upstream := &UpstreamError{Err: err}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		upstream.StatusCode = apiErr.StatusCode
		upstream.Message = apiErr.Message
	}
	return upstream
}
