package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

var (
	chatDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "data_siswa",
		Subsystem: "chat",
		Name:      "completion_duration_seconds",
		Help:      "Duration of assistant completion requests",
	}, []string{"model"})

	chatFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "data_siswa",
		Subsystem: "chat",
		Name:      "completion_failures_total",
		Help:      "Number of assistant completion failures",
	}, []string{"model"})
)

// Message is a single turn of the conversation history.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// AssistantConfig defines configuration options for the chat assistant.
type AssistantConfig struct {
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float32
}

// Assistant wraps the chat completion API behind a small interface.
type Assistant struct {
	client *openai.Client
	cfg    AssistantConfig
	logger *zap.Logger
}

// NewAssistant builds an assistant from the provided configuration.
func NewAssistant(cfg AssistantConfig, logger *zap.Logger) (*Assistant, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("chat api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 512
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client := openai.NewClientWithConfig(openai.DefaultConfig(cfg.APIKey))
	return &Assistant{client: client, cfg: cfg, logger: logger}, nil
}

// Complete sends the system prompt, history, and user message and returns the reply text.
func (a *Assistant) Complete(ctx context.Context, systemPrompt string, history []Message, message string) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(history)+2)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: systemPrompt,
	})
	for _, turn := range history {
		role := openai.ChatMessageRoleUser
		if strings.EqualFold(turn.Role, "assistant") {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: turn.Content})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: message,
	})

	start := time.Now()
	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       a.cfg.Model,
		MaxTokens:   a.cfg.MaxTokens,
		Temperature: a.cfg.Temperature,
		Messages:    messages,
	})
	chatDuration.WithLabelValues(a.cfg.Model).Observe(time.Since(start).Seconds())
	if err != nil {
		chatFailures.WithLabelValues(a.cfg.Model).Inc()
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		chatFailures.WithLabelValues(a.cfg.Model).Inc()
		return "", fmt.Errorf("no choices returned from provider")
	}

	a.logger.Debug("chat completion finished",
		zap.String("model", a.cfg.Model),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
	)
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
