// Package llm adapts an OpenAI-compatible chat completion API into the
// detailed sentiment estimator and the upsell candidate generator.
//
// Every answer is requested as a JSON object and validated against an
// explicit schema. Anything that does not fit is ErrMalformedResponse, never
// a partially trusted value.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	// ErrMalformedResponse means the model answered with something that does
	// not match the expected schema.
	ErrMalformedResponse = errors.New("llm: malformed response")
	// ErrNoChoices means the API returned an empty completion.
	ErrNoChoices = errors.New("llm: no choices returned")
)

var tracer = otel.Tracer("llm/Client")

var (
	latency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "assistant_llm_latency_seconds",
			Help:    "Latency of chat completions by operation and outcome.",
			Buckets: []float64{0.25, 0.5, 1, 2, 3, 5, 8, 10, 15, 30},
		},
		[]string{"op", "status"},
	)
	malformed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_llm_malformed_total",
			Help: "Completions rejected by schema validation.",
		},
		[]string{"op"},
	)
)

func init() {
	prometheus.MustRegister(latency, malformed)
}

type chatClient interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Config selects the endpoint and model. BaseURL may point at any
// OpenAI-compatible server.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
}

// Client is safe for concurrent use.
type Client struct {
	chat        chatClient
	model       string
	temperature float32
	maxTokens   int
}

// NewClient builds a Client backed by go-openai.
func NewClient(cfg Config) *Client {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	return newClient(openai.NewClientWithConfig(oc), cfg)
}

func newClient(chat chatClient, cfg Config) *Client {
	model := cfg.Model
	if model == "" {
		model = openai.GPT4oMini
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 600
	}
	return &Client{chat: chat, model: model, temperature: cfg.Temperature, maxTokens: maxTokens}
}

// completeJSON sends one system + user exchange and returns the raw JSON text.
func (c *Client) completeJSON(ctx context.Context, op, system, user string) (raw string, err error) {
	ctx, span := tracer.Start(ctx, op,
		trace.WithAttributes(attribute.String("llm.model", c.model)),
	)
	start := time.Now()
	defer func() {
		status := "ok"
		if err != nil {
			status = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		latency.WithLabelValues(op, status).Observe(time.Since(start).Seconds())
		span.End()
	}()

	resp, err := c.chat.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return "", fmt.Errorf("llm %s: %w", op, err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoChoices
	}
	span.SetAttributes(attribute.Int("llm.tokens.total", resp.Usage.TotalTokens))
	return stripFences(resp.Choices[0].Message.Content), nil
}

func (c *Client) reject(op string, format string, args ...any) error {
	malformed.WithLabelValues(op).Inc()
	return fmt.Errorf("%w: %s", ErrMalformedResponse, fmt.Sprintf(format, args...))
}

// stripFences drops a markdown code fence some local models wrap JSON in.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
