// Package llm is the hosted-model invocation port. It talks to the model
// gateway over HTTP JSON using the Anthropic messages shape, with client-side
// rate limiting and a circuit breaker in front of the upstream.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/consilium-ai/consilium/internal/circuitbreaker"
	"github.com/consilium-ai/consilium/internal/tracing"
)

// Config configures the gateway client.
type Config struct {
	GatewayURL     string
	ModelID        string
	TimeoutSeconds int
	RequestsPerMin int
	TopP           float64
}

// Usage reports token consumption for one invocation.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Completion is the parsed result of one model invocation.
type Completion struct {
	Content    string
	Usage      Usage
	StopReason string
}

// Client invokes models through the gateway.
type Client struct {
	httpClient *http.Client
	baseURL    string
	modelID    string
	topP       float64
	limiter    *rate.Limiter
	breaker    *circuitbreaker.CircuitBreaker
	logger     *zap.Logger
}

// NewClient builds a gateway client. The rate limiter spreads requests evenly
// across the minute with a small burst so parallel council members can start
// together.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	rpm := cfg.RequestsPerMin
	if rpm <= 0 {
		rpm = 60
	}
	topP := cfg.TopP
	if topP <= 0 {
		topP = 0.9
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    cfg.GatewayURL,
		modelID:    cfg.ModelID,
		topP:       topP,
		limiter:    rate.NewLimiter(rate.Limit(float64(rpm)/60.0), 8),
		breaker:    circuitbreaker.New("model-gateway", circuitbreaker.DefaultConfig(), logger),
		logger:     logger,
	}
}

// ModelID returns the configured model identifier.
func (c *Client) ModelID() string {
	return c.modelID
}

type invokeRequest struct {
	AnthropicVersion string    `json:"anthropic_version"`
	MaxTokens        int       `json:"max_tokens"`
	Temperature      float64   `json:"temperature"`
	TopP             float64   `json:"top_p"`
	System           string    `json:"system,omitempty"`
	Messages         []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type invokeResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
	Usage      Usage  `json:"usage"`
	StopReason string `json:"stop_reason"`
}

// Invoke sends one system+user exchange to the gateway and returns the model
// completion. The context bounds the whole call including the rate-limiter
// wait.
func (c *Client) Invoke(ctx context.Context, system, user string, maxTokens int, temperature float64) (*Completion, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	body := invokeRequest{
		AnthropicVersion: "bedrock-2023-05-31",
		MaxTokens:        maxTokens,
		Temperature:      temperature,
		TopP:             c.topP,
		System:           system,
		Messages:         []message{{Role: "user", Content: user}},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal invoke request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/model/%s/invoke", c.baseURL, url.PathEscape(c.modelID))

	var completion *Completion
	err = c.breaker.Execute(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		tracing.InjectTraceparent(ctx, req)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("gateway request: %w", err)
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
		if err != nil {
			return fmt.Errorf("read gateway response: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("gateway status %d: %s", resp.StatusCode, truncate(string(raw), 256))
		}

		var parsed invokeResponse
		if err := json.Unmarshal(raw, &parsed); err != nil {
			return fmt.Errorf("decode gateway response: %w", err)
		}
		if len(parsed.Content) == 0 {
			return fmt.Errorf("gateway response has no content blocks")
		}

		completion = &Completion{
			Content:    parsed.Content[0].Text,
			Usage:      parsed.Usage,
			StopReason: parsed.StopReason,
		}
		return nil
	})
	if err != nil {
		c.logger.Warn("Model invocation failed",
			zap.String("model_id", c.modelID),
			zap.Error(err),
		)
		return nil, err
	}
	return completion, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
