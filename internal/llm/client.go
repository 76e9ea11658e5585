// Package llm implements the text-generation capability against the VNPT
// AI chat-completions service. The small model classifies questions; the
// large model generates code, repairs it, and selects answers. Quota
// exhaustion (HTTP 429/401) surfaces as *RateLimitError so the driver can
// suspend instead of recording a fallback.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
	"unicode/utf8"

	"mcqagent/internal/config"
	"mcqagent/internal/logging"
)

// Client is the generation capability the router and strategies depend on.
type Client interface {
	// ClassifyQuestion runs the small model with a JSON response format.
	ClassifyQuestion(ctx context.Context, prompt string) (string, error)
	// GenerateMathCode runs the large model for code generation and repair.
	GenerateMathCode(ctx context.Context, prompt string) (string, error)
	// SelectMathAnswer runs the large model to pick a letter from
	// execution evidence.
	SelectMathAnswer(ctx context.Context, prompt string) (string, error)
	// GenerateGroundedAnswer runs the large model over retrieved context.
	GenerateGroundedAnswer(ctx context.Context, prompt string) (string, error)
	// GenerateReadingAnswer runs the large model over an embedded passage.
	GenerateReadingAnswer(ctx context.Context, prompt string) (string, error)
}

// VNPTClient implements Client against the VNPT chat-completions API.
type VNPTClient struct {
	baseURL    string
	smallModel string
	largeModel string
	small      config.Credentials
	large      config.Credentials
	httpClient *http.Client

	mu          sync.Mutex
	lastRequest time.Time
}

// minRequestGap spaces consecutive requests to stay under the per-minute
// quota of the service.
const minRequestGap = 100 * time.Millisecond

// NewVNPTClient creates a client from configuration.
func NewVNPTClient(cfg config.LLMConfig, timeout time.Duration) *VNPTClient {
	return &VNPTClient{
		baseURL:    cfg.BaseURL,
		smallModel: cfg.SmallModel,
		largeModel: cfg.LargeModel,
		small:      cfg.Small,
		large:      cfg.Large,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model               string          `json:"model"`
	Messages            []chatMessage   `json:"messages"`
	MaxCompletionTokens int             `json:"max_completion_tokens"`
	Temperature         float64         `json:"temperature"`
	TopP                float64         `json:"top_p"`
	TopK                int             `json:"top_k,omitempty"`
	Seed                int             `json:"seed"`
	N                   int             `json:"n"`
	Stream              bool            `json:"stream"`
	ResponseFormat      *responseFormat `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// ClassifyQuestion asks the small model for a category, constrained to a
// JSON object response.
func (c *VNPTClient) ClassifyQuestion(ctx context.Context, prompt string) (string, error) {
	req := chatRequest{
		Model: c.smallModel,
		Messages: []chatMessage{
			{Role: "user", Content: prompt},
		},
		MaxCompletionTokens: 20,
		Temperature:         0.0,
		TopP:                0.95,
		TopK:                1,
		Seed:                42,
		N:                   1,
		ResponseFormat:      &responseFormat{Type: "json_object"},
	}
	return c.complete(ctx, "ClassifyQuestion", c.small, req)
}

// GenerateMathCode asks the large model for an executable snippet. The
// same call serves repair attempts; only the prompt differs.
func (c *VNPTClient) GenerateMathCode(ctx context.Context, prompt string) (string, error) {
	req := chatRequest{
		Model: c.largeModel,
		Messages: []chatMessage{
			{Role: "system", Content: "You are an expert Go programmer. Always return code in a markdown code block."},
			{Role: "user", Content: prompt},
		},
		MaxCompletionTokens: 2048,
		Temperature:         0.0,
		TopP:                0.95,
		TopK:                50,
		Seed:                42,
		N:                   1,
	}
	return c.complete(ctx, "GenerateMathCode", c.large, req)
}

// SelectMathAnswer asks the large model for a single letter given the
// execution evidence.
func (c *VNPTClient) SelectMathAnswer(ctx context.Context, prompt string) (string, error) {
	req := chatRequest{
		Model: c.largeModel,
		Messages: []chatMessage{
			{Role: "system", Content: "You are an answer selector. Use the computed result to pick the best choice."},
			{Role: "user", Content: prompt},
		},
		MaxCompletionTokens: 10,
		Temperature:         0.0,
		TopP:                0.95,
		TopK:                40,
		Seed:                100,
		N:                   1,
	}
	return c.complete(ctx, "SelectMathAnswer", c.large, req)
}

// GenerateGroundedAnswer asks the large model for a single letter using
// retrieved context plus general knowledge.
func (c *VNPTClient) GenerateGroundedAnswer(ctx context.Context, prompt string) (string, error) {
	req := chatRequest{
		Model: c.largeModel,
		Messages: []chatMessage{
			{Role: "system", Content: "You are a knowledge assistant. Answer from the provided documents and your own knowledge."},
			{Role: "user", Content: prompt},
		},
		MaxCompletionTokens: 10,
		Temperature:         0.0,
		TopP:                0.85,
		TopK:                30,
		Seed:                42,
		N:                   1,
	}
	return c.complete(ctx, "GenerateGroundedAnswer", c.large, req)
}

// GenerateReadingAnswer asks the large model for a single letter grounded
// in the passage embedded in the question.
func (c *VNPTClient) GenerateReadingAnswer(ctx context.Context, prompt string) (string, error) {
	req := chatRequest{
		Model: c.largeModel,
		Messages: []chatMessage{
			{Role: "system", Content: "You are a reading-comprehension expert. Answer strictly from the passage."},
			{Role: "user", Content: prompt},
		},
		MaxCompletionTokens: 10,
		Temperature:         0.0,
		TopP:                0.85,
		TopK:                30,
		Seed:                42,
		N:                   1,
	}
	return c.complete(ctx, "GenerateReadingAnswer", c.large, req)
}

// complete performs one chat-completions request with role credentials.
func (c *VNPTClient) complete(ctx context.Context, op string, creds config.Credentials, reqBody chatRequest) (string, error) {
	log := logging.Get(logging.CategoryLLM)

	// Space requests out; a single worker still has to respect the
	// per-minute quota.
	c.mu.Lock()
	if elapsed := time.Since(c.lastRequest); elapsed < minRequestGap {
		time.Sleep(minRequestGap - elapsed)
	}
	c.lastRequest = time.Now()
	c.mu.Unlock()

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("%s: failed to marshal request: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("%s: failed to create request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", creds.APIKey)
	req.Header.Set("Token-id", creds.TokenID)
	req.Header.Set("Token-key", creds.TokenKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s: request failed: %w", op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%s: failed to read response: %w", op, err)
	}

	// 429 is the documented quota signal; the service also answers 401
	// once a key's quota is spent.
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusUnauthorized {
		log.Warnw("rate limit hit", "op", op, "status", resp.StatusCode)
		return "", &RateLimitError{
			Provider:   "vnpt",
			StatusCode: resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%s: HTTP %d: %s", op, resp.StatusCode, truncate(string(body), 200))
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("%s: failed to parse response: %w", op, err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("%s: API error: %s", op, parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("%s: empty choices in response", op)
	}

	content := parsed.Choices[0].Message.Content
	log.Debugw("completion", "op", op, "latency", time.Since(start), "chars", len(content))
	return content, nil
}

func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	if secs, err := time.ParseDuration(header + "s"); err == nil {
		return secs
	}
	return 0
}

// truncate cuts s to at most n bytes on a rune boundary.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
