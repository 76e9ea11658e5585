package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"mcqagent/internal/config"
	"mcqagent/internal/llm"
)

// VNPTEngine generates embeddings using the VNPT embedding service.
// Quota exhaustion surfaces as *llm.RateLimitError, same as the
// generation capability.
type VNPTEngine struct {
	endpoint   string
	model      string
	creds      config.Credentials
	dimensions int
	httpClient *http.Client
}

// NewVNPTEngine creates a VNPT embedding engine from configuration.
func NewVNPTEngine(cfg config.EmbeddingConfig) *VNPTEngine {
	dims := cfg.Dimensions
	if dims <= 0 {
		dims = 1024
	}
	return &VNPTEngine{
		endpoint:   cfg.VNPTEndpoint,
		model:      cfg.VNPTModel,
		creds:      cfg.VNPT,
		dimensions: dims,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

type embedRequest struct {
	Model          string `json:"model"`
	Input          string `json:"input"`
	EncodingFormat string `json:"encoding_format"`
}

type embedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Embed generates an embedding for a single text.
func (e *VNPTEngine) Embed(ctx context.Context, text string) ([]float32, error) {
	reqBody := embedRequest{
		Model:          e.model,
		Input:          text,
		EncodingFormat: "float",
	}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embed request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", e.creds.APIKey)
	req.Header.Set("Token-id", e.creds.TokenID)
	req.Header.Set("Token-key", e.creds.TokenKey)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embed request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusUnauthorized {
		return nil, &llm.RateLimitError{Provider: "vnpt-embedding", StatusCode: resp.StatusCode}
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read embed response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embed failed: HTTP %d", resp.StatusCode)
	}

	var parsed embedResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse embed response: %w", err)
	}
	if len(parsed.Data) == 0 {
		return nil, fmt.Errorf("no embeddings returned")
	}
	vec := parsed.Data[0].Embedding
	if len(vec) != e.dimensions {
		return nil, fmt.Errorf("unexpected embedding dimension: got %d, want %d", len(vec), e.dimensions)
	}
	return vec, nil
}

// Dimensions returns the dimensionality of embeddings.
func (e *VNPTEngine) Dimensions() int { return e.dimensions }

// Name returns the engine name.
func (e *VNPTEngine) Name() string { return fmt.Sprintf("vnpt:%s", e.model) }
