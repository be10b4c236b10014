// Package embedder talks to an OpenAI-compatible embeddings endpoint.
// The engine never computes embeddings itself; it treats this producer
// as a bounded, cancellable call whose failure leaves an entity
// unembedded rather than failing the write that needed it.
package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/craftwise/craftwise-backend/internal/platform/logger"
	"github.com/craftwise/craftwise-backend/internal/utils"
)

type Client interface {
	// Embed returns one vector per input, each of Dim() length.
	Embed(ctx context.Context, inputs []string) ([][]float32, error)
	Dim() int
}

type client struct {
	log        *logger.Logger
	baseURL    string
	apiKey     string
	model      string
	dim        int
	httpClient *http.Client
}

// NewFromEnv reads EMBEDDER_BASE_URL, EMBEDDER_API_KEY, EMBEDDER_MODEL,
// EMBEDDER_DIM and EMBEDDER_TIMEOUT_SECONDS.
func NewFromEnv(baseLog *logger.Logger) (Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(os.Getenv("EMBEDDER_BASE_URL")), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("missing EMBEDDER_BASE_URL")
	}
	model := strings.TrimSpace(os.Getenv("EMBEDDER_MODEL"))
	if model == "" {
		model = "text-embedding-3-small"
	}
	return New(baseLog, Config{
		BaseURL: baseURL,
		APIKey:  strings.TrimSpace(os.Getenv("EMBEDDER_API_KEY")),
		Model:   model,
		Dim:     utils.GetEnvAsInt("EMBEDDER_DIM", 768, baseLog),
		Timeout: time.Duration(utils.GetEnvAsInt("EMBEDDER_TIMEOUT_SECONDS", 15, baseLog)) * time.Second,
	}), nil
}

type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Dim     int
	Timeout time.Duration
}

func New(baseLog *logger.Logger, cfg Config) Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &client{
		log:        baseLog.With("client", "embedder"),
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		dim:        cfg.Dim,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

func (c *client) Dim() int { return c.dim }

type embeddingsRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingsResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}

func (c *client) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	if len(inputs) == 0 {
		return [][]float32{}, nil
	}
	clean := make([]string, len(inputs))
	for i := range inputs {
		s := strings.TrimSpace(inputs[i])
		if s == "" {
			s = " "
		}
		clean[i] = s
	}

	body, err := json.Marshal(embeddingsRequest{Model: c.model, Input: clean})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embeddings request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("embeddings endpoint returned %d: %s", resp.StatusCode, string(snippet))
	}

	var parsed embeddingsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode embeddings response: %w", err)
	}
	if len(parsed.Data) != len(clean) {
		return nil, fmt.Errorf("embeddings response count mismatch: want=%d got=%d", len(clean), len(parsed.Data))
	}

	out := make([][]float32, len(clean))
	for _, d := range parsed.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, fmt.Errorf("embeddings response index %d out of range", d.Index)
		}
		if c.dim > 0 && len(d.Embedding) != c.dim {
			return nil, fmt.Errorf("embedding dimension mismatch: want=%d got=%d", c.dim, len(d.Embedding))
		}
		vec := make([]float32, len(d.Embedding))
		for i, f := range d.Embedding {
			vec[i] = float32(f)
		}
		out[d.Index] = vec
	}
	for i, v := range out {
		if v == nil {
			return nil, fmt.Errorf("embeddings response missing index %d", i)
		}
	}
	return out, nil
}
