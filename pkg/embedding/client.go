// Package embedding provides a client for OpenAI-compatible embedding models.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"

	"github.com/alex-lapipa/lawton-engine/internal/config"
	"github.com/alex-lapipa/lawton-engine/pkg/log"
)

// Client turns text into vectors.
// CreateEmbeddings accepts several inputs per call; callers that need one
// remote call per item use CreateEmbedding.
type Client interface {
	CreateEmbedding(ctx context.Context, text string) ([]float32, error)
	CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}

// UpstreamServiceError reports a failed call to the embedding service.
// Body holds the raw response body, or the transport error message.
type UpstreamServiceError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *UpstreamServiceError) Error() string {
	return "OpenAI error: " + e.Body
}

func (e *UpstreamServiceError) Unwrap() error {
	return e.Err
}

type openAICompatibleClient struct {
	cfg    config.EmbeddingConfig
	client *http.Client
}

// NewClient creates an embedding client for the configured endpoint.
func NewClient(cfg config.EmbeddingConfig) Client {
	return NewClientWithHTTP(cfg, &http.Client{})
}

// NewClientWithHTTP is NewClient with a caller-supplied http.Client.
func NewClientWithHTTP(cfg config.EmbeddingConfig, httpClient *http.Client) Client {
	return &openAICompatibleClient{
		cfg:    cfg,
		client: httpClient,
	}
}

type embeddingRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Dimensions int      `json:"dimensions,omitempty"`
}

type embeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// CreateEmbedding embeds a single text with exactly one remote call.
func (c *openAICompatibleClient) CreateEmbedding(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.CreateEmbeddings(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// CreateEmbeddings embeds texts in one request and returns vectors in input order.
func (c *openAICompatibleClient) CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	log.Infof("[EmbeddingClient] calling embedding API, model: %s, inputs: %d", c.cfg.Model, len(texts))

	reqBytes, err := json.Marshal(embeddingRequest{
		Model:      c.cfg.Model,
		Input:      texts,
		Dimensions: c.cfg.Dimensions,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embedding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/embeddings", bytes.NewReader(reqBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		log.Errorf("[EmbeddingClient] embedding API call failed: %v", err)
		return nil, &UpstreamServiceError{Body: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &UpstreamServiceError{StatusCode: resp.StatusCode, Body: err.Error(), Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Errorf("[EmbeddingClient] embedding API returned %s", resp.Status)
		return nil, &UpstreamServiceError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var embeddingResp embeddingResponse
	if err := json.Unmarshal(body, &embeddingResp); err != nil {
		log.Errorf("[EmbeddingClient] failed to decode embedding response: %v", err)
		return nil, &UpstreamServiceError{StatusCode: resp.StatusCode, Body: string(body), Err: err}
	}

	if len(embeddingResp.Data) != len(texts) {
		return nil, &UpstreamServiceError{
			StatusCode: resp.StatusCode,
			Body:       fmt.Sprintf("expected %d embeddings, got %d", len(texts), len(embeddingResp.Data)),
		}
	}

	sort.SliceStable(embeddingResp.Data, func(i, j int) bool {
		return embeddingResp.Data[i].Index < embeddingResp.Data[j].Index
	})
	vectors := make([][]float32, len(embeddingResp.Data))
	for i, d := range embeddingResp.Data {
		if len(d.Embedding) == 0 {
			log.Warnf("[EmbeddingClient] embedding API returned an empty vector")
			return nil, &UpstreamServiceError{StatusCode: resp.StatusCode, Body: "received empty embedding from api"}
		}
		vectors[i] = d.Embedding
	}

	log.Infof("[EmbeddingClient] received %d vectors, dimension: %d", len(vectors), len(vectors[0]))
	return vectors, nil
}
