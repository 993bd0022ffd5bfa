// Package embed is a thin client over a remote OpenAI-compatible embedding
// endpoint, used to vectorize chunk text for the vector store and queries
// for search.
package embed

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/sirupsen/logrus"
)

// maxBatchSize caps how many inputs go into a single request.
const maxBatchSize = 100

// DefaultDimension is the embedding width of the default model. The client
// does not check returned vectors against it.
const DefaultDimension = 1536

// Config is the embedding provider's connection details.
type Config struct {
	BaseURL     string
	BearerToken string
	Model       string
}

// Client wraps an OpenAI-compatible embeddings endpoint.
type Client struct {
	client openai.Client
	model  string
	logger *logrus.Logger
}

// New constructs a Client from cfg.
func New(cfg Config, logger *logrus.Logger) (*Client, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("embed: model is required")
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.BearerToken)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &Client{
		client: openai.NewClient(opts...),
		model:  cfg.Model,
		logger: logger,
	}, nil
}

// APIError carries the status and body of a non-2xx embedding response.
// EmbedBatch does not construct it: a failed request returns the SDK's own
// error, wrapped with the batch offset.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("embed: endpoint returned status %d: %s", e.Status, e.Body)
}

// Embed vectorizes a single string, for the search query path.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embed: expected 1 vector, got %d", len(vectors))
	}
	return vectors[0], nil
}

// EmbedBatch vectorizes texts in order, splitting into requests of at most
// maxBatchSize inputs. Any non-2xx response aborts the whole batch.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += maxBatchSize {
		end := start + maxBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch := texts[start:end]

		resp, err := c.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
			Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: batch},
			Model: c.model,
		})
		if err != nil {
			if c.logger != nil {
				c.logger.WithFields(logrus.Fields{"batch_start": start, "batch_size": len(batch), "error": err.Error()}).Error("embedding request failed")
			}
			return nil, fmt.Errorf("embed: request failed at offset %d: %w", start, err)
		}
		if len(resp.Data) != len(batch) {
			return nil, fmt.Errorf("embed: expected %d vectors, got %d", len(batch), len(resp.Data))
		}

		byIndex := make([][]float32, len(batch))
		for _, d := range resp.Data {
			vec := make([]float32, len(d.Embedding))
			for i, f := range d.Embedding {
				vec[i] = float32(f)
			}
			byIndex[int(d.Index)] = vec
		}
		out = append(out, byIndex...)
	}
	return out, nil
}
