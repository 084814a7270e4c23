package embedder

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// DefaultOpenAIDimensions is the output dimension of text-embedding-3-small,
// the default Azure OpenAI embedding deployment.
const DefaultOpenAIDimensions = 1536

// OpenAIEmbedder implements TextEmbedder using the Azure OpenAI embeddings
// API. It exists for deployments that index text-derived vectors rather than
// multimodal ones; its vector space is NOT compatible with VisionEmbedder,
// so the index collection must be created with the matching dimensionality.
type OpenAIEmbedder struct {
	// client is the shared Azure OpenAI client.
	client *openai.Client
	// model is the embedding deployment name (e.g. "text-embedding-3-small").
	model string
}

// OpenAIConfig holds the settings for constructing an OpenAIEmbedder.
type OpenAIConfig struct {
	// Endpoint is the Azure OpenAI resource endpoint.
	Endpoint string
	// APIKey is the Azure OpenAI resource key.
	APIKey string
	// Deployment is the embedding deployment name.
	Deployment string
}

// NewOpenAIEmbedder constructs an OpenAIEmbedder from the given config.
// Missing configuration is a construction-time error.
func NewOpenAIEmbedder(cfg *OpenAIConfig) (*OpenAIEmbedder, error) {
	if cfg.Endpoint == "" || cfg.APIKey == "" {
		return nil, fmt.Errorf("embedder: azure openai endpoint and API key are required: %w", ErrUnavailable)
	}
	if cfg.Deployment == "" {
		return nil, fmt.Errorf("embedder: azure openai embedding deployment name is required: %w", ErrUnavailable)
	}

	clientCfg := openai.DefaultAzureConfig(cfg.APIKey, cfg.Endpoint)
	return &OpenAIEmbedder{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Deployment,
	}, nil
}

// EmbedText returns the embedding vector for the given text.
func (e *OpenAIEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(e.model),
		Input: []string{text},
	})
	if err != nil {
		return nil, fmt.Errorf("embedder: azure openai: %v: %w", err, ErrUnavailable)
	}

	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("embedder: azure openai returned no embedding: %w", ErrUnavailable)
	}

	return resp.Data[0].Embedding, nil
}
