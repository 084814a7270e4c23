// Package embedder provides clients that convert images and free text into
// dense vector embeddings. The primary implementation talks to the Azure AI
// Vision multimodal retrieval API via plain HTTP; an alternate text-only
// implementation uses the Azure OpenAI embeddings API. Both are safe for
// concurrent use and are constructed once per process.
package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrUnavailable marks every failure of an embedding backend: missing
// configuration, transport errors, non-success HTTP status, or a response
// with no vector. Callers use errors.Is to detect it and decide resilience
// policy; no retry is performed here.
var ErrUnavailable = errors.New("embedding service unavailable")

// ImageEmbedder converts an image, referenced by URL, into an embedding.
// Implementations must be safe to call from multiple goroutines.
type ImageEmbedder interface {
	// EmbedImage returns the embedding vector for the image at url.
	EmbedImage(ctx context.Context, url string) ([]float32, error)
}

// TextEmbedder converts free text into an embedding in the same vector
// space used for indexing. Implementations must be safe to call from
// multiple goroutines.
type TextEmbedder interface {
	// EmbedText returns the embedding vector for the given text.
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

const (
	// visionAPIVersion is the retrieval API version query parameter.
	visionAPIVersion = "2024-02-01"
	// visionModelVersion pins the multimodal embedding model so image and
	// text vectors stay in one space across deployments.
	visionModelVersion = "2023-04-15"
	// visionTimeout bounds every outbound vectorization call.
	visionTimeout = 30 * time.Second

	// DefaultVisionDimensions is the output dimension of the multimodal
	// retrieval model. Override with EMBEDDING_DIMENSIONS only if the
	// service changes it; the index collection must match.
	DefaultVisionDimensions = 1024
)

// VisionEmbedder implements ImageEmbedder and TextEmbedder using the Azure
// AI Vision retrieval:vectorizeImage / retrieval:vectorizeText endpoints.
type VisionEmbedder struct {
	// endpoint is the Vision resource base URL, without trailing slash.
	endpoint string
	// apiKey is sent as the Ocp-Apim-Subscription-Key header.
	apiKey string
	// client is the shared HTTP client with a bounded timeout.
	client *http.Client
}

// VisionConfig holds the settings for constructing a VisionEmbedder.
type VisionConfig struct {
	// Endpoint is the Vision resource base URL (e.g. "https://<res>.cognitiveservices.azure.com").
	Endpoint string
	// APIKey is the Vision resource key.
	APIKey string
}

// NewVisionEmbedder constructs a VisionEmbedder from the given config.
// Missing endpoint or key is a construction-time error so a misconfigured
// process fails at startup rather than on the first event.
func NewVisionEmbedder(cfg *VisionConfig) (*VisionEmbedder, error) {
	if cfg.Endpoint == "" || cfg.APIKey == "" {
		return nil, fmt.Errorf("embedder: vision endpoint and API key are required: %w", ErrUnavailable)
	}
	return &VisionEmbedder{
		endpoint: trimTrailingSlash(cfg.Endpoint),
		apiKey:   cfg.APIKey,
		client:   &http.Client{Timeout: visionTimeout},
	}, nil
}

// visionVectorizeRequest is the JSON body for both retrieval endpoints.
// Exactly one of URL or Text is set.
type visionVectorizeRequest struct {
	URL  string `json:"url,omitempty"`
	Text string `json:"text,omitempty"`
}

// visionVectorizeResponse is the JSON body returned by the retrieval endpoints.
type visionVectorizeResponse struct {
	Vector       []float32 `json:"vector"`
	ModelVersion string    `json:"modelVersion"`
	Error        *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// EmbedImage returns the embedding vector for the image at url.
func (e *VisionEmbedder) EmbedImage(ctx context.Context, url string) ([]float32, error) {
	return e.vectorize(ctx, "retrieval:vectorizeImage", visionVectorizeRequest{URL: url})
}

// EmbedText returns the embedding vector for the given text, in the same
// vector space as EmbedImage.
func (e *VisionEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	return e.vectorize(ctx, "retrieval:vectorizeText", visionVectorizeRequest{Text: text})
}

// vectorize performs one call against the named retrieval operation and
// extracts the vector from the response.
func (e *VisionEmbedder) vectorize(ctx context.Context, operation string, body visionVectorizeRequest) ([]float32, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("embedder: marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/computervision/%s?api-version=%s&model-version=%s",
		e.endpoint, operation, visionAPIVersion, visionModelVersion)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("embedder: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Ocp-Apim-Subscription-Key", e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedder: %s request failed: %v: %w", operation, err, ErrUnavailable)
	}
	defer resp.Body.Close()

	var result visionVectorizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("embedder: decode %s response: %v: %w", operation, err, ErrUnavailable)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := fmt.Sprintf("HTTP %d", resp.StatusCode)
		if result.Error != nil {
			msg = fmt.Sprintf("%s (%s)", result.Error.Message, result.Error.Code)
		}
		return nil, fmt.Errorf("embedder: %s: %s: %w", operation, msg, ErrUnavailable)
	}

	if len(result.Vector) == 0 {
		return nil, fmt.Errorf("embedder: %s returned no vector: %w", operation, ErrUnavailable)
	}

	return result.Vector, nil
}

// trimTrailingSlash removes a single trailing slash from s, if present.
func trimTrailingSlash(s string) string {
	if len(s) > 0 && s[len(s)-1] == '/' {
		return s[:len(s)-1]
	}
	return s
}
