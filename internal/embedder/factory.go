package embedder

import (
	"fmt"
	"os"
	"strconv"
)

// defaultOpenAIDeployment is the embedding deployment used when
// AZURE_OPENAI_EMBEDDING_DEPLOYMENT_NAME is not set.
const defaultOpenAIDeployment = "text-embedding-3-small"

// NewVisionFromEnv constructs the Vision embedder from environment variables.
// AZURE_AI_VISION_ENDPOINT and AZURE_AI_VISION_KEY are required; absence is
// a fail-fast condition at construction, not at call time.
func NewVisionFromEnv() (*VisionEmbedder, error) {
	return NewVisionEmbedder(&VisionConfig{
		Endpoint: os.Getenv("AZURE_AI_VISION_ENDPOINT"),
		APIKey:   os.Getenv("AZURE_AI_VISION_KEY"),
	})
}

// NewTextEmbedderFromEnv constructs the text embedder used by the query path.
//
// Resolution order:
//
//  1. EMBEDDING_PROVIDER selects the backend: "vision" (default) or
//     "azure-openai".
//  2. "vision" shares the multimodal retrieval endpoint with the image
//     path, so query vectors land in the same space as indexed images.
//  3. "azure-openai" calls the Azure OpenAI embeddings API with the
//     deployment named by AZURE_OPENAI_EMBEDDING_DEPLOYMENT_NAME. Only
//     meaningful when the index holds vectors from the same deployment.
func NewTextEmbedderFromEnv() (TextEmbedder, error) {
	backend := getEnvOrDefault("EMBEDDING_PROVIDER", "vision")

	switch backend {
	case "vision":
		return NewVisionFromEnv()

	case "azure-openai":
		return NewOpenAIEmbedder(&OpenAIConfig{
			Endpoint:   os.Getenv("AZURE_OPENAI_ENDPOINT"),
			APIKey:     os.Getenv("AZURE_OPENAI_API_KEY"),
			Deployment: getEnvOrDefault("AZURE_OPENAI_EMBEDDING_DEPLOYMENT_NAME", defaultOpenAIDeployment),
		})

	default:
		return nil, fmt.Errorf("embedder: unknown backend %q: valid values are vision, azure-openai", backend)
	}
}

// Dimensions returns the embedding vector size the index collection must be
// created with. EMBEDDING_DIMENSIONS always takes precedence when set;
// otherwise the default for the resolved backend is used.
func Dimensions() int {
	if v := getEnvInt("EMBEDDING_DIMENSIONS", 0); v > 0 {
		return v
	}
	if getEnvOrDefault("EMBEDDING_PROVIDER", "vision") == "azure-openai" {
		return DefaultOpenAIDimensions
	}
	return DefaultVisionDimensions
}

// getEnvOrDefault returns the value of the named environment variable, or
// fallback if the variable is unset or empty.
func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getEnvInt returns the integer value of the named environment variable, or
// fallback if the variable is unset, empty, or not parseable.
func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
