// Package config provides YAML-based configuration for imgsearch.
// Configuration is loaded with a layered precedence: defaults → YAML file →
// env vars. Environment variables always win, so container deployments that
// inject secrets through the environment are unaffected by a config file.
//
// File search order:
//  1. --config CLI flag (explicit path)
//  2. IMGSEARCH_CONFIG environment variable
//  3. ~/.imgsearch/config.yaml
//  4. ./imgsearch.yaml
//
// If no file is found the system runs entirely from env vars.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the top-level YAML configuration structure.
// Field names use yaml tags that mirror the env var naming.
type Config struct {
	// Storage configures the blob storage account whose events we consume.
	Storage StorageConfig `yaml:"storage"`

	// Vision configures the Azure AI Vision resource used for both
	// vectorization and image analysis.
	Vision VisionConfig `yaml:"vision"`

	// Embedding configures the text-embedding backend for the query path.
	Embedding EmbeddingConfig `yaml:"embedding"`

	// Qdrant configures the vector index connection.
	Qdrant QdrantConfig `yaml:"qdrant"`

	// Server configures the HTTP server.
	Server ServerConfig `yaml:"server"`

	// Logging configures structured logging.
	Logging LoggingConfig `yaml:"logging"`

	// Journal configures the processing journal.
	Journal JournalConfig `yaml:"journal"`
}

// StorageConfig holds blob storage settings.
type StorageConfig struct {
	// Account is the storage account name used to build blob URLs from
	// event subjects.
	Account string `yaml:"account"`
}

// VisionConfig holds Azure AI Vision settings.
type VisionConfig struct {
	// Endpoint is the Vision resource base URL.
	Endpoint string `yaml:"endpoint"`
	// APIKey is the Vision resource key. Prefer env var AZURE_AI_VISION_KEY.
	APIKey string `yaml:"api_key"`
}

// EmbeddingConfig holds text-embedding settings for the query path.
type EmbeddingConfig struct {
	// Provider selects the backend: vision (default) or azure-openai.
	Provider string `yaml:"provider"`
	// Dimensions overrides the embedding vector size.
	Dimensions int `yaml:"dimensions"`
	// OpenAIEndpoint is the Azure OpenAI resource endpoint (azure-openai only).
	OpenAIEndpoint string `yaml:"openai_endpoint"`
	// OpenAIAPIKey is the Azure OpenAI key. Prefer env var AZURE_OPENAI_API_KEY.
	OpenAIAPIKey string `yaml:"openai_api_key"`
	// OpenAIDeployment is the embedding deployment name (azure-openai only).
	OpenAIDeployment string `yaml:"openai_deployment"`
}

// QdrantConfig holds vector index settings.
type QdrantConfig struct {
	// Host is the Qdrant server hostname.
	Host string `yaml:"host"`
	// Port is the Qdrant gRPC port.
	Port int `yaml:"port"`
	// Collection is the Qdrant collection name.
	Collection string `yaml:"collection"`
	// APIKey is the Qdrant API key. Prefer env var QDRANT_API_KEY.
	APIKey string `yaml:"api_key"`
	// TLS enables TLS for the Qdrant connection.
	TLS bool `yaml:"tls"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the bind address.
	Host string `yaml:"host"`
	// Port is the TCP port.
	Port int `yaml:"port"`
	// APIKey is the Bearer token for API authentication. Prefer env var IMGSEARCH_API_KEY.
	APIKey string `yaml:"api_key"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error.
	Level string `yaml:"level"`
	// Format is the log output format: json, text.
	Format string `yaml:"format"`
}

// JournalConfig holds processing journal settings.
type JournalConfig struct {
	// DBPath is the SQLite database path. Set to "disabled" to disable.
	DBPath string `yaml:"db_path"`
}

// envMapping maps YAML config fields to their corresponding env var names.
// Only non-empty YAML values are applied; env vars always take precedence.
var envMapping = []struct {
	envKey string
	value  func(*Config) string
}{
	{"AZURE_STORAGE_ACCOUNT_NAME", func(c *Config) string { return c.Storage.Account }},
	{"AZURE_AI_VISION_ENDPOINT", func(c *Config) string { return c.Vision.Endpoint }},
	{"AZURE_AI_VISION_KEY", func(c *Config) string { return c.Vision.APIKey }},
	{"EMBEDDING_PROVIDER", func(c *Config) string { return c.Embedding.Provider }},
	{"EMBEDDING_DIMENSIONS", func(c *Config) string { return intStr(c.Embedding.Dimensions) }},
	{"AZURE_OPENAI_ENDPOINT", func(c *Config) string { return c.Embedding.OpenAIEndpoint }},
	{"AZURE_OPENAI_API_KEY", func(c *Config) string { return c.Embedding.OpenAIAPIKey }},
	{"AZURE_OPENAI_EMBEDDING_DEPLOYMENT_NAME", func(c *Config) string { return c.Embedding.OpenAIDeployment }},
	{"QDRANT_HOST", func(c *Config) string { return c.Qdrant.Host }},
	{"QDRANT_PORT", func(c *Config) string { return intStr(c.Qdrant.Port) }},
	{"QDRANT_COLLECTION", func(c *Config) string { return c.Qdrant.Collection }},
	{"QDRANT_API_KEY", func(c *Config) string { return c.Qdrant.APIKey }},
	{"QDRANT_TLS", func(c *Config) string { return boolStr(c.Qdrant.TLS) }},
	{"SERVER_HOST", func(c *Config) string { return c.Server.Host }},
	{"SERVER_PORT", func(c *Config) string { return intStr(c.Server.Port) }},
	{"IMGSEARCH_API_KEY", func(c *Config) string { return c.Server.APIKey }},
	{"LOG_LEVEL", func(c *Config) string { return c.Logging.Level }},
	{"LOG_FORMAT", func(c *Config) string { return c.Logging.Format }},
	{"IMGSEARCH_JOURNAL_DB", func(c *Config) string { return c.Journal.DBPath }},
}

// Load reads a YAML config file and applies non-empty values as environment
// variables. Existing env vars are never overwritten (env always wins).
// Returns the path that was loaded, or empty string if no file was found.
func Load(explicitPath string, log *slog.Logger) (string, error) {
	path := resolveConfigPath(explicitPath)
	if path == "" {
		log.Debug("config: no YAML config file found, using env vars only")
		return "", nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("config: failed to read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return "", fmt.Errorf("config: failed to parse %s: %w", path, err)
	}

	applied := 0
	for _, m := range envMapping {
		yamlVal := m.value(&cfg)
		if yamlVal == "" || yamlVal == "0" || yamlVal == "false" {
			continue
		}
		if os.Getenv(m.envKey) != "" {
			continue // env var already set, never overridden
		}
		os.Setenv(m.envKey, yamlVal)
		applied++
	}

	log.Info("config: loaded YAML config",
		slog.String("path", path),
		slog.Int("keys_applied", applied),
	)

	return path, nil
}

// resolveConfigPath returns the first config file path that exists.
func resolveConfigPath(explicit string) string {
	if explicit != "" {
		if _, err := os.Stat(explicit); err == nil {
			return explicit
		}
		return ""
	}

	if envPath := os.Getenv("IMGSEARCH_CONFIG"); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	home, err := os.UserHomeDir()
	if err == nil {
		p := filepath.Join(home, ".imgsearch", "config.yaml")
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	if _, err := os.Stat("imgsearch.yaml"); err == nil {
		return "imgsearch.yaml"
	}

	return ""
}

// intStr converts an int to string, returning "" for zero values.
func intStr(v int) string {
	if v == 0 {
		return ""
	}
	return fmt.Sprintf("%d", v)
}

// boolStr converts a bool to string, returning "" for false.
func boolStr(v bool) string {
	if !v {
		return ""
	}
	return "true"
}
