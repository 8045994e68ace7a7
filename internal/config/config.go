// Package config provides environment and file based configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Provider identifies a remote model backend.
type Provider string

const (
	ProviderOpenAI  Provider = "openai"
	ProviderOllama  Provider = "ollama"
	ProviderBedrock Provider = "bedrock"
	ProviderVoyage  Provider = "voyage"
)

// Config holds all configuration values.
type Config struct {
	// Chat + text completion
	LLMProvider     Provider
	ChatModel       string
	CompletionModel string
	OpenAIAPIKey    string
	OllamaHost      string
	BedrockModelID  string

	// Embeddings
	EmbedProvider  Provider
	EmbedModel     string
	EmbedDimension int
	VoyageAPIKey   string

	// Catalog artifact
	CatalogPath    string
	EmbeddingsPath string

	// Conversation
	GateMode         string
	StopPhrases      []string
	TopN             int
	MaxCaptionLength int
	RequestTimeout   time.Duration

	// Server
	ServerAddr string

	// Logging
	LogFile  string
	LogLevel slog.Level
}

// Load reads configuration from environment variables, applying an optional
// YAML file first (MUSICSEARCH_CONFIG, falling back to ./musicsearch.yaml).
// Environment variables win over file values.
func Load() (Config, error) {
	cfg := defaults()

	path := os.Getenv("MUSICSEARCH_CONFIG")
	if path == "" {
		if _, err := os.Stat("musicsearch.yaml"); err == nil {
			path = "musicsearch.yaml"
		}
	}
	if path != "" {
		if err := applyFile(&cfg, path); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

func defaults() Config {
	return Config{
		LLMProvider:     ProviderOpenAI,
		ChatModel:       "gpt-3.5-turbo",
		CompletionModel: "gpt-3.5-turbo-instruct",
		OllamaHost:      "http://localhost:11434",
		BedrockModelID:  "anthropic.claude-3-haiku-20240307-v1:0",

		EmbedProvider:  ProviderOpenAI,
		EmbedModel:     "text-embedding-ada-002",
		EmbedDimension: 1536,

		CatalogPath:    "data/musiccaps-public.csv",
		EmbeddingsPath: "embeddings/aggregated_embeddings.npy",

		GateMode:         "keyword",
		StopPhrases:      []string{"start search"},
		TopN:             5,
		MaxCaptionLength: 500,
		RequestTimeout:   30 * time.Second,

		ServerAddr: ":8484",

		LogFile:  "/tmp/musicsearch.log",
		LogLevel: slog.LevelInfo,
	}
}

// fileConfig mirrors Config with optional fields for the YAML overlay.
type fileConfig struct {
	LLMProvider     *string  `yaml:"llm_provider"`
	ChatModel       *string  `yaml:"chat_model"`
	CompletionModel *string  `yaml:"completion_model"`
	OllamaHost      *string  `yaml:"ollama_host"`
	BedrockModelID  *string  `yaml:"bedrock_model_id"`
	EmbedProvider   *string  `yaml:"embed_provider"`
	EmbedModel      *string  `yaml:"embed_model"`
	EmbedDimension  *int     `yaml:"embed_dimension"`
	CatalogPath     *string  `yaml:"catalog_path"`
	EmbeddingsPath  *string  `yaml:"embeddings_path"`
	GateMode        *string  `yaml:"gate_mode"`
	StopPhrases     []string `yaml:"stop_phrases"`
	TopN            *int     `yaml:"top_n"`
	MaxCaptionLen   *int     `yaml:"max_caption_length"`
	TimeoutSecs     *int     `yaml:"timeout_secs"`
	ServerAddr      *string  `yaml:"server_addr"`
	LogFile         *string  `yaml:"log_file"`
	LogLevel        *string  `yaml:"log_level"`
}

func applyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return err
	}

	setString := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	setString((*string)(&cfg.LLMProvider), fc.LLMProvider)
	setString(&cfg.ChatModel, fc.ChatModel)
	setString(&cfg.CompletionModel, fc.CompletionModel)
	setString(&cfg.OllamaHost, fc.OllamaHost)
	setString(&cfg.BedrockModelID, fc.BedrockModelID)
	setString((*string)(&cfg.EmbedProvider), fc.EmbedProvider)
	setString(&cfg.EmbedModel, fc.EmbedModel)
	setString(&cfg.CatalogPath, fc.CatalogPath)
	setString(&cfg.EmbeddingsPath, fc.EmbeddingsPath)
	setString(&cfg.GateMode, fc.GateMode)
	setString(&cfg.ServerAddr, fc.ServerAddr)
	setString(&cfg.LogFile, fc.LogFile)

	if fc.EmbedDimension != nil {
		cfg.EmbedDimension = *fc.EmbedDimension
	}
	if len(fc.StopPhrases) > 0 {
		cfg.StopPhrases = fc.StopPhrases
	}
	if fc.TopN != nil {
		cfg.TopN = *fc.TopN
	}
	if fc.MaxCaptionLen != nil {
		cfg.MaxCaptionLength = *fc.MaxCaptionLen
	}
	if fc.TimeoutSecs != nil {
		cfg.RequestTimeout = time.Duration(*fc.TimeoutSecs) * time.Second
	}
	if fc.LogLevel != nil {
		cfg.LogLevel = parseLogLevel(*fc.LogLevel)
	}
	return nil
}

func applyEnv(cfg *Config) {
	setEnv := func(dst *string, key string) {
		if val := os.Getenv(key); val != "" {
			*dst = val
		}
	}
	setEnv((*string)(&cfg.LLMProvider), "MUSICSEARCH_LLM_PROVIDER")
	setEnv(&cfg.ChatModel, "MUSICSEARCH_CHAT_MODEL")
	setEnv(&cfg.CompletionModel, "MUSICSEARCH_COMPLETION_MODEL")
	setEnv(&cfg.OpenAIAPIKey, "OPENAI_API_KEY")
	setEnv(&cfg.OllamaHost, "OLLAMA_HOST")
	setEnv(&cfg.BedrockModelID, "MUSICSEARCH_BEDROCK_MODEL_ID")
	setEnv((*string)(&cfg.EmbedProvider), "MUSICSEARCH_EMBED_PROVIDER")
	setEnv(&cfg.EmbedModel, "MUSICSEARCH_EMBED_MODEL")
	setEnv(&cfg.VoyageAPIKey, "VOYAGE_API_KEY")
	setEnv(&cfg.CatalogPath, "MUSICSEARCH_CATALOG")
	setEnv(&cfg.EmbeddingsPath, "MUSICSEARCH_EMBEDDINGS")
	setEnv(&cfg.GateMode, "MUSICSEARCH_GATE")
	setEnv(&cfg.ServerAddr, "MUSICSEARCH_SERVER_ADDR")
	setEnv(&cfg.LogFile, "MUSICSEARCH_LOG_FILE")

	if val := os.Getenv("MUSICSEARCH_EMBED_DIMENSION"); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			cfg.EmbedDimension = n
		}
	}
	if val := os.Getenv("MUSICSEARCH_STOP_PHRASES"); val != "" {
		phrases := strings.Split(val, ",")
		for i := range phrases {
			phrases[i] = strings.TrimSpace(phrases[i])
		}
		cfg.StopPhrases = phrases
	}
	if val := os.Getenv("MUSICSEARCH_TOP_N"); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			cfg.TopN = n
		}
	}
	if val := os.Getenv("MUSICSEARCH_MAX_CAPTION_LENGTH"); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			cfg.MaxCaptionLength = n
		}
	}
	if val := os.Getenv("MUSICSEARCH_TIMEOUT_SECS"); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			cfg.RequestTimeout = time.Duration(n) * time.Second
		}
	}
	if val := os.Getenv("MUSICSEARCH_LOG_LEVEL"); val != "" {
		cfg.LogLevel = parseLogLevel(val)
	}
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
