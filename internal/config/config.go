package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	LLMBackendLangChain = "langchain"
	LLMBackendOpenAI    = "openai"

	VectorStoreChroma = "chroma"
	VectorStoreLocal  = "local"
)

type Config struct {
	Port            int           `env:"PORT" envDefault:"5000"`
	DatabaseURL     string        `env:"DATABASE_URL" envDefault:"./data/companion.db"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT" envDefault:"120s"`
	AllowedOrigins  []string      `env:"ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
	DevelopmentMode bool          `env:"DEVELOPMENT_MODE" envDefault:"false"`

	OpenAIAPIKey   string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL  string `env:"OPENAI_BASE_URL"`
	ChatModel      string `env:"OPENAI_CHAT_MODEL" envDefault:"gpt-4o-mini"`
	EmbeddingModel string `env:"OPENAI_EMBED_MODEL" envDefault:"text-embedding-3-large"`
	LLMBackend     string `env:"LLM_BACKEND" envDefault:"langchain"`
	UsageFile      string `env:"LLM_USAGE_FILE" envDefault:"./data/usage.json"`

	VectorStore     string `env:"VECTOR_STORE" envDefault:"local"`
	ChromaURL       string `env:"CHROMA_URL" envDefault:"http://localhost:8000"`
	Collection      string `env:"COLLECTION_NAME" envDefault:"growthboss-rag"`
	EnhancedSearch  bool   `env:"ENHANCED_RETRIEVAL" envDefault:"true"`
	RetrievalK      int    `env:"RETRIEVAL_K" envDefault:"12"`
	PersonasFile    string `env:"PERSONAS_FILE"`
	CouncilContext  string `env:"COUNCIL_CONTEXT" envDefault:"GrowthBoss is a Toronto marketing agency offering website design, brand strategy, SEO, social/performance marketing, photography/videography, and recruitment services. We use the KLT (Know, Like, Trust) Ecosystem framework."`
	MemoryExchanges int    `env:"MEMORY_EXCHANGES" envDefault:"5"`
}

// Load parses the process environment. Call cmd.LoadEnvFile first to pull in
// a .env file.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.OpenAIAPIKey == "" {
		slog.Warn("OPENAI_API_KEY is not set, chat requests will fail until it is configured")
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.LLMBackend {
	case LLMBackendLangChain, LLMBackendOpenAI:
	default:
		return fmt.Errorf("invalid LLM_BACKEND '%s': must be one of %s, %s", c.LLMBackend, LLMBackendLangChain, LLMBackendOpenAI)
	}

	switch c.VectorStore {
	case VectorStoreChroma, VectorStoreLocal:
	default:
		return fmt.Errorf("invalid VECTOR_STORE '%s': must be one of %s, %s", c.VectorStore, VectorStoreChroma, VectorStoreLocal)
	}

	if c.RetrievalK <= 0 {
		return fmt.Errorf("RETRIEVAL_K must be positive, got %d", c.RetrievalK)
	}

	return nil
}
