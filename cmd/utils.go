package cmd

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"

	"growth-companion/internal/config"
	"growth-companion/internal/llm"
	"growth-companion/internal/rag"

	"github.com/joho/godotenv"
	"github.com/tmc/langchaingo/embeddings"
	"gorm.io/gorm"
)

func LoadEnvFile() {
	var configPath string

	flag.StringVar(&configPath, "env", "", "path to load env from")
	flag.Parse()

	if configPath == "" {
		log.Printf("no env file specified, using os.Environ only")
		return
	}

	log.Printf("loading env from file %s", configPath)
	err := godotenv.Load(configPath)
	if err != nil {
		log.Fatalf("error loading .env file '%s': %v", configPath, err)
	}
}

var ErrMissingAPIKey = errors.New("OPENAI_API_KEY is not set")

// InitializeModels returns the chat model selected by LLM_BACKEND and the
// embedder. Embeddings always go through langchaingo.
func InitializeModels(cfg *config.Config) (llm.LLM, embeddings.Embedder, error) {
	if cfg.OpenAIAPIKey == "" {
		return nil, nil, ErrMissingAPIKey
	}

	lc, err := llm.NewLangChain(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.ChatModel, cfg.EmbeddingModel)
	if err != nil {
		return nil, nil, fmt.Errorf("error initializing langchain client: %w", err)
	}

	embedder, err := lc.Embedder()
	if err != nil {
		return nil, nil, fmt.Errorf("error initializing embedder: %w", err)
	}

	var model llm.LLM = lc
	if cfg.LLMBackend == config.LLMBackendOpenAI {
		model = llm.NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.ChatModel, cfg.UsageFile)
	}

	slog.Info("models initialized", "backend", cfg.LLMBackend, "chat_model", cfg.ChatModel, "embedding_model", cfg.EmbeddingModel)
	return model, embedder, nil
}

func InitializeStore(cfg *config.Config, db *gorm.DB, embedder embeddings.Embedder) (rag.Store, error) {
	switch cfg.VectorStore {
	case config.VectorStoreChroma:
		store, err := rag.NewChromaStore(cfg.ChromaURL, cfg.Collection, embedder)
		if err != nil {
			return nil, fmt.Errorf("error connecting to chroma at %s: %w", cfg.ChromaURL, err)
		}
		slog.Info("using chroma vector store", "url", cfg.ChromaURL, "collection", cfg.Collection)
		return store, nil
	default:
		slog.Info("using local vector store", "collection", cfg.Collection)
		return rag.NewLocalStore(db, embedder, cfg.Collection), nil
	}
}
