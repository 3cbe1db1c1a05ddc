package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"growth-companion/cmd"
	"growth-companion/internal/agents"
	"growth-companion/internal/analytics"
	"growth-companion/internal/api"
	"growth-companion/internal/chat"
	"growth-companion/internal/config"
	"growth-companion/internal/database"
	"growth-companion/internal/rag"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"gorm.io/gorm"
)

// initializeAgents builds the researcher and council. A failure here leaves
// the server up so /api/health can report it.
func initializeAgents(cfg *config.Config, db *gorm.DB, opts *chat.Options) error {
	model, embedder, err := cmd.InitializeModels(cfg)
	if err != nil {
		return err
	}

	store, err := cmd.InitializeStore(cfg, db, embedder)
	if err != nil {
		return err
	}

	diverse := rag.NewDiverse(store)

	var retriever rag.Retriever = diverse
	if cfg.EnhancedSearch {
		retriever = rag.NewEnhanced(diverse, model)
	}
	opts.Researcher = agents.NewResearcher(retriever, model, cfg.RetrievalK)

	personas, err := agents.LoadPersonas(cfg.PersonasFile)
	if err != nil {
		return fmt.Errorf("error loading council personas: %w", err)
	}
	opts.Council = agents.NewCouncil(diverse, model, personas, cfg.CouncilContext)

	opts.Strategist = agents.NewStrategist(
		agents.NewResearcher(retriever, model, agents.DefaultResearchK),
		agents.NewSynthesizer(model, cfg.CouncilContext),
		agents.NewCritic(model),
	)

	return nil
}

func main() {
	log.Println("Starting Growth Companion API...")

	cmd.LoadEnvFile()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("error loading config: %v", err)
	}

	if cfg.DevelopmentMode {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}

	db, err := database.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	tracker := analytics.NewTracker(db, analytics.DefaultRetention)

	opts := chat.Options{
		Tracker:         tracker,
		MemoryExchanges: cfg.MemoryExchanges,
	}
	initErr := initializeAgents(cfg, db, &opts)
	if initErr != nil {
		slog.Error("AI system failed to initialize, chat requests will be rejected", "error", initErr)
	}

	companion := chat.NewCompanion(db, opts)

	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", api.SessionHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.RequestTimeout))

	chatService := api.NewChatService(db, companion, tracker, initErr)
	r.Route("/api", chatService.AddRoutes)

	api.NewWebService().AddRoutes(r)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Println("Shutting down server...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			log.Fatalf("Server forced to shutdown: %v", err)
		}
	}()

	log.Printf("API server listening on port %d", cfg.Port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Could not listen on %d: %v\n", cfg.Port, err)
	}

	log.Println("Server stopped.")
}
