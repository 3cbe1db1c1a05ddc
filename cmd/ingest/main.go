package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"

	"growth-companion/cmd"
	"growth-companion/internal/config"
	"growth-companion/internal/database"
	"growth-companion/internal/rag"
	"growth-companion/internal/storage"

	"github.com/caarlos0/env/v11"
	"github.com/schollz/progressbar/v3"
)

type IngestConfig struct {
	Source            string `env:"INGEST_SOURCE" envDefault:"./data/processed"`
	Workers           int    `env:"INGEST_WORKERS" envDefault:"2"`
	BatchSize         int    `env:"INGEST_BATCH_SIZE" envDefault:"64"`
	S3EndpointURL     string `env:"S3_ENDPOINT_URL"`
	S3AccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	S3SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
	S3Region          string `env:"AWS_REGION" envDefault:"us-east-1"`
}

func openCorpus(ctx context.Context, cfg IngestConfig, loc storage.Location) (storage.Provider, error) {
	if !loc.IsS3() {
		return storage.NewLocalProvider(loc.Prefix), nil
	}

	s3p, err := storage.NewS3Provider(storage.S3ProviderConfig{
		S3EndpointURL:     cfg.S3EndpointURL,
		S3AccessKeyID:     cfg.S3AccessKeyID,
		S3SecretAccessKey: cfg.S3SecretAccessKey,
		S3Region:          cfg.S3Region,
	})
	if err != nil {
		return nil, err
	}
	if err := s3p.ValidateAccess(ctx, loc.Bucket, loc.Prefix); err != nil {
		return nil, err
	}
	return s3p, nil
}

func main() {
	source := flag.String("source", "", "local directory or s3://bucket/prefix of processed documents (overrides INGEST_SOURCE)")
	rebuild := flag.Bool("rebuild", true, "clear the collection before ingesting")

	cmd.LoadEnvFile()

	var ingestCfg IngestConfig
	if err := env.Parse(&ingestCfg); err != nil {
		log.Fatalf("error parsing config: %v", err)
	}
	if *source != "" {
		ingestCfg.Source = *source
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("error loading config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	loc, err := storage.ParseLocation(ingestCfg.Source)
	if err != nil {
		log.Fatalf("invalid source: %v", err)
	}

	provider, err := openCorpus(ctx, ingestCfg, loc)
	if err != nil {
		log.Fatalf("error opening corpus: %v", err)
	}

	bucket, prefix := loc.Bucket, loc.Prefix
	if !loc.IsS3() {
		prefix = ""
	}

	docs, err := rag.LoadCorpus(ctx, provider, bucket, prefix)
	if err != nil {
		log.Fatalf("error loading corpus: %v", err)
	}
	slog.Info("corpus loaded", "source", ingestCfg.Source, "documents", len(docs))

	db, err := database.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	_, embedder, err := cmd.InitializeModels(cfg)
	if err != nil {
		log.Fatalf("error initializing models: %v", err)
	}

	store, err := cmd.InitializeStore(cfg, db, embedder)
	if err != nil {
		log.Fatalf("error initializing vector store: %v", err)
	}

	bar := progressbar.NewOptions(len(docs),
		progressbar.OptionSetDescription("⏳ embedding"),
		progressbar.OptionSetWidth(30),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)

	stored, err := rag.Ingest(ctx, store, docs, rag.IngestOptions{
		BatchSize: ingestCfg.BatchSize,
		Workers:   ingestCfg.Workers,
		Rebuild:   *rebuild,
		OnBatch: func(n int) {
			_ = bar.Add(n)
		},
	})
	_ = bar.Finish()
	if err != nil {
		log.Fatalf("ingest failed after %d documents: %v", stored, err)
	}

	log.Printf("ingested %d documents into collection %s", stored, cfg.Collection)
}
