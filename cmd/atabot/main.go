package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/atabot/atabot/internal/answer"
	"github.com/atabot/atabot/internal/cache"
	"github.com/atabot/atabot/internal/config"
	"github.com/atabot/atabot/internal/database"
	"github.com/atabot/atabot/internal/embedding"
	"github.com/atabot/atabot/internal/engine"
	"github.com/atabot/atabot/internal/httpx"
	"github.com/atabot/atabot/internal/ingest"
	"github.com/atabot/atabot/internal/language"
	"github.com/atabot/atabot/internal/llm"
	"github.com/atabot/atabot/internal/logger"
	"github.com/atabot/atabot/internal/query"
	"github.com/atabot/atabot/internal/retriever"
	"github.com/atabot/atabot/internal/server"
	"github.com/atabot/atabot/internal/vectordb"
)

func main() {
	configPath := flag.String("config", "", "path to yaml config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal("load config: ", err)
	}
	if _, err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		log.Fatal("init logger: ", err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv, cleanup, err := build(ctx, cfg)
	if err != nil {
		logger.Errorf("build application: %v", err)
		os.Exit(1)
	}
	defer cleanup()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		if err := srv.Run(); err != nil {
			errChan <- err
		}
	}()

	select {
	case sig := <-sigChan:
		logger.Infof("received %s, shutting down", sig)
		if err := srv.Shutdown(context.Background()); err != nil {
			logger.Errorf("shutdown: %v", err)
		}
		logger.Infof("server stopped")
	case err := <-errChan:
		logger.Errorf("server error: %v", err)
		cancel()
		os.Exit(1)
	}
}

// build wires the providers, the engine and the HTTP server.
func build(ctx context.Context, cfg *config.Config) (*server.Server, func(), error) {
	hc := httpx.NewFromConfig(cfg.HTTP)

	embedder, err := embedding.NewProvider(cfg.Embedding, hc)
	if err != nil {
		return nil, nil, err
	}
	generator, err := llm.NewProvider(cfg.LLM, hc)
	if err != nil {
		return nil, nil, err
	}
	store, err := vectordb.NewProvider(ctx, cfg.VectorDB, cfg.Embedding.Dimensions)
	if err != nil {
		return nil, nil, err
	}

	var db database.Introspector
	if cfg.Database.URL != "" {
		db, err = database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			store.Close()
			return nil, nil, err
		}
	} else {
		logger.Warnf("no database configured, sync and schema endpoints disabled")
	}

	detect := language.LexicalDetector{}
	eng := &engine.Engine{
		Classifier: &query.Classifier{
			LLM:  generator,
			Cues: query.NewCueCache(cfg.RAG.LearnedCues),
		},
		Decomposer: &query.Decomposer{LLM: generator},
		Answerer: &answer.Answerer{
			Retriever: &retriever.VectorRetriever{Embed: embedder, Store: store, TopK: cfg.RAG.TopK},
			LLM:       generator,
			Detect:    detect,
			MaxTokens: cfg.RAG.MaxAnswerTokens,
		},
		Combiner:    &answer.Combiner{LLM: generator, Detect: detect},
		Sessions:    engine.NewMemSessionStore(),
		TopK:        cfg.RAG.TopK,
		MinScore:    cfg.RAG.MinScore,
		MaxSessions: cfg.Server.MaxSessions,
	}
	if cfg.Cache != nil && cfg.Cache.Enable {
		eng.Cache = cache.NewLRU(cfg.Cache.MaxEntries, time.Duration(cfg.Cache.TTLSeconds)*time.Second)
		eng.CacheTTL = time.Duration(cfg.Cache.TTLSeconds) * time.Second
	}

	var syncer *ingest.Syncer
	if db != nil {
		syncer = &ingest.Syncer{
			DB:            db,
			Embed:         embedder,
			Store:         store,
			BatchSize:     cfg.Ingest.BatchSize,
			RetryAttempts: cfg.Ingest.RetryAttempts,
			RowLimit:      cfg.Ingest.RowLimit,
		}
	}

	srv := server.New(cfg.Server, eng, syncer, db, store)
	cleanup := func() {
		if db != nil {
			db.Close()
		}
		if err := store.Close(); err != nil {
			logger.Warnf("close vector store: %v", err)
		}
	}
	return srv, cleanup, nil
}
