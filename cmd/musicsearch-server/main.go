// Package main provides the WebSocket chat server for musicsearch.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/MaxHilsdorf/music-search-chatbot/internal/catalog"
	"github.com/MaxHilsdorf/music-search-chatbot/internal/config"
	"github.com/MaxHilsdorf/music-search-chatbot/internal/embedding"
	"github.com/MaxHilsdorf/music-search-chatbot/internal/llm"
	"github.com/MaxHilsdorf/music-search-chatbot/internal/metrics"
	"github.com/MaxHilsdorf/music-search-chatbot/internal/search"
	"github.com/MaxHilsdorf/music-search-chatbot/internal/server"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger, closeLog := config.SetupLogger(cfg.LogFile, cfg.LogLevel)
	defer func() {
		if err := closeLog(); err != nil {
			slog.Error("failed to close log file", "error", err)
		}
	}()
	slog.SetDefault(logger)

	logger.Info("starting musicsearch-server", "addr", cfg.ServerAddr)

	model, err := llm.New(cfg)
	if err != nil {
		logger.Error("failed to create llm client", "error", err)
		os.Exit(1)
	}

	embedder, err := embedding.New(cfg)
	if err != nil {
		logger.Error("failed to create embedder", "error", err)
		os.Exit(1)
	}

	cat, err := catalog.Load(cfg.CatalogPath, cfg.EmbeddingsPath)
	if err != nil {
		logger.Error("failed to load catalog", "error", err)
		os.Exit(1)
	}
	logger.Info("catalog loaded", "tracks", cat.Len(), "dimension", cat.Dimension())

	searcher, err := search.NewSearcher(cat, embedder)
	if err != nil {
		logger.Error("failed to create searcher", "error", err)
		os.Exit(1)
	}

	srv := server.New(server.Deps{
		Model:     model,
		Completer: model,
		Searcher:  searcher,
		Config:    cfg,
		Metrics:   metrics.NewCollector(),
		Logger:    logger,
	})

	// Serve until SIGINT/SIGTERM, then shut down gracefully.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.ListenAndServe(ctx, cfg.ServerAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
