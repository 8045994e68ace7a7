// Package cli provides the command-line interface for musicsearch.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/MaxHilsdorf/music-search-chatbot/internal/catalog"
	"github.com/MaxHilsdorf/music-search-chatbot/internal/chat"
	"github.com/MaxHilsdorf/music-search-chatbot/internal/config"
	"github.com/MaxHilsdorf/music-search-chatbot/internal/embedding"
	"github.com/MaxHilsdorf/music-search-chatbot/internal/llm"
	"github.com/MaxHilsdorf/music-search-chatbot/internal/metrics"
	"github.com/MaxHilsdorf/music-search-chatbot/internal/search"
	"github.com/MaxHilsdorf/music-search-chatbot/internal/session"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose bool

	// Global config and logger, set by the root PersistentPreRunE.
	cfg       config.Config
	logger    *slog.Logger
	logClose  func() error
	collector = metrics.NewCollector()

	// Lazy-initialized services
	model    llm.Client
	embedder embedding.Embedder
	searcher *search.Searcher
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "musicsearch",
	Short: "Conversational music discovery over a caption catalog",
	Long: `Musicsearch is a conversational music discovery assistant.

A receptionist agent interviews you about the music you are after, a
summarizer condenses the conversation into a search query, and the query is
matched against a captioned track catalog by embedding similarity. A
recommender agent then walks you through the candidates.`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if verbose {
			cfg.LogLevel = slog.LevelDebug
		}

		logger, logClose = config.SetupLogger(cfg.LogFile, cfg.LogLevel)
		slog.SetDefault(logger)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logClose != nil {
			if err := logClose(); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close log file: %v\n", err)
			}
		}
	},
}

// getModel lazily creates the chat/completion client.
func getModel() (llm.Client, error) {
	if model == nil {
		var err error
		model, err = llm.New(cfg)
		if err != nil {
			return nil, fmt.Errorf("init llm client: %w", err)
		}
	}
	return model, nil
}

// getSearcher lazily loads the catalog and builds the similarity searcher.
// The catalog load is the expensive step, so commands that never search
// skip it entirely.
func getSearcher() (*search.Searcher, error) {
	if searcher == nil {
		var err error
		embedder, err = embedding.New(cfg)
		if err != nil {
			return nil, fmt.Errorf("init embedder: %w", err)
		}

		cat, err := catalog.Load(cfg.CatalogPath, cfg.EmbeddingsPath)
		if err != nil {
			return nil, fmt.Errorf("load catalog: %w", err)
		}
		logger.Info("catalog loaded", "tracks", cat.Len(), "dimension", cat.Dimension())

		searcher, err = search.NewSearcher(cat, embedder)
		if err != nil {
			return nil, fmt.Errorf("init searcher: %w", err)
		}
	}
	return searcher, nil
}

// newSession builds a fresh conversation session from the loaded services.
func newSession() (*session.Session, error) {
	m, err := getModel()
	if err != nil {
		return nil, err
	}
	s, err := getSearcher()
	if err != nil {
		return nil, err
	}

	return session.New(m, newGate(m), chat.NewSummarizer(m), s, session.Options{
		TopN:             cfg.TopN,
		MaxCaptionLength: cfg.MaxCaptionLength,
		Metrics:          collector,
		Logger:           logger,
	}), nil
}

// newGate builds the completion gate from configuration.
func newGate(completer chat.Completer) chat.Gate {
	if cfg.GateMode == "judgment" {
		return chat.NewJudgmentGate(completer)
	}
	return chat.NewKeywordGate(cfg.StopPhrases...)
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(searchCmd)
}
