package cmd

import (
	"log/slog"
	"os"

	"docq/internal/config"
	"docq/internal/embedder"
	"docq/internal/ingest"
	"docq/internal/llm"
	"docq/internal/rag"
	"docq/internal/store"
	"docq/internal/vecindex"
	"docq/internal/workflow"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	flagConfig     string
	flagDB         string
	flagOllama     string
	flagEmbedModel string
	flagChatModel  string
)

var rootCmd = &cobra.Command{
	Use:   "docq",
	Short: "Ask questions about your documents, answered with RAG",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTUI()
	},
}

func Execute() {
	// A .env file is optional; absence is not an error.
	_ = godotenv.Load()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "docq.yaml", "config file path")
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "database path (default docq.db)")
	rootCmd.PersistentFlags().StringVar(&flagOllama, "ollama", "", "ollama base URL")
	rootCmd.PersistentFlags().StringVar(&flagEmbedModel, "embed-model", "", "embedding model")
	rootCmd.PersistentFlags().StringVar(&flagChatModel, "chat-model", "", "generative model for answers")
}

// loadConfig resolves configuration with flags taking precedence over the
// config file, which takes precedence over environment variables.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("DOCQ_DB"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("DOCQ_OLLAMA_URL"); v != "" {
		cfg.Ollama.BaseURL = v
	}

	if flagDB != "" {
		cfg.DBPath = flagDB
	}
	if flagOllama != "" {
		cfg.Ollama.BaseURL = flagOllama
	}
	if flagEmbedModel != "" {
		cfg.Ollama.EmbedModel = flagEmbedModel
	}
	if flagChatModel != "" {
		cfg.Ollama.ChatModel = flagChatModel
	}
	return cfg, nil
}

// app holds the wired application graph shared by the commands.
type app struct {
	cfg    *config.Config
	st     *store.Store
	ingest *ingest.Service
	engine *rag.Engine
	log    *slog.Logger
}

func buildApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	index, err := vecindex.New(st.DB(), cfg.Ollama.Dimensions)
	if err != nil {
		st.Close()
		return nil, err
	}

	emb := embedder.NewOllamaEmbedder(cfg.Ollama.BaseURL, cfg.Ollama.EmbedModel)
	chat := llm.NewOllamaChat(cfg.Ollama.BaseURL, cfg.Ollama.ChatModel)

	svc := ingest.NewService(st, emb, index, ingest.Options{
		ChunkSize:    cfg.Chunker.TargetSize,
		ChunkOverlap: cfg.Chunker.Overlap,
		Workers:      cfg.Ingest.Workers,
	}, workflow.RetryPolicy{
		MaxAttempts: cfg.Ingest.MaxAttempts,
		BaseDelay:   workflow.DefaultRetryPolicy.BaseDelay,
	}, log)

	engine := rag.NewEngine(emb, index, chat, st, rag.Config{
		TopK:     cfg.Query.TopK,
		Attempts: cfg.Query.Attempts,
	})

	return &app{cfg: cfg, st: st, ingest: svc, engine: engine, log: log}, nil
}

func (a *app) Close() error {
	return a.st.Close()
}
