// Clinicd is a patient-scoped medical retrieval and explanation daemon.
//
// It indexes uploaded medical records per patient in an embedded vector
// store, answers chat questions from that history, and produces auditable
// explanations of every response.
//
// Configuration is loaded from ~/.config/clinicd/config.yaml and overridden
// by environment variables. See internal/config for details.
//
// Usage:
//
//	# Start server with defaults
//	clinicd
//
//	# Configure via environment
//	SERVER_PORT=8000 EMBEDDINGS_PROVIDER=deterministic clinicd
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/clinicd/internal/chat"
	"github.com/fyrsmithlabs/clinicd/internal/config"
	"github.com/fyrsmithlabs/clinicd/internal/conversation"
	"github.com/fyrsmithlabs/clinicd/internal/embeddings"
	"github.com/fyrsmithlabs/clinicd/internal/explain"
	"github.com/fyrsmithlabs/clinicd/internal/patients"
	"github.com/fyrsmithlabs/clinicd/internal/server"
	"github.com/fyrsmithlabs/clinicd/internal/vectorstore"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default ~/.config/clinicd/config.yaml)")
	flag.Parse()
	args := flag.Args()

	if len(args) > 0 {
		switch args[0] {
		case "version":
			printVersion()
			os.Exit(0)
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
			fmt.Fprintf(os.Stderr, "\nUsage:\n")
			fmt.Fprintf(os.Stderr, "  clinicd           Start the clinicd daemon\n")
			fmt.Fprintf(os.Stderr, "  clinicd version   Show version information\n")
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Printf("Received signal %v, shutting down gracefully...", sig)
		cancel()
	}()

	if err := run(ctx, *configPath); err != nil {
		log.Fatalf("Server error: %v", err)
	}

	log.Println("Server shutdown complete")
}

func printVersion() {
	fmt.Printf("clinicd by Fyrsmith Labs\n")
	fmt.Printf("Version:    %s\n", version)
	fmt.Printf("Commit:     %s\n", gitCommit)
	fmt.Printf("Build Date: %s\n", buildDate)
}

// run starts the clinicd server and blocks until context is cancelled.
//
// Initialization order:
//  1. Load and validate configuration
//  2. Initialize logger
//  3. Create embedding provider and medical record index
//  4. Wire registry, conversation log, chat, and explain services
//  5. Start HTTP server
//
// Returns http.ErrServerClosed on graceful shutdown.
func run(ctx context.Context, configPath string) error {
	if err := config.EnsureConfigDir(); err != nil {
		return fmt.Errorf("failed to ensure config directory: %w", err)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := initLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync() // Best-effort sync on shutdown
	}()

	logger.Info("Starting clinicd",
		zap.String("version", version),
		zap.Int("port", cfg.Server.Port),
		zap.Duration("shutdown_timeout", cfg.Server.ShutdownTimeout))

	embedder, err := embeddings.NewProvider(embeddings.Config{
		Provider:   cfg.Embeddings.Provider,
		Model:      cfg.Embeddings.Model,
		CacheDir:   cfg.Embeddings.CacheDir,
		VectorSize: cfg.Store.VectorSize,
	})
	if err != nil {
		return fmt.Errorf("failed to create embedding provider: %w", err)
	}
	defer func() {
		_ = embedder.Close()
	}()

	logger.Info("Embedding provider initialized",
		zap.String("provider", cfg.Embeddings.Provider),
		zap.String("model", cfg.Embeddings.Model),
		zap.Int("dimension", embedder.Dimension()))

	index, err := vectorstore.New(vectorstore.Config{
		Path:       cfg.Store.Path,
		Compress:   cfg.Store.Compress,
		Collection: cfg.Store.Collection,
		VectorSize: cfg.Store.VectorSize,
	}, embedder, logger)
	if err != nil {
		return fmt.Errorf("failed to create record index: %w", err)
	}
	defer func() {
		_ = index.Close()
	}()

	registry := patients.NewMemoryRepository()
	convLog := conversation.NewLog(logger)

	chatSvc := chat.NewService(registry, index, convLog, nil, chat.Config{
		QueryResults:   cfg.Chat.QueryResults,
		ContextRecords: cfg.Chat.ContextRecords,
	}, logger)
	composer := explain.NewComposer(registry, index, logger)

	srv, err := server.NewServer(server.Config{
		Port:            cfg.Server.Port,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, registry, index, chatSvc, composer, convLog, logger)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	logger.Info("Server configured",
		zap.String("health_endpoint", fmt.Sprintf("http://localhost:%d/health", cfg.Server.Port)),
		zap.String("metrics_endpoint", "/metrics"))

	return srv.Start(ctx)
}

// initLogger initializes the structured logger.
func initLogger(cfg *config.Config) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.Log.Development {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zap.ParseAtomicLevel(cfg.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Log.Level, err)
	}
	zapCfg.Level = level

	return zapCfg.Build()
}
