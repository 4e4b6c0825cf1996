package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/structdoc/pdfmarkup/internal/config"
	"github.com/structdoc/pdfmarkup/internal/extract"
	"github.com/structdoc/pdfmarkup/internal/markup"
	"github.com/structdoc/pdfmarkup/internal/reconstruct"
	"github.com/structdoc/pdfmarkup/internal/server"
	"github.com/structdoc/pdfmarkup/internal/worker"
)

var (
	version   = "dev"     // This will be set by build flags
	buildTime = "unknown" // This will be set by build flags
	gitCommit = "unknown" // This will be set by build flags
)

// setupLogging configures logging based on the run mode
func setupLogging(cfg *config.Config) {
	if cfg.IsStdioMode() {
		// In stdio mode, redirect log output to stderr to avoid interfering with MCP protocol
		log.SetOutput(os.Stderr)
		if !cfg.IsDebug() {
			log.SetOutput(os.NewFile(0, os.DevNull))
		}
	} else {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	}
}

// runServerMode handles HTTP server execution with signal handling
func runServerMode(ctx context.Context, cancel context.CancelFunc, srv *server.Server) {
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- srv.Run(ctx)
	}()

	select {
	case sig := <-signalCh:
		log.Printf("Received signal: %s", sig)
		log.Println("Initiating graceful shutdown...")
		cancel()

		if err := <-serverErrCh; err != nil {
			log.Printf("Server shutdown with error: %v", err)
			os.Exit(1)
		}

	case err := <-serverErrCh:
		if err != nil {
			log.Printf("Server error: %v", err)
			os.Exit(1)
		}
	}

	log.Println("Server stopped successfully")
}

// runStdioMode handles MCP stdio execution
func runStdioMode(ctx context.Context, srv *server.MCPServer) {
	// In stdio mode, the parent process controls our lifecycle
	if err := srv.Run(ctx); err != nil {
		if os.Getenv("DEBUG") != "" {
			log.Printf("Server error: %v", err)
		}
		os.Exit(1)
	}
}

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			printVersion()
			return
		}
	}

	cfg, err := config.LoadFromFlags()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	setupLogging(cfg)

	if version != "dev" {
		cfg.Version = version
	}

	if cfg.IsDebug() && cfg.IsServerMode() {
		log.Printf("Starting with configuration: %s", cfg.String())
	}

	var orchestrator *worker.Orchestrator
	if cfg.HasWorker() {
		orchestrator, err = worker.NewOrchestrator(cfg.WorkerCommand, cfg.WorkerTimeout)
		if err != nil {
			log.Fatalf("Failed to configure worker: %v", err)
		}
	}

	extractService := extract.NewService(cfg.MaxFileSize, orchestrator)
	reconstructService := reconstruct.NewService(orchestrator)
	serializer := markup.NewSerializer(cfg.MarkupVerbosity())

	srv, err := server.NewServer(cfg, extractService, reconstructService, serializer)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.IsServerMode() {
		runServerMode(ctx, cancel, srv)
	} else {
		runStdioMode(ctx, server.NewMCPServer(srv))
	}
}

// printVersion prints version information
func printVersion() {
	fmt.Printf("pdfmarkup\n")
	fmt.Printf("Version: %s\n", version)
	fmt.Printf("Build Time: %s\n", buildTime)
	fmt.Printf("Git Commit: %s\n", gitCommit)
	fmt.Printf("Built with: %s\n", runtime.Version())
}
