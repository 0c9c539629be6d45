package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/lantern/internal/api"
	"github.com/dgallion1/lantern/internal/assist"
	"github.com/dgallion1/lantern/internal/config"
	"github.com/dgallion1/lantern/internal/thoughttree"
	"github.com/dgallion1/lantern/internal/workspace"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		log.Error("load configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Session storage.
	store, err := thoughttree.NewStore(cfg.DataDir)
	if err != nil {
		log.Error("open data dir", "error", err)
		os.Exit(1)
	}
	sessions := workspace.NewRegistry(store, cfg.SessionIdleTTL, cfg.LabelMaxLen, log)
	sessions.Start(ctx, 5*time.Minute)

	// Assistant, when a model key is configured.
	var assistant *assist.Assistant
	var claude *assist.ClaudeClient
	if cfg.AssistEnabled() {
		principles, err := assist.LoadPrinciples(cfg.PrinciplesFile)
		if err != nil {
			log.Error("load writing principles", "error", err)
			os.Exit(1)
		}
		claude = assist.NewClaudeClient(cfg.AnthropicAPIKey, cfg.AnthropicModel)
		assistant = assist.New(claude, assist.NewLLMStats(time.Hour), assist.Options{
			Cooldown:        cfg.LLMCooldown,
			MaxOptions:      cfg.LLMMaxOptions,
			KnowledgeBudget: cfg.KnowledgeTokenBudget,
			Principles:      principles,
		}, log)
	} else {
		log.Warn("ANTHROPIC_API_KEY not set, assistant actions disabled")
	}

	// Initialize HTTP server.
	srv := api.NewServer(sessions, assistant, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 180 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	done := make(chan struct{})
	go func() {
		defer close(done)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		sessions.Stop()
		if claude != nil {
			claude.Close()
		}
	}()

	log.Info("starting lantern", "port", cfg.Port, "data_dir", cfg.DataDir, "assistant", assistant != nil)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
	<-done
}
