package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"symptom-chatbot/internal/auth"
	"symptom-chatbot/internal/core"
	httpserver "symptom-chatbot/internal/http"
	"symptom-chatbot/internal/llm"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cfg.Validate(); err != nil {
		// Still serve: the provider can be switched at runtime.
		logger.Warn("model provider is not configured", "error", err)
	}

	selector, err := llm.NewSelectorFromConfig(cfg, logger)
	if err != nil {
		return err
	}

	openCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	store, closeStore, err := openStore(openCtx, cfg)
	cancel()
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			logger.Error("failed to close store", "error", err)
		}
	}()

	svc := core.NewChatService(selector, core.Options{
		AgeGroups:       cfg.AgeGroups,
		Languages:       cfg.Languages,
		DefaultLanguage: cfg.DefaultLanguage,
		Store:           store,
		Logger:          logger,
	})

	if cfg.CleanupMaxAgeHours > 0 {
		go runCleanup(ctx, svc, time.Duration(cfg.CleanupMaxAgeHours)*time.Hour)
	}

	e := httpserver.New(httpserver.NewServer(svc, selector, auth.New(cfg.APITokens), logger))

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting symptom-chatbot", "port", cfg.Port, "provider", selector.Name(), "store", cfg.Store)
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

// runCleanup sweeps idle conversations out of memory once an hour.
func runCleanup(ctx context.Context, svc *core.ChatService, maxAge time.Duration) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			svc.Cleanup(ctx, maxAge)
		}
	}
}
