// Command outpostd serves per-user browser and terminal sessions over
// an HTTP action API, with an agent tool catalog layered on top.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/entrhq/outpost/pkg/api"
	"github.com/entrhq/outpost/pkg/browser"
	"github.com/entrhq/outpost/pkg/config"
	"github.com/entrhq/outpost/pkg/llm"
	"github.com/entrhq/outpost/pkg/llm/openai"
	"github.com/entrhq/outpost/pkg/logging"
	"github.com/entrhq/outpost/pkg/terminal"
	"github.com/entrhq/outpost/pkg/tools"
	browsertools "github.com/entrhq/outpost/pkg/tools/browser"
	terminaltools "github.com/entrhq/outpost/pkg/tools/terminal"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "outpostd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	configPath := flag.String("config", os.Getenv("OUTPOST_CONFIG"), "path to config file")
	listen := flag.String("listen", "", "listen address (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *listen != "" {
		cfg.Server.Listen = *listen
	}

	log, err := logging.NewLogger("outpostd")
	if err != nil {
		return err
	}
	defer log.Close()

	browserLog, _ := logging.NewLogger("browser")
	terminalLog, _ := logging.NewLogger("terminal")

	browserManager := browser.NewManager(browser.NewPlaywrightDriver(), browser.Config{
		Headless:          cfg.Browser.Headless,
		Viewport:          browser.Viewport{Width: cfg.Browser.ViewportWidth, Height: cfg.Browser.ViewportHeight},
		NavigationTimeout: cfg.Browser.NavigationTimeoutDuration(),
		MaxContexts:       cfg.Browser.MaxContexts,
		IdleTimeout:       cfg.Browser.IdleTimeoutDuration(),
	}, browserLog)

	allow, err := cfg.Whitelist.Matcher()
	if err != nil {
		return err
	}
	terminalManager := terminal.NewManager(terminal.NewSSHDialer(), terminal.Config{
		DefaultDir:     cfg.Terminal.DefaultDir,
		CommandTimeout: cfg.Terminal.CommandTimeoutDuration(),
		LogCapacity:    cfg.Terminal.LogCapacity,
		MaxSessions:    cfg.Terminal.MaxSessions,
	}, allow, terminalLog)

	models := llm.NewRegistry()
	models.Register(cfg.LLM.DefaultModel, func() (llm.Provider, error) {
		return openai.NewProvider("",
			openai.WithModel(cfg.LLM.DefaultModel),
			openai.WithBaseURL(cfg.LLM.BaseURL),
		)
	})

	registry := tools.NewRegistry()
	browsertools.RegisterAll(registry, browserManager)
	terminaltools.RegisterAll(registry, terminalManager)

	server := api.NewServer(browserManager, terminalManager, models, registry, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Browser.ReapInterval > 0 {
		go browserManager.RunIdleReaper(ctx, cfg.Browser.ReapIntervalDuration())
	}

	httpServer := &http.Server{
		Addr:              cfg.Server.Listen,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("listening on %s (run %s)", cfg.Server.Listen, log.RunID())
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		log.Infof("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Errorf("http shutdown: %v", err)
	}

	// Session teardown runs after the listener stops accepting work so
	// no new contexts appear mid-close.
	if err := browserManager.CloseAll(); err != nil {
		log.Errorf("browser teardown: %v", err)
	}
	if err := terminalManager.CloseAll(); err != nil {
		log.Errorf("terminal teardown: %v", err)
	}
	return nil
}
