package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/marketbridge/gateway/internal/auth"
	"github.com/marketbridge/gateway/internal/config"
	"github.com/marketbridge/gateway/internal/supervisor"
	"github.com/marketbridge/gateway/internal/version"
)

const (
	exitOK            = 0
	exitConfigError   = 1
	exitFatalUpstream = 2
	exitInvalidCLI    = 64
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "configs/marketbridge.local.yaml", "path to config file")
	flag.Parse()
	if flag.NArg() > 0 {
		flag.Usage()
		return exitInvalidCLI
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	logger.Info("starting marketbridge",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return exitConfigError
	}

	logger.Info("configuration loaded",
		"upstream_addr", cfg.Upstream.Host,
		"hub_listen_port", cfg.Hub.ListenPort,
	)

	creds, err := auth.LoadCredentials(cfg.Upstream.KeyID, cfg.Upstream.PrivateKeyPath)
	if err != nil {
		logger.Error("failed to load upstream credentials", "error", err)
		return exitConfigError
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	sup := supervisor.New(*cfg, creds, logger)
	if err := sup.Run(ctx); err != nil {
		logger.Error("supervisor exited with error", "error", err)
		return exitFatalUpstream
	}

	logger.Info("marketbridge shut down cleanly")
	return exitOK
}
