package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/contentforge/orchestrator/internal/app"
	"github.com/contentforge/orchestrator/internal/config"
	"github.com/contentforge/orchestrator/internal/logging"
	"github.com/ternarybob/arbor"
)

const version = "0.1.0"

// configPaths is a custom flag type that allows multiple -config flags.
type configPaths []string

func (c *configPaths) String() string {
	return fmt.Sprintf("%v", *c)
}

func (c *configPaths) Set(value string) error {
	*c = append(*c, value)
	return nil
}

var (
	configFiles configPaths
	serverPort  = flag.Int("port", 0, "server port (overrides config)")
	serverHost  = flag.String("host", "", "server host (overrides config)")
	showVersion = flag.Bool("version", false, "print version information")
)

func init() {
	flag.Var(&configFiles, "config", "configuration file path (can be specified multiple times, later files override earlier ones)")
	flag.Var(&configFiles, "c", "configuration file path (shorthand)")
}

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("orchestratord version %s\n", version)
		os.Exit(0)
	}

	if len(configFiles) == 0 {
		if _, err := os.Stat("orchestrator.toml"); err == nil {
			configFiles = append(configFiles, "orchestrator.toml")
		} else if _, err := os.Stat("deployments/local/orchestrator.toml"); err == nil {
			configFiles = append(configFiles, "deployments/local/orchestrator.toml")
		}
	}

	cfg, err := config.LoadFromFiles(configFiles...)
	if err != nil {
		tempLogger := arbor.NewLogger()
		tempLogger.Fatal().Strs("paths", configFiles).Err(err).Msg("failed to load configuration files")
		os.Exit(1)
	}
	config.ApplyFlagOverrides(cfg, *serverPort, *serverHost)

	logger := logging.New(cfg.Logging, "")

	logger.Info().
		Strs("config_files", configFiles).
		Int("port", cfg.Server.Port).
		Str("host", cfg.Server.Host).
		Msg("configuration loaded")

	application, err := app.New(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize application")
	}

	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Fatal().Str("panic", fmt.Sprintf("%v", r)).Msg("server goroutine panicked")
			}
		}()
		if err := application.Run(); err != nil {
			logger.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	logger.Info().
		Str("url", fmt.Sprintf("http://%s:%d", cfg.Server.Host, cfg.Server.Port)).
		Msg("orchestrator ready - press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := application.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("shutdown failed")
	}

	logger.Info().Msg("orchestrator stopped")
}
