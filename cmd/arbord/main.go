// Command arbord runs the planting assistant as a line-oriented REPL:
// each input line goes through the orchestration loop and the assistant's
// reply is printed.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/verdantlabs/arbor/core"
	"github.com/verdantlabs/arbor/geo"
	"github.com/verdantlabs/arbor/llm"
	_ "github.com/verdantlabs/arbor/llm/providers/gemini"
	_ "github.com/verdantlabs/arbor/llm/providers/openai"
	"github.com/verdantlabs/arbor/orchestration"
	"github.com/verdantlabs/arbor/risk"
	"github.com/verdantlabs/arbor/store"
	"github.com/verdantlabs/arbor/telemetry"
	"github.com/verdantlabs/arbor/tools"
	"github.com/verdantlabs/arbor/weather"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "arbord: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := core.NewConfig()
	if err != nil {
		return err
	}

	logger := core.NewStdLogger(core.ParseLogLevel(os.Getenv("ARBOR_LOG_LEVEL")))

	tracer, shutdown, err := telemetry.New("arbord")
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		_ = shutdown(context.Background())
	}()

	db, err := store.NewSQLiteStore(cfg.SQLitePath, logger)
	if err != nil {
		return err
	}
	defer func() {
		_ = db.Close()
	}()

	cache := buildCache(cfg, logger)

	provider, err := llm.NewProvider(&llm.Config{
		Provider: cfg.Provider,
		APIKey:   cfg.APIKey,
		Model:    cfg.Model,
		BaseURL:  cfg.BaseURL,
		Timeout:  cfg.RequestTimeout,
	}, logger, tracer)
	if err != nil {
		return err
	}

	weatherClient := weather.NewClient(cfg.WeatherURL, cache, logger)
	weatherClient.SetCacheTTL(cfg.CacheTTL)
	resolver := geo.NewResolver(cfg.GeocoderURL, logger)

	dispatcher := tools.NewDispatcher(db, db, resolver, weatherClient,
		risk.ThresholdsFromConfig(cfg.Risk), logger)

	orchestrator := orchestration.New(provider, db, dispatcher, logger,
		orchestration.WithMaxToolRounds(cfg.MaxToolRounds),
		orchestration.WithTelemetry(tracer),
		orchestration.WithMutationCallback(func(tool string) {
			logger.Info("Calendar changed", map[string]interface{}{
				"operation": "mutation",
				"tool":      tool,
			})
		}),
	)

	return repl(orchestrator, provider.Name())
}

// buildCache prefers Redis when configured and falls back to the in-process
// store, so a missing Redis never blocks startup.
func buildCache(cfg *core.Config, logger core.Logger) core.Memory {
	if cfg.RedisURL == "" {
		return core.NewMemoryStore()
	}
	redisStore, err := core.NewRedisStore(core.RedisStoreOptions{
		RedisURL:  cfg.RedisURL,
		Namespace: "arbor:cache",
		Logger:    logger,
	})
	if err != nil {
		logger.Warn("Redis unavailable, using in-process cache", map[string]interface{}{
			"operation": "cache_setup",
			"error":     err.Error(),
		})
		return core.NewMemoryStore()
	}
	return redisStore
}

func repl(orchestrator *orchestration.Orchestrator, providerName string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session := orchestration.NewSession()
	scanner := bufio.NewScanner(os.Stdin)

	fmt.Printf("arbor planting assistant (provider: %s). Type a message, or 'exit'.\n", providerName)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			break
		}

		reply, err := orchestrator.HandleUserMessage(ctx, session, line, nil)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}
		fmt.Println(reply.Content)
	}

	return scanner.Err()
}
