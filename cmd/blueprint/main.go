package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/rahul/blueprint/internal/agent"
	"github.com/rahul/blueprint/internal/api"
	"github.com/rahul/blueprint/internal/gateway"
	"github.com/rahul/blueprint/internal/governance"
	"github.com/rahul/blueprint/internal/llm"
	"github.com/rahul/blueprint/internal/mcptool"
	"github.com/rahul/blueprint/internal/observability"
	"github.com/rahul/blueprint/internal/store"
	"github.com/rahul/blueprint/pkg/config"
)

var version = "dev"

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cmd := "serve"
	args := os.Args[1:]
	if len(args) > 0 && (args[0] == "serve" || args[0] == "serve-mcp") {
		cmd, args = args[0], args[1:]
	}

	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	configPath := fs.String("config", "config.json", "path to a JSON or YAML config file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		return err
	}

	switch cmd {
	case "serve-mcp":
		return serveMCP(cfg)
	default:
		return serve(cfg)
	}
}

// core holds the pieces shared by every front end.
type core struct {
	executor *agent.Executor
	policy   *governance.DefaultPolicyEngine
	logger   *observability.Logger
	status   *observability.Status
}

func buildCore(ctx context.Context, cfg *config.Config, logger *observability.Logger) (*core, error) {
	name, p := cfg.GetDefaultProvider()
	if name == "" {
		return nil, fmt.Errorf("no enabled provider found in config")
	}

	gen, err := llm.New(ctx, llm.Provider{
		Name:      name,
		APIKey:    p.APIKey,
		Model:     p.Model,
		BaseURL:   p.BaseURL,
		MaxTokens: p.MaxTokens,
	}, logger)
	if err != nil {
		return nil, err
	}
	if cfg.LLM.CacheSize > 0 {
		cached, err := llm.NewCachedGenerator(gen, cfg.LLM.CacheSize)
		if err != nil {
			return nil, err
		}
		gen = cached
	}
	gen = llm.WithDeadline(gen, cfg.StepTimeout())

	templates, err := agent.NewPromptManager(cfg.App.PromptsDir).Templates()
	if err != nil {
		return nil, err
	}

	policy := governance.NewDefaultPolicyEngine(cfg.Server.MaxIdeaLength)
	for _, pattern := range cfg.Server.DenyPatterns {
		if err := policy.DenyPattern(pattern); err != nil {
			return nil, fmt.Errorf("invalid deny pattern %q: %w", pattern, err)
		}
	}

	status := observability.NewStatus()
	pipeline := agent.NewPipeline(agent.NewSteps(gen, templates), logger)
	executor := agent.NewExecutor(pipeline,
		agent.WithStepDelay(cfg.StepDelay()),
		agent.WithLogger(logger),
		agent.WithStatus(status),
	)

	log.Printf("Using provider %s (model %s)", name, p.Model)
	return &core{executor: executor, policy: policy, logger: logger, status: status}, nil
}

func serveMCP(cfg *config.Config) error {
	// stdout carries the protocol
	logger := observability.NewLoggerTo(os.Stderr, "logs")
	c, err := buildCore(context.Background(), cfg, logger)
	if err != nil {
		return err
	}
	s := mcptool.NewServer(version, mcptool.NewBlueprintTool(c.executor, c.policy))
	return server.ServeStdio(s)
}

func serve(cfg *config.Config) error {
	dashboard := cfg.App.Dashboard && observability.IsTerminal()
	observability.PrintBanner(version)
	if dashboard {
		observability.InitializeTerminal()
		defer observability.CleanupTerminal()
	}

	// Route all log output through the terminal mutex so it never
	// interrupts the dashboard's cursor save/restore sequence.
	log.SetOutput(observability.NewTermWriter())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := observability.NewLogger()
	c, err := buildCore(ctx, cfg, logger)
	if err != nil {
		return err
	}

	repo, err := store.Open(store.Options{Type: cfg.Memory.Type, Path: cfg.Memory.Path, DSN: cfg.Memory.DSN})
	if err != nil {
		return err
	}
	defer repo.Close()

	handler := api.NewHandler(c.executor, repo, c.policy, logger, c.status)
	mux := api.NewMux(handler, api.NewAuthenticator(cfg.Server.AuthTokens), logger)
	srv := api.NewServer(cfg.Server.Addr, mux)

	go func() {
		if err := srv.Start(); err != nil {
			log.Printf("\033[91m[ FAIL ] API SERVER ERROR: %v\033[0m", err)
			stop()
		}
	}()

	relay := &gateway.Relay{Executor: c.executor, Repo: repo, Policy: c.policy, Logger: logger}
	gateways := startGateways(cfg, relay, stop)

	if dashboard {
		go tick(ctx, time.Second, func() { observability.PrintLiveStatus(c.status) })
	}
	c.status.Heartbeat()
	go tick(ctx, 30*time.Second, func() {
		c.status.Heartbeat()
		logger.LogHeartbeat()
	})

	<-ctx.Done()
	log.Println("Shutting down...")

	for _, g := range gateways {
		if err := g.Stop(); err != nil {
			log.Printf("gateway stop: %v", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown: %v", err)
	}

	log.Println("\033[95m[ EXIT ] BLUEPRINT SERVER STOPPED. GOODBYE.\033[0m")
	return nil
}

func startGateways(cfg *config.Config, relay *gateway.Relay, stop context.CancelFunc) []gateway.Messenger {
	var started []gateway.Messenger

	if tgCfg, ok := cfg.GetGatewayConfig("telegram"); ok {
		tg, err := gateway.NewTelegramGateway(tgCfg.Token, relay)
		if err != nil {
			log.Printf("Warning: telegram gateway disabled: %v", err)
		} else {
			started = append(started, tg)
		}
	}
	if dcCfg, ok := cfg.GetGatewayConfig("discord"); ok {
		dc, err := gateway.NewDiscordGateway(dcCfg.Token, relay)
		if err != nil {
			log.Printf("Warning: discord gateway disabled: %v", err)
		} else {
			started = append(started, dc)
		}
	}

	for _, g := range started {
		go func(g gateway.Messenger) {
			if err := g.Start(); err != nil {
				log.Printf("\033[91m[ FAIL ] GATEWAY CRITICAL ERROR: %v\033[0m", err)
				stop()
			}
		}(g)
	}
	return started
}

func tick(ctx context.Context, every time.Duration, fn func()) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn()
		}
	}
}
