package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/getsentry/sentry-go"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/slack-go/slack/socketmode"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/qatools/qabot/assist"
	"github.com/qatools/qabot/bot"
	"github.com/qatools/qabot/engine"
	"github.com/qatools/qabot/utils/pkg/logger"
	"github.com/qatools/qabot/workflows"
)

var (
	// Set by LDFLAGS
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const (
	defaultMetricsAddr  = "0.0.0.0:0"
	defaultHTTPAddr     = "0.0.0.0:3000"
	assistMaxTokens     = 2048
	shutdownGracePeriod = 5 * time.Second
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run starts the QA assistant bot.
//
// Required Slack Bot Token Scopes:
//   - chat:write - Post messages
//   - im:history - Read DM history
//   - channels:history - Read public channel messages (for channel mentions)
//   - commands - Receive slash commands
//
// Required Event Subscriptions (Subscribe to bot events):
//   - app_mentions - Receive events when bot is mentioned in channels
//   - message.im - Receive direct messages
func run() error {
	verboseFlag := pflag.Bool("verbose", false, "Enable verbose (debug) logging")
	metricsAddrFlag := pflag.String("metrics-addr", defaultMetricsAddr, "Address to listen on for prometheus metrics")
	modeFlag := pflag.String("mode", "", "Mode: 'socket' (dev) or 'http' (prod). Defaults to 'socket' if SLACK_APP_TOKEN is set, otherwise 'http'")
	httpAddrFlag := pflag.String("http-addr", defaultHTTPAddr, "Address to listen on for HTTP events (production mode)")
	shutdownTimeoutFlag := pflag.Duration("shutdown-timeout", 60*time.Second, "Maximum time to wait for in-flight turns to complete during graceful shutdown")

	pflag.Parse()

	// Local development convenience; ignored when no .env exists.
	_ = godotenv.Load()

	log := logger.New(*verboseFlag)

	cfg, err := bot.LoadFromEnv(*modeFlag, *httpAddrFlag, *metricsAddrFlag, *verboseFlag)
	if err != nil {
		return err
	}

	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              dsn,
			Environment:      os.Getenv("SENTRY_ENVIRONMENT"),
			Release:          version,
			EnableTracing:    true,
			TracesSampleRate: 1.0,
		}); err != nil {
			log.Warn("failed to initialize sentry", "error", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Optional AI drafting collaborator
	var gen assist.Generator
	if cfg.AnthropicModel != "" {
		gen = assist.NewAnthropicClient(anthropic.Model(cfg.AnthropicModel), assistMaxTokens, log)
		log.Info("AI drafting enabled", "model", cfg.AnthropicModel)
	} else {
		log.Info("AI drafting disabled (no ANTHROPIC_API_KEY)")
	}

	// Build the workflow registry and fail fast on wiring mistakes
	registry := engine.NewRegistry(workflows.All(workflows.Deps{Assist: gen}))
	if err := registry.Validate(); err != nil {
		return fmt.Errorf("invalid workflow registry: %w", err)
	}
	log.Info("workflow registry built", "workflows", len(registry.Workflows()))

	proto := workflows.Proto()
	store := engine.NewStore(log)
	processor := engine.NewProcessor(store, registry, proto, log)
	router := engine.NewRouter(store, registry, processor, proto, log)

	// Initialize Slack client
	slackClient := bot.NewClient(cfg.BotToken, cfg.AppToken, log)
	botUserID, err := slackClient.Initialize(ctx)
	if err != nil {
		log.Warn("slack auth test failed, continuing anyway", "error", err)
	}
	cfg.BotUserID = botUserID

	dispatcher := bot.NewDispatcher(slackClient, router, log)
	dispatcher.StartCleanup(ctx)

	eventHandler := bot.NewEventHandler(slackClient, dispatcher, log, cfg.BotUserID, ctx)
	eventHandler.StartCleanup(ctx)

	g, gctx := errgroup.WithContext(ctx)

	// Metrics server
	if cfg.MetricsAddr != "" {
		bot.BuildInfo.WithLabelValues(version, commit, date).Set(1)
		g.Go(func() error {
			listener, err := net.Listen("tcp", cfg.MetricsAddr)
			if err != nil {
				return fmt.Errorf("failed to start metrics listener: %w", err)
			}
			log.Info("prometheus metrics server listening", "address", listener.Addr().String())

			mux := chi.NewRouter()
			mux.Handle("/metrics", promhttp.Handler())
			srv := &http.Server{Handler: mux}
			go func() {
				<-gctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
				defer cancel()
				_ = srv.Shutdown(shutdownCtx)
			}()
			if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}

	// Transport
	g.Go(func() error {
		if cfg.Mode == bot.ModeSocket {
			return runSocketMode(gctx, slackClient, eventHandler, log)
		}
		return runHTTPMode(gctx, cfg.HTTPAddr, cfg.SigningSecret, eventHandler, log)
	})

	err = g.Wait()

	// If shutdown was initiated, wait for in-flight turns
	if errors.Is(err, context.Canceled) || ctx.Err() != nil {
		log.Info("shutdown signal received, stopping new events and waiting for in-flight turns", "timeout", *shutdownTimeoutFlag)
		waitInflight := eventHandler.StopAcceptingNew()

		waitDone := make(chan struct{})
		go func() {
			waitInflight()
			close(waitDone)
		}()

		select {
		case <-waitDone:
			log.Info("all in-flight turns completed")
		case <-time.After(*shutdownTimeoutFlag):
			log.Warn("timeout waiting for in-flight turns, proceeding with shutdown", "timeout", *shutdownTimeoutFlag)
		}
		log.Info("bot shutting down", "reason", err)
		return nil
	}
	return err
}

// runSocketMode runs the bot in Socket Mode (development)
func runSocketMode(ctx context.Context, slackClient *bot.Client, eventHandler *bot.EventHandler, log *slog.Logger) error {
	client := socketmode.New(slackClient.API())

	go func() {
		if err := client.Run(); err != nil {
			log.Error("socketmode client error", "error", err)
		}
	}()

	return eventHandler.HandleSocketMode(ctx, client)
}

// runHTTPMode runs the bot in HTTP Mode (production)
func runHTTPMode(ctx context.Context, httpAddr, signingSecret string, eventHandler *bot.EventHandler, log *slog.Logger) error {
	mux := chi.NewRouter()
	mux.Use(middleware.Recoverer)
	mux.Post("/slack/events", func(w http.ResponseWriter, r *http.Request) {
		eventHandler.HandleHTTP(w, r, signingSecret)
	})
	mux.Post("/slack/interactions", func(w http.ResponseWriter, r *http.Request) {
		eventHandler.HandleInteractionHTTP(w, r, signingSecret)
	})
	mux.Post("/slack/commands", func(w http.ResponseWriter, r *http.Request) {
		eventHandler.HandleSlashCommandHTTP(w, r, signingSecret)
	})
	mux.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("ok")); err != nil {
			log.Error("failed to write readyz response", "error", err)
		}
	})

	httpServer := &http.Server{
		Addr:    httpAddr,
		Handler: mux,
	}

	go func() {
		log.Info("HTTP server listening for Slack events", "addr", httpAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", "error", err)
		}
	}()

	log.Info("bot running in HTTP mode")
	<-ctx.Done()
	log.Info("shutdown signal received, stopping HTTP server from accepting new connections")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("error shutting down HTTP server", "error", err)
	} else {
		log.Info("HTTP server stopped accepting new connections")
	}

	return ctx.Err()
}
