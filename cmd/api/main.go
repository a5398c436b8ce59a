package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/team-mirai-volunteer/manifesto-notify-bot/internal/app"
	"github.com/team-mirai-volunteer/manifesto-notify-bot/internal/config"
	"github.com/team-mirai-volunteer/manifesto-notify-bot/internal/github"
	"github.com/team-mirai-volunteer/manifesto-notify-bot/internal/llm"
	"github.com/team-mirai-volunteer/manifesto-notify-bot/internal/notify"
	"github.com/team-mirai-volunteer/manifesto-notify-bot/internal/scheduler"
	"github.com/team-mirai-volunteer/manifesto-notify-bot/internal/store"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	var manifestos store.ManifestoStore
	var histories store.HistoryStore
	if strings.TrimSpace(cfg.DatabaseURL) != "" {
		log.Printf("Using PostgreSQL storage")
		db, err := store.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("database connection failed: %v", err)
		}
		defer db.Close()
		if err := store.ApplyMigrations(ctx, db, cfg.MigrationsDir); err != nil {
			log.Fatalf("migrations failed: %v", err)
		}
		manifestos = store.NewPostgresManifestoStore(db)
		histories = store.NewPostgresHistoryStore(db)
	} else {
		log.Printf("Using Redis storage")
		client, err := store.NewRedisClient(cfg.RedisURL)
		if err != nil {
			log.Fatalf("redis connection failed: %v", err)
		}
		defer client.Close()
		manifestos = store.NewRedisManifestoStore(client)
		histories = store.NewRedisHistoryStore(client)
	}

	prs := github.NewClient(cfg.GitHubAPIBase, cfg.GitHubToken)

	var summaries llm.Service
	if cfg.IsProd() {
		summaries = llm.NewOpenAIService(cfg.OpenAIAPIKey, cfg.OpenAIModel)
	} else {
		log.Printf("Running without OpenAI: summaries are the PR title")
		summaries = llm.NewLocalService()
	}

	var notifier notify.Notifier
	if cfg.IsProd() {
		notifier = notify.NewXNotifier(cfg.XAccessToken, cfg.XUsername)
	} else {
		log.Printf("Running without X credentials: posts are stubbed")
		notifier = notify.NewLocalNotifier(cfg.XUsername)
	}

	service := app.NewService(manifestos, histories, prs, summaries, []notify.Notifier{notifier})
	httpServer := app.NewHTTPServer(service, cfg.APIToken, cfg.CORSOrigin)

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	schedCtx, stopSched := context.WithCancel(ctx)
	defer stopSched()
	if cfg.ScheduleEnabled {
		go func() {
			log.Printf("Scheduled posting enabled (hourly)")
			scheduler.Run(schedCtx, service.RunScheduledPost)
		}()
	}

	go func() {
		log.Printf("Manifesto Notify Bot listening on %s", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	stopSched()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
