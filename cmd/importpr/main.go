// Command importpr backfills manifestos and notification history for PRs
// that were merged before the bot went live. Each PR gets a history row
// with an empty post URL so the scheduled poster can pick it up later.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/team-mirai-volunteer/manifesto-notify-bot/internal/app"
	"github.com/team-mirai-volunteer/manifesto-notify-bot/internal/config"
	"github.com/team-mirai-volunteer/manifesto-notify-bot/internal/github"
	"github.com/team-mirai-volunteer/manifesto-notify-bot/internal/llm"
	"github.com/team-mirai-volunteer/manifesto-notify-bot/internal/store"
)

func main() {
	prURLs := os.Args[1:]
	if len(prURLs) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: importpr <PR_URL> [PR_URL ...]")
		fmt.Fprintln(os.Stderr, "Example: importpr https://github.com/team-mirai/policy/pull/123")
		os.Exit(1)
	}
	for _, u := range prURLs {
		if !github.ValidPRURL(u) {
			fmt.Fprintf(os.Stderr, "Invalid PR URL format: %s\n", u)
			fmt.Fprintln(os.Stderr, "Expected: https://github.com/owner/repo/pull/number")
			os.Exit(1)
		}
	}

	cfg := config.Load()
	ctx := context.Background()

	var manifestos store.ManifestoStore
	var histories store.HistoryStore
	if strings.TrimSpace(cfg.DatabaseURL) != "" {
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
		client, err := store.NewRedisClient(cfg.RedisURL)
		if err != nil {
			log.Fatalf("redis connection failed: %v", err)
		}
		defer client.Close()
		manifestos = store.NewRedisManifestoStore(client)
		histories = store.NewRedisHistoryStore(client)
	}

	var summaries llm.Service
	if cfg.OpenAIAPIKey != "" {
		fmt.Println("Running with OpenAI API")
		summaries = llm.NewOpenAIService(cfg.OpenAIAPIKey, cfg.OpenAIModel)
	} else {
		fmt.Println("Running without OpenAI API (summaries are PR titles)")
		summaries = llm.NewLocalService()
	}

	prs := github.NewClient(cfg.GitHubAPIBase, cfg.GitHubToken)
	service := app.NewService(manifestos, histories, prs, summaries, nil)

	// Each PR is an independent URL, so imports run concurrently.
	var mu sync.Mutex
	imported, skipped := 0, 0
	g, gctx := errgroup.WithContext(ctx)
	for _, prURL := range prURLs {
		g.Go(func() error {
			outcome, err := service.ImportMergedPR(gctx, prURL)
			if err != nil {
				return fmt.Errorf("%s: %w", prURL, err)
			}
			mu.Lock()
			defer mu.Unlock()
			if outcome.AlreadyImported {
				skipped++
				fmt.Printf("skipped  %s (already imported as %s)\n", prURL, outcome.ManifestoID)
				return nil
			}
			imported++
			fmt.Printf("imported %s: %s\n", prURL, outcome.Title)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Fatalf("import failed: %v", err)
	}

	fmt.Printf("Done: %d imported, %d skipped\n", imported, skipped)
}
