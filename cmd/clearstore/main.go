// Command clearstore deletes every key in the bot's Redis keyspaces.
// Postgres deployments should run the down migrations instead.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/team-mirai-volunteer/manifesto-notify-bot/internal/config"
	"github.com/team-mirai-volunteer/manifesto-notify-bot/internal/store"
)

func main() {
	yes := flag.Bool("yes", false, "actually delete; without it the command only reports what it would remove")
	flag.Parse()

	cfg := config.Load()
	ctx := context.Background()

	client, err := store.NewRedisClient(cfg.RedisURL)
	if err != nil {
		log.Fatalf("redis connection failed: %v", err)
	}
	defer client.Close()

	if !*yes {
		manifestos, err := store.NewRedisManifestoStore(client).FindAll(ctx)
		if err != nil {
			log.Fatalf("listing manifestos failed: %v", err)
		}
		histories, err := store.NewRedisHistoryStore(client).FindAll(ctx)
		if err != nil {
			log.Fatalf("listing histories failed: %v", err)
		}
		fmt.Printf("Would delete %d manifestos and %d notification histories.\n", len(manifestos), len(histories))
		fmt.Println("Re-run with -yes to delete.")
		os.Exit(0)
	}

	deleted, err := store.ClearKeyspaces(ctx, client)
	if err != nil {
		log.Fatalf("clear failed: %v", err)
	}
	fmt.Printf("Deleted %d keys.\n", deleted)
}
