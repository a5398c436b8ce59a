package app

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"sort"

	"github.com/google/uuid"

	"github.com/team-mirai-volunteer/manifesto-notify-bot/internal/store"
)

// RunScheduledPost picks a previously-posted manifesto at random, skipping
// the two most recently posted ones, and posts a retrospective about it.
// With two or fewer distinct manifestos ever posted there is nothing to
// pick and the run is a no-op.
func (s *Service) RunScheduledPost(ctx context.Context) error {
	histories, err := s.histories.FindAll(ctx)
	if err != nil {
		return fmt.Errorf("load notification history: %w", err)
	}
	if len(histories) == 0 {
		log.Printf("scheduled post: no notification history, skipping")
		return nil
	}

	sort.Slice(histories, func(i, j int) bool {
		return histories[i].PostedAt.After(histories[j].PostedAt)
	})

	// Exclusion window is the two most recent posts (entries, not distinct
	// manifestos: two posts of the same manifesto exclude just that one).
	recent := map[string]bool{}
	for i, h := range histories {
		if i == 2 {
			break
		}
		recent[h.ManifestoID] = true
	}

	var pool []string
	seen := map[string]bool{}
	for _, h := range histories {
		if seen[h.ManifestoID] {
			continue
		}
		seen[h.ManifestoID] = true
		if !recent[h.ManifestoID] {
			pool = append(pool, h.ManifestoID)
		}
	}
	if len(pool) == 0 {
		log.Printf("scheduled post: every candidate is in the recent two, skipping")
		return nil
	}

	rand.Shuffle(len(pool), func(i, j int) {
		pool[i], pool[j] = pool[j], pool[i]
	})
	selected := pool[0]

	m, err := s.manifestos.FindByID(ctx, selected)
	if err != nil {
		return fmt.Errorf("load manifesto %s: %w", selected, err)
	}
	if m == nil {
		log.Printf("scheduled post: manifesto %s no longer exists, skipping", selected)
		return nil
	}

	text := retrospectiveText(m)
	for _, n := range s.notifiers {
		res := n.Post(ctx, text)
		if !res.Success {
			log.Printf("scheduled post: %s post failed: %s", n.Platform(), res.Message)
			continue
		}
		h := &store.NotificationHistory{
			ID:          uuid.NewString(),
			ManifestoID: m.ID,
			GithubPRURL: m.GithubPRURL,
			Platform:    n.Platform(),
			PostURL:     res.URL,
			PostedAt:    s.now(),
		}
		if err := s.histories.Save(ctx, h); err != nil {
			return fmt.Errorf("save notification history: %w", err)
		}
		log.Printf("scheduled post: posted %q to %s: %s", m.Title, n.Platform(), res.URL)
	}
	return nil
}

func retrospectiveText(m *store.Manifesto) string {
	return fmt.Sprintf("⏳マニフェストの進化の歴史をご紹介⏳\n%d/%d: %s\n%s",
		int(m.CreatedAt.Month()), m.CreatedAt.Day(), m.Summary, m.GithubPRURL)
}
