// Package app ties the stores and collaborators together into the notify,
// import, and scheduled-post workflows, and exposes them over HTTP.
package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/team-mirai-volunteer/manifesto-notify-bot/internal/github"
	"github.com/team-mirai-volunteer/manifesto-notify-bot/internal/llm"
	"github.com/team-mirai-volunteer/manifesto-notify-bot/internal/notify"
	"github.com/team-mirai-volunteer/manifesto-notify-bot/internal/store"
)

// PRFetcher resolves a PR page URL to its metadata and diff.
type PRFetcher interface {
	GetPullRequest(ctx context.Context, prURL string) (*github.PullRequest, error)
}

type Service struct {
	manifestos store.ManifestoStore
	histories  store.HistoryStore
	prs        PRFetcher
	summaries  llm.Service
	notifiers  []notify.Notifier

	now func() time.Time
}

func NewService(
	manifestos store.ManifestoStore,
	histories store.HistoryStore,
	prs PRFetcher,
	summaries llm.Service,
	notifiers []notify.Notifier,
) *Service {
	return &Service{
		manifestos: manifestos,
		histories:  histories,
		prs:        prs,
		summaries:  summaries,
		notifiers:  notifiers,
		now:        time.Now,
	}
}

// NotifyOutcome describes what a notify request did. Skipped means the
// summary flagged the PR as not worth notifying and nothing was persisted.
type NotifyOutcome struct {
	Skipped     bool
	ManifestoID string
	Results     map[string]notify.Result
}

// NotifyManifesto runs the full notify workflow for one PR URL: reuse or
// build the manifesto, post to every platform, and persist only when a
// post actually went out. A failed post leaves no trace for a brand-new
// manifesto, so the next attempt re-fetches and re-summarizes.
func (s *Service) NotifyManifesto(ctx context.Context, prURL string) (*NotifyOutcome, error) {
	if !github.ValidPRURL(prURL) {
		return nil, domainError(http.StatusBadRequest, "VALIDATION_ERROR",
			"GitHub PR URL must be in the format: https://github.com/owner/repo/pull/123", nil)
	}

	manifesto, err := s.manifestos.FindByPRURL(ctx, prURL)
	if err != nil {
		return nil, fmt.Errorf("look up manifesto by PR URL: %w", err)
	}

	isNew := false
	if manifesto == nil {
		pr, err := s.prs.GetPullRequest(ctx, prURL)
		if err != nil {
			return nil, fmt.Errorf("fetch pull request: %w", err)
		}
		summary, err := s.summaries.GenerateSummary(ctx, pr)
		if err != nil {
			return nil, fmt.Errorf("generate summary: %w", err)
		}
		if llm.IsExcluded(summary) {
			return &NotifyOutcome{Skipped: true}, nil
		}
		manifesto = &store.Manifesto{
			ID:           uuid.NewString(),
			Title:        pr.Title,
			Summary:      summary,
			Diff:         pr.Diff,
			GithubPRURL:  prURL,
			CreatedAt:    s.now(),
			ChangedFiles: pr.ChangedFiles,
		}
		isNew = true
	}

	text := postText(manifesto)
	results := make(map[string]notify.Result, len(s.notifiers))
	anySuccess := false
	for _, n := range s.notifiers {
		res := n.Post(ctx, text)
		results[n.Platform()] = res
		if res.Success {
			anySuccess = true
		}
	}

	outcome := &NotifyOutcome{ManifestoID: manifesto.ID, Results: results}
	if !anySuccess {
		return outcome, nil
	}

	// The manifesto must be committed before its history row, and both
	// before stale-marking reads "all other manifestos".
	if isNew {
		if err := s.manifestos.Save(ctx, manifesto); err != nil {
			return nil, fmt.Errorf("save manifesto: %w", err)
		}
	}
	for _, n := range s.notifiers {
		res := results[n.Platform()]
		if !res.Success {
			continue
		}
		h := &store.NotificationHistory{
			ID:          uuid.NewString(),
			ManifestoID: manifesto.ID,
			GithubPRURL: manifesto.GithubPRURL,
			Platform:    n.Platform(),
			PostURL:     res.URL,
			PostedAt:    s.now(),
		}
		if err := s.histories.Save(ctx, h); err != nil {
			return nil, fmt.Errorf("save notification history: %w", err)
		}
	}

	s.markStale(ctx, manifesto)
	return outcome, nil
}

// markStale flags every other manifesto whose changed-file ranges this one
// overwrote. Best effort per match: a failing update is logged and the
// rest still processed.
func (s *Service) markStale(ctx context.Context, latest *store.Manifesto) {
	if len(latest.ChangedFiles) == 0 {
		return
	}
	matches, err := s.manifestos.FindByChangedFiles(ctx, latest.ChangedFiles)
	if err != nil {
		log.Printf("stale check for manifesto %s failed: %v", latest.ID, err)
		return
	}
	for i := range matches {
		m := matches[i]
		if m.ID == latest.ID || m.IsOld {
			continue
		}
		m.IsOld = true
		if err := s.manifestos.Update(ctx, &m); err != nil {
			log.Printf("could not mark manifesto %s as old: %v", m.ID, err)
		}
	}
}

func postText(m *store.Manifesto) string {
	return fmt.Sprintf("%s\n\n%s\n%s", m.Title, m.Summary, m.GithubPRURL)
}

// CreateManifesto registers a manifesto directly from user-supplied
// content, summarizing it without going through GitHub.
func (s *Service) CreateManifesto(ctx context.Context, title, content, prURL string) (string, error) {
	summary, err := s.summaries.GenerateSummary(ctx, &github.PullRequest{
		URL:   prURL,
		Title: title,
		Diff:  content,
	})
	if err != nil {
		return "", fmt.Errorf("generate summary: %w", err)
	}

	m := &store.Manifesto{
		ID:          uuid.NewString(),
		Title:       title,
		Summary:     summary,
		Diff:        content,
		GithubPRURL: prURL,
		CreatedAt:   s.now(),
	}
	if err := s.manifestos.Save(ctx, m); err != nil {
		return "", fmt.Errorf("save manifesto: %w", err)
	}
	return m.ID, nil
}

// ImportOutcome reports a single merged-PR import.
type ImportOutcome struct {
	AlreadyImported bool
	ManifestoID     string
	Title           string
	Summary         string
}

// ImportMergedPR backfills a manifesto and an empty-post-URL history row
// for a PR that was merged before the bot existed. A manifesto that
// already has history is left untouched.
func (s *Service) ImportMergedPR(ctx context.Context, prURL string) (*ImportOutcome, error) {
	if !github.ValidPRURL(prURL) {
		return nil, domainError(http.StatusBadRequest, "VALIDATION_ERROR",
			"GitHub PR URL must be in the format: https://github.com/owner/repo/pull/123", nil)
	}

	existing, err := s.manifestos.FindByPRURL(ctx, prURL)
	if err != nil {
		return nil, fmt.Errorf("look up manifesto by PR URL: %w", err)
	}
	if existing != nil {
		histories, err := s.histories.FindByManifesto(ctx, existing.ID, "")
		if err != nil {
			return nil, fmt.Errorf("look up notification history: %w", err)
		}
		if len(histories) > 0 {
			return &ImportOutcome{AlreadyImported: true, ManifestoID: existing.ID, Title: existing.Title}, nil
		}
	}

	pr, err := s.prs.GetPullRequest(ctx, prURL)
	if err != nil {
		return nil, fmt.Errorf("fetch pull request: %w", err)
	}
	summary, err := s.summaries.GenerateSummary(ctx, pr)
	if err != nil {
		return nil, fmt.Errorf("generate summary: %w", err)
	}

	m := &store.Manifesto{
		ID:           uuid.NewString(),
		Title:        pr.Title,
		Summary:      summary,
		Diff:         pr.Diff,
		GithubPRURL:  prURL,
		CreatedAt:    s.now(),
		ChangedFiles: pr.ChangedFiles,
	}
	if existing != nil {
		m.ID = existing.ID
		m.CreatedAt = existing.CreatedAt
	} else {
		if err := s.manifestos.Save(ctx, m); err != nil {
			return nil, fmt.Errorf("save manifesto: %w", err)
		}
	}

	h := &store.NotificationHistory{
		ID:          uuid.NewString(),
		ManifestoID: m.ID,
		GithubPRURL: prURL,
		Platform:    "x",
		PostURL:     "", // backfill only, nothing was actually posted
		PostedAt:    s.now(),
	}
	if err := s.histories.Save(ctx, h); err != nil {
		return nil, fmt.Errorf("save notification history: %w", err)
	}

	return &ImportOutcome{ManifestoID: m.ID, Title: m.Title, Summary: summary}, nil
}

func (s *Service) ListManifestos(ctx context.Context) ([]store.Manifesto, error) {
	items, err := s.manifestos.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list manifestos: %w", err)
	}
	if items == nil {
		items = []store.Manifesto{}
	}
	return items, nil
}

// ListHistories filters by manifesto id and platform; both are optional.
func (s *Service) ListHistories(ctx context.Context, manifestoID, platform string) ([]store.NotificationHistory, error) {
	if manifestoID != "" {
		items, err := s.histories.FindByManifesto(ctx, manifestoID, platform)
		if err != nil {
			return nil, fmt.Errorf("list notification histories: %w", err)
		}
		if items == nil {
			items = []store.NotificationHistory{}
		}
		return items, nil
	}

	all, err := s.histories.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list notification histories: %w", err)
	}
	items := []store.NotificationHistory{}
	for _, h := range all {
		if platform != "" && h.Platform != platform {
			continue
		}
		items = append(items, h)
	}
	return items, nil
}
