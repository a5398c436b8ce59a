// Package llm generates short Japanese summaries of manifesto pull
// requests.
package llm

import (
	"context"
	"strings"

	"github.com/team-mirai-volunteer/manifesto-notify-bot/internal/github"
)

// ExcludedSentinel is the literal answer the model gives for changes that
// are not policy content (typo fixes, CI config, and so on). A summary
// containing it halts the notify workflow before anything is persisted.
const ExcludedSentinel = "要約対象外"

// IsExcluded reports whether a generated summary carries the exclusion
// sentinel. Substring match, so minor phrasing drift around the sentinel
// still counts.
func IsExcluded(summary string) bool {
	return strings.Contains(summary, ExcludedSentinel)
}

// Service produces a post-ready summary for a pull request.
type Service interface {
	GenerateSummary(ctx context.Context, pr *github.PullRequest) (string, error)
}
