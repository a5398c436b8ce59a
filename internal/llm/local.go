package llm

import (
	"context"

	"github.com/team-mirai-volunteer/manifesto-notify-bot/internal/github"
)

// LocalService stands in for the OpenAI service during local development:
// the "summary" is just the PR title, so the rest of the pipeline can be
// exercised without an API key.
type LocalService struct{}

func NewLocalService() *LocalService { return &LocalService{} }

func (s *LocalService) GenerateSummary(_ context.Context, pr *github.PullRequest) (string, error) {
	return pr.Title, nil
}

var _ Service = (*LocalService)(nil)
var _ Service = (*OpenAIService)(nil)
