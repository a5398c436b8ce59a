package llm

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/team-mirai-volunteer/manifesto-notify-bot/internal/github"
)

const systemPrompt = `あなたは政策マニフェストの更新を市民に伝える広報担当です。
与えられたPull Requestの内容から、変更点を140文字以内の日本語で要約してください。
要約は前置きなしの本文のみを返してください。
変更が政策の内容に関わらないもの(誤字修正、体裁の調整、CI設定など)である場合は、
「要約対象外」とだけ答えてください。`

const (
	defaultMaxAttempts = 3
	defaultBaseDelay   = 500 * time.Millisecond
	defaultMaxDelay    = 10 * time.Second
	maxDiffBytes       = 16 * 1024
)

// OpenAIService summarizes pull requests with an OpenAI chat model,
// retrying transient API failures and degrading to a templated summary
// when the API stays unavailable.
type OpenAIService struct {
	client *openai.Client
	model  string

	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
}

func NewOpenAIService(apiKey, model string) *OpenAIService {
	return newOpenAIService(openai.NewClient(apiKey), model)
}

// NewOpenAIServiceWithConfig exists so tests can point the client at a
// local server.
func NewOpenAIServiceWithConfig(cfg openai.ClientConfig, model string) *OpenAIService {
	return newOpenAIService(openai.NewClientWithConfig(cfg), model)
}

func newOpenAIService(client *openai.Client, model string) *OpenAIService {
	return &OpenAIService{
		client:      client,
		model:       model,
		maxAttempts: defaultMaxAttempts,
		baseDelay:   defaultBaseDelay,
		maxDelay:    defaultMaxDelay,
	}
}

// GenerateSummary asks the model for a summary of the PR. API failures
// never propagate: transient statuses are retried with backoff, and
// anything still failing after that yields a templated fallback built from
// the PR title. Only context cancellation returns an error.
func (s *OpenAIService) GenerateSummary(ctx context.Context, pr *github.PullRequest) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildUserPrompt(pr)},
		},
	}

	for attempt := 1; ; attempt++ {
		resp, err := s.client.CreateChatCompletion(ctx, req)
		if err == nil {
			if len(resp.Choices) == 0 {
				log.Printf("llm: empty choices from model %s, using fallback summary", s.model)
				return fallbackSummary(pr), nil
			}
			return strings.TrimSpace(resp.Choices[0].Message.Content), nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if attempt >= s.maxAttempts || !retryable(err) {
			log.Printf("llm: giving up after attempt %d: %v", attempt, err)
			return fallbackSummary(pr), nil
		}

		delay := s.backoff(attempt)
		log.Printf("llm: attempt %d failed, retrying in %s: %v", attempt, delay, err)
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(delay):
		}
	}
}

// backoff doubles the base delay per attempt, caps it, and spreads it
// ±50% so concurrent workflows do not retry in lockstep.
func (s *OpenAIService) backoff(attempt int) time.Duration {
	d := s.baseDelay << (attempt - 1)
	if d > s.maxDelay {
		d = s.maxDelay
	}
	return d/2 + time.Duration(rand.Int63n(int64(d)))
}

var retryableStatuses = map[int]bool{
	403: true, 429: true, 500: true, 502: true, 503: true, 504: true,
}

func retryable(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return retryableStatuses[apiErr.HTTPStatusCode]
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return retryableStatuses[reqErr.HTTPStatusCode]
	}
	return false
}

func buildUserPrompt(pr *github.PullRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "タイトル: %s\n\n", pr.Title)
	if pr.Body != "" {
		fmt.Fprintf(&b, "説明:\n%s\n\n", pr.Body)
	}
	fmt.Fprintf(&b, "差分:\n%s\n", truncateBytes(pr.Diff, maxDiffBytes))
	return b.String()
}

// truncateBytes cuts s to at most n bytes without splitting a UTF-8
// sequence.
func truncateBytes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return strings.ToValidUTF8(s[:n], "")
}

func fallbackSummary(pr *github.PullRequest) string {
	return fmt.Sprintf("マニフェストが更新されました:%s", pr.Title)
}
