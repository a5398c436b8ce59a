package app

import (
	"context"
	"errors"
	"time"

	"github.com/team-mirai-volunteer/manifesto-notify-bot/internal/github"
	"github.com/team-mirai-volunteer/manifesto-notify-bot/internal/llm"
	"github.com/team-mirai-volunteer/manifesto-notify-bot/internal/notify"
	"github.com/team-mirai-volunteer/manifesto-notify-bot/internal/store"
)

type fakeManifestoStore struct {
	items     map[string]store.Manifesto
	saveErr   error
	updateErr error
	saves     int
	updates   int
}

func newFakeManifestoStore() *fakeManifestoStore {
	return &fakeManifestoStore{items: map[string]store.Manifesto{}}
}

func (f *fakeManifestoStore) Save(_ context.Context, m *store.Manifesto) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saves++
	f.items[m.ID] = *m
	return nil
}

func (f *fakeManifestoStore) Update(_ context.Context, m *store.Manifesto) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updates++
	f.items[m.ID] = *m
	return nil
}

func (f *fakeManifestoStore) FindByID(_ context.Context, id string) (*store.Manifesto, error) {
	m, ok := f.items[id]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

func (f *fakeManifestoStore) FindByPRURL(_ context.Context, prURL string) (*store.Manifesto, error) {
	for _, m := range f.items {
		if m.GithubPRURL == prURL {
			copied := m
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeManifestoStore) FindAll(_ context.Context) ([]store.Manifesto, error) {
	items := []store.Manifesto{}
	for _, m := range f.items {
		items = append(items, m)
	}
	return items, nil
}

func (f *fakeManifestoStore) FindByChangedFiles(ctx context.Context, candidates []store.ChangedFileRange) ([]store.Manifesto, error) {
	all, err := f.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	return store.FindOverlapping(candidates, all), nil
}

type fakeHistoryStore struct {
	items   []store.NotificationHistory
	saveErr error
}

func (f *fakeHistoryStore) Save(_ context.Context, h *store.NotificationHistory) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.items = append(f.items, *h)
	return nil
}

func (f *fakeHistoryStore) FindAll(_ context.Context) ([]store.NotificationHistory, error) {
	return append([]store.NotificationHistory{}, f.items...), nil
}

func (f *fakeHistoryStore) FindByManifesto(_ context.Context, manifestoID, platform string) ([]store.NotificationHistory, error) {
	items := []store.NotificationHistory{}
	for _, h := range f.items {
		if h.ManifestoID != manifestoID {
			continue
		}
		if platform != "" && h.Platform != platform {
			continue
		}
		items = append(items, h)
	}
	return items, nil
}

type fakeFetcher struct {
	pr    *github.PullRequest
	err   error
	calls int
}

func (f *fakeFetcher) GetPullRequest(_ context.Context, prURL string) (*github.PullRequest, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.pr == nil {
		return nil, errors.New("no PR configured")
	}
	pr := *f.pr
	pr.URL = prURL
	return &pr, nil
}

type fakeLLM struct {
	summary string
	err     error
	calls   int
}

func (f *fakeLLM) GenerateSummary(_ context.Context, pr *github.PullRequest) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.summary, nil
}

type fakeNotifier struct {
	result notify.Result
	posts  []string
}

func (f *fakeNotifier) Post(_ context.Context, text string) notify.Result {
	f.posts = append(f.posts, text)
	return f.result
}

func (f *fakeNotifier) Platform() string { return "x" }

var (
	_ store.ManifestoStore = (*fakeManifestoStore)(nil)
	_ store.HistoryStore   = (*fakeHistoryStore)(nil)
	_ PRFetcher            = (*fakeFetcher)(nil)
	_ llm.Service          = (*fakeLLM)(nil)
	_ notify.Notifier      = (*fakeNotifier)(nil)
)

const testPRURL = "https://github.com/team-mirai/policy/pull/42"

var errTest = errors.New("upstream failure")

func testPullRequest() *github.PullRequest {
	return &github.PullRequest{
		URL:   testPRURL,
		Title: "教育政策の更新",
		Body:  "数値目標を追記しました。",
		Diff:  "diff --git a/12_教育.md b/12_教育.md\n",
		ChangedFiles: []store.ChangedFileRange{
			{Path: "12_教育.md", StartLine: 10, EndLine: 14},
		},
	}
}

type testEnv struct {
	manifestos *fakeManifestoStore
	histories  *fakeHistoryStore
	fetcher    *fakeFetcher
	llm        *fakeLLM
	notifier   *fakeNotifier
	service    *Service
}

func newTestEnv() *testEnv {
	env := &testEnv{
		manifestos: newFakeManifestoStore(),
		histories:  &fakeHistoryStore{},
		fetcher:    &fakeFetcher{pr: testPullRequest()},
		llm:        &fakeLLM{summary: "教育分野の数値目標を追加しました。"},
		notifier:   &fakeNotifier{result: notify.Result{Success: true, URL: "https://x.com/TeamMirai/status/1"}},
	}
	env.service = NewService(env.manifestos, env.histories, env.fetcher, env.llm, []notify.Notifier{env.notifier})
	env.service.now = func() time.Time {
		return time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	}
	return env
}
