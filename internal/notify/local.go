package notify

import (
	"context"
	"fmt"
)

// mock tweet id used by the local stub
const localTweetID = "1942491313124851933"

// LocalNotifier never talks to X; it pretends every post succeeded so the
// full workflow runs in local development.
type LocalNotifier struct {
	username string
}

func NewLocalNotifier(username string) *LocalNotifier {
	return &LocalNotifier{username: username}
}

func (n *LocalNotifier) Platform() string { return "x" }

func (n *LocalNotifier) Post(_ context.Context, _ string) Result {
	return Result{
		Success: true,
		URL:     fmt.Sprintf("https://x.com/%s/status/%s", n.username, localTweetID),
	}
}

var _ Notifier = (*LocalNotifier)(nil)
