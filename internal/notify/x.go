package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const defaultTweetEndpoint = "https://api.twitter.com/2/tweets"

// XNotifier posts to X (Twitter) through the v2 tweets endpoint.
type XNotifier struct {
	endpoint    string
	accessToken string
	username    string
	httpc       *http.Client
}

// NewXNotifier builds a notifier posting as the given account. username is
// only used to assemble the public post URL.
func NewXNotifier(accessToken, username string) *XNotifier {
	return &XNotifier{
		endpoint:    defaultTweetEndpoint,
		accessToken: accessToken,
		username:    username,
		httpc:       &http.Client{Timeout: 30 * time.Second},
	}
}

func (n *XNotifier) Platform() string { return "x" }

// Post publishes text, truncated to the platform limit. Every failure mode
// comes back as Result{Success: false} rather than an error.
func (n *XNotifier) Post(ctx context.Context, text string) Result {
	payload, err := json.Marshal(map[string]string{"text": Truncate(text)})
	if err != nil {
		return Result{Success: false, Message: fmt.Sprintf("Failed to post to X: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, bytes.NewReader(payload))
	if err != nil {
		return Result{Success: false, Message: fmt.Sprintf("Failed to post to X: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+n.accessToken)

	resp, err := n.httpc.Do(req)
	if err != nil {
		return Result{Success: false, Message: fmt.Sprintf("Failed to post to X: %v", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Result{Success: false, Message: fmt.Sprintf("Failed to post to X: X API error: %d", resp.StatusCode)}
	}

	var body struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Result{Success: false, Message: fmt.Sprintf("Failed to post to X: %v", err)}
	}

	return Result{
		Success: true,
		URL:     fmt.Sprintf("https://x.com/%s/status/%s", n.username, body.Data.ID),
	}
}

var _ Notifier = (*XNotifier)(nil)
