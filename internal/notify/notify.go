// Package notify posts manifesto updates to social platforms.
package notify

import "context"

// Result reports the outcome of a single post. A failed post is data, not
// an error: the caller already has the manifesto and decides separately
// what to persist.
type Result struct {
	Success bool   `json:"success"`
	URL     string `json:"url,omitempty"`
	Message string `json:"message,omitempty"`
}

// Notifier posts a prepared text to one platform.
type Notifier interface {
	Post(ctx context.Context, text string) Result
	Platform() string
}

const maxPostRunes = 280

// Truncate shortens text to the platform limit, replacing the tail with an
// ellipsis when it does not fit. Counted in runes, not bytes.
func Truncate(text string) string {
	runes := []rune(text)
	if len(runes) <= maxPostRunes {
		return text
	}
	return string(runes[:maxPostRunes-3]) + "..."
}
