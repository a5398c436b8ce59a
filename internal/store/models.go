package store

import "time"

// ChangedFileRange is a contiguous block of added lines as they appear in the
// post-change version of a file. Line numbers are 1-based and inclusive.
// Separate hunks produce separate ranges, even when adjacent.
type ChangedFileRange struct {
	Path      string `json:"path"`
	StartLine int    `json:"startLine"`
	EndLine   int    `json:"endLine"`
}

type Manifesto struct {
	ID           string             `json:"id"`
	Title        string             `json:"title"`
	Summary      string             `json:"summary"`
	Diff         string             `json:"diff"`
	GithubPRURL  string             `json:"githubPrUrl"`
	CreatedAt    time.Time          `json:"createdAt"`
	ChangedFiles []ChangedFileRange `json:"changedFiles"`
	// IsOld flips to true when a newer manifesto touches overlapping lines.
	// Once true it never resets.
	IsOld bool `json:"isOld"`
}

type NotificationHistory struct {
	ID          string    `json:"id"`
	ManifestoID string    `json:"manifestoId"`
	GithubPRURL string    `json:"githubPrUrl"`
	Platform    string    `json:"platform"`
	PostURL     string    `json:"postUrl"`
	PostedAt    time.Time `json:"postedAt"`
}
