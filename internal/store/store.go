// Package store persists manifestos and notification history. Every record
// is reachable through two lookup paths (by id and by a secondary business
// key) that are always written together in one atomic commit. Lookups that
// find nothing return a nil record and a nil error.
package store

import "context"

type ManifestoStore interface {
	// Save writes the manifesto under both the by-id and by-PR-URL keys.
	Save(ctx context.Context, m *Manifesto) error
	// Update has the same full-replace semantics as Save.
	Update(ctx context.Context, m *Manifesto) error
	FindByID(ctx context.Context, id string) (*Manifesto, error)
	FindByPRURL(ctx context.Context, prURL string) (*Manifesto, error)
	FindAll(ctx context.Context) ([]Manifesto, error)
	// FindByChangedFiles returns manifestos whose ranges overlap the
	// candidates on the same path.
	FindByChangedFiles(ctx context.Context, candidates []ChangedFileRange) ([]Manifesto, error)
}

type HistoryStore interface {
	// Save writes the history row under both the by-id key and the
	// by-manifesto(+platform) composite key.
	Save(ctx context.Context, h *NotificationHistory) error
	FindAll(ctx context.Context) ([]NotificationHistory, error)
	// FindByManifesto filters by manifesto id; platform narrows the result
	// further when non-empty.
	FindByManifesto(ctx context.Context, manifestoID, platform string) ([]NotificationHistory, error)
}
