package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// PostgresManifestoStore keeps manifestos in a single table. The unique
// github_pr_url index gives the second lookup path, and the upsert is one
// statement, so both paths commit together.
type PostgresManifestoStore struct {
	db *sql.DB
}

func NewPostgresManifestoStore(db *sql.DB) *PostgresManifestoStore {
	return &PostgresManifestoStore{db: db}
}

func (s *PostgresManifestoStore) Save(ctx context.Context, m *Manifesto) error {
	changedFiles, err := json.Marshal(m.ChangedFiles)
	if err != nil {
		return fmt.Errorf("marshal changed files: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO manifestos (id, title, summary, diff, github_pr_url, created_at, changed_files, is_old)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			title=EXCLUDED.title,
			summary=EXCLUDED.summary,
			diff=EXCLUDED.diff,
			github_pr_url=EXCLUDED.github_pr_url,
			created_at=EXCLUDED.created_at,
			changed_files=EXCLUDED.changed_files,
			is_old=EXCLUDED.is_old
	`, m.ID, m.Title, m.Summary, m.Diff, m.GithubPRURL, m.CreatedAt, changedFiles, m.IsOld)
	if err != nil {
		return fmt.Errorf("save manifesto: %w", err)
	}
	return nil
}

func (s *PostgresManifestoStore) Update(ctx context.Context, m *Manifesto) error {
	return s.Save(ctx, m)
}

const manifestoColumns = `id, title, summary, diff, github_pr_url, created_at, changed_files, is_old`

func (s *PostgresManifestoStore) FindByID(ctx context.Context, id string) (*Manifesto, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+manifestoColumns+` FROM manifestos WHERE id=$1`, id)
	return scanManifesto(row)
}

func (s *PostgresManifestoStore) FindByPRURL(ctx context.Context, prURL string) (*Manifesto, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+manifestoColumns+` FROM manifestos WHERE github_pr_url=$1`, prURL)
	return scanManifesto(row)
}

func scanManifesto(row *sql.Row) (*Manifesto, error) {
	var m Manifesto
	var changedFiles []byte
	err := row.Scan(&m.ID, &m.Title, &m.Summary, &m.Diff, &m.GithubPRURL, &m.CreatedAt, &changedFiles, &m.IsOld)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan manifesto: %w", err)
	}
	if len(changedFiles) > 0 {
		if err := json.Unmarshal(changedFiles, &m.ChangedFiles); err != nil {
			return nil, fmt.Errorf("unmarshal changed files: %w", err)
		}
	}
	return &m, nil
}

func (s *PostgresManifestoStore) FindAll(ctx context.Context) ([]Manifesto, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+manifestoColumns+` FROM manifestos ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list manifestos: %w", err)
	}
	defer rows.Close()

	manifestos := []Manifesto{}
	for rows.Next() {
		var m Manifesto
		var changedFiles []byte
		if err := rows.Scan(&m.ID, &m.Title, &m.Summary, &m.Diff, &m.GithubPRURL, &m.CreatedAt, &changedFiles, &m.IsOld); err != nil {
			return nil, fmt.Errorf("scan manifesto: %w", err)
		}
		if len(changedFiles) > 0 {
			if err := json.Unmarshal(changedFiles, &m.ChangedFiles); err != nil {
				return nil, fmt.Errorf("unmarshal changed files: %w", err)
			}
		}
		manifestos = append(manifestos, m)
	}
	return manifestos, rows.Err()
}

func (s *PostgresManifestoStore) FindByChangedFiles(ctx context.Context, candidates []ChangedFileRange) ([]Manifesto, error) {
	all, err := s.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	return FindOverlapping(candidates, all), nil
}

func (s *PostgresManifestoStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// PostgresHistoryStore records notification history; the composite
// (manifesto_id, platform) index backs the filtered lookup.
type PostgresHistoryStore struct {
	db *sql.DB
}

func NewPostgresHistoryStore(db *sql.DB) *PostgresHistoryStore {
	return &PostgresHistoryStore{db: db}
}

func (s *PostgresHistoryStore) Save(ctx context.Context, h *NotificationHistory) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notification_histories (id, manifesto_id, github_pr_url, platform, post_url, posted_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, h.ID, h.ManifestoID, h.GithubPRURL, h.Platform, h.PostURL, h.PostedAt)
	if err != nil {
		return fmt.Errorf("save history: %w", err)
	}
	return nil
}

const historyColumns = `id, manifesto_id, github_pr_url, platform, post_url, posted_at`

func (s *PostgresHistoryStore) FindAll(ctx context.Context) ([]NotificationHistory, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+historyColumns+` FROM notification_histories ORDER BY posted_at`)
	if err != nil {
		return nil, fmt.Errorf("list histories: %w", err)
	}
	defer rows.Close()
	return scanHistories(rows)
}

func (s *PostgresHistoryStore) FindByManifesto(ctx context.Context, manifestoID, platform string) ([]NotificationHistory, error) {
	query := `SELECT ` + historyColumns + ` FROM notification_histories WHERE manifesto_id=$1`
	args := []any{manifestoID}
	if platform != "" {
		query += ` AND platform=$2`
		args = append(args, platform)
	}
	query += ` ORDER BY posted_at`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list histories by manifesto: %w", err)
	}
	defer rows.Close()
	return scanHistories(rows)
}

func scanHistories(rows *sql.Rows) ([]NotificationHistory, error) {
	histories := []NotificationHistory{}
	for rows.Next() {
		var h NotificationHistory
		if err := rows.Scan(&h.ID, &h.ManifestoID, &h.GithubPRURL, &h.Platform, &h.PostURL, &h.PostedAt); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		histories = append(histories, h)
	}
	return histories, rows.Err()
}

var (
	_ ManifestoStore = (*PostgresManifestoStore)(nil)
	_ HistoryStore   = (*PostgresHistoryStore)(nil)
)
