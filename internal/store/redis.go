package store

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	manifestoIDPrefix    = "manifesto:id:"
	manifestoPRPrefix    = "manifesto:pr:"
	notificationIDPrefix = "notification:id:"
	// Composite index: notification:manifesto:<manifestoID>:<platform>:<historyID>
	notificationManifestoPrefix = "notification:manifesto:"
)

// NewRedisClient connects to Redis and verifies the connection.
func NewRedisClient(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return client, nil
}

// RedisManifestoStore keeps manifestos under two keys written in one
// MULTI/EXEC transaction so the lookup paths never diverge.
type RedisManifestoStore struct {
	client *redis.Client
}

func NewRedisManifestoStore(client *redis.Client) *RedisManifestoStore {
	return &RedisManifestoStore{client: client}
}

func manifestoIDKey(id string) string {
	return manifestoIDPrefix + id
}

func manifestoPRKey(prURL string) string {
	return manifestoPRPrefix + url.QueryEscape(prURL)
}

func (s *RedisManifestoStore) Save(ctx context.Context, m *Manifesto) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal manifesto: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, manifestoIDKey(m.ID), data, 0)
		pipe.Set(ctx, manifestoPRKey(m.GithubPRURL), data, 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save manifesto: %w", err)
	}
	return nil
}

func (s *RedisManifestoStore) Update(ctx context.Context, m *Manifesto) error {
	return s.Save(ctx, m)
}

func (s *RedisManifestoStore) FindByID(ctx context.Context, id string) (*Manifesto, error) {
	return s.get(ctx, manifestoIDKey(id))
}

func (s *RedisManifestoStore) FindByPRURL(ctx context.Context, prURL string) (*Manifesto, error) {
	return s.get(ctx, manifestoPRKey(prURL))
}

func (s *RedisManifestoStore) get(ctx context.Context, key string) (*Manifesto, error) {
	data, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}

	var m Manifesto
	if err := json.Unmarshal([]byte(data), &m); err != nil {
		return nil, fmt.Errorf("unmarshal manifesto: %w", err)
	}
	return &m, nil
}

func (s *RedisManifestoStore) FindAll(ctx context.Context) ([]Manifesto, error) {
	manifestos := []Manifesto{}
	iter := s.client.Scan(ctx, 0, manifestoIDPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		m, err := s.get(ctx, iter.Val())
		if err != nil {
			return nil, err
		}
		if m != nil {
			manifestos = append(manifestos, *m)
		}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan manifestos: %w", err)
	}
	return manifestos, nil
}

func (s *RedisManifestoStore) FindByChangedFiles(ctx context.Context, candidates []ChangedFileRange) ([]Manifesto, error) {
	all, err := s.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	return FindOverlapping(candidates, all), nil
}

func (s *RedisManifestoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// RedisHistoryStore records notification history under a by-id key and a
// by-manifesto(+platform) composite key, written together.
type RedisHistoryStore struct {
	client *redis.Client
}

func NewRedisHistoryStore(client *redis.Client) *RedisHistoryStore {
	return &RedisHistoryStore{client: client}
}

func notificationIDKey(id string) string {
	return notificationIDPrefix + id
}

func notificationManifestoKey(h *NotificationHistory) string {
	return notificationManifestoPrefix + h.ManifestoID + ":" + h.Platform + ":" + h.ID
}

func (s *RedisHistoryStore) Save(ctx context.Context, h *NotificationHistory) error {
	data, err := json.Marshal(h)
	if err != nil {
		return fmt.Errorf("marshal history: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, notificationIDKey(h.ID), data, 0)
		pipe.Set(ctx, notificationManifestoKey(h), data, 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save history: %w", err)
	}
	return nil
}

func (s *RedisHistoryStore) FindAll(ctx context.Context) ([]NotificationHistory, error) {
	return s.scan(ctx, notificationIDPrefix+"*")
}

func (s *RedisHistoryStore) FindByManifesto(ctx context.Context, manifestoID, platform string) ([]NotificationHistory, error) {
	prefix := notificationManifestoPrefix + manifestoID + ":"
	if platform != "" {
		prefix += platform + ":"
	}
	return s.scan(ctx, prefix+"*")
}

func (s *RedisHistoryStore) scan(ctx context.Context, match string) ([]NotificationHistory, error) {
	histories := []NotificationHistory{}
	iter := s.client.Scan(ctx, 0, match, 100).Iterator()
	for iter.Next(ctx) {
		data, err := s.client.Get(ctx, iter.Val()).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("get %s: %w", iter.Val(), err)
		}
		var h NotificationHistory
		if err := json.Unmarshal([]byte(data), &h); err != nil {
			return nil, fmt.Errorf("unmarshal history: %w", err)
		}
		histories = append(histories, h)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan histories: %w", err)
	}
	return histories, nil
}

// ClearKeyspaces deletes every key in the bot keyspaces and returns the
// number of deleted keys. Used by cmd/clearstore only.
func ClearKeyspaces(ctx context.Context, client *redis.Client) (int, error) {
	deleted := 0
	for _, match := range []string{"manifesto:*", "notification:*"} {
		iter := client.Scan(ctx, 0, match, 100).Iterator()
		var keys []string
		for iter.Next(ctx) {
			keys = append(keys, iter.Val())
		}
		if err := iter.Err(); err != nil {
			return deleted, fmt.Errorf("scan %s: %w", match, err)
		}
		if len(keys) == 0 {
			continue
		}
		n, err := client.Del(ctx, keys...).Result()
		if err != nil {
			return deleted, fmt.Errorf("delete keys: %w", err)
		}
		deleted += int(n)
	}
	return deleted, nil
}

var (
	_ ManifestoStore = (*RedisManifestoStore)(nil)
	_ HistoryStore   = (*RedisHistoryStore)(nil)
)
