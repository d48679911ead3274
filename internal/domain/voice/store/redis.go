package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"voiceprint-server-go/internal/domain/voice/aggregate"
)

const defaultRedisPrefix = "voiceprint:template:"

type redisStore struct {
	client *redis.Client
	prefix string
}

// redisRecord 是 redis 中保存的 JSON 结构，模板以 base64 编码
type redisRecord struct {
	UserID          string     `json:"userId"`
	TenantID        string     `json:"tenantId"`
	VoiceTemplate   []byte     `json:"voiceTemplate,omitempty"`
	IsVoiceEnrolled bool       `json:"isVoiceEnrolled"`
	EnrolledAt      *time.Time `json:"enrolledAt,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
	Version         int64      `json:"version"`
}

// NewRedis constructs a redis-backed template store.
func NewRedis(cfg Config) (Store, error) {
	if cfg.Redis == nil {
		return nil, fmt.Errorf("redis configuration missing")
	}
	if cfg.Redis.Addr == "" {
		return nil, fmt.Errorf("redis address required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Username: cfg.Redis.Username,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return NewRedisWithClient(client, cfg.Redis.Prefix), nil
}

// NewRedisWithClient wraps an existing client; the store owns it afterwards.
func NewRedisWithClient(client *redis.Client, prefix string) Store {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &redisStore{client: client, prefix: prefix}
}

func (s *redisStore) key(userID string) string {
	return s.prefix + userID
}

func (s *redisStore) Get(ctx context.Context, userID string) (*aggregate.BiometricRecord, error) {
	raw, err := s.client.Get(ctx, s.key(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	return decodeRecord(raw)
}

func (s *redisStore) Save(ctx context.Context, rec *aggregate.BiometricRecord) error {
	if rec == nil || rec.UserID == "" {
		return fmt.Errorf("user id required")
	}
	key := s.key(rec.UserID)
	next := rec.Version + 1

	payload := toRedisRecord(rec)
	payload.Version = next
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	err = s.client.Watch(ctx, func(tx *redis.Tx) error {
		var current int64
		raw, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return err
		default:
			stored, err := decodeRecord(raw)
			if err != nil {
				return err
			}
			current = stored.Version
		}
		if current != rec.Version {
			return ErrVersionConflict
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			return nil
		})
		return err
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		return ErrVersionConflict
	}
	if err != nil {
		return err
	}
	rec.Version = next
	return nil
}

func (s *redisStore) ListEnrolled(ctx context.Context, scope aggregate.Scope) ([]*aggregate.BiometricRecord, error) {
	keys, err := s.keys(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]*aggregate.BiometricRecord, 0, len(keys))
	for _, key := range keys {
		raw, err := s.client.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, err
		}
		rec, err := decodeRecord(raw)
		if err != nil {
			return nil, err
		}
		if rec.Enrolled() && scope.Allows(rec) {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (s *redisStore) keys(ctx context.Context) ([]string, error) {
	var cursor uint64
	keys := make([]string, 0)
	pattern := s.prefix + "*"
	for {
		res, nextCursor, err := s.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return nil, err
		}
		keys = append(keys, res...)
		if nextCursor == 0 {
			break
		}
		cursor = nextCursor
	}
	return keys, nil
}

func (s *redisStore) Stats(ctx context.Context) (map[string]any, error) {
	keys, err := s.keys(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"type":   DriverRedis,
		"total":  len(keys),
		"prefix": strings.TrimSuffix(s.prefix, ":"),
	}, nil
}

func (s *redisStore) Close(context.Context) error {
	return s.client.Close()
}

func toRedisRecord(rec *aggregate.BiometricRecord) redisRecord {
	return redisRecord{
		UserID:          rec.UserID,
		TenantID:        rec.TenantID,
		VoiceTemplate:   rec.VoiceTemplate,
		IsVoiceEnrolled: rec.IsVoiceEnrolled,
		EnrolledAt:      utcTime(rec.EnrolledAt),
		CreatedAt:       rec.CreatedAt.UTC(),
		UpdatedAt:       rec.UpdatedAt.UTC(),
		Version:         rec.Version,
	}
}

func decodeRecord(raw []byte) (*aggregate.BiometricRecord, error) {
	var r redisRecord
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("decode biometric record: %w", err)
	}
	return &aggregate.BiometricRecord{
		UserID:          r.UserID,
		TenantID:        r.TenantID,
		VoiceTemplate:   r.VoiceTemplate,
		IsVoiceEnrolled: r.IsVoiceEnrolled,
		EnrolledAt:      r.EnrolledAt,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
		Version:         r.Version,
	}, nil
}
