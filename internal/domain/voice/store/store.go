package store

import (
	"context"

	"voiceprint-server-go/internal/domain/voice/aggregate"
)

// ErrVersionConflict is returned by Save when the stored version moved on.
var ErrVersionConflict = aggregate.ErrVersionConflict

// Store persists biometric records. Save is an atomic compare-and-replace
// on Version: it succeeds only when the stored version equals rec.Version
// (0 means "must not exist yet") and then bumps rec.Version.
type Store interface {
	// Get returns nil, nil when the user has no record.
	Get(ctx context.Context, userID string) (*aggregate.BiometricRecord, error)
	Save(ctx context.Context, rec *aggregate.BiometricRecord) error
	ListEnrolled(ctx context.Context, scope aggregate.Scope) ([]*aggregate.BiometricRecord, error)
	Stats(ctx context.Context) (map[string]any, error)
	Close(ctx context.Context) error
}

// Config describes the store selection parameters.
type Config struct {
	Driver string
	Redis  *RedisConfig
}

// RedisConfig captures connection options.
type RedisConfig struct {
	Addr     string
	Username string
	Password string
	DB       int
	Prefix   string
}
