package store

import (
	"fmt"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Driver identifiers supported by the template store.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

// Dependencies captures external handles required by certain drivers.
type Dependencies struct {
	SQLiteDB    *gorm.DB
	RedisClient *redis.Client
}

// New creates a template store based on the provided configuration.
func New(cfg Config, deps Dependencies) (Store, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = DriverMemory
	}

	switch driver {
	case DriverMemory:
		return NewMemory(), nil
	case DriverSQLite:
		if deps.SQLiteDB == nil {
			return nil, fmt.Errorf("sqlite driver requires database handle")
		}
		return NewSQLite(deps.SQLiteDB)
	case DriverRedis:
		if deps.RedisClient != nil {
			prefix := ""
			if cfg.Redis != nil {
				prefix = cfg.Redis.Prefix
			}
			return NewRedisWithClient(deps.RedisClient, prefix), nil
		}
		return NewRedis(cfg)
	default:
		return nil, fmt.Errorf("unsupported template store driver: %s", driver)
	}
}
