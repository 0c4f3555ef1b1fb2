package store

import (
	"errors"
	"fmt"

	"github.com/astanafx/fxbot/internal/chat"
)

// Store is a closable implementation of the session layer's history
// storage contract. Implementations must be safe for concurrent use.
type Store interface {
	chat.HistoryStore

	// Close releases any underlying resources.
	Close() error
}

// Driver selects a Store implementation.
type Driver string

const (
	DriverMemory Driver = "memory"
	DriverSQLite Driver = "sqlite"
	DriverRedis  Driver = "redis"
)

// Common store construction errors.
var (
	ErrInvalidConfig = errors.New("invalid store configuration")
	ErrInvalidDriver = errors.New("invalid store driver")
)

// Config carries driver-specific settings for New.
type Config struct {
	// Path is the SQLite database file path.
	Path string
	// RedisAddr and RedisDB configure the Redis driver.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// New builds a Store for the given driver.
func New(driver Driver, cfg Config) (Store, error) {
	switch driver {
	case DriverMemory:
		return NewMemoryStore(), nil
	case DriverSQLite:
		if cfg.Path == "" {
			return nil, fmt.Errorf("%w: sqlite driver requires a path", ErrInvalidConfig)
		}
		return OpenSQLiteStore(cfg.Path)
	case DriverRedis:
		if cfg.RedisAddr == "" {
			return nil, fmt.Errorf("%w: redis driver requires an address", ErrInvalidConfig)
		}
		return NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidDriver, driver)
	}
}
