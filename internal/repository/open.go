package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/match-session-planner/internal/config"
	"github.com/iliyamo/match-session-planner/internal/database"
)

// Open builds the store selected by cfg.StoreDriver.  rdb is only used by
// the redis driver and may be nil otherwise.  The returned func releases
// whatever the store holds open and is never nil.
func Open(ctx context.Context, cfg config.Config, rdb *redis.Client) (Store, func(), error) {
	noop := func() {}
	switch cfg.StoreDriver {
	case config.DriverMemory:
		return NewMemoryStore(), noop, nil
	case config.DriverFile:
		s, err := NewFileStore(cfg.DataFile)
		if err != nil {
			return nil, noop, err
		}
		return s, noop, nil
	case config.DriverRedis:
		if rdb == nil {
			return nil, noop, fmt.Errorf("redis store: cannot reach %s", cfg.Redis.Address())
		}
		return NewRedisStore(rdb, cfg.Redis.Prefix), noop, nil
	case config.DriverMySQL:
		db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
		if err != nil {
			return nil, noop, err
		}
		s := NewMySQLStore(db)
		sctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := s.EnsureSchema(sctx); err != nil {
			_ = db.Close()
			return nil, noop, fmt.Errorf("mysql schema: %w", err)
		}
		return s, func() { _ = db.Close() }, nil
	}
	return nil, noop, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.StoreDriver)
}
