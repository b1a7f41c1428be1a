// Package bootstrap opens the store and slot locker selected by config.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/hackgods/hospital-booking/internal/appointment"
	"github.com/hackgods/hospital-booking/internal/config"
	"github.com/hackgods/hospital-booking/internal/db"
	redisclient "github.com/hackgods/hospital-booking/internal/redis"
)

// Backends holds the opened appointment store and slot locker.
type Backends struct {
	Repo   appointment.Repository
	Locker redisclient.Locker
	Redis  *redis.Client // nil unless LOCK_DRIVER=redis

	closers []func()
}

// Open connects the configured backends. On error, anything opened so far is
// closed before returning.
func Open(ctx context.Context, cfg config.Config, log *zap.Logger) (b *Backends, err error) {
	b = &Backends{}
	defer func() {
		if err != nil {
			b.Close()
			b = nil
		}
	}()

	if err = b.openStore(ctx, cfg, log); err != nil {
		return b, err
	}
	if err = b.openLocker(ctx, cfg, log); err != nil {
		return b, err
	}
	return b, nil
}

func (b *Backends) openStore(ctx context.Context, cfg config.Config, log *zap.Logger) error {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	switch cfg.StoreDriver {
	case config.StorePostgres:
		pool, err := db.ConnectPostgres(connectCtx, cfg.PostgresDSN, db.DefaultPoolConfig)
		if err != nil {
			return fmt.Errorf("postgres connection error: %w", err)
		}
		b.closers = append(b.closers, pool.Close)

		if err := db.Migrate(connectCtx, pool); err != nil {
			return fmt.Errorf("postgres migrate: %w", err)
		}
		b.Repo = appointment.NewPgRepository(pool)
		log.Info("connected to postgres")

	case config.StoreMongo:
		client, err := db.ConnectMongo(connectCtx, cfg.MongoURI)
		if err != nil {
			return fmt.Errorf("mongo connection error: %w", err)
		}
		b.closers = append(b.closers, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := client.Disconnect(ctx); err != nil {
				log.Warn("error disconnecting mongo", zap.Error(err))
			}
		})

		repo := appointment.NewMongoRepository(client, cfg.MongoDatabase)
		if err := repo.EnsureIndexes(connectCtx); err != nil {
			return fmt.Errorf("mongo indexes: %w", err)
		}
		b.Repo = repo
		log.Info("connected to mongo", zap.String("database", cfg.MongoDatabase))

	default:
		b.Repo = appointment.NewMemoryRepository()
		log.Warn("using in-memory store, data is lost on restart")
	}
	return nil
}

func (b *Backends) openLocker(ctx context.Context, cfg config.Config, log *zap.Logger) error {
	if cfg.LockDriver != config.LockRedis {
		b.Locker = appointment.NewLocalLocker()
		log.Info("using in-process slot locks")
		return nil
	}

	rdb, err := redisclient.NewRedisClient(ctx, redisclient.ClientOptions{
		Addr:     cfg.RedisAddr,
		Username: cfg.RedisUsername,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		TLS:      cfg.RedisTLS,
		PoolSize: cfg.RedisPoolSize,
	})
	if err != nil {
		return fmt.Errorf("redis connection error: %w", err)
	}
	b.closers = append(b.closers, func() {
		if err := rdb.Close(); err != nil {
			log.Warn("error closing redis", zap.Error(err))
		}
	})

	b.Redis = rdb
	b.Locker = redisclient.NewRedisSlotLocker(rdb, cfg.LockTTL)
	log.Info("connected to redis", zap.String("addr", cfg.RedisAddr), zap.Int("db", cfg.RedisDB))
	return nil
}

// Close releases connections in reverse order of opening.
func (b *Backends) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
	b.closers = nil
}
