package redisclient

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"time"

	"github.com/redis/go-redis/v9"
)

// ClientOptions is the connection part of the service config. Zero values
// fall back to the defaults below.
type ClientOptions struct {
	Addr     string
	Username string
	Password string
	DB       int
	TLS      bool
	PoolSize int
}

const (
	defaultAddr     = "127.0.0.1:6379"
	defaultPoolSize = 10
)

func (o ClientOptions) redisOptions() *redis.Options {
	opts := &redis.Options{
		Addr:         o.Addr,
		Username:     o.Username,
		Password:     o.Password,
		DB:           o.DB,
		PoolSize:     o.PoolSize,
		MinIdleConns: 1,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	}
	if opts.Addr == "" {
		opts.Addr = defaultAddr
	}
	if opts.PoolSize <= 0 {
		opts.PoolSize = defaultPoolSize
	}
	if o.TLS {
		host, _, err := net.SplitHostPort(opts.Addr)
		if err != nil {
			host = opts.Addr
		}
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12, ServerName: host}
	}
	return opts
}

// NewRedisClient connects and pings once, so a bad address fails at startup.
func NewRedisClient(ctx context.Context, o ClientOptions) (*redis.Client, error) {
	opts := o.redisOptions()
	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis at %s (db %d): %w", opts.Addr, opts.DB, err)
	}

	return rdb, nil
}
