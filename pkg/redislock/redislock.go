package redislock

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Config struct {
	Addr     string `yaml:"addr" envconfig:"REDIS_ADDR" default:"localhost:6379"`
	Password string `yaml:"password" envconfig:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" envconfig:"REDIS_DB" default:"0"`
}

// Locker hands out best-effort leases over redis SETNX. It keeps overlapping
// batch runs from doing the same work twice; correctness under a lost lease
// still rests on the database constraints.
type Locker struct {
	client *redis.Client
	log    *zap.Logger
}

func New(ctx context.Context, cfg Config, log *zap.Logger) (*Locker, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return &Locker{client: client, log: log.Named("redislock")}, nil
}

func (l *Locker) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return l.client.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), ttl).Result()
}

func (l *Locker) Unlock(ctx context.Context, key string) {
	if err := l.client.Del(ctx, key).Err(); err != nil {
		l.log.Warn("unlock", zap.String("key", key), zap.Error(err))
	}
}

func (l *Locker) Close() error {
	return l.client.Close()
}
