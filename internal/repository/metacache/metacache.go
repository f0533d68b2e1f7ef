package metacache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	KeyAppInfo   = "steamcmd" // STRING. steamcmd:{app_id} -> raw info response. Set with EX (TTL).
	KeySeparator = ":"

	defaultExpiration = time.Hour
)

type redisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

type metaCacheRepository struct {
	cl  redisClient
	ttl time.Duration
	log *slog.Logger
}

// NewMetaCacheRepository keeps raw metadata responses in redis for ttl.
// A non positive ttl falls back to one hour.
func NewMetaCacheRepository(cl redisClient, ttl time.Duration, log *slog.Logger) *metaCacheRepository {
	if ttl <= 0 {
		ttl = defaultExpiration
	}

	return &metaCacheRepository{
		cl:  cl,
		ttl: ttl,
		log: log.With(slog.String("item", "MetaCacheRepository")),
	}
}

func (r *metaCacheRepository) Get(ctx context.Context, appID string) ([]byte, bool, error) {
	data, err := r.cl.Get(ctx, getKey(KeyAppInfo, appID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}

		return nil, false, fmt.Errorf("cannot get app info: %w", err)
	}

	return data, true, nil
}

func (r *metaCacheRepository) Set(ctx context.Context, appID string, data []byte) error {
	if err := r.cl.Set(ctx, getKey(KeyAppInfo, appID), data, r.ttl).Err(); err != nil {
		r.log.Error("Cannot store app info", slog.String("app_id", appID), slog.Any("error", err))

		return fmt.Errorf("cannot set app info: %w", err)
	}

	return nil
}

func getKey(keys ...string) string {
	return strings.Join(keys, KeySeparator)
}
