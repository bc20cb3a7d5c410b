package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"game-hunter/pkg/models"
)

// Redis stores results with native key expiry, so entries vanish on their own
// once the TTL passes.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

func NewRedis(ctx context.Context, rawURL string, ttl time.Duration) (*Redis, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, err
	}
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second
	opts.DialTimeout = 5 * time.Second

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}

	return &Redis{client: client, ttl: ttl, prefix: "game-hunter:search:"}, nil
}

func (c *Redis) key(source, key string) string {
	return c.prefix + source + ":" + key
}

func (c *Redis) Get(ctx context.Context, source, key string) ([]models.PriceRecord, bool) {
	data, err := c.client.Get(ctx, c.key(source, key)).Bytes()
	if err != nil {
		if err != redis.Nil {
			logrus.WithError(err).WithField("component", "cache").Warnf("Redis get %s/%s failed", source, key)
		}
		return nil, false
	}

	var records []models.PriceRecord
	if err := json.Unmarshal(data, &records); err != nil {
		logrus.WithError(err).WithField("component", "cache").Warnf("Failed to unmarshal %s/%s", source, key)
		return nil, false
	}
	return records, true
}

func (c *Redis) Set(ctx context.Context, source, key string, records []models.PriceRecord) {
	data, err := json.Marshal(records)
	if err != nil {
		logrus.WithError(err).WithField("component", "cache").Warnf("Failed to marshal %s/%s", source, key)
		return
	}
	if err := c.client.Set(ctx, c.key(source, key), data, c.ttl).Err(); err != nil {
		logrus.WithError(err).WithField("component", "cache").Warnf("Redis set %s/%s failed", source, key)
	}
}

func (c *Redis) Close() error {
	return c.client.Close()
}
