// Package cache keeps short-lived copies of user records in Redis so that
// authenticated lookups do not hit the database on every request.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// UserKeyPrefix namespaces cached users: user:<uuid>.
const UserKeyPrefix = "user:"

// NewRedisClient connects to Redis and verifies the connection.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// UserCache stores users as JSON. The password hash is never serialized.
type UserCache struct {
	client redis.Cmdable
	ttl    time.Duration
	log    logging.Logger
}

func NewUserCache(client redis.Cmdable, ttl time.Duration, log logging.Logger) *UserCache {
	return &UserCache{client: client, ttl: ttl, log: log}
}

func userKey(id uuid.UUID) string {
	return UserKeyPrefix + id.String()
}

// Get returns the cached user; ok is false on a miss.
func (c *UserCache) Get(ctx context.Context, id uuid.UUID) (*models.User, bool, error) {
	data, err := c.client.Get(ctx, userKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		c.log.Warn(ctx, "failed to get cached user", "user_id", id, "error", err)
		return nil, false, fmt.Errorf("failed to get cached user: %w", err)
	}

	var u models.User
	if err := json.Unmarshal(data, &u); err != nil {
		// drop unreadable entries so the next read repopulates them
		_ = c.client.Del(ctx, userKey(id)).Err()
		return nil, false, fmt.Errorf("failed to decode cached user: %w", err)
	}
	return &u, true, nil
}

func (c *UserCache) Set(ctx context.Context, u *models.User) error {
	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("failed to marshal user: %w", err)
	}
	if err := c.client.Set(ctx, userKey(u.ID), data, c.ttl).Err(); err != nil {
		c.log.Warn(ctx, "failed to cache user", "user_id", u.ID, "error", err)
		return fmt.Errorf("failed to cache user: %w", err)
	}
	return nil
}

func (c *UserCache) Delete(ctx context.Context, id uuid.UUID) error {
	if err := c.client.Del(ctx, userKey(id)).Err(); err != nil {
		c.log.Warn(ctx, "failed to evict cached user", "user_id", id, "error", err)
		return fmt.Errorf("failed to evict cached user: %w", err)
	}
	return nil
}
