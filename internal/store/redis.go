package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"
	"shopping-assistant-api/internal/models"
)

const (
	redisProfilePrefix = "profile:"
	redisProfileIndex  = "profiles"
)

// RedisStore keeps each profile under its own key and tracks user ids in a set.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(ctx context.Context, addr, password string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisStoreFromClient(client), nil
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (r *RedisStore) Get(ctx context.Context, userID string) (*models.BuyerProfile, error) {
	raw, err := r.client.Get(ctx, redisProfilePrefix+userID).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, persistenceError("get profile", err)
	}
	return decodeProfile(raw)
}

func (r *RedisStore) Put(ctx context.Context, profile *models.BuyerProfile) error {
	raw, err := json.Marshal(normalize(profile))
	if err != nil {
		return persistenceError("encode", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, redisProfilePrefix+profile.UserID, raw, 0)
		pipe.SAdd(ctx, redisProfileIndex, profile.UserID)
		return nil
	})
	if err != nil {
		return persistenceError("put profile", err)
	}
	return nil
}

func (r *RedisStore) List(ctx context.Context) ([]*models.BuyerProfile, error) {
	ids, err := r.client.SMembers(ctx, redisProfileIndex).Result()
	if err != nil {
		return nil, persistenceError("list profiles", err)
	}
	sort.Strings(ids)

	profiles := make([]*models.BuyerProfile, 0, len(ids))
	for _, id := range ids {
		p, err := r.Get(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
