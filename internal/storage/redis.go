package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"diet-coach/internal/models"
)

const defaultRedisPrefix = "diet-coach:session:"

// RedisStorage stores each session as a JSON value under <prefix><user id>.
type RedisStorage struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	// Prefix defaults to "diet-coach:session:".
	Prefix string
	// TTL expires idle sessions; zero keeps them forever.
	TTL time.Duration
}

func NewRedisStorage(cfg RedisConfig) (*RedisStorage, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis address is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return NewRedisStorageFromClient(client, cfg.Prefix, cfg.TTL), nil
}

// NewRedisStorageFromClient wraps an existing client.
func NewRedisStorageFromClient(client *redis.Client, prefix string, ttl time.Duration) *RedisStorage {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisStorage{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (r *RedisStorage) key(userID string) string {
	return r.prefix + userID
}

func (r *RedisStorage) Load(ctx context.Context, userID string) (*models.Session, error) {
	if userID == "" {
		return nil, ErrInvalidUserID
	}

	data, err := r.client.Get(ctx, r.key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.NewSession(), nil
	}
	if err != nil {
		return nil, unavailable("redis get", err)
	}
	return decodeSession(userID, data), nil
}

func (r *RedisStorage) Save(ctx context.Context, userID string, sess *models.Session) error {
	if userID == "" {
		return ErrInvalidUserID
	}

	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := r.client.Set(ctx, r.key(userID), data, r.ttl).Err(); err != nil {
		return unavailable("redis set", err)
	}
	return nil
}

func (r *RedisStorage) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return unavailable("redis ping", err)
	}
	return nil
}

func (r *RedisStorage) Close() error {
	return r.client.Close()
}
