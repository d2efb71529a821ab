package redisstore

import (
	"context"

	redis "github.com/redis/go-redis/v9"

	"kasirpos/internal/store"
)

const keyPrefix = "kasirpos:snapshot:"

type Store struct {
	client *redis.Client
}

func New(addr string, password string, db int) *Store {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &Store{client: client}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) Load(ctx context.Context, key string) ([]byte, error) {
	val, err := s.client.Get(ctx, keyPrefix+key).Bytes()
	if err == redis.Nil {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return val, nil
}

// Save writes without expiry; snapshots live until overwritten.
func (s *Store) Save(ctx context.Context, key string, payload []byte) error {
	return s.client.Set(ctx, keyPrefix+key, payload, 0).Err()
}
