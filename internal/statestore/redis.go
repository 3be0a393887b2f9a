package statestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/inglucasmoreno/examen-conducir-portal-client/internal/domain/model"
)

// keyPrefix — пространство ключей портала в Redis.
const keyPrefix = "portal-client:state:"

// RedisStore — хранилище в Redis, общее для нескольких реплик портала.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient создаёт клиент Redis.
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

// NewRedisStore создаёт хранилище поверх клиента; ttl — время жизни состояния.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

// Load читает состояние по ключу.
func (s *RedisStore) Load(ctx context.Context, key string) (*model.WorkflowState, error) {
	data, err := s.client.Get(ctx, keyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("чтение состояния из Redis: %w", err)
	}
	return decode(data)
}

// Save записывает состояние с TTL.
func (s *RedisStore) Save(ctx context.Context, key string, state *model.WorkflowState) error {
	data, err := encode(state)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, keyPrefix+key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("запись состояния в Redis: %w", err)
	}
	return nil
}

// Delete удаляет состояние.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("удаление состояния из Redis: %w", err)
	}
	return nil
}

// Ping проверяет соединение с Redis.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close закрывает клиент Redis.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
