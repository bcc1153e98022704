package credential

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/evanofslack/cf-ddns/internal/config"
	"github.com/evanofslack/cf-ddns/internal/metrics"
	"github.com/go-redis/redis/v8"
)

const backendRedis = "redis"

type RedisStore struct {
	client  *redis.Client
	prefix  string
	metrics *metrics.Metrics
}

// NewRedis does not dial; connection problems surface on the first lookup.
func NewRedis(cfg config.Redis, metrics *metrics.Metrics) (*RedisStore, error) {
	if cfg.Addr == "" {
		return nil, storageError(backendRedis, errors.New("redis addr required"))
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &RedisStore{client: client, prefix: cfg.Prefix, metrics: metrics}, nil
}

func (s *RedisStore) key(hostname string) string {
	return s.prefix + hostname
}

func (s *RedisStore) Lookup(ctx context.Context, hostname string) (string, bool, error) {
	password, err := s.client.Get(ctx, s.key(hostname)).Result()
	if errors.Is(err, redis.Nil) {
		s.metrics.IncCredentialRequest(backendRedis, true)
		return "", false, nil
	}
	s.metrics.IncCredentialRequest(backendRedis, err == nil)
	if err != nil {
		return "", false, storageError(backendRedis, fmt.Errorf("get %s: %w", hostname, err))
	}
	return password, true, nil
}

func (s *RedisStore) Set(ctx context.Context, hostname, password string) error {
	err := s.client.Set(ctx, s.key(hostname), password, 0).Err()
	s.metrics.IncCredentialRequest(backendRedis, err == nil)
	return storageError(backendRedis, err)
}

func (s *RedisStore) Delete(ctx context.Context, hostname string) error {
	err := s.client.Del(ctx, s.key(hostname)).Err()
	s.metrics.IncCredentialRequest(backendRedis, err == nil)
	return storageError(backendRedis, err)
}

func (s *RedisStore) List(ctx context.Context) ([]string, error) {
	var hosts []string
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		hosts = append(hosts, strings.TrimPrefix(iter.Val(), s.prefix))
	}
	err := iter.Err()
	s.metrics.IncCredentialRequest(backendRedis, err == nil)
	if err != nil {
		return nil, storageError(backendRedis, err)
	}
	sort.Strings(hosts)
	return hosts, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
