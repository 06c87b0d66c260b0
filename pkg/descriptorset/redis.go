package descriptorset

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/quiverml/quiver/pkg/descriptor"
	"github.com/quiverml/quiver/pkg/plugin"
)

// RedisSet stores descriptors in Redis: one string key per vector plus a
// set key tracking member UUIDs.
type RedisSet struct {
	url       string
	keyPrefix string

	client *redis.Client
}

// NewRedisSetWithClient wraps an existing client. Used in tests.
func NewRedisSetWithClient(client *redis.Client, keyPrefix string) *RedisSet {
	if keyPrefix == "" {
		keyPrefix = "quiver:descriptors"
	}
	return &RedisSet{client: client, keyPrefix: keyPrefix}
}

func (s *RedisSet) DefaultConfig() plugin.Config {
	return plugin.Config{
		"url":        "redis://localhost:6379/0",
		"key_prefix": "quiver:descriptors",
	}
}

func (s *RedisSet) Configure(reg *plugin.Registry, cfg plugin.Config) error {
	s.url = cfg.StringOr("url", "redis://localhost:6379/0")
	s.keyPrefix = cfg.StringOr("key_prefix", "quiver:descriptors")

	opts, err := redis.ParseURL(s.url)
	if err != nil {
		return fmt.Errorf("invalid redis URL: %w", err)
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	s.client = client
	return nil
}

func (s *RedisSet) Config() plugin.Config {
	return plugin.Config{
		"url":        s.url,
		"key_prefix": s.keyPrefix,
	}
}

// Close releases the client.
func (s *RedisSet) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}

// Client exposes the underlying client for health checks.
func (s *RedisSet) Client() *redis.Client {
	return s.client
}

func (s *RedisSet) vectorKey(uuid string) string {
	return s.keyPrefix + ":vector:" + uuid
}

func (s *RedisSet) membersKey() string {
	return s.keyPrefix + ":uuids"
}

func (s *RedisSet) Add(ctx context.Context, elems ...descriptor.Element) error {
	pipe := s.client.TxPipeline()
	for _, elem := range elems {
		v, err := vectorOf(elem)
		if err != nil {
			return err
		}
		encoded, err := encodeVector(v)
		if err != nil {
			return err
		}
		pipe.Set(ctx, s.vectorKey(elem.UUID()), encoded, 0)
		pipe.SAdd(ctx, s.membersKey(), elem.UUID())
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("storing descriptors: %w", err)
	}
	return nil
}

func (s *RedisSet) Get(ctx context.Context, uuid string) (descriptor.Element, error) {
	encoded, err := s.client.Get(ctx, s.vectorKey(uuid)).Bytes()
	if err == redis.Nil {
		return nil, &NotFoundError{UUID: uuid}
	}
	if err != nil {
		return nil, fmt.Errorf("loading descriptor %q: %w", uuid, err)
	}

	v, err := decodeVector(encoded)
	if err != nil {
		return nil, err
	}
	return descriptor.NewMemoryElementWithVector(uuid, v), nil
}

func (s *RedisSet) GetMany(ctx context.Context, uuids []string) ([]descriptor.Element, error) {
	out := make([]descriptor.Element, 0, len(uuids))
	for _, uuid := range uuids {
		elem, err := s.Get(ctx, uuid)
		if err != nil {
			return nil, err
		}
		out = append(out, elem)
	}
	return out, nil
}

func (s *RedisSet) Has(ctx context.Context, uuid string) (bool, error) {
	return s.client.SIsMember(ctx, s.membersKey(), uuid).Result()
}

func (s *RedisSet) Remove(ctx context.Context, uuid string) error {
	removed, err := s.client.SRem(ctx, s.membersKey(), uuid).Result()
	if err != nil {
		return fmt.Errorf("removing descriptor %q: %w", uuid, err)
	}
	if removed == 0 {
		return &NotFoundError{UUID: uuid}
	}
	return s.client.Del(ctx, s.vectorKey(uuid)).Err()
}

func (s *RedisSet) Count(ctx context.Context) (int, error) {
	n, err := s.client.SCard(ctx, s.membersKey()).Result()
	return int(n), err
}

func (s *RedisSet) UUIDs(ctx context.Context) ([]string, error) {
	members, err := s.client.SMembers(ctx, s.membersKey()).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(members)
	return members, nil
}

func (s *RedisSet) Clear(ctx context.Context) error {
	members, err := s.client.SMembers(ctx, s.membersKey()).Result()
	if err != nil {
		return err
	}
	pipe := s.client.TxPipeline()
	for _, uuid := range members {
		pipe.Del(ctx, s.vectorKey(uuid))
	}
	pipe.Del(ctx, s.membersKey())
	_, err = pipe.Exec(ctx)
	return err
}
