package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"
)

// RedisStore keeps snapshots as JSON strings in Redis. A sorted set under
// Prefix+"index" tracks the keys, scored by expiry.
type RedisStore struct {
	client *backend.Client
	o      Options
}

// farFuture scores index entries that never expire.
const farFuture = 4102444800 // 2100-01-01

// NewRedis connects a store to addr.
func NewRedis(addr, password string, db int, opts ...Option) *RedisStore {
	return NewRedisFromClient(backend.NewClient(&backend.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	}), opts...)
}

// NewRedisFromClient wraps an existing client.
func NewRedisFromClient(client *backend.Client, opts ...Option) *RedisStore {
	return &RedisStore{client: client, o: buildOptions(opts)}
}

func (r *RedisStore) key(k string) string { return r.o.Prefix + k }

func (r *RedisStore) indexKey() string { return r.o.Prefix + "index" }

func (r *RedisStore) Save(ctx context.Context, key string, s Snapshot) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("checkpoint: marshal: %w", err)
	}
	score := float64(time.Now().Add(r.o.TTL).Unix())
	if r.o.TTL == 0 {
		score = farFuture
	}
	pipe := r.client.Pipeline()
	pipe.Set(ctx, r.key(key), data, r.o.TTL)
	pipe.ZAdd(ctx, r.indexKey(), backend.Z{Score: score, Member: key})
	if _, err = pipe.Exec(ctx); err != nil {
		return fmt.Errorf("checkpoint: redis save %q: %w", key, err)
	}

	return nil
}

func (r *RedisStore) Load(ctx context.Context, key string) (Snapshot, error) {
	val, err := r.client.Get(ctx, r.key(key)).Result()
	if errors.Is(err, backend.Nil) {
		return Snapshot{}, fmt.Errorf("%w: %q", ErrNotFound, key)
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("checkpoint: redis load %q: %w", key, err)
	}
	var s Snapshot
	if err = json.Unmarshal([]byte(val), &s); err != nil {
		return Snapshot{}, fmt.Errorf("checkpoint: unmarshal %q: %w", key, err)
	}

	return s, nil
}

func (r *RedisStore) Delete(ctx context.Context, key string) error {
	pipe := r.client.Pipeline()
	pipe.Del(ctx, r.key(key))
	pipe.ZRem(ctx, r.indexKey(), key)
	_, err := pipe.Exec(ctx)

	return err
}

// List prunes expired index entries and returns the live keys.
func (r *RedisStore) List(ctx context.Context) ([]string, error) {
	now := float64(time.Now().Unix())
	if err := r.client.ZRemRangeByScore(ctx, r.indexKey(), "-inf", fmt.Sprintf("%f", now)).Err(); err != nil {
		return nil, fmt.Errorf("checkpoint: prune index: %w", err)
	}
	keys, err := r.client.ZRange(ctx, r.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("checkpoint: list: %w", err)
	}

	return keys, nil
}

// Close closes the client.
func (r *RedisStore) Close() error { return r.client.Close() }
