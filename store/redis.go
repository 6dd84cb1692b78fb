package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// scanBatch is the COUNT hint passed to SCAN.
const scanBatch = 1000

// initIncrScript creates the counter with a millisecond TTL when absent and increments it,
// in one server-side step.
var initIncrScript = redis.NewScript(`
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[2], 'NX')
return redis.call('INCR', KEYS[1])
`)

// Redis is a [Store] backed by a go-redis client. Standalone, sentinel and cluster
// clients are all supported through [redis.UniversalClient].
type Redis struct {
	client redis.UniversalClient
}

var (
	_ Store           = (*Redis)(nil)
	_ KeyScanner      = (*Redis)(nil)
	_ InitIncrementer = (*Redis)(nil)
	_ Pinger          = (*Redis)(nil)
)

// NewRedis wraps client. The caller keeps ownership of the client and closes it.
func NewRedis(client redis.UniversalClient) *Redis {
	return &Redis{client: client}
}

// Get implements [Store].
func (s *Redis) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return val, true, nil
}

// SetIfAbsent implements [Store] with SET NX.
func (s *Redis) SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, key, value, normalizeTTL(ttl)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return ok, nil
}

// Increment implements [Store] with INCR.
func (s *Redis) Increment(ctx context.Context, key string) (int64, error) {
	n, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, incrError(err)
	}
	return n, nil
}

// Set implements [Store].
func (s *Redis) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, value, normalizeTTL(ttl)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Delete implements [Store].
func (s *Redis) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	// Cluster clients reject multi-key DEL across slots, so delete one key per command.
	if _, ok := s.client.(*redis.ClusterClient); ok {
		for _, key := range keys {
			if err := s.client.Del(ctx, key).Err(); err != nil {
				return fmt.Errorf("%w: %v", ErrUnavailable, err)
			}
		}
		return nil
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// InitIncrement implements [InitIncrementer] with a Lua script.
func (s *Redis) InitIncrement(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	ms := ttl.Milliseconds()
	if ms <= 0 {
		// PX requires a positive value; fall back to a non-expiring counter.
		return s.Increment(ctx, key)
	}
	n, err := initIncrScript.Run(ctx, s.client, []string{key}, "0", strconv.FormatInt(ms, 10)).Int64()
	if err != nil {
		return 0, incrError(err)
	}
	return n, nil
}

// ScanKeys implements [KeyScanner] with cursor-based SCAN. On cluster clients every
// master is scanned. This is an O(keyspace) admin operation.
func (s *Redis) ScanKeys(ctx context.Context, pattern string) ([]string, error) {
	if cluster, ok := s.client.(*redis.ClusterClient); ok {
		var (
			mu  sync.Mutex
			out []string
		)
		err := cluster.ForEachMaster(ctx, func(ctx context.Context, node *redis.Client) error {
			keys, err := scanAll(ctx, node, pattern)
			if err != nil {
				return err
			}
			mu.Lock()
			out = append(out, keys...)
			mu.Unlock()
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return out, nil
	}

	keys, err := scanAll(ctx, s.client, pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return keys, nil
}

// Ping implements [Pinger].
func (s *Redis) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func scanAll(ctx context.Context, c redis.Cmdable, pattern string) ([]string, error) {
	var (
		cursor uint64
		out    []string
	)
	seen := make(map[string]struct{})

	for {
		keys, next, err := c.Scan(ctx, cursor, pattern, scanBatch).Result()
		if err != nil {
			return nil, err
		}
		// SCAN may return a key more than once across iterations.
		for _, k := range keys {
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, k)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}

	return out, nil
}

// incrError maps the server's non-integer reply (from INCR or from INCR inside the
// script) to ErrNotInteger; anything else is a backend failure.
func incrError(err error) error {
	var rerr redis.Error
	if errors.As(err, &rerr) && strings.Contains(rerr.Error(), "not an integer") {
		return fmt.Errorf("%w: %v", ErrNotInteger, err)
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

func normalizeTTL(ttl time.Duration) time.Duration {
	if ttl < 0 {
		return 0
	}
	return ttl
}
