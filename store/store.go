package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrUnavailable indicates the cache backend could not serve the request.
	ErrUnavailable = errors.New("cache store unavailable")
	// ErrNotInteger indicates Increment hit a value that is not a decimal integer.
	ErrNotInteger = errors.New("cache value is not an integer")
)

// Store is the minimal key/value contract with per-key TTL.
//
// A ttl <= 0 means the entry does not expire.
type Store interface {
	// Get returns the value for key. found is false when the key is absent or expired.
	Get(ctx context.Context, key string) (value string, found bool, err error)
	// SetIfAbsent stores value only if key does not exist. It reports whether it wrote.
	SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	// Increment atomically adds one to the integer at key and returns the new value.
	// The TTL of an existing key is left untouched.
	Increment(ctx context.Context, key string) (int64, error)
	// Set unconditionally overwrites key and (re)sets its TTL.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Delete removes keys. Missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error
}

// KeyScanner is implemented by stores able to enumerate keys matching a glob pattern.
// Ordering of the returned keys is unspecified.
type KeyScanner interface {
	ScanKeys(ctx context.Context, pattern string) ([]string, error)
}

// InitIncrementer is implemented by stores that can initialize a counter with a TTL and
// increment it as one atomic step. A pre-existing key keeps its TTL.
type InitIncrementer interface {
	InitIncrement(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// Pinger is implemented by stores with a liveness probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// SupportsScan reports whether s can enumerate keys.
func SupportsScan(s Store) bool {
	_, ok := s.(KeyScanner)
	return ok
}

type unscannable struct {
	Store
}

// WithoutScan returns a view of s that does not implement [KeyScanner]. [Pinger] is kept
// when s provides it; [InitIncrementer] is always provided, delegating to s when possible.
// Use it where enumerating keys on the backend is forbidden.
func WithoutScan(s Store) Store {
	if s == nil {
		return nil
	}
	if p, ok := s.(Pinger); ok {
		return unscannablePinger{unscannable: unscannable{Store: s}, pinger: p}
	}
	return unscannable{Store: s}
}

func (u unscannable) InitIncrement(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	if ii, ok := u.Store.(InitIncrementer); ok {
		return ii.InitIncrement(ctx, key, ttl)
	}
	if _, err := u.Store.SetIfAbsent(ctx, key, "0", ttl); err != nil {
		return 0, err
	}
	return u.Store.Increment(ctx, key)
}

type unscannablePinger struct {
	unscannable
	pinger Pinger
}

func (u unscannablePinger) Ping(ctx context.Context) error {
	return u.pinger.Ping(ctx)
}
