package tracker

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/MrEthical07/bruteguard/store"
)

var (
	// ErrStoreUnavailable indicates the cache store failed a read or write.
	ErrStoreUnavailable = errors.New("attempt store unavailable")
	// ErrCorruptRecord indicates a stored counter could not be parsed.
	ErrCorruptRecord = errors.New("attempt record corrupt")
)

// Config holds the key namespace and entry lifetimes.
type Config struct {
	Prefix    string
	BanWindow time.Duration
	SoftTTL   time.Duration
}

// Tracker reads and mutates attempt state for identifiers.
type Tracker struct {
	store  store.Store
	config Config
}

// New creates a tracker over s.
func New(s store.Store, cfg Config) *Tracker {
	return &Tracker{store: s, config: cfg}
}

// FailedKey returns the failed-attempt counter key for id.
func (t *Tracker) FailedKey(id string) string {
	return t.failedNamespace() + id
}

// SoftKey returns the challenge flag key for id.
func (t *Tracker) SoftKey(id string) string {
	return t.softNamespace() + id
}

func (t *Tracker) failedNamespace() string {
	return t.config.Prefix + ":failed:ip:"
}

func (t *Tracker) softNamespace() string {
	return t.config.Prefix + ":soft:ip:"
}

// Attempts returns the current failed count for id. An absent key is zero.
func (t *Tracker) Attempts(ctx context.Context, id string) (int, error) {
	raw, found, err := t.store.Get(ctx, t.FailedKey(id))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if !found {
		return 0, nil
	}

	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	if n < 0 {
		return 0, nil
	}
	return int(n), nil
}

// SoftStatus reports whether id has passed a challenge since its last failure.
// An absent key is false.
func (t *Tracker) SoftStatus(ctx context.Context, id string) (bool, error) {
	raw, found, err := t.store.Get(ctx, t.SoftKey(id))
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if !found {
		return false, nil
	}

	// An unreadable flag only withholds a pass, so it is not treated as corruption.
	cleared, err := strconv.ParseBool(raw)
	if err != nil {
		return false, nil
	}
	return cleared, nil
}

// SetSoftStatus overwrites the challenge flag for id with the configured soft TTL.
func (t *Tracker) SetSoftStatus(ctx context.Context, id string, cleared bool) error {
	return t.SetSoftStatusTTL(ctx, id, cleared, t.config.SoftTTL)
}

// SetSoftStatusTTL overwrites the challenge flag for id and (re)sets its TTL.
func (t *Tracker) SetSoftStatusTTL(ctx context.Context, id string, cleared bool, ttl time.Duration) error {
	value := "0"
	if cleared {
		value = "1"
	}
	if err := t.store.Set(ctx, t.SoftKey(id), value, ttl); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// IncreaseAttempts records one failed attempt for id and returns the new count.
// The counter gets the ban window TTL only when it is created; it is then incremented
// atomically and any earlier challenge pass is revoked.
func (t *Tracker) IncreaseAttempts(ctx context.Context, id string) (int, error) {
	key := t.FailedKey(id)

	var (
		count int64
		err   error
	)
	if ii, ok := t.store.(store.InitIncrementer); ok {
		count, err = ii.InitIncrement(ctx, key, t.config.BanWindow)
	} else {
		if _, err = t.store.SetIfAbsent(ctx, key, "0", t.config.BanWindow); err == nil {
			count, err = t.store.Increment(ctx, key)
		}
	}
	if err != nil {
		if errors.Is(err, store.ErrNotInteger) {
			return 0, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
		}
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if err := t.SetSoftStatus(ctx, id, false); err != nil {
		return int(count), err
	}
	return int(count), nil
}

// Reset deletes both keys for id, e.g. after a successful login.
func (t *Tracker) Reset(ctx context.Context, id string) error {
	if err := t.store.Delete(ctx, t.FailedKey(id), t.SoftKey(id)); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}
