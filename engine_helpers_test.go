package bruteguard

import (
	"context"
	"time"

	"github.com/MrEthical07/bruteguard/internal/tracker"
	"github.com/MrEthical07/bruteguard/store"
)

// slowStore delays every read by delay or until ctx is done.
type slowStore struct {
	store.Store
	delay time.Duration
}

func (s slowStore) Get(ctx context.Context, key string) (string, bool, error) {
	select {
	case <-time.After(s.delay):
	case <-ctx.Done():
	}
	return s.Store.Get(ctx, key)
}

func newTrackerFor(e *Engine) *tracker.Tracker {
	return tracker.New(e.store, tracker.Config{
		Prefix:    e.config.Cache.KeyPrefix,
		BanWindow: e.config.Protection.BanWindow,
		SoftTTL:   e.config.Protection.SoftChallengeTTL,
	})
}
