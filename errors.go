package bruteguard

import (
	"errors"

	"github.com/MrEthical07/bruteguard/internal/policy"
	"github.com/MrEthical07/bruteguard/internal/tracker"
)

var (
	// ErrEngineNotReady is returned by every Engine method called on a nil Engine.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrInvalidIdentifier is returned when the client identifier is empty.
	ErrInvalidIdentifier = errors.New("invalid identifier")
	// ErrStoreUnavailable wraps any cache store failure surfaced by the Engine.
	ErrStoreUnavailable = tracker.ErrStoreUnavailable
	// ErrCorruptRecord is returned when a stored attempt counter is not an integer.
	ErrCorruptRecord = tracker.ErrCorruptRecord
	// ErrChallengeRequired is the error form of [OutcomeChallengeRequired].
	ErrChallengeRequired = errors.New(policy.ChallengeMessage)
	// ErrBanned matches every [*BanError] under errors.Is.
	ErrBanned = errors.New("identifier banned")
)

// BanError is the error form of [OutcomeBanned]. Its message is the user-facing ban text.
type BanError struct {
	Duration string
}

func (e *BanError) Error() string {
	return policy.BanMessage(e.Duration)
}

// Is reports whether target is [ErrBanned].
func (e *BanError) Is(target error) bool {
	return target == ErrBanned
}
