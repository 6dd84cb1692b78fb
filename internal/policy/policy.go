package policy

import (
	"strconv"
)

// Kind is the closed set of protection decisions.
type Kind uint8

const (
	// Allow lets the authentication attempt proceed.
	Allow Kind = iota
	// ChallengeRequired interrupts the attempt until the client passes a challenge.
	ChallengeRequired
	// Banned rejects the attempt for the rest of the ban window.
	Banned
)

func (k Kind) String() string {
	switch k {
	case Allow:
		return "allow"
	case ChallengeRequired:
		return "challenge_required"
	case Banned:
		return "banned"
	default:
		return "unknown"
	}
}

// Config holds the thresholds the decision is made against.
type Config struct {
	SoftLimit        int
	BanLimit         int
	BanWindowSeconds int64
}

// Input is the attempt state for one identifier at decision time.
type Input struct {
	Attempts               int
	SoftCleared            bool
	RequireChallengeAlways bool
}

// Decision is the outcome of [Decide]. BanDuration is set only for [Banned].
type Decision struct {
	Kind        Kind
	BanDuration string
}

// Decide evaluates in order and returns on the first match:
//  1. forced challenge without a prior pass
//  2. attempts at or above the ban limit
//  3. attempts at or above the soft limit without a prior pass
//  4. allow
func Decide(in Input, cfg Config) Decision {
	if in.RequireChallengeAlways && !in.SoftCleared {
		return Decision{Kind: ChallengeRequired}
	}
	if in.Attempts >= cfg.BanLimit {
		return Decision{Kind: Banned, BanDuration: RenderDuration(cfg.BanWindowSeconds)}
	}
	if in.Attempts >= cfg.SoftLimit && !in.SoftCleared {
		return Decision{Kind: ChallengeRequired}
	}
	return Decision{Kind: Allow}
}

// RenderDuration renders seconds as "N hours" when it is a whole number of hours and as
// "N seconds" otherwise. The wording is user-facing and must stay stable.
func RenderDuration(seconds int64) string {
	if seconds%3600 == 0 {
		return strconv.FormatInt(seconds/3600, 10) + " hours"
	}
	return strconv.FormatInt(seconds, 10) + " seconds"
}

// BanMessage is the user-facing rejection text for a ban lasting duration.
func BanMessage(duration string) string {
	return "Your ip has been banned after several login attempts for " + duration + "."
}

// ChallengeMessage is the user-facing text asking for challenge completion.
const ChallengeMessage = "Captcha is mandatory"
