package middleware

import (
	"net/http"

	"github.com/MrEthical07/bruteguard"
)

// ProtectWithChallenge is [Protect] with [RequireChallenge]: every client must hold a
// challenge pass before the handler runs.
func ProtectWithChallenge(engine *bruteguard.Engine, opts ...Option) func(http.Handler) http.Handler {
	return Protect(engine, append(opts, RequireChallenge())...)
}
