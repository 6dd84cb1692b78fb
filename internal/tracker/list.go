package tracker

import (
	"context"
	"fmt"
	"strings"

	"github.com/MrEthical07/bruteguard/store"
)

// CanList reports whether the underlying store supports key enumeration.
func (t *Tracker) CanList() bool {
	return store.SupportsScan(t.store)
}

// ListKeys returns the identifiers of every key under namespace whose remainder matches
// suffixPattern (a Redis-style glob). Identifiers are recovered by stripping namespace.
// Without scan support the result is empty. Order is unspecified.
func (t *Tracker) ListKeys(ctx context.Context, namespace, suffixPattern string) ([]string, error) {
	scanner, ok := t.store.(store.KeyScanner)
	if !ok {
		return []string{}, nil
	}

	keys, err := scanner.ScanKeys(ctx, escapeGlob(namespace)+suffixPattern)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	out := make([]string, 0, len(keys))
	for _, k := range keys {
		id, found := strings.CutPrefix(k, namespace)
		if !found || id == "" {
			continue
		}
		out = append(out, id)
	}
	return out, nil
}

// ListFailed returns identifiers with a live failed-attempt counter.
func (t *Tracker) ListFailed(ctx context.Context) ([]string, error) {
	return t.ListKeys(ctx, t.failedNamespace(), "*")
}

// ListSoft returns identifiers with a live challenge flag.
func (t *Tracker) ListSoft(ctx context.Context) ([]string, error) {
	return t.ListKeys(ctx, t.softNamespace(), "*")
}

func escapeGlob(s string) string {
	if !strings.ContainsAny(s, `*?[]\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 4)
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
