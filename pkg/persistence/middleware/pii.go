package middleware

import (
	"context"
	"regexp"

	"github.com/aretw0/authtree/pkg/domain"
	"github.com/aretw0/authtree/pkg/ports"
)

// Mask is the replacement written over redacted values.
const Mask = "***"

// DefaultRedactPatterns covers the credentials the built-in nodes handle.
var DefaultRedactPatterns = []string{"(?i)password", "(?i)secret", "(?i)otp", "(?i)token"}

type redactMiddleware struct {
	next     ports.StateStore
	patterns []*regexp.Regexp
}

// NewRedactMiddleware creates a read-side middleware that masks the values of
// shared and private keys matching the patterns on Load. It is meant for
// inspection tooling: a redacted record cannot resume an evaluation.
// Writes pass through unchanged.
func NewRedactMiddleware(patternStrings []string) Middleware {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		patterns[i] = regexp.MustCompile(p)
	}
	return func(next ports.StateStore) ports.StateStore {
		return &redactMiddleware{next: next, patterns: patterns}
	}
}

func (m *redactMiddleware) Save(ctx context.Context, handle string, state *domain.TreeState) error {
	return m.next.Save(ctx, handle, state)
}

func (m *redactMiddleware) Load(ctx context.Context, handle string) (*domain.TreeState, error) {
	state, err := m.next.Load(ctx, handle)
	if err != nil {
		return nil, err
	}

	// Deep clone so a store handing out shared references is not modified.
	masked := state.Clone()
	maskMap(masked.Shared, m.patterns)
	for _, ns := range masked.Private {
		maskMap(ns, m.patterns)
	}
	return masked, nil
}

func (m *redactMiddleware) Delete(ctx context.Context, handle string) error {
	return m.next.Delete(ctx, handle)
}

func (m *redactMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

func maskMap(m map[string]any, patterns []*regexp.Regexp) {
	for k, v := range m {
		masked := false
		for _, p := range patterns {
			if p.MatchString(k) {
				m[k] = Mask
				masked = true
				break
			}
		}
		if masked {
			continue
		}

		// Recurse into nested documents (e.g. a parked inner tree's shared state)
		if subMap, ok := v.(map[string]any); ok {
			maskMap(subMap, patterns)
		}
	}
}
