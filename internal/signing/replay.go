package signing

import (
	"context"
	"sync"
	"time"
)

// ReplayGuard remembers accepted signatures for the staleness window so a
// redelivered request can be acknowledged without being processed twice.
type ReplayGuard interface {
	// Observe records signature. It reports false when the signature was
	// already observed within ttl.
	Observe(ctx context.Context, signature string, ttl time.Duration) (bool, error)

	// Forget drops signature so a retried delivery is processed again.
	Forget(ctx context.Context, signature string) error
}

// MemoryReplayGuard is a process-local ReplayGuard.
type MemoryReplayGuard struct {
	mu   sync.Mutex
	seen map[string]time.Time
	now  func() time.Time
}

// NewMemoryReplayGuard creates an empty guard.
func NewMemoryReplayGuard() *MemoryReplayGuard {
	return &MemoryReplayGuard{
		seen: make(map[string]time.Time),
		now:  time.Now,
	}
}

// Observe implements ReplayGuard.
func (g *MemoryReplayGuard) Observe(_ context.Context, signature string, ttl time.Duration) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	for sig, expires := range g.seen {
		if now.After(expires) {
			delete(g.seen, sig)
		}
	}

	if _, ok := g.seen[signature]; ok {
		return false, nil
	}
	g.seen[signature] = now.Add(ttl)
	return true, nil
}

// Forget implements ReplayGuard.
func (g *MemoryReplayGuard) Forget(_ context.Context, signature string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.seen, signature)
	return nil
}

// Len returns the number of live entries.
func (g *MemoryReplayGuard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.seen)
}
