// Package jobs owns the training pipeline state machines: models,
// datasets, versions and training jobs. It dispatches signed jobs to the
// training worker and applies the worker's signed callbacks.
package jobs

import (
	"errors"
	"log/slog"
	"time"

	"github.com/playandogamer150-commits/vectra-ai-sub000/internal/providers"
	"github.com/playandogamer150-commits/vectra-ai-sub000/internal/signing"
	"github.com/playandogamer150-commits/vectra-ai-sub000/internal/store"
)

const (
	DefaultMinImages     = 10
	DefaultSoftMaxImages = 30
)

// Config holds dataset thresholds and the callback address handed to the
// worker.
type Config struct {
	MinImages     int
	SoftMaxImages int
	// CallbackURL is the absolute URL of the training webhook.
	CallbackURL string
}

func (c *Config) applyDefaults() {
	if c.MinImages <= 0 {
		c.MinImages = DefaultMinImages
	}
	if c.SoftMaxImages <= 0 {
		c.SoftMaxImages = DefaultSoftMaxImages
	}
	if c.SoftMaxImages < c.MinImages {
		c.SoftMaxImages = c.MinImages
	}
}

// Manager handles model, dataset, version and job records.
// It does not train anything: the external worker does, and reports back
// through HandleCallback.
type Manager struct {
	store     *store.Store
	signer    *signing.Signer
	trainer   providers.Trainer
	presigner providers.Presigner
	replay    signing.ReplayGuard
	cfg       Config
	logger    *slog.Logger
	now       func() time.Time
	locks     *keyedMutex
}

// Option configures a Manager.
type Option func(*Manager)

// WithTrainer sets the worker client. Without one, jobs run in mock mode
// and stay pending.
func WithTrainer(t providers.Trainer) Option {
	return func(m *Manager) { m.trainer = t }
}

// WithPresigner sets the object store used by InitDataset.
func WithPresigner(p providers.Presigner) Option {
	return func(m *Manager) { m.presigner = p }
}

// WithReplayGuard sets the store of already-accepted callback signatures.
func WithReplayGuard(g signing.ReplayGuard) Option {
	return func(m *Manager) { m.replay = g }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithClock overrides the time source (tests).
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// NewManager creates a job manager. The signer verifies worker callbacks
// and is required.
func NewManager(st *store.Store, signer *signing.Signer, cfg Config, opts ...Option) (*Manager, error) {
	if st == nil {
		return nil, errors.New("jobs: store is required")
	}
	if signer == nil {
		return nil, errors.New("jobs: signer is required")
	}
	cfg.applyDefaults()

	m := &Manager{
		store:  st,
		signer: signer,
		cfg:    cfg,
		logger: slog.Default(),
		now:    time.Now,
		locks:  newKeyedMutex(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.replay == nil {
		m.replay = signing.NewMemoryReplayGuard()
	}
	return m, nil
}

// MockMode reports whether jobs are recorded without being dispatched.
func (m *Manager) MockMode() bool {
	return m.trainer == nil
}

// DispatchLimit reports the trainer's rate limiter, or nil when dispatch is
// unthrottled or in mock mode.
func (m *Manager) DispatchLimit() *providers.RateLimiterStatus {
	rl, ok := m.trainer.(providers.RateLimited)
	if !ok {
		return nil
	}
	st, ok := rl.RateLimit()
	if !ok {
		return nil
	}
	return &st
}

// Config returns the effective configuration.
func (m *Manager) Config() Config {
	return m.cfg
}

func (m *Manager) clock() time.Time {
	return m.now().UTC()
}
