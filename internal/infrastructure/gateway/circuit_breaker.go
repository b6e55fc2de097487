package gateway

import (
	"sort"
	"sync"
	"time"

	"github.com/erp/marketplace-gateway/internal/domain/integration"
)

// BreakerState is the state of a circuit breaker
type BreakerState string

const (
	BreakerClosed   BreakerState = "CLOSED"
	BreakerOpen     BreakerState = "OPEN"
	BreakerHalfOpen BreakerState = "HALF_OPEN"
)

// BreakerSettings configure one breaker
type BreakerSettings struct {
	Threshold int
	Cooldown  time.Duration
}

// DefaultBreakerSettings apply to marketplaces without explicit configuration
var DefaultBreakerSettings = BreakerSettings{Threshold: 5, Cooldown: 60 * time.Second}

// CircuitBreaker stops calls to a failing endpoint for a cooldown period and
// then lets exactly one trial call through.
type CircuitBreaker struct {
	mu            sync.Mutex
	settings      BreakerSettings
	state         BreakerState
	failures      int
	openedAt      time.Time
	trialInFlight bool
	now           func() time.Time
}

// NewCircuitBreaker creates a closed breaker
func NewCircuitBreaker(settings BreakerSettings, now func() time.Time) *CircuitBreaker {
	if settings.Threshold <= 0 {
		settings.Threshold = DefaultBreakerSettings.Threshold
	}
	if settings.Cooldown <= 0 {
		settings.Cooldown = DefaultBreakerSettings.Cooldown
	}
	if now == nil {
		now = time.Now
	}
	return &CircuitBreaker{settings: settings, state: BreakerClosed, now: now}
}

// Allow returns nil if a call may proceed and ErrCircuitOpen otherwise.
// An allowed half-open trial must be followed by RecordSuccess, RecordFailure or Release.
func (b *CircuitBreaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerOpen:
		if b.now().Sub(b.openedAt) < b.settings.Cooldown {
			return integration.ErrCircuitOpen
		}
		b.state = BreakerHalfOpen
		b.trialInFlight = true
		return nil
	case BreakerHalfOpen:
		if b.trialInFlight {
			return integration.ErrCircuitOpen
		}
		b.trialInFlight = true
		return nil
	default:
		return nil
	}
}

// RecordSuccess closes the breaker and resets the failure count
func (b *CircuitBreaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures = 0
	b.state = BreakerClosed
	b.trialInFlight = false
}

// RecordFailure counts a failure and opens the breaker when the threshold is
// reached or a half-open trial fails
func (b *CircuitBreaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	switch b.state {
	case BreakerHalfOpen:
		b.open()
	case BreakerClosed:
		if b.failures >= b.settings.Threshold {
			b.open()
		}
	}
}

// Release gives back a half-open trial slot that was not used for a call
func (b *CircuitBreaker) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.trialInFlight = false
}

func (b *CircuitBreaker) open() {
	b.state = BreakerOpen
	b.openedAt = b.now()
	b.trialInFlight = false
}

// State returns the current state
func (b *CircuitBreaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// CircuitBreakerState is a read-only view of one breaker
type CircuitBreakerState struct {
	Marketplace integration.MarketplaceCode `json:"marketplace"`
	Endpoint    string                      `json:"endpoint"`
	State       BreakerState                `json:"state"`
	Failures    int                         `json:"failures"`
	Threshold   int                         `json:"threshold"`
	OpenedAt    *time.Time                  `json:"opened_at,omitempty"`
	RetryAt     *time.Time                  `json:"retry_at,omitempty"`
}

func (b *CircuitBreaker) snapshot(marketplace integration.MarketplaceCode, endpoint string) CircuitBreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := CircuitBreakerState{
		Marketplace: marketplace,
		Endpoint:    endpoint,
		State:       b.state,
		Failures:    b.failures,
		Threshold:   b.settings.Threshold,
	}
	if b.state != BreakerClosed {
		opened := b.openedAt
		retry := opened.Add(b.settings.Cooldown)
		s.OpenedAt = &opened
		s.RetryAt = &retry
	}
	return s
}

type breakerKey struct {
	marketplace integration.MarketplaceCode
	endpoint    string
}

// BreakerRegistry holds one breaker per (marketplace, endpoint), created on first use
type BreakerRegistry struct {
	mu       sync.Mutex
	breakers map[breakerKey]*CircuitBreaker
	settings map[integration.MarketplaceCode]BreakerSettings
	now      func() time.Time
}

// NewBreakerRegistry creates a registry with per-marketplace settings
func NewBreakerRegistry(settings map[integration.MarketplaceCode]BreakerSettings, now func() time.Time) *BreakerRegistry {
	if now == nil {
		now = time.Now
	}
	return &BreakerRegistry{
		breakers: make(map[breakerKey]*CircuitBreaker),
		settings: settings,
		now:      now,
	}
}

// Get returns the breaker of an endpoint
func (r *BreakerRegistry) Get(marketplace integration.MarketplaceCode, endpoint string) *CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := breakerKey{marketplace: marketplace, endpoint: endpoint}
	if b, ok := r.breakers[key]; ok {
		return b
	}
	s, ok := r.settings[marketplace]
	if !ok {
		s = DefaultBreakerSettings
	}
	b := NewCircuitBreaker(s, r.now)
	r.breakers[key] = b
	return b
}

// Snapshot returns every breaker's state sorted by marketplace and endpoint
func (r *BreakerRegistry) Snapshot() []CircuitBreakerState {
	r.mu.Lock()
	keys := make([]breakerKey, 0, len(r.breakers))
	breakers := make([]*CircuitBreaker, 0, len(r.breakers))
	for k, b := range r.breakers {
		keys = append(keys, k)
		breakers = append(breakers, b)
	}
	r.mu.Unlock()

	out := make([]CircuitBreakerState, len(keys))
	for i := range keys {
		out[i] = breakers[i].snapshot(keys[i].marketplace, keys[i].endpoint)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Marketplace != out[j].Marketplace {
			return out[i].Marketplace < out[j].Marketplace
		}
		return out[i].Endpoint < out[j].Endpoint
	})
	return out
}
