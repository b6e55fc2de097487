package gateway

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/erp/marketplace-gateway/internal/domain/integration"
	"github.com/erp/marketplace-gateway/internal/infrastructure/config"
)

// RateLimitPolicy is the quota of one marketplace
type RateLimitPolicy struct {
	Limit  int
	Window time.Duration
	Mode   config.RateLimitMode
}

// DefaultRateLimitPolicy applies to marketplaces without explicit configuration
var DefaultRateLimitPolicy = RateLimitPolicy{Limit: 120, Window: time.Minute, Mode: config.RateLimitModeReject}

type window struct {
	count int
	start time.Time
}

// RateLimitBucket is a read-only view of one marketplace window
type RateLimitBucket struct {
	Marketplace integration.MarketplaceCode `json:"marketplace"`
	Limit       int                         `json:"limit"`
	Used        int                         `json:"used"`
	Mode        config.RateLimitMode        `json:"mode"`
	WindowStart time.Time                   `json:"window_start"`
	ResetsAt    time.Time                   `json:"resets_at"`
}

// RateLimiter enforces a fixed-window request quota per marketplace.
// It is safe for concurrent use.
type RateLimiter struct {
	mu       sync.Mutex
	policies map[integration.MarketplaceCode]RateLimitPolicy
	windows  map[integration.MarketplaceCode]*window
	now      func() time.Time
}

// NewRateLimiter creates a limiter with the given per-marketplace policies
func NewRateLimiter(policies map[integration.MarketplaceCode]RateLimitPolicy) *RateLimiter {
	normalized := make(map[integration.MarketplaceCode]RateLimitPolicy, len(policies))
	for code, p := range policies {
		if p.Limit <= 0 {
			p.Limit = DefaultRateLimitPolicy.Limit
		}
		if p.Window <= 0 {
			p.Window = DefaultRateLimitPolicy.Window
		}
		if p.Mode == "" {
			p.Mode = config.RateLimitModeReject
		}
		normalized[code] = p
	}
	return &RateLimiter{
		policies: normalized,
		windows:  make(map[integration.MarketplaceCode]*window),
		now:      time.Now,
	}
}

func (l *RateLimiter) policy(marketplace integration.MarketplaceCode) RateLimitPolicy {
	if p, ok := l.policies[marketplace]; ok {
		return p
	}
	return DefaultRateLimitPolicy
}

// tryAcquire takes a slot if one is free. Otherwise it returns the time until
// the current window resets. Caller must hold l.mu.
func (l *RateLimiter) tryAcquire(marketplace integration.MarketplaceCode, p RateLimitPolicy) (bool, time.Duration) {
	now := l.now()
	w, ok := l.windows[marketplace]
	if !ok {
		w = &window{start: now}
		l.windows[marketplace] = w
	}
	if now.Sub(w.start) >= p.Window {
		w.start = now
		w.count = 0
	}
	if w.count >= p.Limit {
		return false, w.start.Add(p.Window).Sub(now)
	}
	w.count++
	return true, 0
}

// Acquire takes one request slot for marketplace. When the window is full,
// reject mode returns ErrRateLimited and block mode waits for the reset.
func (l *RateLimiter) Acquire(ctx context.Context, marketplace integration.MarketplaceCode) error {
	p := l.policy(marketplace)
	for {
		l.mu.Lock()
		ok, wait := l.tryAcquire(marketplace, p)
		l.mu.Unlock()

		if ok {
			return nil
		}
		if p.Mode != config.RateLimitModeBlock {
			return fmt.Errorf("%w: %d requests per %s", integration.ErrRateLimited, p.Limit, p.Window)
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%w: %v", integration.ErrRateLimited, ctx.Err())
		case <-timer.C:
		}
	}
}

// Snapshot returns the state of every marketplace window, sorted by code
func (l *RateLimiter) Snapshot() []RateLimitBucket {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	codes := make(map[integration.MarketplaceCode]struct{}, len(l.policies)+len(l.windows))
	for code := range l.policies {
		codes[code] = struct{}{}
	}
	for code := range l.windows {
		codes[code] = struct{}{}
	}

	buckets := make([]RateLimitBucket, 0, len(codes))
	for code := range codes {
		p := l.policy(code)
		b := RateLimitBucket{Marketplace: code, Limit: p.Limit, Mode: p.Mode, WindowStart: now, ResetsAt: now.Add(p.Window)}
		if w, ok := l.windows[code]; ok && now.Sub(w.start) < p.Window {
			b.Used = w.count
			b.WindowStart = w.start
			b.ResetsAt = w.start.Add(p.Window)
		}
		buckets = append(buckets, b)
	}
	sort.Slice(buckets, func(i, j int) bool { return buckets[i].Marketplace < buckets[j].Marketplace })
	return buckets
}
