package exchange

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimiter groups per-category rate limiters for the exchange's REST API.
// A single symbol's order flow needs only two categories: placing orders
// and cancelling them.
type RateLimiter struct {
	Order  *rate.Limiter
	Cancel *rate.Limiter
}

// NewRateLimiter creates rate limiters sized for one actively-quoted symbol.
// Limits are expressed as a burst capacity plus a sustained per-second rate,
// matching rate.Limiter's token-bucket semantics.
func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		Order:  rate.NewLimiter(rate.Limit(10), 20),
		Cancel: rate.NewLimiter(rate.Limit(10), 20),
	}
}

// waitOrder blocks on the order limiter until ctx is cancelled or the
// request may proceed; waitCancel does the same on the cancel limiter.
func (rl *RateLimiter) waitOrder(ctx context.Context) error {
	return rl.Order.Wait(ctx)
}

func (rl *RateLimiter) waitCancel(ctx context.Context) error {
	return rl.Cancel.Wait(ctx)
}
