package kucoin

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimiter keeps public and private endpoint budgets apart.
type RateLimiter struct {
	public  *rate.Limiter
	private *rate.Limiter
}

// NewRateLimiter allows publicPerSecond market-data calls and
// privatePerSecond signed calls, each with a burst of the same size.
func NewRateLimiter(publicPerSecond, privatePerSecond int) *RateLimiter {
	return &RateLimiter{
		public:  rate.NewLimiter(rate.Limit(publicPerSecond), publicPerSecond),
		private: rate.NewLimiter(rate.Limit(privatePerSecond), privatePerSecond),
	}
}

func (rl *RateLimiter) WaitForPublic(ctx context.Context) error {
	return rl.public.Wait(ctx)
}

func (rl *RateLimiter) WaitForPrivate(ctx context.Context) error {
	return rl.private.Wait(ctx)
}
