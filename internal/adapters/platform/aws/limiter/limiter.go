package limiter

import (
	"context"
	"sync"

	"golang.org/x/time/rate"

	"github.com/rdsops/snapshot-reconciler/internal/core/ports"
)

const (
	defaultRateLimitRPS = 20
	minRateLimitRPS     = 1
	maxRateLimitRPS     = 100
)

var (
	apiLimiter  *rate.Limiter
	limiterOnce sync.Once
)

// Initialize configures the process-wide AWS API rate limiter. The polling
// loop is the main caller; the limiter keeps repeated describes from
// hammering the RDS API. First call wins.
func Initialize(rps int, logger ports.Logger) {
	limiterOnce.Do(func() {
		limitValue := defaultRateLimitRPS
		if rps >= minRateLimitRPS && rps <= maxRateLimitRPS {
			limitValue = rps
		} else if rps != 0 {
			logger.Warnf(context.Background(),
				"Invalid AWS API RPS configured (%d), using default %d RPS. Valid range: %d-%d.",
				rps, defaultRateLimitRPS, minRateLimitRPS, maxRateLimitRPS)
		}

		apiLimiter = rate.NewLimiter(rate.Limit(limitValue), limitValue)
		logger.Infof(context.Background(), "AWS API rate limiter initialized: %d RPS", limitValue)
	})
}

// Wait blocks until the limiter grants a token or ctx is done.
func Wait(ctx context.Context, logger ports.Logger) error {
	if apiLimiter == nil {
		Initialize(defaultRateLimitRPS, logger)
	}
	err := apiLimiter.Wait(ctx)
	if err != nil {
		if ctx.Err() == nil {
			logger.Warnf(ctx, "Error waiting for AWS API rate limiter: %v", err)
		}
		return err
	}
	return nil
}
