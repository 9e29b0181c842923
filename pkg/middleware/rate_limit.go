package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	ginmiddleware "github.com/ulule/limiter/v3/drivers/middleware/gin"
	memorystore "github.com/ulule/limiter/v3/drivers/store/memory"
	redisstore "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/Ishaqullah/JSBWorld-Travel-sub000/pkg/response"
)

// ParseRate parses "<limit>-<n><s|m|h>", e.g. "10-1m" or "5-30s"
func ParseRate(rateStr string) (limiter.Rate, error) {
	parts := strings.Split(rateStr, "-")
	if len(parts) != 2 {
		return limiter.Rate{}, fmt.Errorf("invalid rate format: %s", rateStr)
	}

	limit, err := strconv.Atoi(parts[0])
	if err != nil || limit <= 0 {
		return limiter.Rate{}, fmt.Errorf("invalid limit: %s", parts[0])
	}

	durationStr := parts[1]
	if len(durationStr) < 2 {
		return limiter.Rate{}, fmt.Errorf("invalid period: %s", durationStr)
	}

	var unit time.Duration
	switch durationStr[len(durationStr)-1] {
	case 's':
		unit = time.Second
	case 'm':
		unit = time.Minute
	case 'h':
		unit = time.Hour
	default:
		return limiter.Rate{}, fmt.Errorf("unsupported period: %s", durationStr)
	}

	n, err := strconv.Atoi(durationStr[:len(durationStr)-1])
	if err != nil || n <= 0 {
		return limiter.Rate{}, fmt.Errorf("invalid period: %s", durationStr)
	}

	return limiter.Rate{Period: time.Duration(n) * unit, Limit: int64(limit)}, nil
}

// RateLimitConfig configures a route-scoped limiter
type RateLimitConfig struct {
	Rate    string
	RouteID string
	// Redis shares counters across replicas; nil keeps them in memory
	Redis goredis.UniversalClient
}

// RateLimit limits requests per session, falling back to client IP
func RateLimit(cfg RateLimitConfig) (gin.HandlerFunc, error) {
	rate, err := ParseRate(cfg.Rate)
	if err != nil {
		return nil, err
	}

	prefix := fmt.Sprintf("rate_limiter:%s", cfg.RouteID)

	var store limiter.Store
	if cfg.Redis != nil {
		store, err = redisstore.NewStoreWithOptions(cfg.Redis, limiter.StoreOptions{
			Prefix:          prefix,
			MaxRetry:        3,
			CleanUpInterval: rate.Period,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create redis store for route %s: %w", cfg.RouteID, err)
		}
	} else {
		store = memorystore.NewStoreWithOptions(limiter.StoreOptions{
			Prefix:          prefix,
			CleanUpInterval: rate.Period,
		})
	}

	return ginmiddleware.NewMiddleware(limiter.New(store, rate),
		ginmiddleware.WithKeyGetter(func(c *gin.Context) string {
			if id := GetSessionID(c); id != "" {
				return id
			}
			return c.ClientIP()
		}),
		ginmiddleware.WithLimitReachedHandler(func(c *gin.Context) {
			response.Abort(c, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests, please try again later")
		}),
		ginmiddleware.WithErrorHandler(func(c *gin.Context, err error) {
			// limiter store failure: fail open
			c.Next()
		}),
	), nil
}
