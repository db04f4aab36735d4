package middleware

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"proxy-config-guard/pkg/cache"
)

// isTestEnvironment checks if running in test/development environment
func isTestEnvironment() bool {
	env := os.Getenv("ENVIRONMENT")
	return env == "test" || env == "development" || os.Getenv("RATE_LIMIT_DISABLED") == "true"
}

// APIRateLimitConfig defines the configuration for API request limiting
type APIRateLimitConfig struct {
	// Requests per window
	Limit int64
	// Time window
	Window time.Duration
	// Key generator function
	KeyGenerator func(c echo.Context) string
	// Skip function (optional)
	Skipper func(c echo.Context) bool
}

// DefaultAPIRateLimitConfig limits each actor, falling back to the client IP
func DefaultAPIRateLimitConfig(limit int64) APIRateLimitConfig {
	return APIRateLimitConfig{
		Limit:  limit,
		Window: time.Minute,
		KeyGenerator: func(c echo.Context) string {
			if actor, ok := ActorFrom(c); ok {
				return fmt.Sprintf("actor:%s", actor.ID)
			}
			return fmt.Sprintf("ip:%s", c.RealIP())
		},
		Skipper: func(c echo.Context) bool {
			return isTestEnvironment() || c.Path() == "/health" || c.Path() == "/metrics"
		},
	}
}

// APIRateLimit counts requests in the shared cache. It is a request-flood guard and
// is independent of the per-actor change budget enforced on mutations.
func APIRateLimit(redisCache *cache.RedisClient, config APIRateLimitConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if config.Skipper != nil && config.Skipper(c) {
				return next(c)
			}

			// Skip if cache is not available
			if redisCache == nil || !redisCache.IsReady() {
				return next(c)
			}

			key := config.KeyGenerator(c)
			if key == "" {
				return next(c)
			}

			result, err := redisCache.CheckAPIRateLimit(c.Request().Context(), key, config.Limit, config.Window)
			if err != nil {
				// On error, allow the request
				log.Printf("[RateLimit] %v", err)
				return next(c)
			}

			if !result.Allowed {
				c.Response().Header().Set("Retry-After", strconv.FormatInt(int64(result.RetryAfter.Seconds()), 10))
				return c.JSON(http.StatusTooManyRequests, map[string]interface{}{
					"success": false,
					"detail":  "Too many requests",
				})
			}

			return next(c)
		}
	}
}
