package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

var clock = time.Now

// RateLimit limits mutating calls per caller (or IP before authentication)
// to maxPerMin in each clock minute. It is a no-op without Redis or with a
// non-positive limit.
func RateLimit(cache *redis.Client, maxPerMin int) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if cache == nil || maxPerMin <= 0 {
			return c.Next()
		}
		who := CallerID(c)
		if who == "" {
			who = c.IP()
		}
		key := fmt.Sprintf("rl:ft:%s:%d", who, clock().Unix()/60)
		cnt, err := cache.Incr(c.UserContext(), key).Result()
		if err != nil {
			return c.Next() // fail-open on cache errors
		}
		if cnt == 1 {
			cache.Expire(c.UserContext(), key, time.Minute)
		}
		if cnt > int64(maxPerMin) {
			return fiber.NewError(http.StatusTooManyRequests, "too many requests, try again later")
		}
		return c.Next()
	}
}
