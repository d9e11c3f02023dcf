package ratelimit

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
)

// SetHeaders writes the standard rate limit response headers for a decision.
func SetHeaders(c *fiber.Ctx, d Decision) {
	c.Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
	c.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
	c.Set("X-RateLimit-Reset", strconv.FormatInt(d.Reset.Unix(), 10))
	if !d.Allowed {
		c.Set("Retry-After", strconv.FormatInt(int64(d.RetryAfter.Seconds()), 10))
	}
}

// PerIP limits by client address. It guards the ingress edge ahead of any
// tenant lookup, so a noisy source cannot reach the resolver at all.
func PerIP(limiter *Limiter, keyPrefix string, capacity int, refillRate float64) fiber.Handler {
	return func(c *fiber.Ctx) error {
		d := limiter.Allow(c.UserContext(), keyPrefix+":"+c.IP(), capacity, refillRate, 1)
		SetHeaders(c, d)
		if !d.Allowed {
			return fiber.NewError(fiber.StatusTooManyRequests, "Too Many Requests")
		}
		return c.Next()
	}
}
