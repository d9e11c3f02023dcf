package gateway

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/relaygate/relaygate/lib"
	"github.com/relaygate/relaygate/lib/ratelimit"
	"github.com/relaygate/relaygate/models"
)

// Handler runs the admission pipeline for one proxied call:
// resolve -> authenticate -> quota -> rate limit -> forward -> record.
// Admission failures short-circuit before any byte reaches the upstream and
// leave no usage trace.
func Handler(forwarder *Forwarder, limiter *ratelimit.Limiter) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()

		api, err := Resolve(ctx, c.Params("gatewayId"))
		if err != nil {
			return err
		}

		apiKey, err := Authenticate(ctx, c.Get("x-api-key"), api.Id)
		if err != nil {
			return err
		}

		sub, err := CheckQuota(ctx, api.AccountID)
		if err != nil {
			return err
		}

		rctx := RequestContext{Api: api, ApiKey: apiKey, Subscription: sub}

		capacity, refillRate := limitsFor(rctx.Api, &rctx.Subscription.Plan)
		limiterKey := fmt.Sprintf("ratelimit:%s:%s", api.Id, apiKey.Id)
		decision := limiter.Allow(ctx, limiterKey, capacity, refillRate, 1)
		ratelimit.SetHeaders(c, decision)
		if !decision.Allowed {
			return lib.ErrRateLimited("Rate limit exceeded")
		}

		inbound := inboundFromFiber(c)
		result, err := forwarder.Forward(ctx, api, inbound)
		if err != nil {
			record(c, rctx, Call{
				Endpoint:   inbound.Path,
				Method:     inbound.Method,
				StatusCode: fiber.StatusBadGateway,
			})
			return err
		}

		record(c, rctx, Call{
			Endpoint:   inbound.Path,
			Method:     inbound.Method,
			StatusCode: result.StatusCode,
			Duration:   result.Duration,
		})

		if result.ContentType != "" {
			c.Set(fiber.HeaderContentType, result.ContentType)
		}
		return c.Status(result.StatusCode).Send(result.Body)
	}
}

// record persists usage without ever touching the response already decided
// for the caller.
func record(c *fiber.Ctx, rctx RequestContext, call Call) {
	if err := Record(c.UserContext(), rctx.Api, rctx.ApiKey, call); err != nil {
		log.Errorw("usage recording failed",
			"correlation_id", c.Locals("requestid"),
			"api_id", rctx.Api.Id,
			"error", err,
		)
	}
}

// limitsFor picks the per-Api overrides when present, else the plan's limits.
func limitsFor(api *models.Apis, plan *models.Plans) (capacity int, refillRate float64) {
	capacity = plan.BurstLimit
	refillRate = float64(plan.RequestsPerSecond)
	if api.RateLimitBurst != nil {
		capacity = *api.RateLimitBurst
	}
	if api.RateLimitRPS != nil {
		refillRate = float64(*api.RateLimitRPS)
	}
	return capacity, refillRate
}

func inboundFromFiber(c *fiber.Ctx) InboundRequest {
	header := make(map[string][]string)
	for name, values := range c.GetReqHeaders() {
		header[name] = values
	}

	body := make([]byte, len(c.Body()))
	copy(body, c.Body())

	return InboundRequest{
		Method:      c.Method(),
		Path:        c.Params("*"),
		QueryString: string(c.Request().URI().QueryString()),
		Header:      header,
		Body:        body,
		CallerIP:    c.IP(),
	}
}
