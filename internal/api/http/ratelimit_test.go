package http

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

func TestRateLimiterRejectsBurst(t *testing.T) {
	limiter := NewRateLimiter(RateLimiterConfig{PerMinute: 1, Burst: 2}, nil)
	defer limiter.Stop()

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return WriteError(c, zap.NewNop(), nil, err)
		},
	})
	app.Post("/sign-in", limiter.Handler(), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})

	want := []int{fiber.StatusNoContent, fiber.StatusNoContent, fiber.StatusTooManyRequests}
	for i, status := range want {
		resp, err := app.Test(httptest.NewRequest(fiber.MethodPost, "/sign-in", nil), -1)
		if err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
		resp.Body.Close()
		if resp.StatusCode != status {
			t.Fatalf("request %d: status = %d, want %d", i, resp.StatusCode, status)
		}
		if status == fiber.StatusTooManyRequests && resp.Header.Get(fiber.HeaderRetryAfter) == "" {
			t.Fatal("expected Retry-After header")
		}
	}
	if limiter.Len() != 1 {
		t.Fatalf("tracked clients = %d", limiter.Len())
	}
}

func TestRateLimiterEvictsIdleClients(t *testing.T) {
	limiter := NewRateLimiter(RateLimiterConfig{IdleTTL: time.Minute, CleanupInterval: time.Hour}, nil)
	defer limiter.Stop()

	limiter.limiterFor("10.0.0.1")
	limiter.evictIdle(time.Now().Add(2 * time.Minute))
	if limiter.Len() != 0 {
		t.Fatalf("idle client not evicted, %d left", limiter.Len())
	}
}
