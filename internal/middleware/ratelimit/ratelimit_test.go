package ratelimit

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLimitedApp(requestsPerMinute int) (*fiber.App, *RateLimiter) {
	rl := New(Config{RequestsPerMinute: requestsPerMinute})
	app := fiber.New()
	app.Use(rl.Middleware())
	app.Get("/", func(c *fiber.Ctx) error { return c.SendString("ok") })
	return app, rl
}

func TestAllowsWithinBudget(t *testing.T) {
	app, rl := newLimitedApp(5)
	defer rl.Stop()

	for i := 0; i < 5; i++ {
		resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	}
}

func TestRejectsOverBudget(t *testing.T) {
	app, rl := newLimitedApp(2)
	defer rl.Stop()

	for i := 0; i < 2; i++ {
		resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
		require.NoError(t, err)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
	}

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
}

func TestSessionHeaderGetsOwnBucket(t *testing.T) {
	app, rl := newLimitedApp(1)
	defer rl.Stop()

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	// Same IP, different session key: fresh bucket.
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Session-ID", "other")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
